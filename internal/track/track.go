// Package track decodes the opaque track descriptors issued by the audio node.
//
// A descriptor is a base64 string wrapping a versioned binary layout:
// a flags header, length-prefixed modified-UTF-8 strings for the metadata
// fields, and big-endian integers. The node is the only producer of
// descriptors; this package is decode-only and the original string is
// carried around verbatim as the track's Hash.
package track

// Track is the decoded form of a node-issued descriptor.
// All fields except Position are fixed at decode time.
type Track struct {
	// Hash is the original base64 descriptor, preserved verbatim.
	// It is what gets sent back to the node in play payloads.
	Hash string

	Title      string
	Author     string
	ID         string
	DurationMs int64
	IsStream   bool

	// URL is empty for descriptors older than version 2
	// or when the source provides none.
	URL string

	CanSeek bool

	// PositionMs is updated in place by player update events.
	PositionMs int64
}
