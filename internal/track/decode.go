package track

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// ErrTruncated indicates that the binary layout declared more bytes
// than the descriptor actually contains.
type ErrTruncated struct {
	Offset int
	Need   int
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("track descriptor truncated at offset %d (need %d more bytes)", e.Offset, e.Need)
}

var _ error = (*ErrTruncated)(nil)

// Decode parses a base64 track descriptor into a Track.
// The input string is preserved as the returned track's Hash.
func Decode(hash string) (*Track, error) {
	buf, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to base64-decode track descriptor: %w", err)
	}

	r := &reader{buf: buf}

	header, err := r.uint32()
	if err != nil {
		return nil, err
	}

	flags := (header >> 30) & 0x3
	version := 1
	if flags&1 != 0 {
		v, err := r.byte()
		if err != nil {
			return nil, err
		}
		version = int(v)
	}

	title, err := r.string()
	if err != nil {
		return nil, fmt.Errorf("failed to read title: %w", err)
	}
	author, err := r.string()
	if err != nil {
		return nil, fmt.Errorf("failed to read author: %w", err)
	}
	duration, err := r.int64()
	if err != nil {
		return nil, fmt.Errorf("failed to read duration: %w", err)
	}
	id, err := r.string()
	if err != nil {
		return nil, fmt.Errorf("failed to read id: %w", err)
	}
	isStream, err := r.bool()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream flag: %w", err)
	}
	hasURL, err := r.bool()
	if err != nil {
		return nil, fmt.Errorf("failed to read url flag: %w", err)
	}

	var url string
	if hasURL && version >= 2 {
		url, err = r.string()
		if err != nil {
			return nil, fmt.Errorf("failed to read url: %w", err)
		}
	}

	return &Track{
		Hash:       hash,
		Title:      title,
		Author:     author,
		ID:         id,
		DurationMs: duration,
		IsStream:   isStream,
		URL:        url,
		CanSeek:    !isStream,
	}, nil
}

// reader walks the descriptor buffer, reporting truncation instead of panicking.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) take(n int) ([]byte, error) {
	if remaining := len(r.buf) - r.pos; remaining < n {
		return nil, &ErrTruncated{Offset: r.pos, Need: n - remaining}
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) bool() (bool, error) {
	b, err := r.byte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) int64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// string reads a modified-UTF-8 string: a big-endian uint16 byte length
// followed by exactly that many bytes. The three sequence shapes are the
// ones the node's serializer emits; anything else is a malformed descriptor.
func (r *reader) string() (string, error) {
	b, err := r.take(2)
	if err != nil {
		return "", err
	}
	length := int(binary.BigEndian.Uint16(b))

	data, err := r.take(length)
	if err != nil {
		return "", err
	}

	return decodeModifiedUTF8(data, r.pos-length)
}

func decodeModifiedUTF8(data []byte, base int) (string, error) {
	runes := make([]rune, 0, len(data))
	for i := 0; i < len(data); {
		b1 := data[i]
		switch {
		case b1&0x80 == 0:
			runes = append(runes, rune(b1))
			i++
		case b1&0xE0 == 0xC0:
			if i+1 >= len(data) {
				return "", &ErrTruncated{Offset: base + i, Need: 1}
			}
			b2 := data[i+1]
			runes = append(runes, rune(b1&0x1F)<<6|rune(b2&0x3F))
			i += 2
		case b1&0xF0 == 0xE0:
			if i+2 >= len(data) {
				return "", &ErrTruncated{Offset: base + i, Need: i + 3 - len(data)}
			}
			b2, b3 := data[i+1], data[i+2]
			runes = append(runes, rune(b1&0x0F)<<12|rune(b2&0x3F)<<6|rune(b3&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("malformed modified-UTF-8 byte 0x%02X at offset %d", b1, base+i)
		}
	}
	return string(runes), nil
}
