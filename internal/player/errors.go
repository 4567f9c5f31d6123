package player

import "fmt"

// ErrQueueEmpty is returned by Skip when there is nothing queued to play.
var ErrQueueEmpty = fmt.Errorf("playback queue is empty")

// ErrDisposed is returned by every command issued after Dispose.
var ErrDisposed = fmt.Errorf("player has been disposed")

// ErrNoTrack is returned by commands that need a current track when the
// player has none loaded.
var ErrNoTrack = fmt.Errorf("no track is loaded")

// InvalidStateError indicates a command that the player's current state
// cannot accept, e.g. seeking while stopped.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s while player is %s", e.Op, e.State)
}

var _ error = (*InvalidStateError)(nil)

// OutOfRangeError indicates a command argument outside its allowed bounds.
type OutOfRangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %v is out of range [%v, %v]", e.Field, e.Value, e.Min, e.Max)
}

var _ error = (*OutOfRangeError)(nil)
