package handler

import "fmt"

// NotInVoiceError indicates the user asked for playback without
// being in a voice channel the bot could join.
type NotInVoiceError struct {
	UserID string
}

func (e *NotInVoiceError) Error() string {
	return fmt.Sprintf("user %s is not in a voice channel", e.UserID)
}

var _ error = (*NotInVoiceError)(nil)

// UserError is an error type that is used to represent
// an error that should be displayed to the user.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var _ error = (*UserError)(nil)
