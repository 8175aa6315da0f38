package harvest

import (
	"errors"
	"strings"
)

var (
	// ErrNotReady is returned when an action's prerequisites are missing,
	// e.g. fetching prices with no market selected. Nothing is issued.
	ErrNotReady = errors.New("prerequisites not met")

	// ErrBusy is returned when a narrative request is already outstanding.
	ErrBusy = errors.New("request already in progress")

	// ErrEmptyNarrative is returned when the narrative service answers with no text.
	ErrEmptyNarrative = errors.New("empty narrative")

	// ErrClosed is returned by operations on a closed view or stopped controller.
	ErrClosed = errors.New("view closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("already started")
)

// UserMessager is implemented by errors that carry text meant for the user,
// such as the detail field of a backend error response.
type UserMessager interface {
	UserMessage() string
}

// Message returns the user-facing text for err. It walks the wrap chain for a
// UserMessager and falls back to fallback when none is found or it is blank.
// A nil error yields an empty string.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var um UserMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}

// Failure is an error with a user-facing message attached.
type Failure struct {
	Msg string
	Err error
}

// Fail wraps err with a user-facing message.
func Fail(msg string, err error) *Failure {
	return &Failure{Msg: msg, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Msg
	}
	return f.Msg + ": " + f.Err.Error()
}

// UserMessage implements UserMessager.
func (f *Failure) UserMessage() string { return f.Msg }

func (f *Failure) Unwrap() error { return f.Err }
