package compose

import (
	"errors"
)

var (
	ErrNoGroup      = errors.New("no group given")
	ErrMissingTitle = errors.New("thread title is required")
	ErrNoThread     = errors.New("no thread to comment on")
)

// Failure is returned by every Send method that did not get its event
// accepted. Title and Description are meant to be shown to the user as is.
type Failure struct {
	Title       string
	Description string
	Err         error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Title
	}
	return f.Title + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

const tryAgain = "Please try again."

func fail(title, description string, err error) *Failure {
	return &Failure{Title: title, Description: description, Err: err}
}
