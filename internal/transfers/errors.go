package transfers

import (
	"context"
	"errors"
	"fmt"
)

var (
	errPanicked      = errors.New("transfer operation panicked")
	errEmptyTransfer = errors.New("empty transfer response")
)

// inputError marks a failure detected before any request was sent. Its text
// is shown to the admin as is.
type inputError struct {
	err error
}

func (e *inputError) Error() string {
	return e.err.Error()
}

func (e *inputError) Unwrap() error {
	return e.err
}

func invalidf(format string, args ...any) error {
	return &inputError{err: fmt.Errorf(format, args...)}
}

// isCanceled reports whether a read was abandoned by the caller. Such reads
// are dropped quietly; the caller has already moved on.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
