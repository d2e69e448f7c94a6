package cmd

import (
	"errors"
	"fmt"
)

// exitErr carries the process exit code for a failed command.
type exitErr struct {
	code    int
	message string
	err     error
}

func (e *exitErr) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s (exit code %d)", e.message, e.code)
	}
	return fmt.Sprintf("%s (exit code %d): %v", e.message, e.code, e.err)
}

func (e *exitErr) Unwrap() error {
	return e.err
}

// exitError wraps err with an exit code from the foundry catalog.
func exitError(code int, message string, err error) error {
	return &exitErr{code: code, message: message, err: err}
}

// ExitCode returns the exit code carried by err: 0 for nil, 1 when err has
// none.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
