package session

import (
	"errors"
	"strings"

	"github.com/3leaps/ftpfinder/pkg/api"
)

var (
	// ErrEmptyPassword is returned without contacting the server.
	ErrEmptyPassword = errors.New("password is required")

	// ErrInvalidPassword means the server rejected the credential.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrSetupRejected means the server refused first-time setup.
	ErrSetupRejected = errors.New("setup rejected")

	// ErrUnreachable means no usable answer came back from the server.
	ErrUnreachable = errors.New("server unreachable")

	// ErrWrongState means the operation does not apply to the current state.
	ErrWrongState = errors.New("operation not valid in current session state")
)

// Error describes a failed gateway operation. Kind is one of the package
// sentinels; Err is the underlying cause when there is one.
type Error struct {
	Op    string
	Kind  error
	Err   error
	State State
}

func (e *Error) Error() string {
	msg := "session: " + e.Op + ": " + e.Kind.Error()
	if errors.Is(e.Kind, ErrWrongState) {
		msg += " (" + e.State.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message renders err as the short operator-facing text shown by the
// dashboard and the CLI.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrEmptyPassword):
		return "Password is required"
	case errors.Is(err, ErrInvalidPassword):
		return "Invalid password"
	case errors.Is(err, ErrSetupRejected):
		if detail := strings.TrimSpace(api.Detail(err)); detail != "" {
			return "Setup failed: " + detail
		}
		return "Setup failed."
	case errors.Is(err, ErrUnreachable):
		return "Could not reach server"
	case errors.Is(err, ErrWrongState):
		var se *Error
		if errors.As(err, &se) && se.State == StateUnconfigured {
			return "Server is not configured yet; run setup first"
		}
		return "Already configured; please login"
	default:
		return err.Error()
	}
}
