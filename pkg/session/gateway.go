// Package session implements the admin authentication state machine.
//
// A Gateway moves through three states:
//
//	Unconfigured --setup ok--> NeedsLogin --login ok--> Authenticated
//
// Every transition is driven by an observed server response; nothing is
// inferred locally. Authenticated is terminal for the life of the Gateway
// (there is no logout). Failed attempts never change state.
package session

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/pkg/api"
)

// State is the gateway's authentication state.
type State int

const (
	// StateNeedsLogin is the starting posture: a configured server, or one
	// whose configuration could not be determined.
	StateNeedsLogin State = iota
	// StateUnconfigured means the server reported no admin password.
	StateUnconfigured
	// StateAuthenticated means a login response was observed.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateNeedsLogin:
		return "needs_login"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Client is the subset of the API the gateway calls.
type Client interface {
	AuthStatus(ctx context.Context) (*api.AuthStatus, error)
	Setup(ctx context.Context, password string) error
	Login(ctx context.Context, password string) error
}

// Gateway holds the process's session. It is safe for concurrent use; one
// Gateway is created per process and passed to the components it guards.
type Gateway struct {
	client Client
	logger *zap.Logger

	mu    sync.RWMutex
	state State
}

// NewGateway returns a Gateway in StateNeedsLogin.
func NewGateway(client Client, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{client: client, logger: logger, state: StateNeedsLogin}
}

// State returns the current state.
func (g *Gateway) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Authenticated reports whether a successful login has been observed.
func (g *Gateway) Authenticated() bool {
	return g.State() == StateAuthenticated
}

// Resolve queries the server's configuration status and returns the
// resulting state. A server that reports configured:false yields
// StateUnconfigured; anything else, including a failed request, yields
// StateNeedsLogin. The request error is returned for reporting but the
// state is valid either way.
func (g *Gateway) Resolve(ctx context.Context) (State, error) {
	if g.Authenticated() {
		return StateAuthenticated, nil
	}

	st, err := g.client.AuthStatus(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateAuthenticated {
		return g.state, nil
	}
	if err != nil {
		g.logger.Warn("Auth status check failed", zap.Error(err))
		g.state = StateNeedsLogin
		return g.state, &Error{Op: "resolve", Kind: ErrUnreachable, Err: err}
	}
	if st.Configured {
		g.state = StateNeedsLogin
	} else {
		g.state = StateUnconfigured
	}
	g.logger.Debug("Resolved session state", zap.Stringer("state", g.state))
	return g.state, nil
}

// Setup provisions the admin password. On success the gateway moves to
// StateNeedsLogin; the operator still has to log in.
func (g *Gateway) Setup(ctx context.Context, password string) error {
	if strings.TrimSpace(password) == "" {
		return &Error{Op: "setup", Kind: ErrEmptyPassword}
	}
	if s := g.State(); s != StateUnconfigured {
		return &Error{Op: "setup", Kind: ErrWrongState, State: s}
	}

	err := g.client.Setup(ctx, password)
	if err != nil {
		kind := ErrSetupRejected
		if !answered(err) {
			kind = ErrUnreachable
		}
		g.logger.Warn("Setup failed", zap.Error(err))
		return &Error{Op: "setup", Kind: kind, Err: err}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateUnconfigured {
		g.state = StateNeedsLogin
	}
	g.logger.Info("Admin password configured")
	return nil
}

// Login submits the admin password. On success the gateway becomes
// StateAuthenticated for the rest of its life.
func (g *Gateway) Login(ctx context.Context, password string) error {
	if strings.TrimSpace(password) == "" {
		return &Error{Op: "login", Kind: ErrEmptyPassword}
	}
	switch s := g.State(); s {
	case StateAuthenticated:
		return nil
	case StateUnconfigured:
		return &Error{Op: "login", Kind: ErrWrongState, State: s}
	}

	err := g.client.Login(ctx, password)
	if err != nil {
		kind := ErrInvalidPassword
		if !answered(err) {
			kind = ErrUnreachable
		}
		g.logger.Warn("Login failed", zap.Error(err))
		return &Error{Op: "login", Kind: kind, Err: err}
	}

	g.mu.Lock()
	g.state = StateAuthenticated
	g.mu.Unlock()
	g.logger.Info("Admin session authenticated")
	return nil
}

// answered reports whether err is the server rejecting the request rather
// than the request failing to reach it. Any 4xx counts, body or not; a 5xx
// counts only when the server explained itself in the body.
func answered(err error) bool {
	code := api.StatusCode(err)
	switch {
	case code == 0:
		return false
	case code < 500:
		return true
	default:
		return !api.IsTransport(err)
	}
}
