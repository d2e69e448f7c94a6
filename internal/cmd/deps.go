package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/ftpfinder/internal/config"
	"github.com/3leaps/ftpfinder/internal/observability"
	"github.com/3leaps/ftpfinder/pkg/api"
	"github.com/3leaps/ftpfinder/pkg/jobwatch"
	"github.com/3leaps/ftpfinder/pkg/registry"
	"github.com/3leaps/ftpfinder/pkg/session"
)

// loadedConfig returns the configuration resolved by initApp.
func loadedConfig(ctx context.Context) (*config.Config, error) {
	if cfg := config.GetConfig(); cfg != nil {
		return cfg, nil
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	return cfg, nil
}

func newAPIClient(cfg *config.Config) (*api.Client, error) {
	client, err := api.New(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		UserAgent: config.AppName + "/" + versionInfo.Version,
		Logger:    observability.CLILogger.Named("api"),
	})
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid api.base_url", err)
	}
	return client, nil
}

func newPoller(cfg *config.Config, client *api.Client, gate jobwatch.Gate) *jobwatch.Poller {
	return jobwatch.New(client, gate, jobwatch.Config{
		Interval:     cfg.Poll.Interval,
		FetchTimeout: cfg.Poll.FetchTimeout,
		Logger:       observability.CLILogger.Named("jobwatch"),
	})
}

func newRegistry(client *api.Client, gate registry.Gate) *registry.Client {
	return registry.New(client, gate, observability.CLILogger.Named("registry"))
}

// adminPassword prefers the flag value over auth.password.
func adminPassword(cfg *config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Auth.Password
}

// login authenticates a fresh session for a privileged command.
func login(ctx context.Context, client session.Client, password string) (*session.Gateway, error) {
	gw := session.NewGateway(client, observability.CLILogger.Named("session"))
	st, err := gw.Resolve(ctx)
	if err != nil {
		return nil, sessionExit(err)
	}
	if st == session.StateUnconfigured {
		return nil, exitError(foundry.ExitInvalidArgument,
			"Server is not configured yet; run: ftpfinder auth setup", nil)
	}
	if strings.TrimSpace(password) == "" {
		return nil, exitError(foundry.ExitInvalidArgument,
			"Admin password required (--password, FTPFINDER_PASSWORD or auth.password)", session.ErrEmptyPassword)
	}
	if err := gw.Login(ctx, password); err != nil {
		return nil, sessionExit(err)
	}
	return gw, nil
}

func sessionExit(err error) error {
	if errors.Is(err, session.ErrUnreachable) {
		return exitError(foundry.ExitExternalServiceUnavailable, session.Message(err), err)
	}
	return exitError(foundry.ExitInvalidArgument, session.Message(err), err)
}

// apiExit maps a failed API call to an exit code: server-side and transport
// failures are service errors, everything else is the caller's input.
func apiExit(message string, err error) error {
	switch {
	case errors.Is(err, registry.ErrNotAuthenticated), errors.Is(err, registry.ErrInvalidSource):
		return exitError(foundry.ExitInvalidArgument, message, err)
	case api.IsTransport(err), api.IsDecode(err), api.StatusCode(err) >= 500:
		return exitError(foundry.ExitExternalServiceUnavailable, message, err)
	case api.StatusCode(err) != 0:
		return exitError(foundry.ExitInvalidArgument, message, err)
	default:
		return exitError(foundry.ExitExternalServiceUnavailable, message, err)
	}
}

// stdinConfirmer asks on out and approves only an explicit yes read from
// in.
type stdinConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newStdinConfirmer(in io.Reader, out io.Writer) *stdinConfirmer {
	return &stdinConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *stdinConfirmer) Confirm(prompt string) bool {
	_, _ = fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(c.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
