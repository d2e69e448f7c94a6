// Package registry manages the server's list of crawl sources.
//
// The Client is a thin wrapper over the API: the only state it holds is the
// most recently fetched list, which every List call replaces wholesale.
// Mutations never patch that list locally; callers list again after a
// create or delete so the cache always reflects server truth.
//
// Reads are public. Create and Delete require an authenticated Gate.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/pkg/api"
)

// DeletePrompt is shown before a source and its indexed data are destroyed.
const DeletePrompt = "Are you sure? This will delete all indexed directories for this source."

var (
	// ErrNotAuthenticated is returned for mutations without a session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidSource is returned when a create payload fails validation.
	ErrInvalidSource = errors.New("invalid source")

	// ErrDeleteDeclined is returned when the operator declines a delete.
	ErrDeleteDeclined = errors.New("delete declined")

	// ErrDeleteSettled is returned when a DeleteRequest is used twice.
	ErrDeleteSettled = errors.New("delete request already settled")
)

// Gate reports whether privileged operations are allowed.
type Gate interface {
	Authenticated() bool
}

// Transport is the subset of the API the registry calls.
type Transport interface {
	ListSources(ctx context.Context) ([]api.Source, error)
	CreateSource(ctx context.Context, in api.SourceCreate) error
	DeleteSource(ctx context.Context, id int64) error
}

// Confirmer asks a human to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// Client is the resource registry client.
type Client struct {
	transport Transport
	gate      Gate
	logger    *zap.Logger

	mu        sync.Mutex
	sources   []api.Source
	fetchedAt time.Time
}

// New returns a registry client guarded by gate.
func New(transport Transport, gate Gate, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{transport: transport, gate: gate, logger: logger}
}

// List fetches the full set of sources and replaces the cached list. Order
// is whatever the server returns.
func (c *Client) List(ctx context.Context) ([]api.Source, error) {
	sources, err := c.transport.ListSources(ctx)
	if err != nil {
		c.logger.Warn("List sources failed", zap.Error(err))
		return nil, fmt.Errorf("list sources: %w", err)
	}

	c.mu.Lock()
	c.sources = append([]api.Source(nil), sources...)
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug("Listed sources", zap.Int("count", len(sources)))
	return sources, nil
}

// Sources returns a copy of the last fetched list.
func (c *Client) Sources() []api.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Source(nil), c.sources...)
}

// FetchedAt reports when the cached list was last replaced.
func (c *Client) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}

// Create submits a new source. The created record is not returned; call
// List to observe it.
func (c *Client) Create(ctx context.Context, label, rawURL string) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	in, err := ValidateSource(label, rawURL)
	if err != nil {
		return err
	}

	if err := c.transport.CreateSource(ctx, in); err != nil {
		c.logger.Warn("Create source failed",
			zap.String("label", in.Label),
			zap.String("url", in.URL),
			zap.Error(err))
		return fmt.Errorf("create source: %w", err)
	}
	c.logger.Info("Created source", zap.String("label", in.Label), zap.String("url", in.URL))
	return nil
}

// Delete removes a source after confirm approves DeletePrompt. A nil
// confirmer declines. When declined, no request is sent.
func (c *Client) Delete(ctx context.Context, id int64, confirm Confirmer) error {
	req, err := c.RequestDelete(id)
	if err != nil {
		return err
	}
	if confirm == nil || !confirm.Confirm(req.Prompt()) {
		req.Decline()
		return ErrDeleteDeclined
	}
	return req.Confirm(ctx)
}

// RequestDelete opens a pending delete for id. Nothing is sent until the
// returned request is confirmed, which lets interactive callers ask for
// approval asynchronously.
func (c *Client) RequestDelete(id int64) (*DeleteRequest, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	return &DeleteRequest{client: c, id: id}, nil
}

func (c *Client) requireSession() error {
	if c.gate == nil || !c.gate.Authenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// DeleteRequest is a delete awaiting human confirmation.
type DeleteRequest struct {
	client *Client
	id     int64

	mu      sync.Mutex
	settled bool
}

// ID returns the source id to be deleted.
func (r *DeleteRequest) ID() int64 {
	return r.id
}

// Prompt returns the confirmation text.
func (r *DeleteRequest) Prompt() string {
	return DeletePrompt
}

// Confirm sends the delete.
func (r *DeleteRequest) Confirm(ctx context.Context) error {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		return ErrDeleteSettled
	}
	r.settled = true
	r.mu.Unlock()

	if err := r.client.requireSession(); err != nil {
		return err
	}
	if err := r.client.transport.DeleteSource(ctx, r.id); err != nil {
		r.client.logger.Warn("Delete source failed", zap.Int64("id", r.id), zap.Error(err))
		return fmt.Errorf("delete source %d: %w", r.id, err)
	}
	r.client.logger.Info("Deleted source", zap.Int64("id", r.id))
	return nil
}

// Decline abandons the delete. Later Confirm calls fail with
// ErrDeleteSettled.
func (r *DeleteRequest) Decline() {
	r.mu.Lock()
	r.settled = true
	r.mu.Unlock()
	r.client.logger.Debug("Delete declined", zap.Int64("id", r.id))
}

// ValidateSource trims and checks a create payload: both fields are
// required and the URL must be absolute with a host.
func ValidateSource(label, rawURL string) (api.SourceCreate, error) {
	label = strings.TrimSpace(label)
	rawURL = strings.TrimSpace(rawURL)
	if label == "" {
		return api.SourceCreate{}, fmt.Errorf("%w: label is required", ErrInvalidSource)
	}
	if rawURL == "" {
		return api.SourceCreate{}, fmt.Errorf("%w: url is required", ErrInvalidSource)
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return api.SourceCreate{}, fmt.Errorf("%w: url must be absolute (e.g. http://example.com/)", ErrInvalidSource)
	}
	return api.SourceCreate{Label: label, URL: rawURL}, nil
}
