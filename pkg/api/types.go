package api

import (
	"fmt"
	"strings"
	"time"
)

// AuthStatus is the response of GET /auth/status.
type AuthStatus struct {
	Configured bool `json:"configured"`
}

// Source is a remote crawl target managed by the operator.
//
// ID is assigned by the server and never changes. The client never edits a
// Source in place; it creates and deletes them.
type Source struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SourceCreate is the request body of POST /sources.
type SourceCreate struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// JobSnapshot is the server's cumulative description of the indexing job.
//
// Every fetch returns the full log so far; a snapshot replaces the previous
// one rather than being merged into it. Empty CurrentSource/CurrentPath
// correspond to null on the wire.
type JobSnapshot struct {
	IsRunning        bool     `json:"is_running"`
	DirectoriesFound int      `json:"directories_found"`
	CurrentSource    string   `json:"current_source,omitempty"`
	CurrentPath      string   `json:"current_path,omitempty"`
	Logs             []string `json:"logs"`
}

// Clone returns a deep copy of the snapshot.
func (s *JobSnapshot) Clone() *JobSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Logs = append([]string(nil), s.Logs...)
	return &out
}

// Stats is the aggregate summary served by GET /stats.
type Stats struct {
	Sources     int        `json:"sources"`
	Directories int        `json:"directories"`
	LastUpdated *time.Time `json:"last_updated"`
}

// SearchResult is one indexed directory returned by GET /search.
//
// Name and OriginalLink may be percent-encoded; see display.SafeDecode.
type SearchResult struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	OriginalLink string `json:"original_link"`
	SourceID     int64  `json:"source_id,omitempty"`
}

// Wire shapes use pointers so missing required fields can be told apart
// from zero values.

type authStatusWire struct {
	Configured *bool `json:"configured"`
}

func (w authStatusWire) toAuthStatus() (*AuthStatus, error) {
	if w.Configured == nil {
		return nil, missingField("configured")
	}
	return &AuthStatus{Configured: *w.Configured}, nil
}

type sourceWire struct {
	ID        *int64  `json:"id"`
	Label     *string `json:"label"`
	URL       *string `json:"url"`
	CreatedAt *string `json:"created_at"`
}

func (w sourceWire) toSource() (Source, error) {
	switch {
	case w.ID == nil:
		return Source{}, missingField("id")
	case w.Label == nil:
		return Source{}, missingField("label")
	case w.URL == nil:
		return Source{}, missingField("url")
	}
	src := Source{ID: *w.ID, Label: *w.Label, URL: *w.URL}
	if w.CreatedAt != nil {
		src.CreatedAt = *w.CreatedAt
	}
	return src, nil
}

type snapshotWire struct {
	IsRunning        *bool    `json:"is_running"`
	DirectoriesFound *int     `json:"directories_found"`
	CurrentSource    *string  `json:"current_source"`
	CurrentPath      *string  `json:"current_path"`
	Logs             []string `json:"logs"`
}

func (w snapshotWire) toSnapshot() (*JobSnapshot, error) {
	if w.IsRunning == nil {
		return nil, missingField("is_running")
	}
	if w.DirectoriesFound == nil {
		return nil, missingField("directories_found")
	}
	snap := &JobSnapshot{
		IsRunning:        *w.IsRunning,
		DirectoriesFound: *w.DirectoriesFound,
		Logs:             w.Logs,
	}
	if w.CurrentSource != nil {
		snap.CurrentSource = *w.CurrentSource
	}
	if w.CurrentPath != nil {
		snap.CurrentPath = *w.CurrentPath
	}
	if snap.Logs == nil {
		snap.Logs = []string{}
	}
	return snap, nil
}

type statsWire struct {
	Sources     *int    `json:"sources"`
	Directories *int    `json:"directories"`
	LastUpdated *string `json:"last_updated"`
}

func (w statsWire) toStats() (*Stats, error) {
	if w.Sources == nil {
		return nil, missingField("sources")
	}
	if w.Directories == nil {
		return nil, missingField("directories")
	}
	st := &Stats{Sources: *w.Sources, Directories: *w.Directories}
	if w.LastUpdated != nil {
		// An unparseable timestamp is dropped rather than failing the summary.
		if ts, ok := ParseTimestamp(*w.LastUpdated); ok {
			st.LastUpdated = &ts
		}
	}
	return st, nil
}

type searchResultWire struct {
	ID           *int64  `json:"id"`
	Name         *string `json:"name"`
	OriginalLink *string `json:"original_link"`
	SourceID     *int64  `json:"source_id"`
}

func (w searchResultWire) toResult() (SearchResult, error) {
	switch {
	case w.ID == nil:
		return SearchResult{}, missingField("id")
	case w.Name == nil:
		return SearchResult{}, missingField("name")
	case w.OriginalLink == nil:
		return SearchResult{}, missingField("original_link")
	}
	res := SearchResult{ID: *w.ID, Name: *w.Name, OriginalLink: *w.OriginalLink}
	if w.SourceID != nil {
		res.SourceID = *w.SourceID
	}
	return res, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses the timestamp formats the index server emits.
// Values without a zone are treated as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}
