// Package output provides JSONL output for indexing job watches.
//
// Output is structured as typed record envelopes containing snapshots,
// completion summaries, and errors. Each line is a self-contained JSON
// object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: ftpfinder.<type>.v<version>
const (
	// TypeSnapshot identifies job status snapshot records.
	TypeSnapshot = "ftpfinder.snapshot.v1"

	// TypeFinished identifies the record emitted once when a job stops.
	TypeFinished = "ftpfinder.finished.v1"

	// TypeError identifies error records.
	TypeError = "ftpfinder.error.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "ftpfinder.snapshot.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// WatchID correlates every record written by one watch session.
	WatchID string `json:"watch_id"`

	// Cycle is the poller cycle the record belongs to.
	Cycle uint64 `json:"cycle"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// SnapshotRecord is the data payload for job status snapshots.
type SnapshotRecord struct {
	// Phase is the poller phase after applying the snapshot.
	Phase string `json:"phase"`

	IsRunning        bool   `json:"is_running"`
	DirectoriesFound int    `json:"directories_found"`
	CurrentSource    string `json:"current_source,omitempty"`
	CurrentPath      string `json:"current_path,omitempty"`

	// NewLogs holds the log lines not present in the previous snapshot.
	NewLogs []string `json:"new_logs,omitempty"`
}

// FinishedRecord is the data payload emitted when the job stops.
type FinishedRecord struct {
	// DirectoriesFound is the count reported by the final snapshot.
	DirectoriesFound int `json:"directories_found"`

	// Snapshots is the number of snapshots observed during the cycle.
	Snapshots int `json:"snapshots"`

	// FetchErrors is the number of failed status fetches.
	FetchErrors int `json:"fetch_errors"`

	// Duration is the time from the start of the watch to completion.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// ErrorRecord is the data payload for errors.
//
// Fetch errors are emitted as records rather than ending the watch, since
// polling continues after a transient failure.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// StatusCode is the HTTP status, when the server answered.
	StatusCode int `json:"status_code,omitempty"`

	// Details contains additional error context.
	Details any `json:"details,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeTransport indicates the server could not be reached.
	ErrCodeTransport = "TRANSPORT"

	// ErrCodeTimeout indicates a fetch exceeded its deadline.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeDecode indicates a malformed or incomplete response.
	ErrCodeDecode = "DECODE"

	// ErrCodeStatus indicates a non-success response from the server.
	ErrCodeStatus = "STATUS"

	// ErrCodeTriggerFailed indicates the job could not be started.
	ErrCodeTriggerFailed = "TRIGGER_FAILED"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
