package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer outputs JSONL records for a job watch.
//
// Implementations must be safe for concurrent use from multiple
// goroutines. Each Write* method emits a complete record as a
// single line of JSON followed by a newline.
type Writer interface {
	// WriteSnapshot emits a snapshot record.
	WriteSnapshot(ctx context.Context, cycle uint64, snap *SnapshotRecord) error

	// WriteFinished emits the completion record.
	WriteFinished(ctx context.Context, cycle uint64, fin *FinishedRecord) error

	// WriteError emits an error record.
	WriteError(ctx context.Context, cycle uint64, err *ErrorRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// JSONLWriter is safe for concurrent use. Writes are serialized using
// a mutex to ensure atomic line writes (no interleaved output).
type JSONLWriter struct {
	w       io.Writer
	watchID string
	mu      sync.Mutex

	// closed indicates the writer has been closed.
	closed bool
}

// NewJSONLWriter creates a new JSONL writer.
//
// Parameters:
//   - w: The underlying writer (stdout, file, etc.)
//   - watchID: Correlation ID for this watch session
func NewJSONLWriter(w io.Writer, watchID string) *JSONLWriter {
	return &JSONLWriter{
		w:       w,
		watchID: watchID,
	}
}

// WriteSnapshot emits a snapshot record.
func (jw *JSONLWriter) WriteSnapshot(ctx context.Context, cycle uint64, snap *SnapshotRecord) error {
	return jw.writeRecord(ctx, TypeSnapshot, cycle, snap)
}

// WriteFinished emits the completion record.
func (jw *JSONLWriter) WriteFinished(ctx context.Context, cycle uint64, fin *FinishedRecord) error {
	return jw.writeRecord(ctx, TypeFinished, cycle, fin)
}

// WriteError emits an error record.
func (jw *JSONLWriter) WriteError(ctx context.Context, cycle uint64, err *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, cycle, err)
}

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed.
// The caller is responsible for closing the underlying writer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line while
// holding the mutex, so concurrent records never interleave.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, cycle uint64, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	record := Record{
		Type:    recordType,
		TS:      time.Now().UTC(),
		WatchID: jw.watchID,
		Cycle:   cycle,
		Data:    dataBytes,
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// io.Writer may return n < len(p) with a nil error; a truncated line
	// would corrupt the stream.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}

	return nil
}

// writeAll writes all bytes to w, looping over short writes.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Compile-time check that JSONLWriter implements Writer.
var _ Writer = (*JSONLWriter)(nil)
