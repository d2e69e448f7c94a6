package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/ftpfinder/pkg/api"
)

func TestNewJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "watch-123")

	assert.NotNil(t, w)
	assert.Equal(t, "watch-123", w.watchID)
}

func TestJSONLWriter_WriteSnapshot(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "watch-123")

	snap := &SnapshotRecord{
		Phase:            "running",
		IsRunning:        true,
		DirectoriesFound: 3,
		CurrentSource:    "Mirror",
		CurrentPath:      "/pub/linux",
		NewLogs:          []string{"Indexing source: Mirror"},
	}

	err := w.WriteSnapshot(context.Background(), 2, snap)
	require.NoError(t, err)

	var record Record
	err = json.Unmarshal(buf.Bytes(), &record)
	require.NoError(t, err)

	assert.Equal(t, TypeSnapshot, record.Type)
	assert.Equal(t, "watch-123", record.WatchID)
	assert.Equal(t, uint64(2), record.Cycle)
	assert.False(t, record.TS.IsZero())

	var data SnapshotRecord
	err = json.Unmarshal(record.Data, &data)
	require.NoError(t, err)
	assert.Equal(t, *snap, data)
}

func TestJSONLWriter_WriteFinished(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "watch-123")

	fin := &FinishedRecord{
		DirectoriesFound: 120,
		Snapshots:        9,
		FetchErrors:      1,
		Duration:         9 * time.Second,
		DurationHuman:    "9s",
	}

	err := w.WriteFinished(context.Background(), 1, fin)
	require.NoError(t, err)

	var record Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, TypeFinished, record.Type)

	var data FinishedRecord
	require.NoError(t, json.Unmarshal(record.Data, &data))
	assert.Equal(t, *fin, data)
}

func TestJSONLWriter_WriteError(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "watch-123")

	err := w.WriteError(context.Background(), 1, &ErrorRecord{
		Code:    ErrCodeTransport,
		Message: "connection refused",
	})
	require.NoError(t, err)

	var record Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, TypeError, record.Type)

	var data map[string]any
	require.NoError(t, json.Unmarshal(record.Data, &data))
	assert.Equal(t, "TRANSPORT", data["code"])
	assert.NotContains(t, data, "status_code")
	assert.NotContains(t, data, "details")
}

func TestJSONLWriter_NewlineTerminated(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "watch-123")

	require.NoError(t, w.WriteSnapshot(context.Background(), 1, &SnapshotRecord{Phase: "running"}))
	require.NoError(t, w.WriteFinished(context.Background(), 1, &FinishedRecord{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)

	for _, line := range lines {
		var record Record
		assert.NoError(t, json.Unmarshal([]byte(line), &record))
	}
}

func TestJSONLWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "watch-123")

	require.NoError(t, w.Close())

	err := w.WriteSnapshot(context.Background(), 1, &SnapshotRecord{})
	assert.ErrorIs(t, err, ErrWriterClosed)
	assert.Empty(t, buf.String())
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "watch-123")

	const numWriters = 10
	const writesPerWriter = 100

	var wg sync.WaitGroup
	wg.Add(numWriters)

	for i := 0; i < numWriters; i++ {
		go func(writerID int) {
			defer wg.Done()
			for j := 0; j < writesPerWriter; j++ {
				_ = w.WriteSnapshot(context.Background(), uint64(writerID), &SnapshotRecord{
					Phase:            "running",
					DirectoriesFound: writerID*writesPerWriter + j,
				})
			}
		}(i)
	}

	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, numWriters*writesPerWriter)

	for i, line := range lines {
		var record Record
		assert.NoError(t, json.Unmarshal([]byte(line), &record), "line %d should be valid JSON: %s", i, line)
	}
}

func TestJSONLWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "watch-123")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WriteSnapshot(ctx, 1, &SnapshotRecord{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}

func TestJSONLWriter_WriteFailure(t *testing.T) {
	w := NewJSONLWriter(&failingWriter{err: errors.New("disk full")}, "watch-123")

	err := w.WriteSnapshot(context.Background(), 1, &SnapshotRecord{})
	require.Error(t, err)

	var writeErr *WriteError
	assert.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "write", writeErr.Op)
}

// failingWriter is an io.Writer that always returns an error.
type failingWriter struct {
	err error
}

func (f *failingWriter) Write(p []byte) (n int, err error) {
	return 0, f.err
}

func TestJSONLWriter_ShortWrite(t *testing.T) {
	shortWriter := &shortWriteWriter{bytesPerWrite: 10}
	w := NewJSONLWriter(shortWriter, "watch-123")

	err := w.WriteSnapshot(context.Background(), 1, &SnapshotRecord{
		Phase:       "running",
		CurrentPath: "/pub/releases/2024",
		NewLogs:     []string{"Indexing source: Mirror"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(shortWriter.buf.String()), "\n")
	assert.Len(t, lines, 1)

	var record Record
	assert.NoError(t, json.Unmarshal([]byte(lines[0]), &record), "output should be valid JSON despite short writes")
	assert.Equal(t, TypeSnapshot, record.Type)
}

func TestJSONLWriter_ZeroWrite(t *testing.T) {
	w := NewJSONLWriter(&zeroWriteWriter{}, "watch-123")

	err := w.WriteSnapshot(context.Background(), 1, &SnapshotRecord{})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

// shortWriteWriter writes at most bytesPerWrite bytes per call.
type shortWriteWriter struct {
	buf           bytes.Buffer
	bytesPerWrite int
}

func (sw *shortWriteWriter) Write(p []byte) (n int, err error) {
	toWrite := len(p)
	if toWrite > sw.bytesPerWrite {
		toWrite = sw.bytesPerWrite
	}
	return sw.buf.Write(p[:toWrite])
}

// zeroWriteWriter always returns 0 bytes written with nil error.
type zeroWriteWriter struct{}

func (zw *zeroWriteWriter) Write(p []byte) (n int, err error) {
	return 0, nil
}

func TestWriteError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &WriteError{Op: "marshal", Err: underlying}

	assert.Equal(t, "output: marshal: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestSnapshotRecord_OmitEmpty(t *testing.T) {
	b, err := json.Marshal(&SnapshotRecord{Phase: "starting"})
	require.NoError(t, err)

	s := string(b)
	assert.NotContains(t, s, "current_source")
	assert.NotContains(t, s, "current_path")
	assert.NotContains(t, s, "new_logs")
	assert.Contains(t, s, `"directories_found":0`)
}

func TestNewSnapshotRecord(t *testing.T) {
	snap := &api.JobSnapshot{
		IsRunning:        true,
		DirectoriesFound: 4,
		CurrentSource:    "Mirror",
		Logs:             []string{"a", "b", "c"},
	}

	tests := []struct {
		name string
		seen int
		want []string
	}{
		{name: "first snapshot", seen: 0, want: []string{"a", "b", "c"}},
		{name: "partial", seen: 2, want: []string{"c"}},
		{name: "nothing new", seen: 3, want: nil},
		{name: "log was reset", seen: 10, want: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewSnapshotRecord("running", snap, tt.seen)
			assert.Equal(t, tt.want, rec.NewLogs)
			assert.Equal(t, 4, rec.DirectoriesFound)
			assert.Equal(t, "Mirror", rec.CurrentSource)
			assert.True(t, rec.IsRunning)
		})
	}
}

func TestNewErrorRecord(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{name: "refused", err: &api.TransportError{Op: "index status", Err: errors.New("connection refused")}, wantCode: ErrCodeTransport},
		{name: "timeout", err: &api.TransportError{Op: "index status", Err: context.DeadlineExceeded}, wantCode: ErrCodeTimeout},
		{name: "decode", err: &api.DecodeError{Op: "index status", Err: api.ErrMissingField}, wantCode: ErrCodeDecode},
		{name: "status with detail", err: &api.StatusError{Op: "index status", StatusCode: 503, Detail: "busy", Parsed: true}, wantCode: ErrCodeStatus, wantStatus: 503},
		{name: "bare status", err: &api.StatusError{Op: "index status", StatusCode: 502}, wantCode: ErrCodeTransport, wantStatus: 502},
		{name: "other", err: fmt.Errorf("boom"), wantCode: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewErrorRecord(tt.err)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, rec.StatusCode)
			assert.NotEmpty(t, rec.Message)
		})
	}
}

func BenchmarkJSONLWriter_WriteSnapshot(b *testing.B) {
	w := NewJSONLWriter(io.Discard, "bench")
	snap := &SnapshotRecord{
		Phase:            "running",
		IsRunning:        true,
		DirectoriesFound: 1000,
		CurrentSource:    "Mirror",
		CurrentPath:      "/pub/releases/2024/q1",
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.WriteSnapshot(ctx, 1, snap)
	}
}
