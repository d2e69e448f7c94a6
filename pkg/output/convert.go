package output

import (
	"context"
	"errors"

	"github.com/3leaps/ftpfinder/pkg/api"
)

// NewSnapshotRecord converts snap into a record. seen is the number of log
// lines already reported for the cycle; only lines after it are included.
// The server resets the log at the start of each run, so a shorter log
// than seen is reported in full.
func NewSnapshotRecord(phase string, snap *api.JobSnapshot, seen int) *SnapshotRecord {
	rec := &SnapshotRecord{
		Phase:            phase,
		IsRunning:        snap.IsRunning,
		DirectoriesFound: snap.DirectoriesFound,
		CurrentSource:    snap.CurrentSource,
		CurrentPath:      snap.CurrentPath,
	}
	if seen < 0 || seen > len(snap.Logs) {
		seen = 0
	}
	if seen < len(snap.Logs) {
		rec.NewLogs = append([]string(nil), snap.Logs[seen:]...)
	}
	return rec
}

// NewErrorRecord classifies err into an error record.
func NewErrorRecord(err error) *ErrorRecord {
	rec := &ErrorRecord{Code: ErrCodeInternal, Message: err.Error()}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		rec.Code = ErrCodeTimeout
	case api.IsDecode(err):
		rec.Code = ErrCodeDecode
	case api.StatusCode(err) != 0 && !api.IsTransport(err):
		rec.Code = ErrCodeStatus
		rec.StatusCode = api.StatusCode(err)
	case api.IsTransport(err):
		rec.Code = ErrCodeTransport
		rec.StatusCode = api.StatusCode(err)
	}
	return rec
}
