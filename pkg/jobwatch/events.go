package jobwatch

import "github.com/3leaps/ftpfinder/pkg/api"

// Phase is the poller's view of the job lifecycle.
type Phase int

const (
	// PhaseIdle means no cycle is active and nothing is being fetched.
	PhaseIdle Phase = iota
	// PhaseStarting covers the window between a trigger and the first
	// snapshot: the job's state is not known yet.
	PhaseStarting
	// PhaseRunning means the last snapshot of the cycle reported a running job.
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	default:
		return "unknown"
	}
}

// EventKind identifies an Event.
type EventKind int

const (
	// EventSnapshot carries a freshly applied snapshot.
	EventSnapshot EventKind = iota + 1
	// EventFinished fires once per cycle when the job reports it stopped.
	EventFinished
	// EventFetchFailed reports a transient status fetch failure. Polling
	// continues.
	EventFetchFailed
	// EventTriggerFailed reports that the start request failed and the
	// cycle ended without polling.
	EventTriggerFailed
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventFinished:
		return "finished"
	case EventFetchFailed:
		return "fetch_failed"
	case EventTriggerFailed:
		return "trigger_failed"
	default:
		return "unknown"
	}
}

// Event is delivered on Poller.Events. Cycle identifies the trigger cycle
// that produced it; consumers drop events from a cycle they no longer track.
type Event struct {
	Cycle    uint64
	Kind     EventKind
	Snapshot *api.JobSnapshot
	Err      error
}
