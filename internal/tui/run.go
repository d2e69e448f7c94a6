package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/3leaps/ftpfinder/pkg/jobwatch"
)

// Run starts the dashboard and blocks until the operator quits or ctx is
// canceled.
func Run(ctx context.Context, deps Deps, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(deps), opts...)

	stop := make(chan struct{})
	defer close(stop)
	go forward(p.Send, deps.Watcher, stop)

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
	return nil
}

type eventSource interface {
	Events() <-chan jobwatch.Event
	Done() <-chan struct{}
}

// forward delivers poller events to the program until the poller closes or
// stop is closed.
func forward(send func(tea.Msg), w eventSource, stop <-chan struct{}) {
	events := w.Events()
	for {
		select {
		case ev := <-events:
			send(WatchEventMsg{Event: ev})
		case <-w.Done():
			return
		case <-stop:
			return
		}
	}
}
