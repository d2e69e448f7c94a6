package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/3leaps/ftpfinder/pkg/api"
	"github.com/3leaps/ftpfinder/pkg/jobwatch"
	"github.com/3leaps/ftpfinder/pkg/registry"
	"github.com/3leaps/ftpfinder/pkg/session"
)

type sessionResolvedMsg struct {
	state session.State
	err   error
}

type setupResultMsg struct {
	err error
}

// loginResultMsg carries the first source list fetched after a successful
// login.
type loginResultMsg struct {
	err     error
	sources []api.Source
	listErr error
}

type sourcesLoadedMsg struct {
	seq     uint64
	sources []api.Source
	err     error
}

type sourceCreatedMsg struct {
	label string
	err   error
}

type sourceDeletedMsg struct {
	id  int64
	err error
}

type triggerResultMsg struct {
	cycle uint64
	err   error
}

type resumeResultMsg struct {
	running bool
	err     error
}

// WatchEventMsg delivers a poller event to the model.
type WatchEventMsg struct {
	Event jobwatch.Event
}

type toastExpiredMsg struct{ seq uint64 }

type bannerExpiredMsg struct{ seq uint64 }

func (m Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.deps.RequestTimeout)
}

func (m Model) resolve() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		st, err := m.deps.Session.Resolve(ctx)
		return sessionResolvedMsg{state: st, err: err}
	}
}

func (m Model) setup(password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return setupResultMsg{err: m.deps.Session.Setup(ctx, password)}
	}
}

func (m Model) login(password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if err := m.deps.Session.Login(ctx, password); err != nil {
			return loginResultMsg{err: err}
		}
		sources, err := m.deps.Sources.List(ctx)
		return loginResultMsg{sources: sources, listErr: err}
	}
}

func (m Model) loadSources(seq uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		sources, err := m.deps.Sources.List(ctx)
		return sourcesLoadedMsg{seq: seq, sources: sources, err: err}
	}
}

func (m Model) createSource(label, rawURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return sourceCreatedMsg{label: label, err: m.deps.Sources.Create(ctx, label, rawURL)}
	}
}

func (m Model) deleteSource(req *registry.DeleteRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return sourceDeletedMsg{id: req.ID(), err: req.Confirm(ctx)}
	}
}

func (m Model) trigger() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		cycle, err := m.deps.Watcher.Trigger(ctx)
		return triggerResultMsg{cycle: cycle, err: err}
	}
}

func (m Model) resume() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		running, err := m.deps.Watcher.Resume(ctx)
		return resumeResultMsg{running: running, err: err}
	}
}
