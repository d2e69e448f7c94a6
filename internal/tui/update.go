package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/pkg/api"
	"github.com/3leaps/ftpfinder/pkg/jobwatch"
	"github.com/3leaps/ftpfinder/pkg/registry"
	"github.com/3leaps/ftpfinder/pkg/session"
)

// Update applies one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case viewSetup, viewLogin:
			return m.updateAuthForm(msg)
		case viewDashboard:
			return m.updateDashboard(msg)
		default:
			if msg.String() == "q" {
				return m, tea.Quit
			}
		}
		return m, nil

	case sessionResolvedMsg:
		return m.onSessionResolved(msg)

	case setupResultMsg:
		m.submitted = false
		m.password.Reset()
		if msg.err != nil {
			cmd := m.setToast(session.Message(msg.err), toastError)
			return m, cmd
		}
		m.enterAuthView(viewLogin)
		cmd := m.setToast("Password set. Please log in.", toastSuccess)
		return m, cmd

	case loginResultMsg:
		m.submitted = false
		m.password.Reset()
		if msg.err != nil {
			cmd := m.setToast(session.Message(msg.err), toastError)
			return m, cmd
		}
		return m.enterDashboard(msg.sources, msg.listErr)

	case sourcesLoadedMsg:
		if msg.seq != m.listSeq {
			return m, nil
		}
		if msg.err != nil {
			cmd := m.setToast("Could not load sources: "+errorText(msg.err), toastError)
			return m, cmd
		}
		m.sources = msg.sources
		m.clampCursor()
		return m, nil

	case sourceCreatedMsg:
		m.creating = false
		var cmd tea.Cmd
		if msg.err != nil {
			cmd = m.setToast(errorText(msg.err), toastError)
		} else {
			m.closeAddForm()
			cmd = m.setToast("Added "+msg.label, toastSuccess)
		}
		cmd = tea.Batch(cmd, m.reload())
		return m, cmd

	case sourceDeletedMsg:
		var cmd tea.Cmd
		if msg.err != nil {
			cmd = m.setToast(errorText(msg.err), toastError)
		} else {
			cmd = m.setToast("Source deleted", toastSuccess)
		}
		cmd = tea.Batch(cmd, m.reload())
		return m, cmd

	case triggerResultMsg:
		m.starting = false
		switch {
		case msg.err == nil:
			return m, nil
		case errors.Is(msg.err, jobwatch.ErrAlreadyActive):
			cmd := m.setToast("Indexing already in progress", toastInfo)
			return m, cmd
		default:
			cmd := m.setToast("Could not start indexing: "+errorText(msg.err), toastError)
			return m, cmd
		}

	case resumeResultMsg:
		if msg.err != nil {
			m.deps.Logger.Debug("Job status check on load failed", zap.Error(msg.err))
		}
		return m, nil

	case WatchEventMsg:
		return m.onWatchEvent(msg.Event)

	case toastExpiredMsg:
		if msg.seq == m.toast.seq {
			m.toast = toast{}
		}
		return m, nil

	case bannerExpiredMsg:
		if msg.seq == m.bannerSeq {
			m.banner = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) onSessionResolved(msg sessionResolvedMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if msg.err != nil {
		cmd = m.setToast(session.Message(msg.err), toastError)
	}
	switch msg.state {
	case session.StateAuthenticated:
		m.view = viewDashboard
		cmd = tea.Batch(cmd, m.reload(), m.resume())
		return m, cmd
	case session.StateUnconfigured:
		m.enterAuthView(viewSetup)
	default:
		m.enterAuthView(viewLogin)
	}
	return m, cmd
}

func (m *Model) enterAuthView(v view) {
	m.view = v
	m.password.Reset()
	m.password.Focus()
}

func (m Model) enterDashboard(sources []api.Source, listErr error) (tea.Model, tea.Cmd) {
	m.view = viewDashboard
	m.mode = modeList
	m.password.Blur()

	cmds := []tea.Cmd{m.resume()}
	if listErr != nil {
		cmds = append(cmds, m.setToast("Could not load sources: "+errorText(listErr), toastError))
	} else {
		m.sources = sources
		m.clampCursor()
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) reload() tea.Cmd {
	m.listSeq++
	return m.loadSources(m.listSeq)
}

func (m Model) onWatchEvent(ev jobwatch.Event) (tea.Model, tea.Cmd) {
	if ev.Cycle != m.deps.Watcher.Cycle() {
		return m, nil
	}
	switch ev.Kind {
	case jobwatch.EventFinished:
		cmd := m.showBanner("Indexing finished.")
		return m, cmd
	case jobwatch.EventFetchFailed:
		cmd := m.setToast("Status check failed: "+errorText(ev.Err), toastError)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateAuthForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "enter":
		if m.submitted {
			return m, nil
		}
		m.submitted = true
		if m.view == viewSetup {
			return m, m.setup(m.password.Value())
		}
		return m, m.login(m.password.Value())
	}
	var cmd tea.Cmd
	m.password, cmd = m.password.Update(msg)
	return m, cmd
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAdd:
		return m.updateAddForm(msg)
	case modeConfirm:
		return m.updateConfirm(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "t":
		if m.triggerDisabled() {
			return m, nil
		}
		m.starting = true
		return m, m.trigger()

	case "a":
		m.mode = modeAdd
		m.focus = fieldLabel
		for i := range m.inputs {
			m.inputs[i].Reset()
			m.inputs[i].Blur()
		}
		m.inputs[fieldLabel].Focus()
		return m, nil

	case "d":
		src, ok := m.selected()
		if !ok {
			return m, nil
		}
		req, err := m.deps.Sources.RequestDelete(src.ID)
		if err != nil {
			cmd := m.setToast(errorText(err), toastError)
			return m, cmd
		}
		m.pending = req
		m.mode = modeConfirm
		return m, nil

	case "r":
		cmd := m.reload()
		return m, cmd

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.sources)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m Model) updateAddForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeAddForm()
		return m, nil

	case "tab", "down":
		m.moveFocus(1)
		return m, nil

	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil

	case "enter":
		if m.focus == fieldLabel {
			m.moveFocus(1)
			return m, nil
		}
		if m.creating {
			return m, nil
		}
		m.creating = true
		return m, m.createSource(m.inputs[fieldLabel].Value(), m.inputs[fieldURL].Value())
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) moveFocus(delta int) {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	m.inputs[m.focus].Focus()
}

func (m *Model) closeAddForm() {
	m.mode = modeList
	for i := range m.inputs {
		m.inputs[i].Reset()
		m.inputs[i].Blur()
	}
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	req := m.pending
	switch msg.String() {
	case "y", "Y":
		m.pending = nil
		m.mode = modeList
		return m, m.deleteSource(req)
	case "n", "N", "esc", "enter":
		m.pending = nil
		m.mode = modeList
		req.Decline()
		cmd := m.setToast("Delete cancelled", toastInfo)
		return m, cmd
	}
	return m, nil
}

// errorText renders err as a short operator-facing message.
func errorText(err error) string {
	var se *session.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		return session.Message(err)
	case errors.Is(err, registry.ErrNotAuthenticated), errors.Is(err, jobwatch.ErrNotAuthenticated):
		return "Please log in first"
	case errors.Is(err, registry.ErrInvalidSource):
		return capitalize(strings.TrimPrefix(err.Error(), registry.ErrInvalidSource.Error()+": "))
	case api.IsDecode(err):
		return "Unexpected response from server"
	case api.Detail(err) != "":
		return api.Detail(err)
	case api.IsTransport(err):
		return "Could not reach server"
	default:
		return err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
