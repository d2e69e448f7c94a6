package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/3leaps/ftpfinder/pkg/display"
)

// View renders the current screen.
func (m Model) View() string {
	var body string
	switch m.view {
	case viewSetup:
		body = m.viewAuthForm("First-time setup", "Choose an admin password.", "Set password")
	case viewLogin:
		body = m.viewAuthForm("Admin login", "Enter the admin password.", "Login")
	case viewDashboard:
		body = m.viewDashboard()
	default:
		body = dimStyle.Render("Loading...")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("FTP Finder Admin"))
	b.WriteString("\n")
	b.WriteString(body)
	if t := m.toastText(); t != "" {
		b.WriteString("\n\n")
		b.WriteString(t)
	}
	return b.String()
}

func (m Model) toastText() string {
	if m.toast.text == "" {
		return ""
	}
	text := display.Truncate(m.toast.text, m.width)
	switch m.toast.level {
	case toastSuccess:
		return toastSuccessStyle.Render(text)
	case toastError:
		return toastErrorStyle.Render(text)
	default:
		return toastInfoStyle.Render(text)
	}
}

func (m Model) viewAuthForm(title, hint, action string) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(hint))
	b.WriteString("\n\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")
	if m.submitted {
		b.WriteString(disabledStyle.Render(action + "..."))
	} else {
		b.WriteString(buttonStyle.Render(action))
	}
	b.WriteString(helpStyle.Render("enter submit • esc quit"))
	return boxStyle.Render(b.String())
}

func (m Model) viewDashboard() string {
	sections := []string{m.viewJob()}
	if m.banner != "" {
		sections = append(sections, bannerStyle.Render(m.banner))
	}
	sections = append(sections, m.viewSources())

	switch m.mode {
	case modeAdd:
		sections = append(sections, m.viewAddForm())
	case modeConfirm:
		sections = append(sections, m.viewConfirm())
	}

	sections = append(sections, helpStyle.Render(m.helpText()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewJob() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Indexer"))
	b.WriteString("\n")
	if m.triggerDisabled() {
		b.WriteString(disabledStyle.Render("Indexing..."))
	} else {
		b.WriteString(buttonStyle.Render("Trigger Indexing"))
	}

	if !m.triggerDisabled() {
		return b.String()
	}

	snap := m.deps.Watcher.Snapshot()
	b.WriteString("\n\n")
	if snap == nil {
		b.WriteString(dimStyle.Render("Starting..."))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Found: %s dirs\n", display.Count(snap.DirectoriesFound)))
	src := snap.CurrentSource
	if src == "" {
		src = "Preparing..."
	}
	b.WriteString(display.Truncate("Source: "+src, m.width))
	if snap.CurrentPath != "" {
		b.WriteString("\n")
		b.WriteString(display.Truncate("Crawling: "+display.SafeDecode(snap.CurrentPath), m.width))
	}
	if len(snap.Logs) > 0 {
		b.WriteString("\n\n")
		for _, line := range display.Tail(snap.Logs, logTailLines) {
			b.WriteString(dimStyle.Render(display.Truncate(line, m.width)))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewSources() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("Sources (%d)", len(m.sources))))
	b.WriteString("\n")
	if len(m.sources) == 0 {
		b.WriteString(dimStyle.Render("No sources yet. Press a to add one."))
		return b.String()
	}
	for i, src := range m.sources {
		row := display.Truncate(fmt.Sprintf("%4d  %-20s  %s", src.ID, src.Label, src.URL), m.width)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(row))
		} else {
			b.WriteString(normalStyle.Render(row))
		}
		if i < len(m.sources)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) viewAddForm() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Add source"))
	b.WriteString("\n")
	b.WriteString("Label: ")
	b.WriteString(m.inputs[fieldLabel].View())
	b.WriteString("\n")
	b.WriteString("URL:   ")
	b.WriteString(m.inputs[fieldURL].View())
	if m.creating {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Adding..."))
	}
	return boxStyle.Render(b.String())
}

func (m Model) viewConfirm() string {
	label := ""
	for _, src := range m.sources {
		if m.pending != nil && src.ID == m.pending.ID() {
			label = src.Label
			break
		}
	}
	prompt := "Delete source?"
	if label != "" {
		prompt = fmt.Sprintf("Delete %q?", label)
	}
	if m.pending != nil {
		prompt += " " + m.pending.Prompt()
	}
	return promptStyle.Render(prompt + " [y/N]")
}

func (m Model) helpText() string {
	switch m.mode {
	case modeAdd:
		return "tab switch field • enter submit • esc cancel"
	case modeConfirm:
		return "y delete • n cancel"
	}
	return "t trigger • a add • d delete • r refresh • ↑/↓ move • q quit"
}
