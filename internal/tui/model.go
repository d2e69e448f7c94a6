// Package tui is the admin dashboard: session forms, the source list and a
// live view of the indexing job.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/pkg/api"
	"github.com/3leaps/ftpfinder/pkg/jobwatch"
	"github.com/3leaps/ftpfinder/pkg/registry"
	"github.com/3leaps/ftpfinder/pkg/session"
)

const (
	// DefaultMessageTTL is how long banners and status messages stay up.
	DefaultMessageTTL = 3 * time.Second

	// DefaultRequestTimeout bounds session and source requests.
	DefaultRequestTimeout = 10 * time.Second

	logTailLines = 12
)

// Session is the authentication state machine the dashboard renders from.
type Session interface {
	State() session.State
	Resolve(ctx context.Context) (session.State, error)
	Setup(ctx context.Context, password string) error
	Login(ctx context.Context, password string) error
}

// Sources manages the source list.
type Sources interface {
	List(ctx context.Context) ([]api.Source, error)
	Create(ctx context.Context, label, rawURL string) error
	RequestDelete(id int64) (*registry.DeleteRequest, error)
}

// Watcher tracks the indexing job.
type Watcher interface {
	Trigger(ctx context.Context) (uint64, error)
	Resume(ctx context.Context) (bool, error)
	Snapshot() *api.JobSnapshot
	Phase() jobwatch.Phase
	Active() bool
	Cycle() uint64
	Events() <-chan jobwatch.Event
	Done() <-chan struct{}
}

// Deps wires the dashboard to its components.
type Deps struct {
	Session Session
	Sources Sources
	Watcher Watcher

	MessageTTL     time.Duration
	RequestTimeout time.Duration
	Logger         *zap.Logger

	// After schedules msg after d. Nil uses tea.Tick.
	After func(d time.Duration, msg tea.Msg) tea.Cmd
}

type view int

const (
	viewLoading view = iota
	viewSetup
	viewLogin
	viewDashboard
)

func (v view) String() string {
	switch v {
	case viewLoading:
		return "loading"
	case viewSetup:
		return "setup"
	case viewLogin:
		return "login"
	case viewDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeConfirm
)

const (
	fieldLabel = iota
	fieldURL
	fieldCount
)

type toastLevel int

const (
	toastInfo toastLevel = iota
	toastSuccess
	toastError
)

type toast struct {
	text  string
	level toastLevel
	seq   uint64
}

// Model is the dashboard's bubbletea model.
type Model struct {
	deps Deps

	view   view
	mode   mode
	width  int
	height int

	password  textinput.Model
	submitted bool

	inputs   [fieldCount]textinput.Model
	focus    int
	creating bool

	sources []api.Source
	cursor  int
	listSeq uint64
	pending *registry.DeleteRequest

	// starting covers the gap between the trigger key and the poller
	// entering its starting phase.
	starting bool

	toast     toast
	banner    string
	bannerSeq uint64
	noticeSeq uint64
}

// New returns a dashboard in its loading view.
func New(deps Deps) Model {
	if deps.MessageTTL <= 0 {
		deps.MessageTTL = DefaultMessageTTL
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = DefaultRequestTimeout
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.After == nil {
		deps.After = func(d time.Duration, msg tea.Msg) tea.Cmd {
			return tea.Tick(d, func(time.Time) tea.Msg { return msg })
		}
	}

	pw := newInput("password", 128)
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'

	m := Model{
		deps:     deps,
		view:     viewLoading,
		password: pw,
		width:    100,
		height:   30,
	}
	m.inputs[fieldLabel] = newInput("label", 100)
	m.inputs[fieldURL] = newInput("http://ftp.example.com/pub/", 500)
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Init resolves the session.
func (m Model) Init() tea.Cmd {
	return m.resolve()
}

// triggerDisabled reports whether the trigger control is locked: from the
// key press until the poller reports the job stopped.
func (m Model) triggerDisabled() bool {
	return m.starting || m.deps.Watcher.Active()
}

func (m Model) selected() (api.Source, bool) {
	if m.cursor < 0 || m.cursor >= len(m.sources) {
		return api.Source{}, false
	}
	return m.sources[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.sources) {
		m.cursor = len(m.sources) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setToast(text string, level toastLevel) tea.Cmd {
	m.noticeSeq++
	m.toast = toast{text: text, level: level, seq: m.noticeSeq}
	return m.deps.After(m.deps.MessageTTL, toastExpiredMsg{seq: m.noticeSeq})
}

func (m *Model) showBanner(text string) tea.Cmd {
	m.bannerSeq++
	m.banner = text
	return m.deps.After(m.deps.MessageTTL, bannerExpiredMsg{seq: m.bannerSeq})
}
