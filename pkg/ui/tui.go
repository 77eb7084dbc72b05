// Package ui provides the Bubble Tea TUI for the order book summary client.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/keyrock-labs/orderbook-aggregator/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Connecting to the aggregator
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 1500 * time.Millisecond

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	book   *components.BookComponent
	status *components.StatusComponent

	phase        Phase
	welcomeStart time.Time

	ready    bool
	quitting bool
	width    int
	height   int

	addr       string
	connected  bool
	lastUpdate time.Time
	errors     []ErrorEntry // persistent error panel (last 3)
}

// New creates a new TUI model.
func New() Model {
	return Model{
		book:         components.NewBookComponent(),
		status:       components.NewStatusComponent(),
		phase:        PhaseWelcome,
		welcomeStart: time.Now(),
		errors:       make([]ErrorEntry, 0, 3),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.phase = PhaseStartup
			if OnStartModules != nil {
				go OnStartModules()
			}
			return m, tickCmd()
		}
		if msg.String() == "e" {
			m.errors = make([]ErrorEntry, 0, 3)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.phase = PhaseStartup
			if OnStartModules != nil {
				go OnStartModules()
			}
		}
		return m, tickCmd()

	case ConnectionStatusMsg:
		m.addr = msg.Addr
		m.connected = msg.Connected
		m.status.Update(components.ConnectionStatus{Addr: msg.Addr, Connected: msg.Connected})
		if msg.Connected {
			m.phase = PhaseDashboard
		}

	case SummaryMsg:
		m.phase = PhaseDashboard
		m.lastUpdate = time.Now()
		m.book.Update(msg.Summary, m.lastUpdate.Format("15:04:05"))

	case ErrorMsg:
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}
	}

	return m, nil
}

// View renders the current phase.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.phase {
	case PhaseWelcome:
		return m.viewWelcome()
	case PhaseStartup:
		return m.viewStartup()
	default:
		return m.viewDashboard()
	}
}

func (m Model) viewWelcome() string {
	title := TitleStyle.Render(" Order Book Aggregator ")
	sub := MutedValue.Render("merged top-of-book across Binance and Bitstamp")
	return "\n\n  " + title + "\n\n  " + sub + "\n\n  " + HelpStyle.Render("press any key to continue")
}

func (m Model) viewStartup() string {
	return "\n\n  " + HeaderStyle.Render("Connecting to "+m.addr+"...") + "\n"
}

func (m Model) viewDashboard() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Order Book Aggregator ") + "\n\n")
	b.WriteString(m.status.View() + "\n\n")
	b.WriteString(m.book.View() + "\n")

	if len(m.errors) > 0 {
		b.WriteString("\n" + HeaderStyle.Render("ERRORS") + "\n")
		for _, e := range m.errors {
			b.WriteString(lipgloss.NewStyle().Foreground(ColorDanger).Render(
				fmt.Sprintf("  [%s] %s\n", e.Timestamp.Format("15:04:05"), e.Message)))
		}
	}

	b.WriteString("\n" + HelpStyle.Render("q: quit  │  e: clear errors"))

	return b.String()
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and the
// stream subscription should start dialing. Set by main.go.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send delivers msg to the running program, if any.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
