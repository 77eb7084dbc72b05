// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus is the client's single connection to the aggregator's
// book_summary stream.
type ConnectionStatus struct {
	Addr      string
	Connected bool
}

// StatusComponent renders the connection status line.
type StatusComponent struct {
	status ConnectionStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{}
}

// Update replaces the displayed connection status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	s.status = status
}

// View renders the status component.
func (s *StatusComponent) View() string {
	if s.status.Addr == "" {
		return "Not connected"
	}

	label := "● Connected"
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	if !s.status.Connected {
		label = "○ Disconnected"
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	}

	return fmt.Sprintf("%s %s", style.Render(label), s.status.Addr)
}
