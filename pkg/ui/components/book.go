// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
)

// BookComponent renders the merged top-of-book: bids and asks side by
// side with the derived spread above them.
type BookComponent struct {
	summary   domain.Summary
	hasData   bool
	updatedAt string
}

// NewBookComponent creates an empty book component.
func NewBookComponent() *BookComponent {
	return &BookComponent{}
}

// Update replaces the displayed summary.
func (b *BookComponent) Update(summary domain.Summary, updatedAt string) {
	b.summary = summary
	b.hasData = true
	b.updatedAt = updatedAt
}

// View renders the bids/asks table and the spread line.
func (b *BookComponent) View() string {
	if !b.hasData {
		return "Waiting for order book summary..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	bidStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	askStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	spreadStyle := bidStyle
	if b.summary.Spread < 0 {
		spreadStyle = askStyle
	}

	var out strings.Builder
	fmt.Fprintf(&out, "%s  %s\n\n",
		headerStyle.Render("SPREAD"),
		spreadStyle.Render(fmt.Sprintf("%+.8f", b.summary.Spread)))

	fmt.Fprintf(&out, "  %-14s %-10s %-10s   %-14s %-10s %-10s\n",
		"BID price", "amount", "exchange", "ASK price", "amount", "exchange")
	out.WriteString(dimStyle.Render("  " + strings.Repeat("─", 70)) + "\n")

	rows := len(b.summary.Bids)
	if len(b.summary.Asks) > rows {
		rows = len(b.summary.Asks)
	}
	for i := 0; i < rows; i++ {
		var bidCol, askCol string
		if i < len(b.summary.Bids) {
			lvl := b.summary.Bids[i]
			bidCol = bidStyle.Render(fmt.Sprintf("%-14.8f %-10.4f %-10s", lvl.Price, lvl.Amount, lvl.Exchange))
		} else {
			bidCol = fmt.Sprintf("%-36s", "")
		}
		if i < len(b.summary.Asks) {
			lvl := b.summary.Asks[i]
			askCol = askStyle.Render(fmt.Sprintf("%-14.8f %-10.4f %-10s", lvl.Price, lvl.Amount, lvl.Exchange))
		}
		fmt.Fprintf(&out, "  %s   %s\n", bidCol, askCol)
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render(fmt.Sprintf("  last update: %s  │  depth: %d bids / %d asks",
		b.updatedAt, len(b.summary.Bids), len(b.summary.Asks))))

	return out.String()
}
