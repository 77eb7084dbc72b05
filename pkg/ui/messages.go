// Package ui provides the Bubble Tea TUI for the order book summary client.
package ui

import (
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
)

// SummaryMsg is sent every time a new merged Summary arrives from the
// stream subscription.
type SummaryMsg struct {
	Summary domain.Summary
}

// ConnectionStatusMsg is sent when the client's connection to the
// aggregator changes state.
type ConnectionStatusMsg struct {
	Connected bool
	Addr      string
}

// ErrorMsg is sent when the stream subscription reports an error.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically; it drives the welcome screen's
// auto-advance after WelcomeDuration.
type TickMsg struct{}

// WelcomeCompleteMsg signals the welcome screen is done (timeout or keypress).
type WelcomeCompleteMsg struct{}

// StartModulesMsg signals that the stream subscription should start dialing.
type StartModulesMsg struct{}
