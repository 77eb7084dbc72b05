// Package app contains the aggregator application service: the merge
// engine that turns per-exchange snapshots into published summaries.
package app

import (
	"context"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
)

// Publisher delivers one Summary to every currently-registered subscriber.
// The fan-out channel is the only implementation, but the aggregator
// depends on this narrow port rather than the concrete type.
type Publisher interface {
	Publish(ctx context.Context, summary domain.Summary) error
}

// FeedAdapter owns one venue's websocket connection and forwards every
// normalized frame onto the shared producer channel. Supervisor launches
// one of these per configured exchange.
type FeedAdapter interface {
	Exchange() domain.Exchange
	Run(ctx context.Context) error
}
