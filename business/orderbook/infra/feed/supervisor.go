// Package feed holds the per-venue adapter implementations (binance,
// bitstamp subpackages) and the supervisor that runs them concurrently
// against one shared producer channel.
package feed

import (
	"context"
	"sync"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/app"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
)

// Supervisor owns the full set of configured feed adapters and runs each
// one as an independent task against the shared producer channel. One
// adapter's connect failures never affect another venue's stream.
type Supervisor struct {
	adapters []app.FeedAdapter
	logger   logger.LoggerInterface
}

// NewSupervisor builds a Supervisor over the given adapters.
func NewSupervisor(log logger.LoggerInterface, adapters ...app.FeedAdapter) *Supervisor {
	return &Supervisor{adapters: adapters, logger: log}
}

// Run launches every adapter on its own goroutine and blocks until ctx is
// cancelled and every adapter has returned. One venue's adapter exiting
// early (a connect failure its own retry loop gave up on) is logged but
// does not stop the others; the caller decides whether a dead venue is
// fatal for the process.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(len(s.adapters))

	for _, adapter := range s.adapters {
		adapter := adapter
		go func() {
			defer wg.Done()
			s.logger.Info(ctx, "starting feed adapter", "exchange", adapter.Exchange().String())
			if err := adapter.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error(ctx, "feed adapter exited", "exchange", adapter.Exchange().String(), "error", err)
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}
