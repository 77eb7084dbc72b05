package feed

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
)

type fakeAdapter struct {
	exchange domain.Exchange
	started  atomic.Bool
}

func (f *fakeAdapter) Exchange() domain.Exchange { return f.exchange }

func (f *fakeAdapter) Run(ctx context.Context) error {
	f.started.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func TestSupervisorRunsEveryAdapterAndExitsOnCancel(t *testing.T) {
	binanceAdapter := &fakeAdapter{exchange: domain.Binance}
	bitstampAdapter := &fakeAdapter{exchange: domain.Bitstamp}

	sup := NewSupervisor(logger.NewDiscard(), binanceAdapter, bitstampAdapter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return binanceAdapter.started.Load() && bitstampAdapter.started.Load()
	}, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("supervisor did not exit after cancel")
	}
}
