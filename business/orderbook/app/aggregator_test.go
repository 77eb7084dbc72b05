package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
)

// recordingPublisher captures every summary handed to Publish, standing in
// for the fan-out channel so the aggregator can be tested in isolation.
type recordingPublisher struct {
	summaries []domain.Summary
}

func (p *recordingPublisher) Publish(_ context.Context, s domain.Summary) error {
	p.summaries = append(p.summaries, s)
	return nil
}

func newTestAggregator(t *testing.T, snaps <-chan domain.OrderBookSnap) (*Aggregator, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	agg, err := NewAggregator(snaps, pub, logger.NewDiscard())
	require.NoError(t, err)
	return agg, pub
}

func stepLevels(start, step float64, n int, amount float64) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, n)
	for i := 0; i < n; i++ {
		levels[i] = domain.PriceLevel{Price: start - step*float64(i), Amount: amount}
	}
	return levels
}

// Scenario A: single venue, ten equal-step bids, asks empty -> suppressed.
func TestScenarioA_SingleVenueBidsOnly(t *testing.T) {
	agg, pub := newTestAggregator(t, nil)

	agg.handleSnap(context.Background(), domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(10.0, 0.1, 10, 1),
		},
	})

	assert.Empty(t, pub.summaries, "ask side empty must suppress the summary")
}

// Scenario B: two venues, equal prices, unequal amounts -> binance preferred on tie.
func TestScenarioB_TieBrokenByAmount(t *testing.T) {
	agg, pub := newTestAggregator(t, nil)
	ctx := context.Background()

	agg.handleSnap(ctx, domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(10.0, 0.1, 10, 2.0),
			Asks: stepLevels(-100, -0.1, 10, 1), // far away, doesn't matter for this check
		},
	})
	agg.handleSnap(ctx, domain.OrderBookSnap{
		Exchange: domain.Bitstamp,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(10.0, 0.1, 10, 1.0),
			Asks: stepLevels(-100, -0.1, 10, 1),
		},
	})

	require.NotEmpty(t, pub.summaries)
	summary := pub.summaries[len(pub.summaries)-1]
	require.Len(t, summary.Bids, domain.Depth)

	assert.Equal(t, domain.Level{Price: 10.0, Amount: 2.0, Exchange: "binance"}, summary.Bids[0])
	assert.Equal(t, domain.Level{Price: 10.0, Amount: 1.0, Exchange: "bitstamp"}, summary.Bids[1])
	assert.InDelta(t, 9.9, summary.Bids[2].Price, 1e-9)
	assert.Equal(t, "binance", summary.Bids[2].Exchange)
}

// Scenario C: two venues, disjoint prices -> alternating venues.
func TestScenarioC_DisjointPricesAlternate(t *testing.T) {
	agg, pub := newTestAggregator(t, nil)
	ctx := context.Background()

	agg.handleSnap(ctx, domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(21, 2, 10, 1),
			Asks: stepLevels(-1000, -1, 10, 1),
		},
	})
	agg.handleSnap(ctx, domain.OrderBookSnap{
		Exchange: domain.Bitstamp,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(20, 2, 10, 1),
			Asks: stepLevels(-1000, -1, 10, 1),
		},
	})

	require.NotEmpty(t, pub.summaries)
	summary := pub.summaries[len(pub.summaries)-1]
	require.Len(t, summary.Bids, domain.Depth)

	wantPrices := []float64{21, 20, 19, 18, 17, 16, 15, 14, 13, 12}
	for i, want := range wantPrices {
		assert.InDelta(t, want, summary.Bids[i].Price, 1e-9, "index %d", i)
	}
}

// Scenario D: cross-market with a valid positive spread.
func TestScenarioD_ValidSpread(t *testing.T) {
	agg, pub := newTestAggregator(t, nil)
	ctx := context.Background()

	agg.handleSnap(ctx, domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Asks: []domain.PriceLevel{{Price: 100.5, Amount: 1}},
		},
	})
	agg.handleSnap(ctx, domain.OrderBookSnap{
		Exchange: domain.Bitstamp,
		OrderBook: domain.OrderBook{
			Bids: []domain.PriceLevel{{Price: 100.4, Amount: 1}},
		},
	})

	require.NotEmpty(t, pub.summaries)
	summary := pub.summaries[len(pub.summaries)-1]
	assert.InDelta(t, 0.1, summary.Spread, 1e-9)
}

// Scenario E: negative spread (crossed book) emitted unchanged.
func TestScenarioE_NegativeSpreadEmittedUnchanged(t *testing.T) {
	agg, pub := newTestAggregator(t, nil)
	ctx := context.Background()

	agg.handleSnap(ctx, domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Bids: []domain.PriceLevel{{Price: 101.0, Amount: 1}},
			Asks: []domain.PriceLevel{{Price: 100.5, Amount: 1}},
		},
	})

	require.NotEmpty(t, pub.summaries)
	summary := pub.summaries[len(pub.summaries)-1]
	assert.InDelta(t, -0.5, summary.Spread, 1e-9)
}

// Property 5: idempotence. Replaying the same snapshot twice produces two
// identical summaries.
func TestIdempotence(t *testing.T) {
	agg, pub := newTestAggregator(t, nil)
	ctx := context.Background()

	snap := domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(10, 0.1, 10, 1),
			Asks: stepLevels(-10, -0.1, 10, 1),
		},
	}
	agg.handleSnap(ctx, snap)
	agg.handleSnap(ctx, snap)

	require.Len(t, pub.summaries, 2)
	assert.Equal(t, pub.summaries[0], pub.summaries[1])
}

// Property 6: image isolation. Order of feeding distinct-venue snapshots
// must not change the resulting merged summary.
func TestImageIsolationOrderIndependent(t *testing.T) {
	snapBinance := domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(10, 0.1, 10, 2),
			Asks: stepLevels(-10, -0.1, 10, 1),
		},
	}
	snapBitstamp := domain.OrderBookSnap{
		Exchange: domain.Bitstamp,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(9.95, 0.1, 10, 1),
			Asks: stepLevels(-9.95, -0.1, 10, 1),
		},
	}

	agg1, pub1 := newTestAggregator(t, nil)
	agg1.handleSnap(context.Background(), snapBinance)
	agg1.handleSnap(context.Background(), snapBitstamp)

	agg2, pub2 := newTestAggregator(t, nil)
	agg2.handleSnap(context.Background(), snapBitstamp)
	agg2.handleSnap(context.Background(), snapBinance)

	require.NotEmpty(t, pub1.summaries)
	require.NotEmpty(t, pub2.summaries)
	assert.Equal(t, pub1.summaries[len(pub1.summaries)-1], pub2.summaries[len(pub2.summaries)-1])
}

// Boundary: all-empty images on a side produce an empty side and suppress
// emission.
func TestAllEmptySuppressesSummary(t *testing.T) {
	agg, pub := newTestAggregator(t, nil)
	agg.handleSnap(context.Background(), domain.OrderBookSnap{Exchange: domain.Binance})
	assert.Empty(t, pub.summaries)
}

// Boundary: one venue empty on a side; merged side equals the other venue
// alone.
func TestOneVenueEmptySideUsesOtherAlone(t *testing.T) {
	agg, pub := newTestAggregator(t, nil)
	ctx := context.Background()

	agg.handleSnap(ctx, domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(10, 0.1, 3, 1),
			Asks: stepLevels(-10, -0.1, 3, 1),
		},
	})
	agg.handleSnap(ctx, domain.OrderBookSnap{
		Exchange: domain.Bitstamp,
		OrderBook: domain.OrderBook{
			Asks: stepLevels(-10, -0.1, 3, 1),
			// No bids from Bitstamp.
		},
	})

	require.NotEmpty(t, pub.summaries)
	summary := pub.summaries[len(pub.summaries)-1]
	require.Len(t, summary.Bids, 3)
	for _, lvl := range summary.Bids {
		assert.Equal(t, "binance", lvl.Exchange)
	}
}

// Run drains the producer channel in FIFO order until it's closed.
func TestAggregatorRunDrainsChannelAndExitsOnClose(t *testing.T) {
	snaps := make(chan domain.OrderBookSnap, 2)
	agg, pub := newTestAggregator(t, snaps)

	snaps <- domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Bids: stepLevels(10, 0.1, 1, 1),
			Asks: stepLevels(-10, -0.1, 1, 1),
		},
	}
	close(snaps)

	err := agg.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, pub.summaries, 1)
}

// Healthy tracks the Run loop's lifetime: unhealthy before it starts and
// after it exits, healthy while it's draining the producer channel.
func TestAggregatorHealthyReflectsRunLifetime(t *testing.T) {
	snaps := make(chan domain.OrderBookSnap)
	agg, _ := newTestAggregator(t, snaps)

	healthy, _ := agg.Healthy(context.Background())
	assert.False(t, healthy, "must be unhealthy before Run starts")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = agg.Run(context.Background())
	}()

	require.Eventually(t, func() bool {
		healthy, _ := agg.Healthy(context.Background())
		return healthy
	}, time.Second, time.Millisecond, "must become healthy once Run starts")

	close(snaps)
	<-done

	healthy, _ = agg.Healthy(context.Background())
	assert.False(t, healthy, "must be unhealthy once Run exits")
}
