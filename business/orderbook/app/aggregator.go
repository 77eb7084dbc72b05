package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/apperror"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
)

const (
	tracerName = "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/app"
	meterName  = "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/app"
)

// aggregatorMetrics holds OTEL metric instruments for the merge engine.
type aggregatorMetrics struct {
	snapshotsConsumed metric.Int64Counter
	summariesEmitted  metric.Int64Counter
	summariesSkipped  metric.Int64Counter
	mergeLatency      metric.Float64Histogram
}

// Aggregator is the merge engine: it consumes OrderBookSnaps from a single
// producer channel, maintains the exchange-image table, and publishes a
// merged Summary on every accepted snapshot. There is exactly one
// Aggregator per process; it owns the image table exclusively, so no
// suspension point inside a single update ever races another update.
type Aggregator struct {
	images    *domain.ExchangeImageTable
	snaps     <-chan domain.OrderBookSnap
	publisher Publisher
	logger    logger.LoggerInterface

	alive atomic.Bool

	tracer  trace.Tracer
	metrics *aggregatorMetrics
}

// NewAggregator creates an Aggregator reading from snaps and publishing
// through pub. snaps is the shared mpsc producer channel every feed
// adapter writes to.
func NewAggregator(snaps <-chan domain.OrderBookSnap, pub Publisher, log logger.LoggerInterface) (*Aggregator, error) {
	a := &Aggregator{
		images:    domain.NewExchangeImageTable(),
		snaps:     snaps,
		publisher: pub,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
	if err := a.initMetrics(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Aggregator) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &aggregatorMetrics{}
	var err error

	m.snapshotsConsumed, err = meter.Int64Counter("orderbook_snapshots_consumed_total",
		metric.WithDescription("Total per-exchange snapshots consumed by the aggregator"))
	if err != nil {
		return err
	}
	m.summariesEmitted, err = meter.Int64Counter("orderbook_summaries_emitted_total",
		metric.WithDescription("Total merged summaries published"))
	if err != nil {
		return err
	}
	m.summariesSkipped, err = meter.Int64Counter("orderbook_summaries_skipped_total",
		metric.WithDescription("Total merges suppressed because a side was empty"))
	if err != nil {
		return err
	}
	m.mergeLatency, err = meter.Float64Histogram("orderbook_merge_latency_ms",
		metric.WithDescription("Time spent merging both sides and publishing one summary"))
	if err != nil {
		return err
	}

	a.metrics = m
	return nil
}

// Run processes snapshots in FIFO order until the producer channel closes
// or ctx is cancelled. It is meant to be launched as its own cooperative
// task; it never suspends inside a single image update or merge pass.
func (a *Aggregator) Run(ctx context.Context) error {
	a.alive.Store(true)
	defer a.alive.Store(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-a.snaps:
			if !ok {
				a.logger.Info(ctx, "aggregator producer channel closed, exiting")
				return nil
			}
			a.handleSnap(ctx, snap)
		}
	}
}

// Healthy reports whether the aggregator's consume loop is still running,
// wired into the health server as its liveness check.
func (a *Aggregator) Healthy(context.Context) (bool, string) {
	if a.alive.Load() {
		return true, ""
	}
	return false, "aggregator loop is not running"
}

func (a *Aggregator) handleSnap(ctx context.Context, snap domain.OrderBookSnap) {
	ctx, span := a.tracer.Start(ctx, "aggregator.handle_snap",
		trace.WithAttributes(attribute.String("exchange", snap.Exchange.String())))
	defer span.End()

	a.metrics.snapshotsConsumed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("exchange", snap.Exchange.String())))

	if err := a.images.Update(snap.Exchange, snap.OrderBook); err != nil {
		wrapped := apperror.New(apperror.CodeMergeInvalidOrdinal, apperror.WithCause(err))
		a.logger.Error(ctx, "failed to update exchange image", "error", wrapped)
		span.RecordError(wrapped)
		return
	}

	start := time.Now()
	summary, ok := a.merge(ctx)
	if !ok {
		a.metrics.summariesSkipped.Add(ctx, 1)
		return
	}

	a.metrics.summariesEmitted.Add(ctx, 1)
	if err := a.publisher.Publish(ctx, summary); err != nil {
		a.logger.Warn(ctx, "failed to publish summary", "error", err)
	}
	a.metrics.mergeLatency.Record(ctx, float64(time.Since(start).Microseconds())/1000)
}

// merge recomputes the merged top-D bids and asks across every venue's
// current image and derives the spread. It returns ok=false when either
// side is empty, per spec: the summary is suppressed rather than published
// with an undefined spread.
func (a *Aggregator) merge(ctx context.Context) (domain.Summary, bool) {
	images := a.snapshotImages()

	bids := mergeSide(images, sideBid)
	asks := mergeSide(images, sideAsk)

	if len(bids) == 0 || len(asks) == 0 {
		a.logger.Debug(ctx, "suppressing summary, one side is empty",
			"bids", len(bids), "asks", len(asks))
		return domain.Summary{}, false
	}

	return domain.Summary{
		Spread: asks[0].Price - bids[0].Price,
		Bids:   bids,
		Asks:   asks,
	}, true
}

func (a *Aggregator) snapshotImages() [domain.NumExchanges]domain.OrderBook {
	var out [domain.NumExchanges]domain.OrderBook
	for e := domain.Exchange(0); e < domain.NumExchanges; e++ {
		img, err := a.images.Image(e)
		if err != nil {
			continue
		}
		out[e] = img
	}
	return out
}
