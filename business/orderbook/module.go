// Package orderbook implements the order book aggregation bounded
// context: the Binance and Bitstamp feed adapters, the merge engine, and
// the fan-out summary stream.
package orderbook

import (
	"context"
	"fmt"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/app"
	orderbookdi "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/di"
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/fanout"
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/feed"
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/feed/binance"
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/feed/bitstamp"
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/stream"
	"github.com/keyrock-labs/orderbook-aggregator/internal/config"
	"github.com/keyrock-labs/orderbook-aggregator/internal/di"
	"github.com/keyrock-labs/orderbook-aggregator/internal/health"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
	"github.com/keyrock-labs/orderbook-aggregator/internal/monolith"
)

// Module implements the orderbook bounded context.
type Module struct{}

// RegisterServices wires the producer queue, the fan-out publisher, and
// the aggregator that connects them. Feed adapters and the stream server
// are constructed in Startup since they need to be launched as long-lived
// tasks rather than resolved lazily by other modules.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, orderbookdi.ProducerQueue, func(sr di.ServiceRegistry) chan domain.OrderBookSnap {
		cfg := sr.Get("config").(*config.Config)
		return make(chan domain.OrderBookSnap, cfg.Server.ProducerQueue)
	})

	di.RegisterToken(c, orderbookdi.Publisher, func(sr di.ServiceRegistry) *fanout.MultiReceiverChannel {
		log := sr.Get("logger").(logger.LoggerInterface)
		publisher, err := fanout.New(log)
		if err != nil {
			panic("failed to create fan-out publisher: " + err.Error())
		}
		return publisher
	})

	di.RegisterToken(c, orderbookdi.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		log := sr.Get("logger").(logger.LoggerInterface)
		snaps := orderbookdi.GetProducerQueue(sr)
		publisher := orderbookdi.GetPublisher(sr)

		aggregator, err := app.NewAggregator(snaps, publisher, log)
		if err != nil {
			panic("failed to create aggregator: " + err.Error())
		}
		return aggregator
	})

	return nil
}

// Startup launches the aggregator, the per-venue feed adapters, and the
// summary stream server, none of which block Startup itself: each runs on
// its own goroutine for the remainder of the process lifetime, and a
// failure while running is logged rather than propagated, matching the
// rest of this codebase's non-blocking module startup. Errors from
// constructing the adapters or the stream server are returned.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	services := mono.Services()

	aggregator := orderbookdi.GetAggregator(services)
	producerQueue := orderbookdi.GetProducerQueue(services)
	publisher := orderbookdi.GetPublisher(services)

	go func() {
		if err := aggregator.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "aggregator exited unexpectedly", "error", err)
		}
	}()

	binanceCfg := binance.DefaultClientConfig(cfg.Exchanges.Currency)
	binanceCfg.BaseURL = cfg.Exchanges.Binance.BaseURL
	binanceCfg.DepthLevels = cfg.Exchanges.Binance.DepthLevels
	binanceCfg.UpdateSpeedMs = cfg.Exchanges.Binance.UpdateSpeedMs
	binanceCfg.ReadTimeout = cfg.Exchanges.Binance.ReadTimeout
	binanceCfg.InitialBackoff = cfg.Exchanges.Binance.InitialBackoff
	binanceCfg.MaxBackoff = cfg.Exchanges.Binance.MaxBackoff

	binanceAdapter, err := binance.NewClient(binanceCfg, producerQueue, log)
	if err != nil {
		return fmt.Errorf("create binance adapter: %w", err)
	}

	bitstampCfg := bitstamp.DefaultClientConfig(cfg.Exchanges.Currency)
	bitstampCfg.URL = cfg.Exchanges.Bitstamp.URL
	bitstampCfg.ReadTimeout = cfg.Exchanges.Bitstamp.ReadTimeout
	bitstampCfg.InitialBackoff = cfg.Exchanges.Bitstamp.InitialBackoff
	bitstampCfg.MaxBackoff = cfg.Exchanges.Bitstamp.MaxBackoff

	bitstampAdapter, err := bitstamp.NewClient(bitstampCfg, producerQueue, log)
	if err != nil {
		return fmt.Errorf("create bitstamp adapter: %w", err)
	}

	healthServer := di.MustGet[*health.Server](services, "health")
	healthServer.RegisterCheck("binance_feed", binanceAdapter.Healthy)
	healthServer.RegisterCheck("bitstamp_feed", bitstampAdapter.Healthy)
	healthServer.RegisterCheck("aggregator", aggregator.Healthy)

	supervisor := feed.NewSupervisor(log, binanceAdapter, bitstampAdapter)
	go func() {
		if err := supervisor.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "feed supervisor exited unexpectedly", "error", err)
		}
	}()

	streamAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	streamServer, err := stream.New(streamAddr, subscribableAdapter{publisher}, cfg.Server.SubscriberQueue, log)
	if err != nil {
		return fmt.Errorf("create stream server: %w", err)
	}

	go func() {
		if err := streamServer.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "stream server exited unexpectedly", "error", err)
		}
	}()

	log.Info(ctx, "orderbook module started", "currency", cfg.Exchanges.Currency, "stream_addr", streamAddr)
	return nil
}

// subscribableAdapter narrows *fanout.MultiReceiverChannel's Subscribe
// method to the stream.Subscribable interface: MultiReceiverChannel
// returns its own concrete *fanout.ReceiverHandle, which satisfies
// stream.Receiver structurally but not by identical method signature, so
// the stream package can stay decoupled from the fanout package.
type subscribableAdapter struct {
	publisher *fanout.MultiReceiverChannel
}

func (a subscribableAdapter) Subscribe(bufferSize int) stream.Receiver {
	return a.publisher.Subscribe(bufferSize)
}
