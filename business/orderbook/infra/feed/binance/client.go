package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/apperror"
	"github.com/keyrock-labs/orderbook-aggregator/internal/circuitbreaker"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
	"github.com/keyrock-labs/orderbook-aggregator/internal/ratelimit"
	"github.com/keyrock-labs/orderbook-aggregator/internal/wsconn"
)

const (
	tracerName = "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/feed/binance"
	meterName  = "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/feed/binance"
)

// ClientConfig configures the Binance depth-feed adapter.
type ClientConfig struct {
	BaseURL        string
	Currency       string // primary pair; additional pairs may be comma-separated
	DepthLevels    int
	UpdateSpeedMs  int
	ReadTimeout    time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultClientConfig returns the reference configuration's Binance
// settings for the given currency pair.
func DefaultClientConfig(currency string) ClientConfig {
	return ClientConfig{
		BaseURL:        "wss://stream.binance.com:9443",
		Currency:       currency,
		DepthLevels:    domain.Depth,
		UpdateSpeedMs:  100,
		ReadTimeout:    30 * time.Second,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

type clientMetrics struct {
	snapshotsNormalized metric.Int64Counter
	normalizeErrors     metric.Int64Counter
	reconnectAttempts   metric.Int64Counter
}

// Client is the Binance feed adapter: it owns one wsconn.Client dialing the
// combined-stream endpoint, normalizes every depth frame into a
// domain.OrderBookSnap, and writes it to the shared producer channel.
type Client struct {
	config   ClientConfig
	producer chan<- domain.OrderBookSnap
	logger   logger.LoggerInterface

	conn    *wsconn.Client
	breaker *circuitbreaker.CircuitBreaker[struct{}]
	limiter *ratelimit.Limiter

	streamSuffix string
	subID        atomic.Int64

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient builds a Binance feed adapter writing normalized snapshots to
// producer.
func NewClient(cfg ClientConfig, producer chan<- domain.OrderBookSnap, log logger.LoggerInterface) (*Client, error) {
	c := &Client{
		config:       cfg,
		producer:     producer,
		logger:       log,
		streamSuffix: fmt.Sprintf("@depth%d@%dms", cfg.DepthLevels, cfg.UpdateSpeedMs),
		limiter:      ratelimit.New(30), // 30 reconnect attempts per minute ceiling
		tracer:       otel.Tracer(tracerName),
	}
	c.breaker = circuitbreaker.New[struct{}](circuitbreaker.DefaultConfig("binance-feed"))

	if err := c.initMetrics(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &clientMetrics{}
	var err error

	m.snapshotsNormalized, err = meter.Int64Counter("binance_snapshots_normalized_total",
		metric.WithDescription("Depth frames successfully normalized into an OrderBookSnap"))
	if err != nil {
		return err
	}
	m.normalizeErrors, err = meter.Int64Counter("binance_normalize_errors_total",
		metric.WithDescription("Depth frames that failed schema validation"))
	if err != nil {
		return err
	}
	m.reconnectAttempts, err = meter.Int64Counter("binance_reconnect_attempts_total",
		metric.WithDescription("Connect attempts gated through the circuit breaker"))
	if err != nil {
		return err
	}

	c.metrics = m
	return nil
}

// Exchange identifies this adapter's venue.
func (c *Client) Exchange() domain.Exchange {
	return domain.Binance
}

// Healthy reports this adapter's circuit breaker state, wired into the
// health server so a venue that has tripped its breaker surfaces as an
// unhealthy check instead of silently freezing its image slot.
func (c *Client) Healthy(context.Context) (bool, string) {
	return c.breaker.Healthy()
}

// Run connects to Binance and streams normalized snapshots until ctx is
// cancelled. Each connect attempt is gated by the rate limiter and runs
// through the circuit breaker; ConnectWithRetry retries without limit
// under the default wsconn config, so the breaker only sees an error once
// ctx is cancelled or the connection is closed.
func (c *Client) Run(ctx context.Context) error {
	wsURL, err := c.buildStreamURL()
	if err != nil {
		return err
	}

	wsCfg := wsconn.DefaultConfig(wsURL, "binance")
	wsCfg.ReadTimeout = c.config.ReadTimeout
	wsCfg.InitialBackoff = c.config.InitialBackoff
	wsCfg.MaxBackoff = c.config.MaxBackoff

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return apperror.New(apperror.CodeFeedConnectionFailed, apperror.WithCause(err))
	}
	c.conn = conn
	conn.OnMessage(c.handleMessage)

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		c.metrics.reconnectAttempts.Add(ctx, 1)
		_, err := c.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, conn.ConnectWithRetry(ctx)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error(ctx, "binance connect failed", "error", err)
			continue
		}

		if err := c.subscribeAdditionalCurrencies(ctx, conn); err != nil {
			c.logger.Error(ctx, "binance failed to subscribe additional currency", "error", err)
		}

		c.logger.Info(ctx, "binance feed connected", "url", wsURL)
		break
	}

	<-ctx.Done()
	return conn.Close()
}

// buildStreamURL constructs the combined-stream URL for the primary
// currency pair. Binance requires at least one stream in the path, so the
// first configured currency is embedded at connect time; any further
// currencies are subscribed afterward over the open connection.
func (c *Client) buildStreamURL() (string, error) {
	currencies := strings.Split(c.config.Currency, ",")
	if len(currencies) == 0 || currencies[0] == "" {
		return "", apperror.New(apperror.CodeConfigurationError, apperror.WithContext("binance requires at least one currency pair"))
	}

	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err))
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + currencies[0] + c.streamSuffix

	return u.String(), nil
}

// isConfiguredCurrency reports whether currency is one of the (possibly
// comma-separated) pairs this adapter was configured for, per spec §4.1's
// requirement to reject frames whose envelope identifier doesn't match.
func (c *Client) isConfiguredCurrency(currency string) bool {
	for _, ccy := range strings.Split(c.config.Currency, ",") {
		if ccy == currency {
			return true
		}
	}
	return false
}

// subscribeAdditionalCurrencies subscribes every currency beyond the one
// embedded in the initial connect URL.
func (c *Client) subscribeAdditionalCurrencies(ctx context.Context, conn *wsconn.Client) error {
	currencies := strings.Split(c.config.Currency, ",")
	for _, ccy := range currencies[1:] {
		if ccy == "" {
			continue
		}
		req := subscribeRequest{
			Method: "SUBSCRIBE",
			Params: []string{ccy + c.streamSuffix},
			ID:     c.subID.Add(1),
		}
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		if err := conn.Send(ctx, data); err != nil {
			return apperror.New(apperror.CodeFeedSubscribeFailed, apperror.WithCause(err), apperror.WithContext(ccy))
		}
	}
	return nil
}

// handleMessage normalizes one combined-stream frame and forwards it to the
// producer channel. Subscription acks (no "stream" field) are ignored.
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	ctx, span := c.tracer.Start(ctx, "binance.handle_message")
	defer span.End()

	var env streamEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Stream == "" {
		var ack subscribeResponse
		if json.Unmarshal(data, &ack) == nil {
			return
		}
		c.metrics.normalizeErrors.Add(ctx, 1)
		c.logger.Warn(ctx, "binance message did not match any known shape", "error", err)
		return
	}

	currency := strings.TrimSuffix(env.Stream, c.streamSuffix)
	if !c.isConfiguredCurrency(currency) {
		c.metrics.normalizeErrors.Add(ctx, 1)
		wrapped := apperror.New(apperror.CodeFeedCurrencyMismatch, apperror.WithContext("stream "+env.Stream+" does not match any configured currency"))
		span.RecordError(wrapped)
		c.logger.Warn(ctx, "binance stream currency mismatch", "error", wrapped)
		return
	}

	var payload depthPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		c.metrics.normalizeErrors.Add(ctx, 1)
		wrapped := apperror.New(apperror.CodeFeedSchemaMismatch, apperror.WithCause(err), apperror.WithContext(currency))
		span.RecordError(wrapped)
		c.logger.Warn(ctx, "binance depth payload failed to decode", "error", wrapped)
		return
	}

	snap := domain.OrderBookSnap{
		Exchange: domain.Binance,
		OrderBook: domain.OrderBook{
			Bids: payload.Bids.Levels,
			Asks: payload.Asks.Levels,
		},
	}

	c.metrics.snapshotsNormalized.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", currency)))

	select {
	case c.producer <- snap:
	case <-ctx.Done():
	}
}
