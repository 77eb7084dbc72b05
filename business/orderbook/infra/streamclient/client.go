// Package streamclient is the consumer-side counterpart of infra/stream:
// it dials a running aggregator's book_summary endpoint and decodes every
// frame back into a domain.Summary, the way the terminal renderer consumes
// it. It is the TUI's only dependency on the wire format.
package streamclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/apperror"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
	"github.com/keyrock-labs/orderbook-aggregator/internal/wsconn"
)

// Config configures the client's dial target.
type Config struct {
	Host string
	Port int
}

// Addr formats the book_summary websocket URL for a configured host/port.
// The host is used as given, so a literal IPv6 host must already carry
// its brackets; an empty host falls back to "[::1]".
func (c Config) Addr() string {
	host := c.Host
	if host == "" {
		host = "[::1]"
	}
	return fmt.Sprintf("ws://%s:%d/book_summary", host, c.Port)
}

// Client subscribes to a running aggregator's summary stream and hands
// every decoded Summary to the caller through Summaries.
type Client struct {
	conn   *wsconn.Client
	logger logger.LoggerInterface
	out    chan domain.Summary
}

// New dials nothing yet; call Run to connect and start streaming.
func New(cfg Config, log logger.LoggerInterface) (*Client, error) {
	wsCfg := wsconn.DefaultConfig(cfg.Addr(), "book_summary_client")
	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, apperror.New(apperror.CodeFeedConnectionFailed, apperror.WithCause(err))
	}

	c := &Client{
		conn:   conn,
		logger: log,
		out:    make(chan domain.Summary, 64),
	}
	conn.OnMessage(c.handleMessage)
	return c, nil
}

// Summaries returns the channel every decoded Summary is delivered on.
// It is never closed by Client; the caller selects on ctx.Done() alongside
// it to know when to stop reading.
func (c *Client) Summaries() <-chan domain.Summary {
	return c.out
}

// Run connects (with the underlying client's retry/backoff policy) and
// blocks until ctx is cancelled, forwarding every frame to Summaries.
func (c *Client) Run(ctx context.Context) error {
	if err := c.conn.ConnectWithRetry(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return c.conn.Close()
}

func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var summary domain.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		c.logger.Warn(ctx, "book_summary client failed to decode frame", "error", err)
		return
	}
	select {
	case c.out <- summary:
	case <-ctx.Done():
	}
}
