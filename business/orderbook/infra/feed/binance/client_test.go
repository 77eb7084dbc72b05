package binance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
)

func newTestClient(t *testing.T) (*Client, chan domain.OrderBookSnap) {
	t.Helper()
	producer := make(chan domain.OrderBookSnap, 10)
	c, err := NewClient(DefaultClientConfig("ethbtc"), producer, logger.NewDiscard())
	require.NoError(t, err)
	return c, producer
}

func TestBuildStreamURLUsesFirstCurrency(t *testing.T) {
	c, _ := newTestClient(t)
	c.config.Currency = "ethbtc,btcusdt"

	u, err := c.buildStreamURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.binance.com:9443/stream?streams=ethbtc@depth10@100ms", u)
}

func TestBuildStreamURLRequiresCurrency(t *testing.T) {
	c, _ := newTestClient(t)
	c.config.Currency = ""
	_, err := c.buildStreamURL()
	assert.Error(t, err)
}

func TestHandleMessageNormalizesDepthFrame(t *testing.T) {
	c, producer := newTestClient(t)

	raw := `{"stream":"ethbtc@depth10@100ms","data":{"bids":[["0.07","1.0"],["0.069","2.0"]],"asks":[["0.071","1.5"]]}}`
	c.handleMessage(context.Background(), []byte(raw))

	require.Len(t, producer, 1)
	snap := <-producer
	assert.Equal(t, domain.Binance, snap.Exchange)
	require.Len(t, snap.OrderBook.Bids, 2)
	assert.InDelta(t, 0.07, snap.OrderBook.Bids[0].Price, 1e-9)
	assert.InDelta(t, 1.0, snap.OrderBook.Bids[0].Amount, 1e-9)
	require.Len(t, snap.OrderBook.Asks, 1)
	assert.InDelta(t, 0.071, snap.OrderBook.Asks[0].Price, 1e-9)
}

func TestHandleMessageIgnoresSubscriptionAck(t *testing.T) {
	c, producer := newTestClient(t)

	c.handleMessage(context.Background(), []byte(`{"result":null,"id":1}`))
	assert.Empty(t, producer)
}

func TestHandleMessageDropsMalformedPayload(t *testing.T) {
	c, producer := newTestClient(t)

	c.handleMessage(context.Background(), []byte(`{"stream":"ethbtc@depth10@100ms","data":{"bids":"not-an-array","asks":[]}}`))
	assert.Empty(t, producer)
}

func TestHandleMessageRejectsMismatchedCurrency(t *testing.T) {
	c, producer := newTestClient(t)

	c.handleMessage(context.Background(), []byte(`{"stream":"btcusdt@depth10@100ms","data":{"bids":[["0.07","1.0"]],"asks":[]}}`))
	assert.Empty(t, producer, "a stream for an unconfigured currency must be rejected, not normalized")
}

func TestHandleMessageRejectsNegativePrices(t *testing.T) {
	c, producer := newTestClient(t)

	raw := `{"stream":"ethbtc@depth10@100ms","data":{"bids":[["-1.0","1.0"]],"asks":[]}}`
	c.handleMessage(context.Background(), []byte(raw))
	assert.Empty(t, producer, "negative price must fail FlexibleFloat validation and drop the frame")
}

func TestHealthyReportsBreakerState(t *testing.T) {
	c, _ := newTestClient(t)

	healthy, msg := c.Healthy(context.Background())
	assert.True(t, healthy)
	assert.Empty(t, msg)
}
