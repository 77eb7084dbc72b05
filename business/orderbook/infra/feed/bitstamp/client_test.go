package bitstamp

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

func TestHandshakeAckTransitionsToStreaming(t *testing.T) {
	c, producer := newTestClient(t)

	c.handleMessage(context.Background(), []byte(`{"event":"bts:subscription_succeeded","channel":"order_book_ethbtc","data":{}}`))
	assert.Equal(t, handshakeStreaming, handshakeState(c.state.Load()))
	assert.Empty(t, producer)
}

func TestHandshakeRejectsUnexpectedFirstFrame(t *testing.T) {
	c, _ := newTestClient(t)

	c.handleMessage(context.Background(), []byte(`{"event":"bts:error","channel":"order_book_ethbtc","data":{}}`))
	assert.Equal(t, handshakeAwaitingAck, handshakeState(c.state.Load()), "rejection ends the connection rather than advancing the handshake")

	select {
	case <-c.rejected:
	default:
		t.Fatal("rejection must signal Run to end the connection")
	}
}

func TestDataFrameNormalizedAfterHandshake(t *testing.T) {
	c, producer := newTestClient(t)
	c.state.Store(int32(handshakeStreaming))

	raw := `{"event":"data","channel":"order_book_ethbtc","data":{"timestamp":"1","microtimestamp":"1000000","bids":[{"price":"0.07","amount":"1.5"}],"asks":[{"price":"0.071","amount":"2.0"}]}}`
	c.handleMessage(context.Background(), []byte(raw))

	require.Len(t, producer, 1)
	snap := <-producer
	assert.Equal(t, domain.Bitstamp, snap.Exchange)
	require.Len(t, snap.OrderBook.Bids, 1)
	assert.InDelta(t, 0.07, snap.OrderBook.Bids[0].Price, 1e-9)
	require.Len(t, snap.OrderBook.Asks, 1)
	assert.InDelta(t, 0.071, snap.OrderBook.Asks[0].Price, 1e-9)
}

func TestDataFrameWithMismatchedChannelIsRejected(t *testing.T) {
	c, producer := newTestClient(t)
	c.state.Store(int32(handshakeStreaming))

	raw := `{"event":"data","channel":"order_book_btcusd","data":{"timestamp":"1","microtimestamp":"1000000","bids":[{"price":"0.07","amount":"1.5"}],"asks":[{"price":"0.071","amount":"2.0"}]}}`
	c.handleMessage(context.Background(), []byte(raw))

	assert.Empty(t, producer, "a data frame for a different currency's channel must be rejected, not normalized")
}

func TestNonDataEventAfterHandshakeIsIgnored(t *testing.T) {
	c, producer := newTestClient(t)
	c.state.Store(int32(handshakeStreaming))

	c.handleMessage(context.Background(), []byte(`{"event":"bts:heartbeat","channel":"","data":{}}`))
	assert.Empty(t, producer)
}

func TestMalformedFrameIsDropped(t *testing.T) {
	c, producer := newTestClient(t)
	c.state.Store(int32(handshakeStreaming))

	c.handleMessage(context.Background(), []byte(`not json`))
	assert.Empty(t, producer)
}

func TestSubscribeSendsExpectedChannelName(t *testing.T) {
	frame := newSubscribeFrame("ethbtc")
	assert.Equal(t, eventSubscribe, frame.Event)
	assert.Equal(t, "order_book_ethbtc", frame.Data.Channel)
}

func TestHealthyReportsBreakerState(t *testing.T) {
	c, _ := newTestClient(t)

	healthy, msg := c.Healthy(context.Background())
	assert.True(t, healthy)
	assert.Empty(t, msg)
}
