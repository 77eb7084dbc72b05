package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
)

type fakeReceiver struct {
	id  string
	ch  chan domain.Summary
	ack chan struct{}
}

func (f *fakeReceiver) ID() string                      { return f.id }
func (f *fakeReceiver) Messages() <-chan domain.Summary { return f.ch }
func (f *fakeReceiver) Close() {
	select {
	case <-f.ack:
	default:
		close(f.ack)
	}
}

type fakeSubscribable struct {
	receiver *fakeReceiver
}

func (f *fakeSubscribable) Subscribe(bufferSize int) Receiver {
	return f.receiver
}

func newTestServerMux(t *testing.T, subs Subscribable) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	s := &Server{subscribers: subs, subscriberQueue: 10, logger: logger.NewDiscard(), tracer: otel.Tracer("test")}
	require.NoError(t, s.initMetrics())
	mux.HandleFunc("/book_summary", s.handleConnection)
	return httptest.NewServer(mux)
}

func TestServerRelaysPublishedSummaries(t *testing.T) {
	receiver := &fakeReceiver{id: "sub-1", ch: make(chan domain.Summary, 1), ack: make(chan struct{})}
	srv := newTestServerMux(t, &fakeSubscribable{receiver: receiver})
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/book_summary"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	want := domain.Summary{Spread: 1.5, Bids: []domain.Level{{Price: 10, Amount: 1, Exchange: "binance"}}}
	receiver.ch <- want

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var got domain.Summary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, want, got)
}

func TestServerClosesWhenReceiverChannelCloses(t *testing.T) {
	receiver := &fakeReceiver{id: "sub-2", ch: make(chan domain.Summary), ack: make(chan struct{})}
	srv := newTestServerMux(t, &fakeSubscribable{receiver: receiver})
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/book_summary"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	close(receiver.ch)

	_, _, err = conn.Read(ctx)
	assert.Error(t, err, "server must close the socket once the fan-out drops this subscriber")
}
