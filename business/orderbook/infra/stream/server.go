// Package stream implements the outbound summary stream: every accepted
// websocket connection is treated as one long-lived book_summary call that
// relays merged Summary frames until the client disconnects.
package stream

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/internal/apperror"
	"github.com/keyrock-labs/orderbook-aggregator/internal/logger"
)

const (
	tracerName = "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/stream"
	meterName  = "github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/stream"

	writeTimeout = 10 * time.Second
)

// Subscribable is the subset of fanout.MultiReceiverChannel the server
// depends on, so it can be tested without the concrete fan-out type.
type Subscribable interface {
	Subscribe(bufferSize int) Receiver
}

// Receiver is one subscription handed back by Subscribable.Subscribe.
type Receiver interface {
	ID() string
	Messages() <-chan domain.Summary
	Close()
}

type serverMetrics struct {
	connectionsActive metric.Int64UpDownCounter
	framesSent        metric.Int64Counter
}

// Server accepts websocket connections and relays every published
// Summary to each one until it disconnects.
type Server struct {
	addr            string
	subscribers     Subscribable
	subscriberQueue int
	logger          logger.LoggerInterface

	httpServer *http.Server
	tracer     trace.Tracer
	metrics    *serverMetrics
}

// New builds a streaming Server listening on addr, subscribing each
// accepted connection to subs with the given per-connection buffer depth.
func New(addr string, subs Subscribable, subscriberQueue int, log logger.LoggerInterface) (*Server, error) {
	s := &Server{
		addr:            addr,
		subscribers:     subs,
		subscriberQueue: subscriberQueue,
		logger:          log,
		tracer:          otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/book_summary", s.handleConnection)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	return s, nil
}

func (s *Server) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &serverMetrics{}
	var err error

	m.connectionsActive, err = meter.Int64UpDownCounter("orderbook_stream_connections_active",
		metric.WithDescription("Currently connected summary stream clients"))
	if err != nil {
		return err
	}
	m.framesSent, err = meter.Int64Counter("orderbook_stream_frames_sent_total",
		metric.WithDescription("Summary frames written to clients"))
	if err != nil {
		return err
	}

	s.metrics = m
	return nil
}

// ListenAndServe starts accepting connections and blocks until ctx is
// cancelled, at which point it shuts the HTTP server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return apperror.New(apperror.CodeFeedConnectionFailed, apperror.WithCause(err), apperror.WithContext("failed to bind stream server"))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// handleConnection accepts one websocket connection, subscribes it to the
// fan-out channel, and relays every Summary until the client goes away.
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn(ctx, "failed to accept websocket connection", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	receiver := s.subscribers.Subscribe(s.subscriberQueue)
	defer receiver.Close()

	ctx, span := s.tracer.Start(ctx, "stream.book_summary",
		trace.WithAttributes(attribute.String("subscription_id", receiver.ID())))
	defer span.End()

	s.metrics.connectionsActive.Add(ctx, 1)
	defer s.metrics.connectionsActive.Add(ctx, -1)

	s.logger.Info(ctx, "stream subscriber connected", "subscription_id", receiver.ID())

	for {
		select {
		case <-ctx.Done():
			return
		case summary, ok := <-receiver.Messages():
			if !ok {
				s.logger.Info(ctx, "stream subscriber removed from fan-out", "subscription_id", receiver.ID())
				return
			}
			if err := s.writeSummary(ctx, conn, summary); err != nil {
				s.logger.Warn(ctx, "failed to write summary, closing connection",
					"subscription_id", receiver.ID(), "error", err)
				return
			}
			s.metrics.framesSent.Add(ctx, 1)
		}
	}
}

func (s *Server) writeSummary(ctx context.Context, conn *websocket.Conn, summary domain.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, data)
}

// Close shuts the underlying HTTP server down immediately.
func (s *Server) Close() error {
	return s.httpServer.Close()
}
