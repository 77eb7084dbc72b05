// Package di contains dependency injection tokens and typed getters for the
// order book aggregation context.
package di

import (
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/app"
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/infra/fanout"
	internaldi "github.com/keyrock-labs/orderbook-aggregator/internal/di"
)

// DI tokens for the orderbook module.
const (
	Publisher     = "orderbook.Publisher"
	Aggregator    = "orderbook.Aggregator"
	ProducerQueue = "orderbook.ProducerQueue"
)

// GetPublisher resolves the registered fan-out channel.
func GetPublisher(sr internaldi.ServiceRegistry) *fanout.MultiReceiverChannel {
	return internaldi.MustGet[*fanout.MultiReceiverChannel](sr, Publisher)
}

// GetAggregator resolves the registered merge engine.
func GetAggregator(sr internaldi.ServiceRegistry) *app.Aggregator {
	return internaldi.MustGet[*app.Aggregator](sr, Aggregator)
}

// GetProducerQueue resolves the shared mpsc channel every feed adapter
// writes normalized snapshots to.
func GetProducerQueue(sr internaldi.ServiceRegistry) chan domain.OrderBookSnap {
	return internaldi.MustGet[chan domain.OrderBookSnap](sr, ProducerQueue)
}
