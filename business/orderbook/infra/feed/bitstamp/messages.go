// Package bitstamp implements the Bitstamp order_book channel feed adapter:
// it performs the explicit subscribe/ack handshake Bitstamp requires, then
// normalizes every data frame into a domain.OrderBookSnap.
package bitstamp

import (
	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
)

const (
	eventSubscribe            = "bts:subscribe"
	eventSubscriptionSucceeded = "bts:subscription_succeeded"
	eventData                 = "data"
)

// subscribeFrame is the control frame sent once per connection to join a
// currency pair's order_book channel.
type subscribeFrame struct {
	Event string             `json:"event"`
	Data  subscribeFrameData `json:"data"`
}

type subscribeFrameData struct {
	Channel string `json:"channel"`
}

func newSubscribeFrame(currency string) subscribeFrame {
	return subscribeFrame{
		Event: eventSubscribe,
		Data:  subscribeFrameData{Channel: "order_book_" + currency},
	}
}

// envelope is the shape of every frame Bitstamp sends after the
// connection is open: acks and data frames share the same top-level
// event/channel/data structure.
type envelope struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel"`
	Data    envelopeData    `json:"data"`
}

type envelopeData struct {
	Timestamp      string                     `json:"timestamp"`
	Microtimestamp string                     `json:"microtimestamp"`
	Bids           domain.BoundedObjectLevels `json:"bids"`
	Asks           domain.BoundedObjectLevels `json:"asks"`
}
