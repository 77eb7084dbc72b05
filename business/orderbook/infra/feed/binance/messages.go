// Package binance implements the Binance combined-stream depth feed
// adapter: it normalizes partial-depth frames into domain.OrderBookSnap
// and forwards them onto the shared producer channel.
package binance

import (
	"encoding/json"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
)

// streamEnvelope is the combined-streams wrapper Binance sends every
// message inside: {"stream": "<pair>@depth10@100ms", "data": {...}}.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// depthPayload is the partial-depth snapshot body. Binance's combined
// stream emits the full bid/ask window on every tick rather than
// incremental diffs, so each payload is a complete snapshot.
type depthPayload struct {
	Bids domain.BoundedLevels `json:"bids"`
	Asks domain.BoundedLevels `json:"asks"`
}

// subscribeRequest is the control-frame shape used to add streams to an
// already-open combined-stream connection.
type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// subscribeResponse is Binance's ack for a subscribeRequest. Successful
// acks carry a null result and matching id; this adapter only needs to
// recognize the shape well enough to not try to parse it as a depth frame.
type subscribeResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
}
