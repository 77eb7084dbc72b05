package domain

import "fmt"

// Depth is D, the fixed number of price levels retained per side.
const Depth = 10

// PriceLevel is a raw, unstamped (price, amount) point as it arrives from a
// single venue. Both fields must be finite and non-negative; NaN is
// rejected at the JSON coercion boundary, never carried into domain types.
type PriceLevel struct {
	Price  float64
	Amount float64
}

// Valid reports whether both fields satisfy the raw invariants.
func (p PriceLevel) Valid() bool {
	return IsFiniteNonNegative(p.Price) && IsFiniteNonNegative(p.Amount)
}

// Level is a published (price, amount) point stamped with the canonical
// display name of the venue that contributed it.
type Level struct {
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
	Exchange string  `json:"exchange"`
}

// OrderBook is one venue's image of depth: two bounded, ordered sequences
// of at most Depth raw PriceLevels each. Bids arrive in descending price
// order, asks in ascending order; the component trusts this ordering from
// the feed and never re-sorts it.
type OrderBook struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

// ExchangeImageTable is a fixed-size array indexed by exchange ordinal,
// holding one OrderBook per venue. Created once with all slots empty; the
// slot for exchange e is overwritten wholesale each time a snapshot from e
// arrives, and no other slot is ever touched by that update.
type ExchangeImageTable struct {
	images [NumExchanges]OrderBook
}

// NewExchangeImageTable returns a table with every slot empty.
func NewExchangeImageTable() *ExchangeImageTable {
	return &ExchangeImageTable{}
}

// Update replaces the image for exchange e in its entirety. It is the only
// mutator on the table and is called exactly once per accepted snapshot.
func (t *ExchangeImageTable) Update(e Exchange, book OrderBook) error {
	if !e.Valid() {
		return fmt.Errorf("exchange ordinal %d outside configured set [0,%d)", e, int(NumExchanges))
	}
	t.images[e] = book
	return nil
}

// Image returns the current image for exchange e.
func (t *ExchangeImageTable) Image(e Exchange) (OrderBook, error) {
	if !e.Valid() {
		return OrderBook{}, fmt.Errorf("exchange ordinal %d outside configured set [0,%d)", e, int(NumExchanges))
	}
	return t.images[e], nil
}

// OrderBookSnap is a single in-flight message: a snapshot produced by one
// feed adapter, consumed by the aggregator exactly once.
type OrderBookSnap struct {
	Exchange  Exchange
	OrderBook OrderBook
}

// Summary is the published, merged view of both sides across every venue.
type Summary struct {
	Spread float64 `json:"spread"`
	Bids   []Level `json:"bids"`
	Asks   []Level `json:"asks"`
}
