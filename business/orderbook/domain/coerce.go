package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/keyrock-labs/orderbook-aggregator/internal/apperror"
)

// FlexibleFloat parses a JSON numeric field that may arrive as either a
// JSON number or a JSON string carrying the same number (Binance sends
// numbers for some fields and strings for others; Bitstamp sends strings
// throughout). It rejects anything else, including NaN produced by a
// string like "NaN", with a schema-mismatch error.
type FlexibleFloat float64

func (f *FlexibleFloat) UnmarshalJSON(b []byte) error {
	var asNumber float64
	if err := json.Unmarshal(b, &asNumber); err == nil {
		if !IsFiniteNonNegative(asNumber) {
			return apperror.New(apperror.CodeFeedSchemaMismatch, apperror.WithContext("numeric field must be finite and non-negative"))
		}
		*f = FlexibleFloat(asNumber)
		return nil
	}

	var asString string
	if err := json.Unmarshal(b, &asString); err != nil {
		return apperror.New(apperror.CodeFeedSchemaMismatch,
			apperror.WithContext("numeric field is neither a JSON number nor a string"),
			apperror.WithCause(err))
	}

	parsed, err := strconv.ParseFloat(asString, 64)
	if err != nil {
		return apperror.New(apperror.CodeFeedSchemaMismatch,
			apperror.WithContext(fmt.Sprintf("cannot parse %q as float64", asString)),
			apperror.WithCause(err))
	}
	if !IsFiniteNonNegative(parsed) {
		return apperror.New(apperror.CodeFeedSchemaMismatch, apperror.WithContext("numeric field must be finite and non-negative"))
	}
	*f = FlexibleFloat(parsed)
	return nil
}

// BoundedLevels is a fixed-capacity container that decodes a JSON array of
// arbitrary length into at most Depth PriceLevels, silently discarding any
// entries beyond Depth. It still consumes the full JSON array token stream
// so the surrounding envelope decodes cleanly regardless of how long the
// venue's array is.
type BoundedLevels struct {
	Levels []PriceLevel
}

// rawPair decodes one [price, amount] tuple, accepting either representation
// for each element independently — Binance ships numeric-or-string tuples.
type rawPair [2]FlexibleFloat

func (b *BoundedLevels) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return apperror.New(apperror.CodeFeedSchemaMismatch, apperror.WithContext("expected array for price levels"), apperror.WithCause(err))
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return apperror.New(apperror.CodeFeedSchemaMismatch, apperror.WithContext("expected array for price levels"))
	}

	b.Levels = b.Levels[:0]
	for dec.More() {
		var pair rawPair
		if err := dec.Decode(&pair); err != nil {
			return apperror.New(apperror.CodeFeedSchemaMismatch, apperror.WithContext("malformed price level entry"), apperror.WithCause(err))
		}
		if len(b.Levels) < Depth {
			b.Levels = append(b.Levels, PriceLevel{
				Price:  float64(pair[0]),
				Amount: float64(pair[1]),
			})
		}
		// beyond Depth: decoded and discarded, draining the stream.
	}
	if _, err := dec.Token(); err != nil {
		return apperror.New(apperror.CodeFeedSchemaMismatch, apperror.WithContext("unterminated price level array"), apperror.WithCause(err))
	}
	return nil
}

// PriceAmountLevel decodes a {"price": ..., "amount": ...} object using the
// same string-or-number coercion as rawPair, for venues that ship levels as
// objects rather than tuples (Bitstamp).
type PriceAmountLevel struct {
	Price  FlexibleFloat `json:"price"`
	Amount FlexibleFloat `json:"amount"`
}

// BoundedObjectLevels is BoundedLevels' counterpart for object-shaped level
// arrays.
type BoundedObjectLevels struct {
	Levels []PriceLevel
}

func (b *BoundedObjectLevels) UnmarshalJSON(data []byte) error {
	var raw []PriceAmountLevel
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperror.New(apperror.CodeFeedSchemaMismatch, apperror.WithContext("malformed price level array"), apperror.WithCause(err))
	}
	b.Levels = b.Levels[:0]
	for i, lvl := range raw {
		if i >= Depth {
			break
		}
		b.Levels = append(b.Levels, PriceLevel{Price: float64(lvl.Price), Amount: float64(lvl.Amount)})
	}
	return nil
}
