package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keyrock-labs/orderbook-aggregator/business/orderbook/domain"
)

func TestMergeSideEmptyEverywhereReturnsEmpty(t *testing.T) {
	var images [domain.NumExchanges]domain.OrderBook
	assert.Empty(t, mergeSide(images, sideBid))
	assert.Empty(t, mergeSide(images, sideAsk))
}

func TestMergeSideSingleVenueCappedAtDepth(t *testing.T) {
	var images [domain.NumExchanges]domain.OrderBook
	images[domain.Binance] = domain.OrderBook{Bids: stepLevels(100, 1, domain.Depth+5, 1)}

	out := mergeSide(images, sideBid)
	assert.Len(t, out, domain.Depth)
	for _, lvl := range out {
		assert.Equal(t, "binance", lvl.Exchange)
	}
}

func TestMergeSideExhaustsOneVenueBeforeTakingTheOther(t *testing.T) {
	var images [domain.NumExchanges]domain.OrderBook
	images[domain.Binance] = domain.OrderBook{Bids: stepLevels(100, 1, 2, 1)}
	images[domain.Bitstamp] = domain.OrderBook{Bids: stepLevels(200, 1, 5, 1)}

	out := mergeSide(images, sideBid)
	// Bitstamp's higher prices sort first, then binance's two levels fill
	// out the remainder once bitstamp's run is exhausted further down.
	require := func(cond bool, msg string) {
		if !cond {
			t.Fatal(msg)
		}
	}
	require(len(out) == 7, "expected all 7 levels across both venues")
	assert.Equal(t, "bitstamp", out[0].Exchange)
	assert.InDelta(t, 200.0, out[0].Price, 1e-9)
}

func TestItemBetterBidPrefersHigherPriceThenHigherAmount(t *testing.T) {
	higher := mergeItem{level: domain.PriceLevel{Price: 10, Amount: 1}}
	lower := mergeItem{level: domain.PriceLevel{Price: 9, Amount: 100}}
	assert.True(t, itemBetter(higher, lower, sideBid))
	assert.False(t, itemBetter(lower, higher, sideBid))

	tieA := mergeItem{level: domain.PriceLevel{Price: 10, Amount: 5}}
	tieB := mergeItem{level: domain.PriceLevel{Price: 10, Amount: 2}}
	assert.True(t, itemBetter(tieA, tieB, sideBid))
}

func TestItemBetterAskPrefersLowerPriceThenHigherAmount(t *testing.T) {
	lower := mergeItem{level: domain.PriceLevel{Price: 9, Amount: 1}}
	higher := mergeItem{level: domain.PriceLevel{Price: 10, Amount: 100}}
	assert.True(t, itemBetter(lower, higher, sideAsk))
	assert.False(t, itemBetter(higher, lower, sideAsk))

	tieA := mergeItem{level: domain.PriceLevel{Price: 9, Amount: 5}}
	tieB := mergeItem{level: domain.PriceLevel{Price: 9, Amount: 2}}
	assert.True(t, itemBetter(tieA, tieB, sideAsk))
}

func TestSideLevelsPicksCorrectSlice(t *testing.T) {
	book := domain.OrderBook{
		Bids: []domain.PriceLevel{{Price: 1, Amount: 1}},
		Asks: []domain.PriceLevel{{Price: 2, Amount: 2}},
	}
	assert.Equal(t, book.Bids, sideLevels(book, sideBid))
	assert.Equal(t, book.Asks, sideLevels(book, sideAsk))
}
