package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeImageTableUpdateIsolatesSlots(t *testing.T) {
	table := NewExchangeImageTable()

	require.NoError(t, table.Update(Binance, OrderBook{
		Bids: []PriceLevel{{Price: 10, Amount: 1}},
	}))
	require.NoError(t, table.Update(Bitstamp, OrderBook{
		Bids: []PriceLevel{{Price: 9, Amount: 2}},
	}))

	binanceImage, err := table.Image(Binance)
	require.NoError(t, err)
	assert.Equal(t, 10.0, binanceImage.Bids[0].Price)

	bitstampImage, err := table.Image(Bitstamp)
	require.NoError(t, err)
	assert.Equal(t, 9.0, bitstampImage.Bids[0].Price)

	// Re-updating Binance must not disturb the Bitstamp slot.
	require.NoError(t, table.Update(Binance, OrderBook{Bids: []PriceLevel{{Price: 11, Amount: 1}}}))
	bitstampImage, err = table.Image(Bitstamp)
	require.NoError(t, err)
	assert.Equal(t, 9.0, bitstampImage.Bids[0].Price)
}

func TestExchangeImageTableRejectsInvalidOrdinal(t *testing.T) {
	table := NewExchangeImageTable()
	err := table.Update(Exchange(NumExchanges), OrderBook{})
	require.Error(t, err)

	_, err = table.Image(Exchange(-1))
	require.Error(t, err)
}

func TestExchangeString(t *testing.T) {
	assert.Equal(t, "binance", Binance.String())
	assert.Equal(t, "bitstamp", Bitstamp.String())
	assert.Equal(t, "unknown", Exchange(99).String())
}

func TestPriceLevelValid(t *testing.T) {
	assert.True(t, PriceLevel{Price: 1, Amount: 1}.Valid())
	assert.False(t, PriceLevel{Price: -1, Amount: 1}.Valid())
}
