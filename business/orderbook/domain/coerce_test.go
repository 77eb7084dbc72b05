package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleFloatAcceptsNumberOrString(t *testing.T) {
	var asNumber, asString FlexibleFloat
	require.NoError(t, json.Unmarshal([]byte(`10.5`), &asNumber))
	require.NoError(t, json.Unmarshal([]byte(`"10.5"`), &asString))
	assert.Equal(t, asNumber, asString)
}

func TestFlexibleFloatRejectsNonNumeric(t *testing.T) {
	var f FlexibleFloat
	assert.Error(t, json.Unmarshal([]byte(`"not-a-number"`), &f))
	assert.Error(t, json.Unmarshal([]byte(`true`), &f))
	assert.Error(t, json.Unmarshal([]byte(`-1`), &f))
}

func TestBoundedLevelsTruncatesAtDepth(t *testing.T) {
	raw := `[`
	for i := 0; i < Depth+5; i++ {
		if i > 0 {
			raw += ","
		}
		raw += `[1.0, 2.0]`
	}
	raw += `]`

	var levels BoundedLevels
	require.NoError(t, json.Unmarshal([]byte(raw), &levels))
	assert.Len(t, levels.Levels, Depth)
}

func TestBoundedLevelsDrainsTrailingEnvelope(t *testing.T) {
	type envelope struct {
		Bids BoundedLevels `json:"bids"`
		Tail string        `json:"tail"`
	}

	raw := `{"bids":[[1,1],[2,2],[3,3]],"tail":"ok"}`
	var e envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, "ok", e.Tail)
	assert.Len(t, e.Bids.Levels, 3)
}

func TestBoundedObjectLevelsTruncatesAtDepth(t *testing.T) {
	raw := `[`
	for i := 0; i < Depth+3; i++ {
		if i > 0 {
			raw += ","
		}
		raw += `{"price":"1.0","amount":"2.0"}`
	}
	raw += `]`

	var levels BoundedObjectLevels
	require.NoError(t, json.Unmarshal([]byte(raw), &levels))
	assert.Len(t, levels.Levels, Depth)
}
