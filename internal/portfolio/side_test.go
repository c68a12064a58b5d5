package portfolio

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want Side
	}{
		{"BUY", Buy},
		{"buy", Buy},
		{"BOT", Buy},
		{"SELL", Sell},
		{" sell ", Sell},
		{"SLD", Sell},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSide(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"HOLD", "", "SHORT"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseSide(bad)
			assert.ErrorIs(t, err, ErrUnknownSide)
		})
	}
}

func TestSide_JSON(t *testing.T) {
	data, err := json.Marshal(Sell)
	require.NoError(t, err)
	assert.Equal(t, `"SELL"`, string(data))

	var s Side
	require.NoError(t, json.Unmarshal([]byte(`"BOT"`), &s))
	assert.Equal(t, Buy, s)

	err = json.Unmarshal([]byte(`"HOLD"`), &s)
	assert.ErrorIs(t, err, ErrUnknownSide)

	_, err = json.Marshal(Side(0))
	assert.Error(t, err)
}
