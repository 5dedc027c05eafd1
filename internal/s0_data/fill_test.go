package s0_data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuepool/internal/contracts"
)

func TestFillNonTradingDays(t *testing.T) {
	// Friday and Monday; the weekend is filled from Friday's close
	bars := []contracts.Bar{
		{Code: "005930", TradeDate: d("2024-01-08"), Open: 77, Close: 78, High: 79, Low: 76, Volume: 300, PE: 14, PB: 1.4},
		{Code: "005930", TradeDate: d("2024-01-05"), Open: 76, Close: 77, High: 78, Low: 75, Volume: 200, PE: 13, PB: 1.3},
	}

	out := FillNonTradingDays(bars)
	require.Len(t, out, 4)

	assert.Equal(t, "2024-01-05", contracts.DateKey(out[0].TradeDate))
	assert.Equal(t, int64(200), out[0].Volume)

	for _, filled := range out[1:3] {
		assert.Equal(t, "005930", filled.Code)
		assert.Equal(t, int64(0), filled.Volume)
		assert.Equal(t, 77.0, filled.Open)
		assert.Equal(t, 77.0, filled.Close)
		assert.Equal(t, 77.0, filled.High)
		assert.Equal(t, 77.0, filled.Low)
		assert.Equal(t, 13.0, filled.PE)
		assert.Equal(t, 1.3, filled.PB)
	}
	assert.Equal(t, "2024-01-06", contracts.DateKey(out[1].TradeDate))
	assert.Equal(t, "2024-01-07", contracts.DateKey(out[2].TradeDate))
	assert.Equal(t, 78.0, out[3].Close)
}

func TestFillNonTradingDays_Edges(t *testing.T) {
	assert.Nil(t, FillNonTradingDays(nil))

	one := []contracts.Bar{{Code: "A", TradeDate: d("2024-01-02"), Close: 1, Volume: 1}}
	assert.Len(t, FillNonTradingDays(one), 1)

	dup := []contracts.Bar{
		{Code: "A", TradeDate: d("2024-01-02"), Close: 1, Volume: 1},
		{Code: "A", TradeDate: d("2024-01-02"), Close: 2, Volume: 1},
	}
	out := FillNonTradingDays(dup)
	require.Len(t, out, 1)
	assert.Equal(t, 2.0, out[0].Close)
}
