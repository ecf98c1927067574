package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pattern-optimizer/internal/models"
)

func seq(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMA(values, 3)

	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-12)
	assert.InDelta(t, 3.0, out[3], 1e-12)
	assert.InDelta(t, 4.0, out[4], 1e-12)
}

func TestSMAShortSeries(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}

func TestEMASeedAndDecay(t *testing.T) {
	values := []float64{1, 2, 3, 10, 10}
	out := EMA(values, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-12) // SMA seed

	// multiplier = 2/(3+1) = 0.5
	assert.InDelta(t, 6.0, out[3], 1e-12)
	assert.InDelta(t, 8.0, out[4], 1e-12)
}

func TestEMAConstantSeries(t *testing.T) {
	out := EMA(seq(20, 7, 0), 5)
	for i := 4; i < 20; i++ {
		assert.InDelta(t, 7.0, out[i], 1e-12)
	}
}

func TestRSIFlatSeriesIsHundred(t *testing.T) {
	out := RSI(seq(30, 100, 0), 14)
	assert.True(t, math.IsNaN(out[13]))
	for i := 14; i < 30; i++ {
		assert.InDelta(t, 100.0, out[i], 1e-12)
	}
}

func TestRSIDirectionality(t *testing.T) {
	up := RSI(seq(30, 100, 1), 14)
	assert.InDelta(t, 100.0, up[29], 1e-12) // all gains, no losses

	down := RSI(seq(30, 100, -1), 14)
	assert.InDelta(t, 0.0, down[29], 1e-12) // all losses, no gains

	// Alternating equal gains and losses settle toward the midline.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%2)
	}
	mixed := RSI(closes, 14)
	assert.InDelta(t, 50.0, mixed[59], 5.0)
}

func TestRSIStaysInRange(t *testing.T) {
	closes := []float64{44, 44.34, 44.09, 43.61, 44.33, 44.83, 45.1, 45.42,
		45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.0, 46.03, 46.41,
		46.22, 45.64, 46.21, 46.25, 45.71, 46.45, 45.78, 45.35, 44.03, 44.18,
		44.22, 44.57}
	out := RSI(closes, 14)
	for i := 14; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], 0.0)
		assert.LessOrEqual(t, out[i], 100.0)
	}
}

func flatOHLC(n int, price float64) []models.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      price, High: price, Low: price, Close: price,
		}
	}
	return bars
}

func TestATRFlatBarsIsZero(t *testing.T) {
	out := ATR(flatOHLC(30, 100), 14)
	assert.True(t, math.IsNaN(out[13]))
	for i := 14; i < 30; i++ {
		assert.Zero(t, out[i])
	}
}

func TestATRConstantRange(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 30)
	for i := range bars {
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      100, High: 102, Low: 98, Close: 100,
		}
	}
	// Every true range is 4, so the smoothed value is exactly 4.
	out := ATR(bars, 14)
	for i := 14; i < 30; i++ {
		assert.InDelta(t, 4.0, out[i], 1e-12)
	}
}

func TestATRGapUsesPreviousClose(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 16)
	for i := range bars {
		bars[i] = models.Bar{
			Timestamp: base.AddDate(0, 0, i),
			Open:      100, High: 101, Low: 99, Close: 100,
		}
	}
	// Gap up: intraday range stays 2 but the jump from the prior close is 10.
	bars[15].Open, bars[15].High, bars[15].Low, bars[15].Close = 110, 111, 109, 110

	out := ATR(bars, 14)
	plain := ATR(bars[:15], 14)
	assert.Greater(t, out[15], plain[14])
}

func TestMACDWarmupAndHistogram(t *testing.T) {
	values := seq(60, 100, 0.5)
	macd, signal, hist := MACD(values, 12, 26, 9)

	require.Len(t, macd, 60)
	assert.True(t, math.IsNaN(macd[24]))
	assert.False(t, math.IsNaN(macd[25])) // slow EMA defined from index 25

	// Signal warms up 8 more bars past the first MACD value.
	assert.True(t, math.IsNaN(signal[32]))
	assert.False(t, math.IsNaN(signal[33]))

	for i := 33; i < 60; i++ {
		assert.InDelta(t, macd[i]-signal[i], hist[i], 1e-12)
	}
}

func TestMACDTrendSign(t *testing.T) {
	up := make([]float64, 80)
	price := 100.0
	for i := range up {
		price *= 1.01
		up[i] = price
	}
	macd, _, _ := MACD(up, 12, 26, 9)
	// Fast EMA sits above slow EMA in a sustained uptrend.
	assert.Positive(t, macd[79])
}

func TestMACDShortSeries(t *testing.T) {
	macd, signal, hist := MACD(seq(10, 1, 1), 12, 26, 9)
	for i := 0; i < 10; i++ {
		assert.True(t, math.IsNaN(macd[i]))
		assert.True(t, math.IsNaN(signal[i]))
		assert.True(t, math.IsNaN(hist[i]))
	}
}
