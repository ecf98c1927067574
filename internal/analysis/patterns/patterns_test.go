package patterns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pattern-optimizer/internal/analysis"
	"pattern-optimizer/internal/models"
)

func barsFromCloses(closes []float64) []models.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Symbol:    "TEST",
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func flatSeries(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func testConfig() Config {
	return Config{
		Window:        3,
		Sensitivity:   1.0,
		MinConfidence: 0.4,
		Lookback:      80,

		MinDistance:          5,
		MaxDistance:          40,
		DoubleTolerance:      0.02,
		BreakoutConfirmation: 0.03,

		SymmetryTolerance: 0.05,

		TriangleMinTouches:      3,
		TriangleFormationPeriod: 30,
		TriangleFlatness:        0.02,

		FlagPoleLength:          10,
		FlagPoleMinGain:         0.06,
		FlagConsolidationLength: 5,
		FlagPullbackMin:         0.2,
		FlagPullbackMax:         0.6,

		TypeWeights: map[analysis.PatternType]float64{
			analysis.DoubleBottom:       1.2,
			analysis.DoubleTop:          1.0,
			analysis.HeadShoulders:      1.0,
			analysis.InvHeadShoulders:   1.0,
			analysis.AscendingTriangle:  1.0,
			analysis.DescendingTriangle: 1.0,
			analysis.BullFlag:           1.0,
			analysis.BearFlag:           1.0,
		},
	}
}

func patternsOfType(ps []analysis.Pattern, t analysis.PatternType) []analysis.Pattern {
	var out []analysis.Pattern
	for _, p := range ps {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

func TestFindExtremaFlatSeriesHasNoExtrema(t *testing.T) {
	peaks, troughs := FindExtrema(flatSeries(60, 100), 3, 1.0)
	assert.Empty(t, peaks)
	assert.Empty(t, troughs)
}

func TestFindExtremaShortSeries(t *testing.T) {
	peaks, troughs := FindExtrema([]float64{1, 2, 3}, 3, 1.0)
	assert.Nil(t, peaks)
	assert.Nil(t, troughs)
}

func TestFindExtremaSingleDip(t *testing.T) {
	prices := flatSeries(30, 100)
	prices[15] = 90

	peaks, troughs := FindExtrema(prices, 3, 1.0)
	assert.Contains(t, troughs, 15)
	assert.NotContains(t, peaks, 15)
}

func TestFindExtremaSingleSpike(t *testing.T) {
	prices := flatSeries(30, 100)
	prices[15] = 110

	peaks, troughs := FindExtrema(prices, 3, 1.0)
	assert.Contains(t, peaks, 15)
	assert.NotContains(t, troughs, 15)
}

func TestDetectFlatSeriesHasNoPatterns(t *testing.T) {
	d := NewDetector(testConfig())
	detected := d.Detect(barsFromCloses(flatSeries(80, 100)))
	assert.Empty(t, detected)
}

// doubleBottomSeries dips to equal lows at indices 40 and 60 and closes
// above the breakout level.
func doubleBottomSeries() []float64 {
	prices := flatSeries(80, 100)
	prices[40] = 90
	prices[60] = 90
	for i := 0; i < 5; i++ {
		prices[75+i] = 101 + float64(i)
	}
	return prices
}

func TestDetectDoubleBottomWithBreakout(t *testing.T) {
	d := NewDetector(testConfig())
	detected := d.Detect(barsFromCloses(doubleBottomSeries()))

	bottoms := patternsOfType(detected, analysis.DoubleBottom)
	require.Len(t, bottoms, 1)

	p := bottoms[0]
	assert.Equal(t, analysis.PatternBullish, p.Direction)
	assert.Equal(t, 0.75, p.Confidence) // breakout confirmed: 105 > 90*1.03
	assert.Equal(t, 40, p.StartIndex)
	assert.Equal(t, 60, p.EndIndex)
	assert.InDelta(t, 0.75*1.2, p.Strength, 1e-12)
}

func TestDetectDoubleBottomWithoutBreakout(t *testing.T) {
	prices := flatSeries(80, 100)
	prices[40] = 90
	prices[60] = 90

	d := NewDetector(testConfig())
	detected := d.Detect(barsFromCloses(prices))

	bottoms := patternsOfType(detected, analysis.DoubleBottom)
	require.Len(t, bottoms, 1)
	assert.Equal(t, 0.55, bottoms[0].Confidence)
}

func TestDetectDoubleBottomRespectsDistanceBand(t *testing.T) {
	prices := flatSeries(80, 100)
	prices[40] = 90
	prices[42] = 90 // closer than MinDistance

	d := NewDetector(testConfig())
	detected := d.Detect(barsFromCloses(prices))
	assert.Empty(t, patternsOfType(detected, analysis.DoubleBottom))
}

func TestDetectDoubleBottomRespectsTolerance(t *testing.T) {
	prices := flatSeries(80, 100)
	prices[40] = 90
	prices[60] = 95 // 5.6% apart, beyond the 2% tolerance

	d := NewDetector(testConfig())
	detected := d.Detect(barsFromCloses(prices))
	assert.Empty(t, patternsOfType(detected, analysis.DoubleBottom))
}

func TestMinConfidenceGateSuppressesWeakMatches(t *testing.T) {
	prices := flatSeries(80, 100)
	prices[40] = 90
	prices[60] = 90 // no breakout, so confidence stays 0.55

	cfg := testConfig()
	cfg.MinConfidence = 0.6
	d := NewDetector(cfg)

	detected := d.Detect(barsFromCloses(prices))
	assert.Empty(t, patternsOfType(detected, analysis.DoubleBottom))
}

func TestDetectDoubleTopIsBearish(t *testing.T) {
	prices := flatSeries(80, 100)
	prices[40] = 110
	prices[60] = 110

	d := NewDetector(testConfig())
	detected := d.Detect(barsFromCloses(prices))

	tops := patternsOfType(detected, analysis.DoubleTop)
	require.NotEmpty(t, tops)
	for _, p := range tops {
		assert.Equal(t, analysis.PatternBearish, p.Direction)
		assert.Negative(t, p.Strength)
	}
}

func TestDetectBullFlag(t *testing.T) {
	// 10-bar pole from 100 to 110, then a 5-bar consolidation pulling back
	// 40% of the pole.
	prices := flatSeries(80, 100)
	n := len(prices)
	poleStart := n - 1 - 5 - 10
	for i := 0; i <= 10; i++ {
		prices[poleStart+i] = 100 + float64(i)
	}
	for i := 1; i <= 5; i++ {
		prices[poleStart+10+i] = 110 - float64(i)*0.8
	}

	d := NewDetector(testConfig())
	detected := d.Detect(barsFromCloses(prices))

	flags := patternsOfType(detected, analysis.BullFlag)
	require.Len(t, flags, 1)
	assert.Equal(t, analysis.PatternBullish, flags[0].Direction)
	assert.Equal(t, 0.6, flags[0].Confidence)
}

func TestDetectLookbackOffsetsIndices(t *testing.T) {
	// Prefix padding must not shift the reported indices: they are relative
	// to the full input slice.
	prefix := flatSeries(40, 50)
	prices := append(prefix, doubleBottomSeries()...)

	d := NewDetector(testConfig()) // Lookback 80 sees only the tail
	detected := d.Detect(barsFromCloses(prices))

	bottoms := patternsOfType(detected, analysis.DoubleBottom)
	require.Len(t, bottoms, 1)
	assert.Equal(t, 40+40, bottoms[0].StartIndex)
	assert.Equal(t, 40+60, bottoms[0].EndIndex)
}

func TestDetectEmptyInput(t *testing.T) {
	d := NewDetector(testConfig())
	assert.Nil(t, d.Detect(nil))
}
