package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pattern-optimizer/internal/analysis"
	"pattern-optimizer/internal/models"
)

func curveOf(equities ...float64) []EquityPoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]EquityPoint, len(equities))
	for i, e := range equities {
		out[i] = EquityPoint{Timestamp: base.AddDate(0, 0, i), Equity: e}
	}
	return out
}

func TestSharpeRatio(t *testing.T) {
	assert.Zero(t, sharpeRatio(nil))
	assert.Zero(t, sharpeRatio([]float64{0.01}))
	assert.Zero(t, sharpeRatio([]float64{0.01, 0.01, 0.01})) // zero deviation

	// mean 0.02, sample std 0.01
	got := sharpeRatio([]float64{0.01, 0.02, 0.03})
	assert.InDelta(t, 0.02/0.01*math.Sqrt(252), got, 1e-9)
}

func TestSortinoRatio(t *testing.T) {
	assert.Zero(t, sortinoRatio(nil))
	assert.Zero(t, sortinoRatio([]float64{0.01, 0.02, 0.03})) // no losing days

	returns := []float64{0.02, -0.01, 0.03, -0.02}
	downside := math.Sqrt((0.01*0.01 + 0.02*0.02) / 4)
	want := 0.005 / downside * math.Sqrt(252)
	assert.InDelta(t, want, sortinoRatio(returns), 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Zero(t, maxDrawdown(nil))
	assert.Zero(t, maxDrawdown(curveOf(100, 110, 120))) // monotone rise

	got := maxDrawdown(curveOf(100, 120, 90, 110, 80))
	assert.InDelta(t, 40.0/120.0, got, 1e-12)
}

func TestMaxDrawdownClampedToOne(t *testing.T) {
	assert.InDelta(t, 1.0, maxDrawdown(curveOf(100, -50)), 1e-12)
}

func TestCalmarRatio(t *testing.T) {
	assert.Zero(t, calmarRatio(100, 121, 504, 0))  // no drawdown
	assert.Zero(t, calmarRatio(100, 121, 0, 0.2))  // no observations
	assert.Zero(t, calmarRatio(0, 121, 504, 0.2))  // degenerate capital
	assert.Zero(t, calmarRatio(100, -1, 504, 0.2)) // wiped out

	// (1.21)^(252/504) - 1 = 0.10 annualized over a 0.20 drawdown.
	assert.InDelta(t, 0.5, calmarRatio(100, 121, 504, 0.2), 1e-9)
}

func TestDailyReturns(t *testing.T) {
	assert.Nil(t, dailyReturns(nil))
	assert.Nil(t, dailyReturns(curveOf(100)))

	got := dailyReturns(curveOf(100, 110, 99))
	assert.InDeltaSlice(t, []float64{0.10, -0.10}, got, 1e-12)

	// A zero equity point yields a zero return instead of dividing by it.
	got = dailyReturns(curveOf(100, 0, 50))
	assert.InDeltaSlice(t, []float64{-1, 0}, got, 1e-12)
}

func TestComputeMetricsEmptyResult(t *testing.T) {
	res := &Result{InitialCapital: 100000, FinalEquity: 100000}
	computeMetrics(res)

	assert.Zero(t, res.Metrics.TotalReturn)
	assert.Zero(t, res.Metrics.Sharpe)
	assert.Zero(t, res.Metrics.Sortino)
	assert.Zero(t, res.Metrics.Calmar)
	assert.Zero(t, res.Metrics.MaxDrawdown)
	assert.Zero(t, res.Metrics.WinRate)
	assert.Zero(t, res.Metrics.Trades)
	assert.Zero(t, res.Metrics.PatternWinRate)
	assert.Zero(t, res.Metrics.AvgPatternStrength)
}

func TestComputeMetricsWinRates(t *testing.T) {
	pattern := []struct {
		pnl   float64
		score float64
	}{{50, 0.6}, {-20, 0.3}, {30, 0.9}}
	res := &Result{InitialCapital: 100000, FinalEquity: 100060}
	for _, p := range pattern {
		res.Trades = append(res.Trades, models.TradeResult{
			PnL:          p.pnl,
			Patterns:     []analysis.Pattern{{}},
			PatternScore: p.score,
		})
	}
	// One plain trade with no contributing pattern; its score must not
	// dilute the pattern-strength average.
	res.Trades = append(res.Trades, models.TradeResult{PnL: -10, PatternScore: 0.4})
	computeMetrics(res)

	assert.Equal(t, 4, res.Metrics.Trades)
	assert.InDelta(t, 0.5, res.Metrics.WinRate, 1e-12)
	assert.Equal(t, 3, res.Metrics.PatternTrades)
	assert.InDelta(t, 2.0/3.0, res.Metrics.PatternWinRate, 1e-12)
	assert.InDelta(t, 0.6, res.Metrics.AvgPatternStrength, 1e-12)
	assert.InDelta(t, 0.0006, res.Metrics.TotalReturn, 1e-12)
}

func TestPatternStatWinRate(t *testing.T) {
	assert.Zero(t, PatternStat{}.WinRate())
	assert.InDelta(t, 0.25, PatternStat{Trades: 4, Wins: 1}.WinRate(), 1e-12)
}

func TestPatternStatAvgReturn(t *testing.T) {
	assert.Zero(t, PatternStat{}.AvgReturn())
	assert.InDelta(t, 0.02, PatternStat{Trades: 3, ReturnSum: 0.06}.AvgReturn(), 1e-12)
}
