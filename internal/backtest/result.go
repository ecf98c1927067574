// Package backtest simulates a parameterized long-only strategy over a
// multi-symbol daily bar universe.
package backtest

import (
	"time"

	"pattern-optimizer/internal/models"
)

// EquityPoint is one day of the portfolio equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// PatternStat aggregates trade outcomes for one pattern type.
type PatternStat struct {
	Trades    int
	Wins      int
	PnL       float64
	ReturnSum float64 // summed fractional per-trade returns
}

// WinRate returns the fraction of winning trades for this pattern type.
func (s PatternStat) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades)
}

// AvgReturn returns the mean fractional return of this pattern type's
// trades, 0 when the type never traded.
func (s PatternStat) AvgReturn() float64 {
	if s.Trades == 0 {
		return 0
	}
	return s.ReturnSum / float64(s.Trades)
}

// Result holds the full output of one simulation.
type Result struct {
	InitialCapital float64
	FinalEquity    float64
	EquityCurve    []EquityPoint
	DailyReturns   []float64
	Trades         []models.TradeResult
	PatternStats   map[string]PatternStat
	Metrics        Metrics
}

// Metrics summarizes risk and return for one simulation.
type Metrics struct {
	TotalReturn    float64 // fractional, 0.10 = +10%
	Sharpe         float64
	Sortino        float64
	Calmar         float64
	MaxDrawdown    float64 // fractional, always in [0, 1]
	WinRate        float64
	Trades         int
	PatternTrades  int
	PatternWinRate float64

	// AvgPatternStrength is the mean entry pattern score across
	// pattern-tagged trades, 0 when no trade carried a pattern.
	AvgPatternStrength float64
}

// patternTrades counts trades entered with at least one detected pattern,
// how many of those won, and their summed entry pattern scores.
func (r *Result) patternTrades() (total, wins int, strengthSum float64) {
	for _, t := range r.Trades {
		if len(t.Patterns) == 0 {
			continue
		}
		total++
		strengthSum += t.PatternScore
		if t.Won() {
			wins++
		}
	}
	return total, wins, strengthSum
}
