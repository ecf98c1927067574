package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// tradingDays is the annualization factor for daily returns.
const tradingDays = 252

// computeMetrics fills in the result's risk and return summary. Every ratio
// degrades to 0 rather than NaN or Inf when its denominator vanishes, so a
// flat or empty equity curve always yields finite metrics.
func computeMetrics(res *Result) {
	m := Metrics{Trades: len(res.Trades)}

	if res.InitialCapital > 0 {
		m.TotalReturn = (res.FinalEquity - res.InitialCapital) / res.InitialCapital
	}

	m.Sharpe = sharpeRatio(res.DailyReturns)
	m.Sortino = sortinoRatio(res.DailyReturns)
	m.MaxDrawdown = maxDrawdown(res.EquityCurve)
	m.Calmar = calmarRatio(res.InitialCapital, res.FinalEquity, len(res.DailyReturns), m.MaxDrawdown)

	wins := 0
	for _, t := range res.Trades {
		if t.Won() {
			wins++
		}
	}
	if m.Trades > 0 {
		m.WinRate = float64(wins) / float64(m.Trades)
	}

	pt, pw, strength := res.patternTrades()
	m.PatternTrades = pt
	if pt > 0 {
		m.PatternWinRate = float64(pw) / float64(pt)
		m.AvgPatternStrength = strength / float64(pt)
	}

	res.Metrics = m
}

// sharpeRatio annualizes mean daily return over its standard deviation.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(tradingDays)
}

// sortinoRatio is the Sharpe variant that penalizes only downside
// volatility. A series with no losing days has no downside deviation and
// the ratio degrades to 0.
func sortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := stat.Mean(returns, nil)

	var downSq float64
	for _, r := range returns {
		if r < 0 {
			downSq += r * r
		}
	}
	downside := math.Sqrt(downSq / float64(len(returns)))
	if downside == 0 {
		return 0
	}
	return mean / downside * math.Sqrt(tradingDays)
}

// calmarRatio divides annualized return by max drawdown.
func calmarRatio(initial, final float64, days int, maxDD float64) float64 {
	if maxDD == 0 || days == 0 || initial <= 0 || final <= 0 {
		return 0
	}
	cagr := math.Pow(final/initial, tradingDays/float64(days)) - 1
	return cagr / maxDD
}

// maxDrawdown returns the largest peak-to-trough equity decline as a
// fraction of the peak.
func maxDrawdown(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	var maxDD float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.Equity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	if maxDD > 1 {
		maxDD = 1
	}
	return maxDD
}
