// Package optimizer searches the strategy parameter space with a genetic
// algorithm: tournament selection, elitism, blend crossover and per-gene
// mutation over a fixed evaluation budget.
package optimizer

import (
	"pattern-optimizer/internal/backtest"
)

// Fitness guardrails. A configuration that barely trades tells us nothing,
// and one that survives on deep drawdowns is not worth ranking on its
// return metrics, so both are pushed far below any viable score.
const (
	MinTrades        = 30
	MaxDrawdownLimit = 0.35
	// PanicFitness marks a genome whose evaluation crashed. It sorts below
	// every guardrail penalty so the genome cannot reproduce.
	PanicFitness = -10000.0
)

// Fitness collapses a simulation's metrics into the single scalar the
// optimizer ranks genomes by.
func Fitness(m backtest.Metrics) float64 {
	if m.Trades < MinTrades {
		return -1000 + float64(m.Trades)*10
	}
	if m.MaxDrawdown > MaxDrawdownLimit {
		return -500 * m.MaxDrawdown
	}

	activity := float64(m.Trades) / 400
	if activity > 1 {
		activity = 1
	}

	score := m.Sharpe*25 +
		m.Sortino*20 +
		m.Calmar*25 +
		m.WinRate*100 +
		m.TotalReturn*80 +
		(1-m.MaxDrawdown)*15 +
		activity*5

	// Reward configurations whose pattern-tagged trades outperform the book.
	if m.PatternWinRate > m.WinRate {
		score += 10
	}
	return score
}
