package models

import (
	"time"

	"pattern-optimizer/internal/analysis"
)

// Position is an open holding inside the backtest engine. Positions are
// exclusively owned by the engine's open-position map: created on entry,
// removed on exit. At most one open position exists per symbol.
type Position struct {
	Symbol       string
	EntryPrice   float64
	Shares       int
	EntryDate    time.Time
	StopLoss     float64
	TakeProfit   float64
	Patterns     []analysis.Pattern
	PatternScore float64
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss    ExitReason = "stop_loss"
	ExitTakeProfit  ExitReason = "take_profit"
	ExitForceClosed ExitReason = "force_closed"
)

// TradeResult is the closed record of a round trip. Immutable once created.
type TradeResult struct {
	Symbol       string
	EntryPrice   float64
	ExitPrice    float64
	EntryDate    time.Time
	ExitDate     time.Time
	Shares       int
	PnL          float64
	PnLPercent   float64
	HoldingDays  int
	Reason       ExitReason
	Patterns     []analysis.Pattern
	PatternScore float64
}

// Won reports whether the trade closed with a positive profit.
func (t TradeResult) Won() bool {
	return t.PnL > 0
}
