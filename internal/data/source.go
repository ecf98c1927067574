// Package data defines the bar source abstraction and assembles the
// immutable multi-symbol dataset the backtest engine runs over.
package data

import (
	"context"
	"time"

	"pattern-optimizer/internal/models"
)

// BarSource supplies ordered OHLCV sequences per symbol. Implementations
// must return bars ascending by timestamp and may fail per symbol; callers
// drop failed symbols from the active universe.
type BarSource interface {
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)
}
