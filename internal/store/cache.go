package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pattern-optimizer/internal/data"
	"pattern-optimizer/internal/models"
)

// CachedSource wraps a BarSource with the SQLite bar cache: hits are served
// from the database, misses are fetched from the underlying source and
// written through.
type CachedSource struct {
	store  *SQLiteStore
	source data.BarSource
	logger zerolog.Logger
}

// NewCachedSource creates a read-through cache over src.
func NewCachedSource(store *SQLiteStore, src data.BarSource, logger zerolog.Logger) *CachedSource {
	return &CachedSource{store: store, source: src, logger: logger}
}

// Bars returns cached bars when present, otherwise fetches and caches them.
// A cache write failure is logged and swallowed: the fetched bars are still
// returned so one bad write cannot fail a run.
func (c *CachedSource) Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	cached, err := c.store.GetBars(ctx, symbol, start, end)
	if err == nil && len(cached) > 0 {
		return cached, nil
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Bar cache read failed, fetching from source")
	}

	bars, err := c.source.Bars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	if err := c.store.SaveBars(ctx, symbol, bars); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Bar cache write failed")
	}
	return bars, nil
}
