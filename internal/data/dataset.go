package data

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"pattern-optimizer/internal/errors"
	"pattern-optimizer/internal/logging"
	"pattern-optimizer/internal/models"
	"pattern-optimizer/pkg/utils"
)

// Dataset is the immutable bar universe one optimization run operates on.
// All symbol series are aligned index for index with Dates: Bars[sym][i]
// is the bar for Dates[i]. The dataset is loaded once per run and shared
// read-only across evaluation workers.
type Dataset struct {
	Dates   []time.Time
	Symbols []string
	Bars    map[string][]models.Bar
}

// Days returns the number of trading days in the dataset.
func (d *Dataset) Days() int {
	return len(d.Dates)
}

// LoaderConfig bounds dataset assembly.
type LoaderConfig struct {
	MinUniverseSize int // fatal if fewer symbols survive loading
	MinBars         int // symbols with shorter series are dropped
}

// LoadDataset fetches bars for every symbol, drops symbols that fail or
// are too short, and aligns the survivors on their common trading days.
// A universe below MinUniverseSize aborts the run before optimization.
func LoadDataset(ctx context.Context, src BarSource, symbols []string, start, end time.Time, cfg LoaderConfig, logger zerolog.Logger) (*Dataset, error) {
	fetched := make(map[string][]models.Bar)

	for _, symbol := range symbols {
		symLog := logging.WithSymbol(logger, symbol)
		bars, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() ([]models.Bar, error) {
			return src.Bars(ctx, symbol, start, end)
		})
		if err != nil {
			symLog.Warn().Err(err).Msg("Dropping symbol: bar fetch failed")
			continue
		}
		if len(bars) < cfg.MinBars {
			symLog.Warn().Int("bars", len(bars)).Msg("Dropping symbol: series too short")
			continue
		}
		fetched[symbol] = bars
	}

	if len(fetched) < cfg.MinUniverseSize {
		return nil, &errors.DataError{
			Op:  "load universe",
			Err: errors.ErrUniverseTooSmall,
		}
	}

	ds := align(fetched)
	if len(ds.Dates) < cfg.MinBars {
		return nil, &errors.DataError{Op: "align universe", Err: errors.ErrInsufficientData}
	}

	logger.Info().
		Int("symbols", len(ds.Symbols)).
		Int("days", len(ds.Dates)).
		Msg("Dataset loaded")
	return ds, nil
}

// align keeps only the trading days present for every symbol so the engine
// can iterate one shared calendar.
func align(fetched map[string][]models.Bar) *Dataset {
	counts := make(map[string]int)
	byDay := make(map[string]map[string]models.Bar, len(fetched)) // symbol -> day -> bar
	for symbol, bars := range fetched {
		days := make(map[string]models.Bar, len(bars))
		for _, b := range bars {
			key := dayKey(b.Timestamp)
			if _, seen := days[key]; !seen {
				counts[key]++
			}
			days[key] = b
		}
		byDay[symbol] = days
	}

	var common []string
	for key, n := range counts {
		if n == len(fetched) {
			common = append(common, key)
		}
	}
	sort.Strings(common)

	symbols := make([]string, 0, len(fetched))
	for symbol := range fetched {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	ds := &Dataset{
		Dates:   make([]time.Time, len(common)),
		Symbols: symbols,
		Bars:    make(map[string][]models.Bar, len(symbols)),
	}
	for i, key := range common {
		ds.Dates[i], _ = time.Parse("2006-01-02", key)
	}
	for _, symbol := range symbols {
		series := make([]models.Bar, len(common))
		for i, key := range common {
			series[i] = byDay[symbol][key]
		}
		ds.Bars[symbol] = series
	}
	return ds
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
