package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pattern-optimizer/internal/models"
	"pattern-optimizer/pkg/utils"
)

// DirSource reads daily OHLCV bars from per-symbol CSV files in a
// directory, one file per symbol named <SYMBOL>.csv with the columns
// date,open,high,low,close,volume and an optional header row.
type DirSource struct {
	dir string
}

// NewDirSource creates a CSV bar source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Bars loads and filters the symbol's file to [start,end].
func (s *DirSource) Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		// A missing file will not appear on retry.
		wrapped := fmt.Errorf("opening bars for %s: %w", symbol, err)
		if errors.Is(err, fs.ErrNotExist) {
			wrapped = utils.Permanent(wrapped)
		}
		return nil, wrapped
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	records, err := r.ReadAll()
	if err != nil {
		wrapped := fmt.Errorf("reading bars for %s: %w", symbol, err)
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			wrapped = utils.Permanent(wrapped)
		}
		return nil, wrapped
	}

	bars := make([]models.Bar, 0, len(records))
	for i, rec := range records {
		bar, err := parseRecord(symbol, rec)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, utils.Permanent(fmt.Errorf("parsing %s row %d: %w", symbol, i+1, err))
		}
		if bar.Timestamp.Before(start) || bar.Timestamp.After(end) {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, utils.Permanent(fmt.Errorf("no bars for %s in range", symbol))
	}
	return bars, nil
}

func parseRecord(symbol string, rec []string) (models.Bar, error) {
	ts, err := parseDate(rec[0])
	if err != nil {
		return models.Bar{}, err
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return models.Bar{}, err
		}
		vals[i] = v
	}
	volume, err := strconv.ParseInt(rec[5], 10, 64)
	if err != nil {
		return models.Bar{}, err
	}
	return models.Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    volume,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
