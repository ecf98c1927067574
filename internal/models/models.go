// Package models provides domain models for the optimization pipeline.
package models

import (
	"time"
)

// Bar represents OHLCV data for one trading day.
// Bars are externally supplied and treated as read-only by the whole pipeline.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Closes extracts the close series from a bar slice.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
