package backtest

import (
	"context"
	"math"
	"sort"
	"time"

	"pattern-optimizer/internal/analysis"
	"pattern-optimizer/internal/analysis/indicators"
	"pattern-optimizer/internal/analysis/signal"
	"pattern-optimizer/internal/data"
	"pattern-optimizer/internal/genome"
	"pattern-optimizer/internal/models"
)

// Config holds the engine's trading parameters.
type Config struct {
	InitialCapital float64
	BuyThreshold   float64
	ConfidenceMin  float64
	MaxPositions   int
	MaxPositionPct float64
	ATRPeriod      int
	ATRMultStop    float64
	ATRMultTarget  float64
}

// ConfigFromGenome extracts the engine parameters encoded in a genome.
func ConfigFromGenome(g *genome.Genome, initialCapital float64) Config {
	return Config{
		InitialCapital: initialCapital,
		BuyThreshold:   g.Gene(genome.BuyThreshold),
		ConfidenceMin:  g.Gene(genome.ConfidenceMin),
		MaxPositions:   g.Int(genome.MaxPositions),
		MaxPositionPct: g.Gene(genome.MaxPositionPct),
		ATRPeriod:      g.Int(genome.ATRPeriod),
		ATRMultStop:    g.Gene(genome.ATRMultStop),
		ATRMultTarget:  g.Gene(genome.ATRMultTarget),
	}
}

// Engine simulates a long-only portfolio over an aligned bar universe.
// Entries come from the signal generator, exits from ATR-scaled stop and
// target levels fixed at entry. An Engine is single-use state-free between
// Run calls.
type Engine struct {
	cfg Config
	gen *signal.Generator
}

// NewEngine creates an engine with the given parameters and signal source.
func NewEngine(cfg Config, gen *signal.Generator) *Engine {
	return &Engine{cfg: cfg, gen: gen}
}

// candidate is a symbol that cleared both entry gates on a given day.
type candidate struct {
	symbol string
	sig    analysis.Signal
}

// Run walks the dataset one trading day at a time. Each day processes exits
// before entries; when a bar touches both the stop and the target, the stop
// wins. Any positions still open after the last day are force-closed at the
// final close.
func (e *Engine) Run(ctx context.Context, ds *data.Dataset) (*Result, error) {
	res := &Result{
		InitialCapital: e.cfg.InitialCapital,
		PatternStats:   make(map[string]PatternStat),
	}

	cash := e.cfg.InitialCapital
	open := make(map[string]*models.Position)

	for i := signal.MinBars; i < ds.Days(); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		date := ds.Dates[i]

		// Exit pass: check stops and targets against today's range.
		for _, symbol := range ds.Symbols {
			pos, held := open[symbol]
			if !held {
				continue
			}
			bar := ds.Bars[symbol][i]
			switch {
			case bar.Low <= pos.StopLoss:
				cash += e.close(res, pos, pos.StopLoss, date, models.ExitStopLoss)
				delete(open, symbol)
			case bar.High >= pos.TakeProfit:
				cash += e.close(res, pos, pos.TakeProfit, date, models.ExitTakeProfit)
				delete(open, symbol)
			}
		}

		// Entry pass: rank today's qualifying signals and fill free slots.
		if len(open) < e.cfg.MaxPositions {
			equity := cash + marketValue(open, ds, i)
			for _, c := range e.candidates(ds, i, open) {
				if len(open) >= e.cfg.MaxPositions {
					break
				}
				pos, cost := e.enter(ds, i, c, equity)
				if pos == nil || cost > cash {
					continue
				}
				cash -= cost
				open[c.symbol] = pos
			}
		}

		res.EquityCurve = append(res.EquityCurve, EquityPoint{
			Timestamp: date,
			Equity:    cash + marketValue(open, ds, i),
		})
	}

	// Force-close whatever is still open at the final close.
	if ds.Days() > signal.MinBars {
		last := ds.Days() - 1
		for _, symbol := range ds.Symbols {
			pos, held := open[symbol]
			if !held {
				continue
			}
			cash += e.close(res, pos, ds.Bars[symbol][last].Close, ds.Dates[last], models.ExitForceClosed)
			delete(open, symbol)
		}
		res.EquityCurve[len(res.EquityCurve)-1].Equity = cash
	}

	res.FinalEquity = e.cfg.InitialCapital
	if n := len(res.EquityCurve); n > 0 {
		res.FinalEquity = res.EquityCurve[n-1].Equity
	}
	res.DailyReturns = dailyReturns(res.EquityCurve)
	computeMetrics(res)
	return res, nil
}

// candidates evaluates every unheld symbol and returns those clearing the
// score and confidence gates, strongest score first. Symbols are scanned in
// sorted order and the sort is stable, so ties rank deterministically.
func (e *Engine) candidates(ds *data.Dataset, day int, open map[string]*models.Position) []candidate {
	var out []candidate
	for _, symbol := range ds.Symbols {
		if _, held := open[symbol]; held {
			continue
		}
		sig, err := e.gen.Evaluate(ds.Bars[symbol][:day+1])
		if err != nil {
			continue
		}
		if sig.Score >= e.cfg.BuyThreshold && sig.Confidence >= e.cfg.ConfidenceMin {
			out = append(out, candidate{symbol: symbol, sig: sig})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].sig.Score > out[j].sig.Score
	})
	return out
}

// enter sizes and opens a position at today's close with ATR-scaled exit
// levels. Returns nil when the ATR is unavailable or the sized position
// rounds to zero shares.
func (e *Engine) enter(ds *data.Dataset, day int, c candidate, equity float64) (*models.Position, float64) {
	bars := ds.Bars[c.symbol][:day+1]
	atrSeries := indicators.ATR(bars, e.cfg.ATRPeriod)
	atr := atrSeries[len(atrSeries)-1]
	if math.IsNaN(atr) || atr <= 0 {
		return nil, 0
	}

	price := bars[len(bars)-1].Close
	if price <= 0 {
		return nil, 0
	}
	shares := int(math.Floor(equity * e.cfg.MaxPositionPct / price))
	if shares < 1 {
		return nil, 0
	}

	return &models.Position{
		Symbol:       c.symbol,
		EntryPrice:   price,
		Shares:       shares,
		EntryDate:    ds.Dates[day],
		StopLoss:     price - atr*e.cfg.ATRMultStop,
		TakeProfit:   price + atr*e.cfg.ATRMultTarget,
		Patterns:     c.sig.Patterns,
		PatternScore: c.sig.Factors[analysis.FactorPattern],
	}, price * float64(shares)
}

// close books the round trip and returns the cash proceeds.
func (e *Engine) close(res *Result, pos *models.Position, price float64, date time.Time, reason models.ExitReason) float64 {
	pnl := float64(pos.Shares) * (price - pos.EntryPrice)
	trade := models.TradeResult{
		Symbol:       pos.Symbol,
		EntryPrice:   pos.EntryPrice,
		ExitPrice:    price,
		EntryDate:    pos.EntryDate,
		ExitDate:     date,
		Shares:       pos.Shares,
		PnL:          pnl,
		PnLPercent:   (price - pos.EntryPrice) / pos.EntryPrice,
		HoldingDays:  int(date.Sub(pos.EntryDate).Hours() / 24),
		Reason:       reason,
		Patterns:     pos.Patterns,
		PatternScore: pos.PatternScore,
	}
	res.Trades = append(res.Trades, trade)

	for _, p := range pos.Patterns {
		s := res.PatternStats[string(p.Type)]
		s.Trades++
		s.PnL += pnl
		s.ReturnSum += trade.PnLPercent
		if pnl > 0 {
			s.Wins++
		}
		res.PatternStats[string(p.Type)] = s
	}

	return float64(pos.Shares) * price
}

// marketValue marks every open position to the given day's close.
func marketValue(open map[string]*models.Position, ds *data.Dataset, day int) float64 {
	var v float64
	for symbol, pos := range open {
		v += float64(pos.Shares) * ds.Bars[symbol][day].Close
	}
	return v
}

func dailyReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (curve[i].Equity-prev)/prev)
	}
	return out
}
