// Package signal fuses indicator-derived factors and detected chart
// patterns into one directional score with a confidence estimate.
package signal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"pattern-optimizer/internal/analysis"
	"pattern-optimizer/internal/analysis/indicators"
	"pattern-optimizer/internal/analysis/patterns"
	"pattern-optimizer/internal/genome"
	"pattern-optimizer/internal/models"
)

// MinBars is the minimum window the generator needs to score a symbol.
const MinBars = 50

// agreementGate is the factor magnitude below which a factor does not
// count toward sign agreement.
const agreementGate = 0.2

// tradingDays is the annualization convention for daily volatility.
const tradingDays = 252

// Generator computes the composite signal for one genome's factor weights.
type Generator struct {
	weights  map[analysis.FactorName]float64
	detector *patterns.Detector
}

// NewGenerator builds a generator from a genome's weight and detector genes.
func NewGenerator(g *genome.Genome) *Generator {
	return &Generator{
		weights: map[analysis.FactorName]float64{
			analysis.FactorTechnical:   g.Gene(genome.WeightTechnical),
			analysis.FactorMomentum:    g.Gene(genome.WeightMomentum),
			analysis.FactorVolatility:  g.Gene(genome.WeightVolatility),
			analysis.FactorVolume:      g.Gene(genome.WeightVolume),
			analysis.FactorSentiment:   g.Gene(genome.WeightSentiment),
			analysis.FactorPattern:     g.Gene(genome.WeightPattern),
			analysis.FactorBreadth:     g.Gene(genome.WeightBreadth),
			analysis.FactorCorrelation: g.Gene(genome.WeightCorrelation),
		},
		detector: patterns.NewDetector(patterns.ConfigFromGenome(g)),
	}
}

// Evaluate scores the bar window ending at the most recent bar. Indicator
// values still inside their warmup period contribute a neutral zero.
func (s *Generator) Evaluate(bars []models.Bar) (analysis.Signal, error) {
	if len(bars) < MinBars {
		return analysis.Signal{}, fmt.Errorf("insufficient data: need at least %d bars, got %d", MinBars, len(bars))
	}

	closes := models.Closes(bars)
	detected := s.detector.Detect(bars)

	factors := analysis.FactorSet{
		analysis.FactorTechnical:  s.technicalFactor(closes),
		analysis.FactorMomentum:   momentumFactor(closes),
		analysis.FactorVolatility: volatilityFactor(closes),
		analysis.FactorVolume:     volumeFactor(bars),
		analysis.FactorSentiment:  sentimentFactor(closes),
		analysis.FactorPattern:    patternFactor(detected),
		analysis.FactorBreadth:    breadthFactor(closes),
	}
	factors[analysis.FactorCorrelation] = clamp(-factors[analysis.FactorSentiment]*0.3, -1, 1)

	var score float64
	for name, f := range factors {
		score += f * s.weights[name]
	}

	return analysis.Signal{
		Score:      score,
		Confidence: confidence(factors, score),
		Factors:    factors,
		Patterns:   detected,
	}, nil
}

// confidence is the fraction of factors that clear the magnitude gate and
// agree with the majority sign, scaled by the score magnitude.
func confidence(factors analysis.FactorSet, score float64) float64 {
	var positive, negative int
	for _, f := range factors {
		if math.Abs(f) <= agreementGate {
			continue
		}
		if f > 0 {
			positive++
		} else {
			negative++
		}
	}
	majority := positive
	if negative > majority {
		majority = negative
	}
	return float64(majority) / float64(len(analysis.FactorNames)) * math.Abs(score)
}

// technicalFactor blends the RSI zone with the MACD histogram sign.
func (s *Generator) technicalFactor(closes []float64) float64 {
	var f float64

	rsi := indicators.RSI(closes, 14)
	if last := rsi[len(rsi)-1]; !math.IsNaN(last) {
		f += (50 - last) / 50 * 0.5
	}

	_, _, hist := indicators.MACD(closes, 12, 26, 9)
	if last := hist[len(hist)-1]; !math.IsNaN(last) {
		if last > 0 {
			f += 0.5
		} else if last < 0 {
			f -= 0.5
		}
	}
	return clamp(f, -1, 1)
}

// momentumFactor is the 5-day return scaled by ten.
func momentumFactor(closes []float64) float64 {
	n := len(closes)
	if n < 6 || closes[n-6] == 0 {
		return 0
	}
	return clamp((closes[n-1]-closes[n-6])/closes[n-6]*10, -1, 1)
}

// volatilityFactor maps annualized 20-day volatility through 0.5 - vol, so
// quiet series score positive and violent ones negative.
func volatilityFactor(closes []float64) float64 {
	n := len(closes)
	if n < 21 {
		return 0
	}
	returns := make([]float64, 0, 20)
	for i := n - 20; i < n; i++ {
		if closes[i-1] == 0 {
			return 0
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	vol := stat.StdDev(returns, nil) * math.Sqrt(tradingDays)
	return clamp(0.5-vol, -1, 1)
}

// volumeFactor compares the latest volume to its 20-day average.
func volumeFactor(bars []models.Bar) float64 {
	n := len(bars)
	if n < 21 {
		return 0
	}
	var avg float64
	for i := n - 21; i < n-1; i++ {
		avg += float64(bars[i].Volume)
	}
	avg /= 20
	if avg == 0 {
		return 0
	}
	ratio := float64(bars[n-1].Volume) / avg
	return clamp(ratio-1, -1, 1)
}

// sentimentFactor positions price against its 20- and 50-day averages.
func sentimentFactor(closes []float64) float64 {
	var f float64
	price := closes[len(closes)-1]

	sma20 := indicators.SMA(closes, 20)
	if last := sma20[len(sma20)-1]; !math.IsNaN(last) {
		if price > last {
			f += 0.5
		} else {
			f -= 0.5
		}
	}
	sma50 := indicators.SMA(closes, 50)
	if last := sma50[len(sma50)-1]; !math.IsNaN(last) {
		if price > last {
			f += 0.5
		} else {
			f -= 0.5
		}
	}
	return clamp(f, -1, 1)
}

// patternFactor sums strength*confidence over all detected patterns.
// Overlapping matches of the same type are deliberately all counted.
func patternFactor(detected []analysis.Pattern) float64 {
	var sum float64
	for _, p := range detected {
		sum += p.Strength * p.Confidence
	}
	return clamp(sum, -1, 1)
}

// breadthFactor is a binary price-versus-SMA20 vote.
func breadthFactor(closes []float64) float64 {
	sma20 := indicators.SMA(closes, 20)
	last := sma20[len(sma20)-1]
	if math.IsNaN(last) {
		return 0
	}
	if closes[len(closes)-1] > last {
		return 0.5
	}
	return -0.5
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
