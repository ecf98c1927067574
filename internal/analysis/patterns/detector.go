package patterns

import (
	"math"

	"pattern-optimizer/internal/analysis"
	"pattern-optimizer/internal/models"
)

// Detector classifies chart patterns over a price window. Each classifier
// is an independent scan and a single Detect call can emit multiple matches
// per pattern type.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector for one parameter configuration.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs all eight classifiers over the last Lookback bars. Emitted
// patterns carry indices relative to the bars slice passed in.
func (d *Detector) Detect(bars []models.Bar) []analysis.Pattern {
	if len(bars) == 0 {
		return nil
	}

	offset := 0
	if d.cfg.Lookback > 0 && len(bars) > d.cfg.Lookback {
		offset = len(bars) - d.cfg.Lookback
	}
	window := bars[offset:]
	prices := models.Closes(window)

	peaks, troughs := FindExtrema(prices, d.cfg.Window, d.cfg.Sensitivity)

	var out []analysis.Pattern
	out = append(out, d.doubleBottoms(prices, troughs)...)
	out = append(out, d.doubleTops(prices, peaks)...)
	out = append(out, d.headShoulders(prices, peaks)...)
	out = append(out, d.invHeadShoulders(prices, troughs)...)
	out = append(out, d.triangles(prices, peaks, troughs)...)
	out = append(out, d.flags(prices)...)

	if offset > 0 {
		for i := range out {
			out[i].StartIndex += offset
			out[i].EndIndex += offset
		}
	}
	return out
}

// emit applies the confidence gate and the per-pattern-type weight scaling.
func (d *Detector) emit(t analysis.PatternType, dir analysis.PatternDirection, confidence float64, start, end int) (analysis.Pattern, bool) {
	if confidence < d.cfg.MinConfidence {
		return analysis.Pattern{}, false
	}
	sign := 1.0
	if dir == analysis.PatternBearish {
		sign = -1.0
	}
	return analysis.Pattern{
		Type:       t,
		Direction:  dir,
		Confidence: confidence,
		Strength:   sign * confidence * d.cfg.TypeWeights[t],
		StartIndex: start,
		EndIndex:   end,
	}, true
}

// doubleBottoms matches every trough pair within the distance band whose
// prices agree within the tolerance. Confidence is higher once price has
// broken above both lows by the confirmation margin.
func (d *Detector) doubleBottoms(prices []float64, troughs []int) []analysis.Pattern {
	var out []analysis.Pattern
	lastClose := prices[len(prices)-1]

	for i := 0; i < len(troughs); i++ {
		for j := i + 1; j < len(troughs); j++ {
			first, second := troughs[i], troughs[j]
			dist := second - first
			if dist < d.cfg.MinDistance || dist > d.cfg.MaxDistance {
				continue
			}
			p1, p2 := prices[first], prices[second]
			if p1 <= 0 || math.Abs(p1-p2)/p1 >= d.cfg.DoubleTolerance {
				continue
			}

			confidence := 0.55
			if lastClose > math.Max(p1, p2)*(1+d.cfg.BreakoutConfirmation) {
				confidence = 0.75
			}
			if p, ok := d.emit(analysis.DoubleBottom, analysis.PatternBullish, confidence, first, second); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// doubleTops is the bearish mirror of doubleBottoms.
func (d *Detector) doubleTops(prices []float64, peaks []int) []analysis.Pattern {
	var out []analysis.Pattern
	lastClose := prices[len(prices)-1]

	for i := 0; i < len(peaks); i++ {
		for j := i + 1; j < len(peaks); j++ {
			first, second := peaks[i], peaks[j]
			dist := second - first
			if dist < d.cfg.MinDistance || dist > d.cfg.MaxDistance {
				continue
			}
			p1, p2 := prices[first], prices[second]
			if p1 <= 0 || math.Abs(p1-p2)/p1 >= d.cfg.DoubleTolerance {
				continue
			}

			confidence := 0.55
			if lastClose < math.Min(p1, p2)*(1-d.cfg.BreakoutConfirmation) {
				confidence = 0.75
			}
			if p, ok := d.emit(analysis.DoubleTop, analysis.PatternBearish, confidence, first, second); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// headShoulders matches consecutive peak triples among the last five peaks
// where the middle peak dominates and the shoulders are near-symmetric.
func (d *Detector) headShoulders(prices []float64, peaks []int) []analysis.Pattern {
	var out []analysis.Pattern
	recent := lastN(peaks, 5)

	for i := 0; i+2 < len(recent); i++ {
		left, head, right := recent[i], recent[i+1], recent[i+2]
		if prices[head] <= prices[left] || prices[head] <= prices[right] {
			continue
		}
		if prices[left] <= 0 || math.Abs(prices[left]-prices[right])/prices[left] >= d.cfg.SymmetryTolerance {
			continue
		}
		if p, ok := d.emit(analysis.HeadShoulders, analysis.PatternBearish, 0.7, left, right); ok {
			out = append(out, p)
		}
	}
	return out
}

// invHeadShoulders is the bullish mirror over troughs.
func (d *Detector) invHeadShoulders(prices []float64, troughs []int) []analysis.Pattern {
	var out []analysis.Pattern
	recent := lastN(troughs, 5)

	for i := 0; i+2 < len(recent); i++ {
		left, head, right := recent[i], recent[i+1], recent[i+2]
		if prices[head] >= prices[left] || prices[head] >= prices[right] {
			continue
		}
		if prices[left] <= 0 || math.Abs(prices[left]-prices[right])/prices[left] >= d.cfg.SymmetryTolerance {
			continue
		}
		if p, ok := d.emit(analysis.InvHeadShoulders, analysis.PatternBullish, 0.7, left, right); ok {
			out = append(out, p)
		}
	}
	return out
}

// triangles requires enough touches on both boundaries within the formation
// period. An ascending triangle has a near-flat top and a rising bottom;
// the descending triangle is the mirror.
func (d *Detector) triangles(prices []float64, peaks, troughs []int) []analysis.Pattern {
	n := len(prices)
	formationStart := n - d.cfg.TriangleFormationPeriod
	if formationStart < 0 {
		formationStart = 0
	}

	formPeaks := indicesFrom(peaks, formationStart)
	formTroughs := indicesFrom(troughs, formationStart)
	if len(formPeaks) < d.cfg.TriangleMinTouches || len(formTroughs) < d.cfg.TriangleMinTouches {
		return nil
	}

	var out []analysis.Pattern

	// Ascending: flat resistance, higher lows.
	if flatness(prices, formPeaks) < d.cfg.TriangleFlatness &&
		prices[formTroughs[len(formTroughs)-1]] > prices[formTroughs[0]] {
		start := minInt(formPeaks[0], formTroughs[0])
		end := maxInt(formPeaks[len(formPeaks)-1], formTroughs[len(formTroughs)-1])
		if p, ok := d.emit(analysis.AscendingTriangle, analysis.PatternBullish, 0.65, start, end); ok {
			out = append(out, p)
		}
	}

	// Descending: flat support, lower highs.
	if flatness(prices, formTroughs) < d.cfg.TriangleFlatness &&
		prices[formPeaks[len(formPeaks)-1]] < prices[formPeaks[0]] {
		start := minInt(formPeaks[0], formTroughs[0])
		end := maxInt(formPeaks[len(formPeaks)-1], formTroughs[len(formTroughs)-1])
		if p, ok := d.emit(analysis.DescendingTriangle, analysis.PatternBearish, 0.65, start, end); ok {
			out = append(out, p)
		}
	}
	return out
}

// flags looks for a pole directly before the trailing consolidation whose
// pullback (bull) or rebound (bear) retraces a bounded fraction of the pole.
func (d *Detector) flags(prices []float64) []analysis.Pattern {
	n := len(prices)
	poleStart := n - 1 - d.cfg.FlagConsolidationLength - d.cfg.FlagPoleLength
	poleEnd := n - 1 - d.cfg.FlagConsolidationLength
	if poleStart < 0 || prices[poleStart] <= 0 {
		return nil
	}

	poleMove := (prices[poleEnd] - prices[poleStart]) / prices[poleStart]
	lastClose := prices[n-1]

	var out []analysis.Pattern
	if poleMove >= d.cfg.FlagPoleMinGain {
		rise := prices[poleEnd] - prices[poleStart]
		pullback := (prices[poleEnd] - lastClose) / rise
		if pullback >= d.cfg.FlagPullbackMin && pullback <= d.cfg.FlagPullbackMax {
			if p, ok := d.emit(analysis.BullFlag, analysis.PatternBullish, 0.6, poleStart, n-1); ok {
				out = append(out, p)
			}
		}
	}
	if poleMove <= -d.cfg.FlagPoleMinGain {
		drop := prices[poleStart] - prices[poleEnd]
		rebound := (lastClose - prices[poleEnd]) / drop
		if rebound >= d.cfg.FlagPullbackMin && rebound <= d.cfg.FlagPullbackMax {
			if p, ok := d.emit(analysis.BearFlag, analysis.PatternBearish, 0.6, poleStart, n-1); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// flatness is the relative spread of the prices at the given indices.
func flatness(prices []float64, idx []int) float64 {
	if len(idx) == 0 {
		return math.Inf(1)
	}
	lo, hi := prices[idx[0]], prices[idx[0]]
	for _, i := range idx[1:] {
		if prices[i] < lo {
			lo = prices[i]
		}
		if prices[i] > hi {
			hi = prices[i]
		}
	}
	if hi <= 0 {
		return math.Inf(1)
	}
	return (hi - lo) / hi
}

func lastN(idx []int, n int) []int {
	if len(idx) <= n {
		return idx
	}
	return idx[len(idx)-n:]
}

func indicesFrom(idx []int, start int) []int {
	var out []int
	for _, i := range idx {
		if i >= start {
			out = append(out, i)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
