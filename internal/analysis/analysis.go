// Package analysis provides shared types for pattern detection and
// composite signal scoring.
package analysis

// PatternType identifies one of the eight chart-pattern shapes the
// detector recognizes.
type PatternType string

const (
	DoubleBottom       PatternType = "double_bottom"
	DoubleTop          PatternType = "double_top"
	HeadShoulders      PatternType = "head_shoulders"
	InvHeadShoulders   PatternType = "inv_head_shoulders"
	AscendingTriangle  PatternType = "ascending_triangle"
	DescendingTriangle PatternType = "descending_triangle"
	BullFlag           PatternType = "bull_flag"
	BearFlag           PatternType = "bear_flag"
)

// PatternTypes lists all recognized pattern types.
var PatternTypes = []PatternType{
	DoubleBottom,
	DoubleTop,
	HeadShoulders,
	InvHeadShoulders,
	AscendingTriangle,
	DescendingTriangle,
	BullFlag,
	BearFlag,
}

// PatternDirection represents the expected direction of a pattern.
type PatternDirection string

const (
	PatternBullish PatternDirection = "bullish"
	PatternBearish PatternDirection = "bearish"
)

// Pattern represents a detected chart pattern. Patterns are recomputed
// fresh on every signal evaluation and never persisted. Multiple matches
// of the same type over overlapping windows may legitimately coexist; the
// detector does not deduplicate them.
type Pattern struct {
	Type       PatternType
	Direction  PatternDirection
	Confidence float64 // certainty in [0,1]
	Strength   float64 // signed magnitude, scaled by the pattern weight gene
	StartIndex int
	EndIndex   int
}

// Signal is the fused output of the composite signal generator.
type Signal struct {
	Score      float64 // weighted factor sum, roughly [-1,1]
	Confidence float64 // agreementFraction * |score|, in [0,1]
	Factors    FactorSet
	Patterns   []Pattern
}

// FactorName identifies one of the eight composite factors. The names
// mirror the factor weight genes one to one.
type FactorName string

const (
	FactorTechnical   FactorName = "technical"
	FactorMomentum    FactorName = "momentum"
	FactorVolatility  FactorName = "volatility"
	FactorVolume      FactorName = "volume"
	FactorSentiment   FactorName = "sentiment"
	FactorPattern     FactorName = "pattern"
	FactorBreadth     FactorName = "breadth"
	FactorCorrelation FactorName = "correlation"
)

// FactorNames lists the eight factors in their canonical order.
var FactorNames = []FactorName{
	FactorTechnical,
	FactorMomentum,
	FactorVolatility,
	FactorVolume,
	FactorSentiment,
	FactorPattern,
	FactorBreadth,
	FactorCorrelation,
}

// FactorSet holds the eight factor scores, each clamped to [-1,1].
type FactorSet map[FactorName]float64
