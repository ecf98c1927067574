// Package genome defines the bounded, quantized parameter space searched by
// the genetic optimizer, and the operators that produce new genomes.
package genome

// ParamName identifies one tunable parameter. The set of names is closed:
// every genome carries a value for every name in Table, so a missing or
// misspelled key is caught at compile time or by Validate, never at
// evaluation time.
type ParamName string

const (
	// Factor weight genes. These eight must sum to 1.0 at all times; they
	// are renormalized after every genome-producing step.
	WeightTechnical   ParamName = "weightTechnical"
	WeightMomentum    ParamName = "weightMomentum"
	WeightVolatility  ParamName = "weightVolatility"
	WeightVolume      ParamName = "weightVolume"
	WeightSentiment   ParamName = "weightSentiment"
	WeightPattern     ParamName = "weightPattern"
	WeightBreadth     ParamName = "weightBreadth"
	WeightCorrelation ParamName = "weightCorrelation"

	// Pattern detector genes.
	ExtremaWindow            ParamName = "extremaWindow"
	ExtremaSensitivity       ParamName = "extremaSensitivity"
	MinPatternConfidence     ParamName = "minPatternConfidence"
	PatternLookback          ParamName = "patternLookback"
	PatternMinDistance       ParamName = "patternMinDistance"
	PatternMaxDistance       ParamName = "patternMaxDistance"
	DoubleTopBottomTolerance ParamName = "doubleTopBottomTolerance"
	BreakoutConfirmation     ParamName = "patternBreakoutConfirmation"
	HSSymmetryTolerance      ParamName = "headShouldersSymmetryTolerance"
	TriangleMinTouches       ParamName = "triangleMinTouches"
	TriangleFormationPeriod  ParamName = "triangleFormationPeriod"
	TriangleFlatness         ParamName = "triangleFlatnessTolerance"
	FlagPoleLength           ParamName = "flagPoleLength"
	FlagPoleMinGain          ParamName = "flagPoleMinGain"
	FlagConsolidationLength  ParamName = "flagConsolidationLength"
	FlagPullbackMin          ParamName = "flagPullbackMin"
	FlagPullbackMax          ParamName = "flagPullbackMax"

	// Per-pattern-type strength weights.
	PatternWeightDoubleBottom ParamName = "patternWeightDoubleBottom"
	PatternWeightDoubleTop    ParamName = "patternWeightDoubleTop"
	PatternWeightHS           ParamName = "patternWeightHeadShoulders"
	PatternWeightInvHS        ParamName = "patternWeightInvHeadShoulders"
	PatternWeightAscTriangle  ParamName = "patternWeightAscTriangle"
	PatternWeightDescTriangle ParamName = "patternWeightDescTriangle"
	PatternWeightBullFlag     ParamName = "patternWeightBullFlag"
	PatternWeightBearFlag     ParamName = "patternWeightBearFlag"

	// Backtest genes.
	BuyThreshold   ParamName = "buyThreshold"
	ConfidenceMin  ParamName = "confidenceMin"
	MaxPositions   ParamName = "maxPositions"
	MaxPositionPct ParamName = "maxPositionPct"
	ATRPeriod      ParamName = "atrPeriod"
	ATRMultStop    ParamName = "atrMultStop"
	ATRMultTarget  ParamName = "atrMultTarget"
)

// ParamSpec carries the bounds and quantization metadata for one parameter.
type ParamSpec struct {
	Name    ParamName
	Min     float64
	Max     float64
	Step    float64
	Integer bool
	Weight  bool // one of the eight factor weight genes
}

// Table is the full parameter space, one spec per gene.
var Table = []ParamSpec{
	{Name: WeightTechnical, Min: 0, Max: 1, Step: 0.01, Weight: true},
	{Name: WeightMomentum, Min: 0, Max: 1, Step: 0.01, Weight: true},
	{Name: WeightVolatility, Min: 0, Max: 1, Step: 0.01, Weight: true},
	{Name: WeightVolume, Min: 0, Max: 1, Step: 0.01, Weight: true},
	{Name: WeightSentiment, Min: 0, Max: 1, Step: 0.01, Weight: true},
	{Name: WeightPattern, Min: 0, Max: 1, Step: 0.01, Weight: true},
	{Name: WeightBreadth, Min: 0, Max: 1, Step: 0.01, Weight: true},
	{Name: WeightCorrelation, Min: 0, Max: 1, Step: 0.01, Weight: true},

	{Name: ExtremaWindow, Min: 3, Max: 10, Step: 1, Integer: true},
	{Name: ExtremaSensitivity, Min: 0.5, Max: 2.0, Step: 0.1},
	{Name: MinPatternConfidence, Min: 0.4, Max: 0.8, Step: 0.05},
	{Name: PatternLookback, Min: 40, Max: 120, Step: 5, Integer: true},
	{Name: PatternMinDistance, Min: 5, Max: 20, Step: 1, Integer: true},
	{Name: PatternMaxDistance, Min: 25, Max: 60, Step: 5, Integer: true},
	{Name: DoubleTopBottomTolerance, Min: 0.01, Max: 0.05, Step: 0.005},
	{Name: BreakoutConfirmation, Min: 0.01, Max: 0.05, Step: 0.005},
	{Name: HSSymmetryTolerance, Min: 0.02, Max: 0.10, Step: 0.01},
	{Name: TriangleMinTouches, Min: 2, Max: 4, Step: 1, Integer: true},
	{Name: TriangleFormationPeriod, Min: 20, Max: 60, Step: 5, Integer: true},
	{Name: TriangleFlatness, Min: 0.01, Max: 0.04, Step: 0.005},
	{Name: FlagPoleLength, Min: 5, Max: 15, Step: 1, Integer: true},
	{Name: FlagPoleMinGain, Min: 0.04, Max: 0.12, Step: 0.01},
	{Name: FlagConsolidationLength, Min: 3, Max: 10, Step: 1, Integer: true},
	{Name: FlagPullbackMin, Min: 0.2, Max: 0.4, Step: 0.05},
	{Name: FlagPullbackMax, Min: 0.5, Max: 0.8, Step: 0.05},

	{Name: PatternWeightDoubleBottom, Min: 0.3, Max: 1.5, Step: 0.1},
	{Name: PatternWeightDoubleTop, Min: 0.3, Max: 1.5, Step: 0.1},
	{Name: PatternWeightHS, Min: 0.3, Max: 1.5, Step: 0.1},
	{Name: PatternWeightInvHS, Min: 0.3, Max: 1.5, Step: 0.1},
	{Name: PatternWeightAscTriangle, Min: 0.3, Max: 1.5, Step: 0.1},
	{Name: PatternWeightDescTriangle, Min: 0.3, Max: 1.5, Step: 0.1},
	{Name: PatternWeightBullFlag, Min: 0.3, Max: 1.5, Step: 0.1},
	{Name: PatternWeightBearFlag, Min: 0.3, Max: 1.5, Step: 0.1},

	{Name: BuyThreshold, Min: 0.1, Max: 0.5, Step: 0.05},
	{Name: ConfidenceMin, Min: 0.05, Max: 0.4, Step: 0.05},
	{Name: MaxPositions, Min: 2, Max: 10, Step: 1, Integer: true},
	{Name: MaxPositionPct, Min: 0.05, Max: 0.25, Step: 0.01},
	{Name: ATRPeriod, Min: 7, Max: 21, Step: 7, Integer: true},
	{Name: ATRMultStop, Min: 1.0, Max: 3.5, Step: 0.25},
	{Name: ATRMultTarget, Min: 1.5, Max: 6.0, Step: 0.25},
}

// WeightNames lists the eight factor weight genes in canonical order.
var WeightNames = []ParamName{
	WeightTechnical,
	WeightMomentum,
	WeightVolatility,
	WeightVolume,
	WeightSentiment,
	WeightPattern,
	WeightBreadth,
	WeightCorrelation,
}

// specIndex allows O(1) spec lookup by name.
var specIndex = func() map[ParamName]ParamSpec {
	m := make(map[ParamName]ParamSpec, len(Table))
	for _, s := range Table {
		m[s.Name] = s
	}
	return m
}()

// Spec returns the parameter spec for a name. The name set is closed, so a
// miss is a programming defect.
func Spec(name ParamName) ParamSpec {
	s, ok := specIndex[name]
	if !ok {
		panic("genome: unknown parameter " + string(name))
	}
	return s
}
