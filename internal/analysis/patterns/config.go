package patterns

import (
	"pattern-optimizer/internal/analysis"
	"pattern-optimizer/internal/genome"
)

// Config holds the detector parameters. All values originate from a genome,
// so every field is already bounded and quantized.
type Config struct {
	Window        int
	Sensitivity   float64
	MinConfidence float64
	Lookback      int

	MinDistance          int
	MaxDistance          int
	DoubleTolerance      float64
	BreakoutConfirmation float64

	SymmetryTolerance float64

	TriangleMinTouches      int
	TriangleFormationPeriod int
	TriangleFlatness        float64

	FlagPoleLength          int
	FlagPoleMinGain         float64
	FlagConsolidationLength int
	FlagPullbackMin         float64
	FlagPullbackMax         float64

	TypeWeights map[analysis.PatternType]float64
}

// ConfigFromGenome extracts the detector parameters from a genome.
func ConfigFromGenome(g *genome.Genome) Config {
	return Config{
		Window:        g.Int(genome.ExtremaWindow),
		Sensitivity:   g.Gene(genome.ExtremaSensitivity),
		MinConfidence: g.Gene(genome.MinPatternConfidence),
		Lookback:      g.Int(genome.PatternLookback),

		MinDistance:          g.Int(genome.PatternMinDistance),
		MaxDistance:          g.Int(genome.PatternMaxDistance),
		DoubleTolerance:      g.Gene(genome.DoubleTopBottomTolerance),
		BreakoutConfirmation: g.Gene(genome.BreakoutConfirmation),

		SymmetryTolerance: g.Gene(genome.HSSymmetryTolerance),

		TriangleMinTouches:      g.Int(genome.TriangleMinTouches),
		TriangleFormationPeriod: g.Int(genome.TriangleFormationPeriod),
		TriangleFlatness:        g.Gene(genome.TriangleFlatness),

		FlagPoleLength:          g.Int(genome.FlagPoleLength),
		FlagPoleMinGain:         g.Gene(genome.FlagPoleMinGain),
		FlagConsolidationLength: g.Int(genome.FlagConsolidationLength),
		FlagPullbackMin:         g.Gene(genome.FlagPullbackMin),
		FlagPullbackMax:         g.Gene(genome.FlagPullbackMax),

		TypeWeights: map[analysis.PatternType]float64{
			analysis.DoubleBottom:       g.Gene(genome.PatternWeightDoubleBottom),
			analysis.DoubleTop:          g.Gene(genome.PatternWeightDoubleTop),
			analysis.HeadShoulders:      g.Gene(genome.PatternWeightHS),
			analysis.InvHeadShoulders:   g.Gene(genome.PatternWeightInvHS),
			analysis.AscendingTriangle:  g.Gene(genome.PatternWeightAscTriangle),
			analysis.DescendingTriangle: g.Gene(genome.PatternWeightDescTriangle),
			analysis.BullFlag:           g.Gene(genome.PatternWeightBullFlag),
			analysis.BearFlag:           g.Gene(genome.PatternWeightBearFlag),
		},
	}
}
