package genome

import (
	"math/rand"
)

// sigmaFraction sets the mutation step scale relative to a gene's range.
const sigmaFraction = 0.15

// Crossover produces a child by per-gene choice between two parents:
// 45% parent a, 45% parent b, 10% a blended midpoint re-quantized onto the
// gene's grid. The child's factor weights are renormalized and its fitness
// reset to the unevaluated sentinel. Crossover performs no mutation of its
// own; the optional second mutation pass on the child is a separately
// configured knob applied by the optimizer.
func Crossover(rng *rand.Rand, a, b *Genome, generation int) *Genome {
	child := &Genome{
		ID:         newID(rng),
		Genes:      make(map[ParamName]float64, len(Table)),
		Fitness:    FitnessUnset,
		Generation: generation,
	}
	for _, spec := range Table {
		r := rng.Float64()
		switch {
		case r < 0.45:
			child.Genes[spec.Name] = a.Genes[spec.Name]
		case r < 0.90:
			child.Genes[spec.Name] = b.Genes[spec.Name]
		default:
			blend := (a.Genes[spec.Name] + b.Genes[spec.Name]) / 2
			child.Genes[spec.Name] = Quantize(spec, blend)
		}
	}
	child.NormalizeWeights()
	return child
}

// Mutate perturbs each gene independently with probability rate by a step
// of up to two sigma, sigma being 15% of the gene's range, then clamps and
// re-quantizes. Weights are renormalized afterwards and the genome's cached
// fitness is discarded because its genes changed.
func Mutate(rng *rand.Rand, g *Genome, rate float64) {
	changed := false
	for _, spec := range Table {
		if rng.Float64() >= rate {
			continue
		}
		sigma := (spec.Max - spec.Min) * sigmaFraction
		delta := 2 * sigma * rng.Float64()
		if rng.Float64() < 0.5 {
			delta = -delta
		}
		g.Genes[spec.Name] = Quantize(spec, g.Genes[spec.Name]+delta)
		changed = true
	}
	if changed {
		g.ID = newID(rng)
		g.Fitness = FitnessUnset
	}
	g.NormalizeWeights()
}
