package genome

import (
	"fmt"
	"math"
	"math/rand"
)

// FitnessUnset is the sentinel for a genome that has not been evaluated yet.
// Once evaluated a genome's fitness is never recomputed unless its genes
// change.
const FitnessUnset = 0.0

// WeightTolerance is the permitted drift of the factor weight sum from 1.0.
const WeightTolerance = 1e-6

// Genome is one candidate parameter configuration plus its cached fitness.
type Genome struct {
	ID         string
	Genes      map[ParamName]float64
	Fitness    float64
	Generation int
}

// NewRandom draws a genome uniformly from the quantized parameter space and
// renormalizes the factor weights to sum to 1.
func NewRandom(rng *rand.Rand, generation int) *Genome {
	g := &Genome{
		ID:         newID(rng),
		Genes:      make(map[ParamName]float64, len(Table)),
		Generation: generation,
	}
	for _, spec := range Table {
		g.Genes[spec.Name] = randomGene(rng, spec)
	}
	g.NormalizeWeights()
	return g
}

// randomGene draws a uniform quantized value within [min,max].
func randomGene(rng *rand.Rand, spec ParamSpec) float64 {
	steps := int(math.Round((spec.Max - spec.Min) / spec.Step))
	v := spec.Min + float64(rng.Intn(steps+1))*spec.Step
	return Quantize(spec, v)
}

// Gene returns the value of one parameter.
func (g *Genome) Gene(name ParamName) float64 {
	return g.Genes[name]
}

// Int returns an integer-flagged gene as an int.
func (g *Genome) Int(name ParamName) int {
	return int(math.Round(g.Genes[name]))
}

// Clone deep-copies the genome. The copy shares no state with the original.
func (g *Genome) Clone() *Genome {
	genes := make(map[ParamName]float64, len(g.Genes))
	for k, v := range g.Genes {
		genes[k] = v
	}
	return &Genome{
		ID:         g.ID,
		Genes:      genes,
		Fitness:    g.Fitness,
		Generation: g.Generation,
	}
}

// FromGeneMap reconstructs a genome from a serialized gene map, validating
// it against the parameter space.
func FromGeneMap(id string, genes map[string]float64) (*Genome, error) {
	g := &Genome{
		ID:    id,
		Genes: make(map[ParamName]float64, len(Table)),
	}
	for name, v := range genes {
		if _, ok := specIndex[ParamName(name)]; !ok {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		g.Genes[ParamName(name)] = v
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// GeneMap returns the genome's genes as a plain string-keyed map for
// serialization to external reporting layers.
func (g *Genome) GeneMap() map[string]float64 {
	out := make(map[string]float64, len(g.Genes))
	for k, v := range g.Genes {
		out[string(k)] = v
	}
	return out
}

// NormalizeWeights rescales the eight factor weight genes so they sum to 1.
// A degenerate all-zero draw falls back to equal weights.
func (g *Genome) NormalizeWeights() {
	var sum float64
	for _, name := range WeightNames {
		sum += g.Genes[name]
	}
	if sum <= 0 {
		for _, name := range WeightNames {
			g.Genes[name] = 1.0 / float64(len(WeightNames))
		}
		return
	}
	for _, name := range WeightNames {
		g.Genes[name] /= sum
	}
}

// Quantize snaps a value onto the parameter's step grid and clamps it into bounds.
func Quantize(spec ParamSpec, v float64) float64 {
	if v < spec.Min {
		v = spec.Min
	}
	if v > spec.Max {
		v = spec.Max
	}
	steps := math.Round((v - spec.Min) / spec.Step)
	v = spec.Min + steps*spec.Step
	if spec.Integer {
		v = math.Round(v)
	}
	// Snapping can overshoot Max by a sub-step amount.
	if v > spec.Max {
		v = spec.Max
	}
	if v < spec.Min {
		v = spec.Min
	}
	return v
}

// Validate checks every gene against its spec and the weight-sum invariant.
// A violation after clamp/quantize is a programming defect, so callers are
// expected to panic on a non-nil result.
func (g *Genome) Validate() error {
	var weightSum float64
	for _, spec := range Table {
		v, ok := g.Genes[spec.Name]
		if !ok {
			return fmt.Errorf("genome %s: missing gene %s", g.ID, spec.Name)
		}
		if spec.Weight {
			weightSum += v
			if v < 0 || v > 1 {
				return fmt.Errorf("genome %s: weight %s=%v outside [0,1]", g.ID, spec.Name, v)
			}
			continue
		}
		if v < spec.Min-1e-9 || v > spec.Max+1e-9 {
			return fmt.Errorf("genome %s: gene %s=%v outside [%v,%v]", g.ID, spec.Name, v, spec.Min, spec.Max)
		}
		steps := (v - spec.Min) / spec.Step
		if math.Abs(steps-math.Round(steps)) > 1e-6 {
			return fmt.Errorf("genome %s: gene %s=%v not a multiple of step %v", g.ID, spec.Name, v, spec.Step)
		}
		if spec.Integer && math.Abs(v-math.Round(v)) > 1e-9 {
			return fmt.Errorf("genome %s: gene %s=%v not integer", g.ID, spec.Name, v)
		}
	}
	if math.Abs(weightSum-1) > WeightTolerance {
		return fmt.Errorf("genome %s: factor weights sum to %v", g.ID, weightSum)
	}
	return nil
}

// MustValidate panics when the genome violates its parameter space.
func (g *Genome) MustValidate() {
	if err := g.Validate(); err != nil {
		panic(err)
	}
}

func newID(rng *rand.Rand) string {
	return fmt.Sprintf("g-%08x%08x", rng.Uint32(), rng.Uint32())
}
