package genome

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: every genome-producing operation yields a genome whose genes
// respect their bounds, stay on the quantization grid (weights excepted),
// and whose eight factor weights sum to 1 within tolerance.

func satisfiesParameterSpace(g *Genome) bool {
	return g.Validate() == nil
}

func TestProperty_RandomGenomeRespectsParameterSpace(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("random genome is valid", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			return satisfiesParameterSpace(NewRandom(rng, 0))
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_CrossoverRespectsParameterSpace(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("crossover child is valid and starts unevaluated", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			a := NewRandom(rng, 0)
			b := NewRandom(rng, 0)
			child := Crossover(rng, a, b, 1)
			return satisfiesParameterSpace(child) &&
				child.Fitness == FitnessUnset &&
				child.Generation == 1
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_MutateRespectsParameterSpace(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("mutated genome is valid", prop.ForAll(
		func(seed int64, rate float64) bool {
			rng := rand.New(rand.NewSource(seed))
			g := NewRandom(rng, 0)
			g.Fitness = 42
			before := g.GeneMap()

			Mutate(rng, g, rate)
			if !satisfiesParameterSpace(g) {
				return false
			}

			// A genome whose genes changed must lose its cached fitness.
			changed := false
			for name, v := range g.GeneMap() {
				if math.Abs(before[name]-v) > 1e-12 {
					changed = true
					break
				}
			}
			if changed && g.Fitness != FitnessUnset {
				return false
			}
			return true
		},
		gen.Int64(),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
