package genome

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenome(t *testing.T, seed int64) *Genome {
	t.Helper()
	g := NewRandom(rand.New(rand.NewSource(seed)), 0)
	require.NoError(t, g.Validate())
	return g
}

func TestNewRandomCoversEveryParameter(t *testing.T) {
	g := newTestGenome(t, 1)
	assert.Len(t, g.Genes, len(Table))
	for _, spec := range Table {
		_, ok := g.Genes[spec.Name]
		assert.True(t, ok, "missing gene %s", spec.Name)
	}
}

func TestWeightsSumToOne(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		g := newTestGenome(t, seed)
		var sum float64
		for _, name := range WeightNames {
			sum += g.Genes[name]
		}
		assert.InDelta(t, 1.0, sum, WeightTolerance)
	}
}

func TestNormalizeWeightsZeroSumFallsBackToEqual(t *testing.T) {
	g := newTestGenome(t, 2)
	for _, name := range WeightNames {
		g.Genes[name] = 0
	}
	g.NormalizeWeights()
	for _, name := range WeightNames {
		assert.InDelta(t, 1.0/8.0, g.Genes[name], 1e-12)
	}
}

func TestQuantize(t *testing.T) {
	spec := Spec(ATRMultStop) // [1.0, 3.5] step 0.25

	assert.Equal(t, 1.0, Quantize(spec, -5))
	assert.Equal(t, 3.5, Quantize(spec, 100))
	assert.Equal(t, 1.25, Quantize(spec, 1.3))
	assert.Equal(t, 2.0, Quantize(spec, 1.99))

	intSpec := Spec(ExtremaWindow) // [3, 10] step 1 integer
	v := Quantize(intSpec, 6.4)
	assert.Equal(t, 6.0, v)
	assert.Equal(t, 10.0, Quantize(intSpec, 12.7))
}

func TestCloneIsIndependent(t *testing.T) {
	g := newTestGenome(t, 3)
	g.Fitness = 12.5

	c := g.Clone()
	require.Equal(t, g.ID, c.ID)
	require.Equal(t, g.Fitness, c.Fitness)

	c.Genes[BuyThreshold] = 0.99
	assert.NotEqual(t, g.Genes[BuyThreshold], c.Genes[BuyThreshold])
}

func TestValidateRejectsOutOfBoundsGene(t *testing.T) {
	g := newTestGenome(t, 4)
	g.Genes[MaxPositions] = 50
	assert.Error(t, g.Validate())
}

func TestValidateRejectsOffGridGene(t *testing.T) {
	g := newTestGenome(t, 5)
	g.Genes[ATRMultStop] = 1.37 // inside bounds, off the 0.25 grid
	assert.Error(t, g.Validate())
}

func TestValidateRejectsBrokenWeightSum(t *testing.T) {
	g := newTestGenome(t, 6)
	g.Genes[WeightPattern] += 0.5
	assert.Error(t, g.Validate())
}

func TestFromGeneMapRoundTrip(t *testing.T) {
	g := newTestGenome(t, 7)

	rebuilt, err := FromGeneMap(g.ID, g.GeneMap())
	require.NoError(t, err)
	assert.Equal(t, g.Genes, rebuilt.Genes)
}

func TestFromGeneMapRejectsUnknownParameter(t *testing.T) {
	g := newTestGenome(t, 8)
	genes := g.GeneMap()
	genes["bogus"] = 1

	_, err := FromGeneMap("x", genes)
	assert.Error(t, err)
}

func TestCrossoverGenesComeFromParentsOrBlend(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	a := NewRandom(rng, 0)
	b := NewRandom(rng, 0)
	child := Crossover(rng, a, b, 1)

	for _, spec := range Table {
		if spec.Weight {
			continue // renormalization moves weights off the parent values
		}
		v := child.Genes[spec.Name]
		blend := Quantize(spec, (a.Genes[spec.Name]+b.Genes[spec.Name])/2)
		ok := v == a.Genes[spec.Name] || v == b.Genes[spec.Name] || v == blend
		assert.True(t, ok, "gene %s=%v not traceable to parents", spec.Name, v)
	}
}

func TestMutateZeroRateIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	g := NewRandom(rng, 0)
	g.Fitness = 7

	before := g.GeneMap()
	Mutate(rng, g, 0)

	assert.Equal(t, 7.0, g.Fitness)
	for name, v := range g.GeneMap() {
		assert.InDelta(t, before[name], v, 1e-12)
	}
}

func TestMutateFullRateResetsFitness(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	g := NewRandom(rng, 0)
	g.Fitness = 7
	oldID := g.ID

	Mutate(rng, g, 1)

	assert.Equal(t, FitnessUnset, g.Fitness)
	assert.NotEqual(t, oldID, g.ID)
	require.NoError(t, g.Validate())
}

func TestGenerationsLabel(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	a := NewRandom(rng, 3)
	b := NewRandom(rng, 3)
	child := Crossover(rng, a, b, 4)
	assert.Equal(t, 4, child.Generation)
}

func TestSpecPanicsOnUnknownName(t *testing.T) {
	assert.Panics(t, func() { Spec("nope") })
}

func TestMustValidatePanicsOnViolation(t *testing.T) {
	g := newTestGenome(t, 13)
	g.Genes[BuyThreshold] = math.Inf(1)
	assert.Panics(t, func() { g.MustValidate() })
}
