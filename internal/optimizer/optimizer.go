package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"pattern-optimizer/internal/analysis/signal"
	"pattern-optimizer/internal/backtest"
	"pattern-optimizer/internal/data"
	"pattern-optimizer/internal/errors"
	"pattern-optimizer/internal/genome"
	"pattern-optimizer/internal/logging"
)

// Config holds the genetic algorithm parameters.
type Config struct {
	PopulationSize  int
	TotalIterations int     // evaluation budget; generations = ceil(budget / population)
	EliteCount      int     // genomes copied unchanged into the next generation
	TournamentSize  int     // contestants per parent selection
	CrossoverRate   float64 // probability a child comes from two parents
	MutationRate    float64 // per-gene mutation probability
	Workers         int     // parallel evaluations; <=0 means population size
	Seed            int64
	InitialCapital  float64
}

// Generations returns the number of generations implied by the budget.
func (c Config) Generations() int {
	if c.PopulationSize <= 0 {
		return 0
	}
	return (c.TotalIterations + c.PopulationSize - 1) / c.PopulationSize
}

// Validate rejects configurations the run loop cannot honor.
func (c Config) Validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("population size must be at least 2, got %d", c.PopulationSize)
	}
	if c.TotalIterations < c.PopulationSize {
		return fmt.Errorf("iteration budget %d below population size %d", c.TotalIterations, c.PopulationSize)
	}
	if c.EliteCount < 0 || c.EliteCount >= c.PopulationSize {
		return fmt.Errorf("elite count %d must be in [0, population)", c.EliteCount)
	}
	if c.TournamentSize < 1 || c.TournamentSize > c.PopulationSize {
		return fmt.Errorf("tournament size %d must be in [1, population]", c.TournamentSize)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("crossover rate %v outside [0,1]", c.CrossoverRate)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation rate %v outside [0,1]", c.MutationRate)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital)
	}
	return nil
}

// GenerationSummary is one row of a run's progress history.
type GenerationSummary struct {
	Generation  int
	BestFitness float64
	MeanFitness float64
	Evaluated   int
	Elapsed     time.Duration
}

// ProgressFunc receives a summary after each generation completes.
type ProgressFunc func(GenerationSummary, *genome.Genome)

// RunResult is the outcome of one optimization run.
type RunResult struct {
	Best        *genome.Genome
	BestMetrics backtest.Metrics
	Generations int
	Evaluations int
	History     []GenerationSummary
}

// Optimizer drives the generational loop. Genome evaluation is pure and
// runs in parallel; all randomness flows through a single seeded source
// used only on the sequential reproduction path, so runs with the same
// seed and dataset are reproducible.
type Optimizer struct {
	cfg      Config
	ds       *data.Dataset
	rng      *rand.Rand
	logger   zerolog.Logger
	progress ProgressFunc
}

// New creates an optimizer over the given dataset.
func New(cfg Config, ds *data.Dataset, logger zerolog.Logger) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{
		cfg:    cfg,
		ds:     ds,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: logger,
	}, nil
}

// OnProgress registers a per-generation callback.
func (o *Optimizer) OnProgress(fn ProgressFunc) {
	o.progress = fn
}

// Run executes the full generational loop and returns the best genome seen
// across all generations, not just the final one.
func (o *Optimizer) Run(ctx context.Context) (*RunResult, error) {
	generations := o.cfg.Generations()
	o.logger.Info().
		Int("population", o.cfg.PopulationSize).
		Int("generations", generations).
		Int64("seed", o.cfg.Seed).
		Msg("Starting optimization")

	pop := make([]*genome.Genome, o.cfg.PopulationSize)
	for i := range pop {
		pop[i] = genome.NewRandom(o.rng, 0)
	}

	res := &RunResult{Generations: generations}
	bestMetrics := make(map[string]backtest.Metrics)

	for gen := 0; gen < generations; gen++ {
		start := time.Now()

		evaluated, err := o.evaluate(ctx, pop, gen, bestMetrics)
		if err != nil {
			return nil, err
		}
		res.Evaluations += evaluated

		sort.SliceStable(pop, func(i, j int) bool {
			return pop[i].Fitness > pop[j].Fitness
		})

		if res.Best == nil || pop[0].Fitness > res.Best.Fitness {
			res.Best = pop[0].Clone()
			res.BestMetrics = bestMetrics[pop[0].ID]
			o.logger.Info().
				Int("generation", gen).
				Str("genome", res.Best.ID).
				Float64("fitness", res.Best.Fitness).
				Msg("New best genome")
		}

		summary := GenerationSummary{
			Generation:  gen,
			BestFitness: pop[0].Fitness,
			MeanFitness: meanFitness(pop),
			Evaluated:   evaluated,
			Elapsed:     time.Since(start),
		}
		logging.LogGeneration(o.logger, gen, summary.BestFitness, summary.MeanFitness, summary.Evaluated, summary.Elapsed)
		res.History = append(res.History, summary)
		if o.progress != nil {
			o.progress(summary, res.Best)
		}

		if gen < generations-1 {
			pop = o.nextGeneration(pop, gen+1)
		}
	}

	return res, nil
}

// evaluate scores every unevaluated genome in parallel and caches the
// metrics of each by genome ID. A panic inside one evaluation is contained
// to that genome: it receives PanicFitness and the run continues.
func (o *Optimizer) evaluate(ctx context.Context, pop []*genome.Genome, gen int, metrics map[string]backtest.Metrics) (int, error) {
	workers := o.cfg.Workers
	if workers <= 0 {
		workers = len(pop)
	}

	type outcome struct {
		fitness float64
		metrics backtest.Metrics
		skipped bool
	}
	outcomes := make([]outcome, len(pop))

	p := pool.New().WithMaxGoroutines(workers)
	for i, g := range pop {
		if g.Fitness != genome.FitnessUnset {
			outcomes[i] = outcome{skipped: true}
			continue
		}
		i, g := i, g
		p.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					evalErr := errors.NewEvaluationError(g.ID, gen, fmt.Errorf("%v", r))
					genLog := logging.WithGeneration(o.logger, gen)
					genLog.Error().
						Err(evalErr).
						Str("genome", g.ID).
						Msg("Genome evaluation panicked")
					outcomes[i] = outcome{fitness: PanicFitness}
				}
			}()
			res := o.runBacktest(ctx, g)
			outcomes[i] = outcome{fitness: Fitness(res.Metrics), metrics: res.Metrics}
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	evaluated := 0
	for i, g := range pop {
		if outcomes[i].skipped {
			continue
		}
		evaluated++
		g.Fitness = outcomes[i].fitness
		metrics[g.ID] = outcomes[i].metrics
	}
	return evaluated, nil
}

// runBacktest is the pure evaluation path: genome in, simulation out.
func (o *Optimizer) runBacktest(ctx context.Context, g *genome.Genome) *backtest.Result {
	g.MustValidate()
	engine := backtest.NewEngine(backtest.ConfigFromGenome(g, o.cfg.InitialCapital), signal.NewGenerator(g))
	res, err := engine.Run(ctx, o.ds)
	if err != nil {
		panic(err)
	}
	return res
}

// nextGeneration breeds the successor population: elites survive unchanged
// apart from their generation label, and the remaining slots are filled by
// tournament-selected reproduction with the configured crossover and
// mutation rates.
func (o *Optimizer) nextGeneration(pop []*genome.Genome, generation int) []*genome.Genome {
	next := make([]*genome.Genome, 0, len(pop))

	for i := 0; i < o.cfg.EliteCount; i++ {
		elite := pop[i].Clone()
		elite.Generation = generation
		next = append(next, elite)
	}

	for len(next) < len(pop) {
		var child *genome.Genome
		if o.rng.Float64() < o.cfg.CrossoverRate {
			a := o.tournament(pop)
			b := o.tournament(pop)
			child = genome.Crossover(o.rng, a, b, generation)
			// The follow-up mutation pass on a crossover child runs
			// only MutationRate of the time.
			if o.rng.Float64() < o.cfg.MutationRate {
				genome.Mutate(o.rng, child, o.cfg.MutationRate)
			}
		} else {
			child = o.tournament(pop).Clone()
			child.Generation = generation
			genome.Mutate(o.rng, child, o.cfg.MutationRate)
		}
		next = append(next, child)
	}

	return next
}

// tournament picks the fittest of TournamentSize uniformly drawn genomes.
func (o *Optimizer) tournament(pop []*genome.Genome) *genome.Genome {
	best := pop[o.rng.Intn(len(pop))]
	for i := 1; i < o.cfg.TournamentSize; i++ {
		c := pop[o.rng.Intn(len(pop))]
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

func meanFitness(pop []*genome.Genome) float64 {
	if len(pop) == 0 {
		return 0
	}
	var sum float64
	for _, g := range pop {
		sum += g.Fitness
	}
	return sum / float64(len(pop))
}
