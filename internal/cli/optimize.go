package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"pattern-optimizer/internal/analysis/signal"
	"pattern-optimizer/internal/data"
	"pattern-optimizer/internal/genome"
	"pattern-optimizer/internal/optimizer"
	"pattern-optimizer/internal/store"
	"pattern-optimizer/pkg/utils"
)

func newOptimizeCmd(app *App) *cobra.Command {
	var (
		symbols    []string
		start, end string
		population int
		iterations int
		seed       int64
		noSave     bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run a genetic optimization over the bar universe",
		Long: `Runs the full genetic search: loads the symbol universe, evolves a
population of strategy parameter sets, and reports the best genome found.
The run is persisted to the local database unless --no-save is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			ds, err := app.loadDataset(ctx, symbols, start, end)
			if err != nil {
				return err
			}

			ocfg := optimizer.Config{
				PopulationSize:  population,
				TotalIterations: iterations,
				EliteCount:      app.Config.Optimizer.EliteCount,
				TournamentSize:  app.Config.Optimizer.TournamentSize,
				CrossoverRate:   app.Config.Optimizer.CrossoverRate,
				MutationRate:    app.Config.Optimizer.MutationRate,
				Workers:         app.Config.Optimizer.Workers,
				Seed:            seed,
				InitialCapital:  app.Config.Backtest.InitialCapital,
			}
			if ocfg.Seed == 0 {
				ocfg.Seed = time.Now().UnixNano()
			}

			opt, err := optimizer.New(ocfg, ds, app.Logger)
			if err != nil {
				return err
			}

			generations := ocfg.Generations()
			if !output.IsJSON() {
				output.Info("Optimizing over %d symbols, %d trading days", len(ds.Symbols), ds.Days())
				output.Dim("population=%d generations=%d seed=%d", ocfg.PopulationSize, generations, ocfg.Seed)
			}
			opt.OnProgress(func(s optimizer.GenerationSummary, best *genome.Genome) {
				if output.IsJSON() {
					return
				}
				output.Progress(s.Generation+1, generations,
					fmt.Sprintf("gen %d best=%.2f mean=%.2f (%s)",
						s.Generation, s.BestFitness, s.MeanFitness, utils.FormatDuration(s.Elapsed)))
			})

			startedAt := time.Now()
			res, err := opt.Run(ctx)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				output.JSON(map[string]interface{}{
					"best_genome": res.Best.GeneMap(),
					"fitness":     res.Best.Fitness,
					"metrics":     res.BestMetrics,
					"generations": res.Generations,
					"evaluations": res.Evaluations,
				})
			} else {
				printBestGenome(output, res)
			}

			if !noSave && app.Store != nil {
				rec := runRecord(res, ocfg, startedAt)
				id, err := app.Store.SaveRun(ctx, rec)
				if err != nil {
					output.Warning("Failed to save run: %v", err)
				} else if !output.IsJSON() {
					output.Dim("Run saved as #%d", id)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to load (default: configured universe)")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&population, "population", 0, "population size (default: configured)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "total evaluation budget (default: configured)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 derives from clock)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "skip persisting the run")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if population == 0 {
			population = app.Config.Optimizer.PopulationSize
		}
		if iterations == 0 {
			iterations = app.Config.Optimizer.TotalIterations
		}
		if seed == 0 {
			seed = app.Config.Optimizer.Seed
		}
	}

	return cmd
}

// loadDataset assembles the aligned bar universe from CSV files, routed
// through the SQLite cache when available.
func (app *App) loadDataset(ctx context.Context, symbols []string, start, end string) (*data.Dataset, error) {
	if len(symbols) == 0 {
		symbols = app.Config.Data.Symbols
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured: set data.symbols or pass --symbols")
	}

	rng, err := app.Config.DateRange()
	if err != nil {
		return nil, err
	}
	from, to := rng[0], rng[1]
	if start != "" {
		from, err = time.Parse("2006-01-02", start)
		if err != nil {
			return nil, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if end != "" {
		to, err = time.Parse("2006-01-02", end)
		if err != nil {
			return nil, fmt.Errorf("invalid --end: %w", err)
		}
	}
	if to.IsZero() {
		to = time.Now()
	}

	var src data.BarSource = data.NewDirSource(app.Config.Data.BarDir)
	if app.Store != nil && app.Config.Data.CacheBars {
		src = store.NewCachedSource(app.Store, src, app.Logger)
	}

	return data.LoadDataset(ctx, src, symbols, from, to, data.LoaderConfig{
		MinUniverseSize: app.Config.Data.MinUniverseSize,
		MinBars:         signal.MinBars,
	}, app.Logger)
}

func printBestGenome(output *Output, res *optimizer.RunResult) {
	m := res.BestMetrics
	output.Println()
	output.Bold("Best Genome: %s (generation %d)", res.Best.ID, res.Best.Generation)
	output.Printf("  Fitness:        %.2f\n", res.Best.Fitness)
	output.Printf("  Trades:         %d\n", m.Trades)
	output.Printf("  Total Return:   %s\n", output.FormatPercent(m.TotalReturn))
	output.Printf("  Win Rate:       %.1f%%\n", m.WinRate*100)
	output.Printf("  Sharpe:         %s\n", utils.FormatRatio(m.Sharpe))
	output.Printf("  Sortino:        %s\n", utils.FormatRatio(m.Sortino))
	output.Printf("  Calmar:         %s\n", utils.FormatRatio(m.Calmar))
	output.Printf("  Max Drawdown:   %.1f%%\n", m.MaxDrawdown*100)
	output.Printf("  Pattern Trades: %d (win rate %.1f%%)\n", m.PatternTrades, m.PatternWinRate*100)
	output.Println()

	output.Bold("Genes")
	table := NewTable(output, "Parameter", "Value")
	genes := res.Best.GeneMap()
	names := make([]string, 0, len(genes))
	for name := range genes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		table.AddRow(name, fmt.Sprintf("%.4f", genes[name]))
	}
	table.Render()
}

func runRecord(res *optimizer.RunResult, cfg optimizer.Config, startedAt time.Time) *store.RunRecord {
	rec := &store.RunRecord{
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
		Seed:         cfg.Seed,
		Population:   cfg.PopulationSize,
		Generations:  res.Generations,
		Evaluations:  res.Evaluations,
		BestGenomeID: res.Best.ID,
		BestFitness:  res.Best.Fitness,
		Genes:        res.Best.GeneMap(),
		Metrics:      res.BestMetrics,
	}
	for _, h := range res.History {
		rec.History = append(rec.History, store.GenerationRow{
			Generation:  h.Generation,
			BestFitness: h.BestFitness,
			MeanFitness: h.MeanFitness,
			Evaluated:   h.Evaluated,
		})
	}
	return rec
}
