package cli

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"pattern-optimizer/internal/analysis/signal"
	"pattern-optimizer/internal/backtest"
	"pattern-optimizer/internal/genome"
	"pattern-optimizer/internal/logging"
	"pattern-optimizer/internal/optimizer"
	"pattern-optimizer/pkg/utils"
)

func newBacktestCmd(app *App) *cobra.Command {
	var (
		symbols    []string
		start, end string
		runID      int64
		seed       int64
		trades     bool
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest one parameter set over the bar universe",
		Long: `Simulates a single strategy configuration. With --run the genes of a
saved optimization run are replayed; otherwise a random genome drawn from
--seed is used, which is mainly useful for smoke-testing the data setup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			g, err := app.resolveGenome(cmd, runID, seed)
			if err != nil {
				return err
			}

			ds, err := app.loadDataset(ctx, symbols, start, end)
			if err != nil {
				return err
			}

			engine := backtest.NewEngine(
				backtest.ConfigFromGenome(g, app.Config.Backtest.InitialCapital),
				signal.NewGenerator(g),
			)
			res, err := engine.Run(ctx, ds)
			if err != nil {
				return err
			}
			m := res.Metrics
			logging.LogBacktest(app.Logger, m.Trades, m.TotalReturn, m.Sharpe, m.MaxDrawdown)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"genome":  g.GeneMap(),
					"fitness": optimizer.Fitness(res.Metrics),
					"metrics": res.Metrics,
					"trades":  len(res.Trades),
				})
			}

			printBacktestResult(output, g, res, trades)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "symbols to load (default: configured universe)")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&runID, "run", 0, "replay the best genome of a saved run")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed for a random genome when --run is not given")
	cmd.Flags().BoolVar(&trades, "trades", false, "list individual trades")

	return cmd
}

// resolveGenome picks the genome to simulate: a saved run's best genes, or
// a seeded random draw.
func (app *App) resolveGenome(cmd *cobra.Command, runID, seed int64) (*genome.Genome, error) {
	if runID > 0 {
		if app.Store == nil {
			return nil, fmt.Errorf("run history unavailable: store failed to initialize")
		}
		rec, err := app.Store.GetRun(cmd.Context(), runID)
		if err != nil {
			return nil, err
		}
		return genome.FromGeneMap(rec.BestGenomeID, rec.Genes)
	}
	return genome.NewRandom(rand.New(rand.NewSource(seed)), 0), nil
}

func printBacktestResult(output *Output, g *genome.Genome, res *backtest.Result, listTrades bool) {
	m := res.Metrics
	output.Bold("Backtest: genome %s", g.ID)
	output.Printf("  Fitness:        %.2f\n", optimizer.Fitness(m))
	output.Printf("  Initial:        %s\n", utils.FormatCurrency(res.InitialCapital))
	output.Printf("  Final:          %s\n", utils.FormatCurrency(res.FinalEquity))
	output.Printf("  Total Return:   %s\n", output.FormatPercent(m.TotalReturn))
	output.Printf("  Trades:         %d (win rate %.1f%%)\n", m.Trades, m.WinRate*100)
	output.Printf("  Sharpe:         %s\n", utils.FormatRatio(m.Sharpe))
	output.Printf("  Sortino:        %s\n", utils.FormatRatio(m.Sortino))
	output.Printf("  Calmar:         %s\n", utils.FormatRatio(m.Calmar))
	output.Printf("  Max Drawdown:   %.1f%%\n", m.MaxDrawdown*100)
	output.Println()

	if len(res.PatternStats) > 0 {
		output.Bold("Pattern Breakdown")
		output.Printf("  Avg Strength:   %.3f\n", m.AvgPatternStrength)
		table := NewTable(output, "Pattern", "Trades", "Win Rate", "Avg Return", "PnL")
		names := make([]string, 0, len(res.PatternStats))
		for name := range res.PatternStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := res.PatternStats[name]
			table.AddRow(name,
				fmt.Sprintf("%d", s.Trades),
				fmt.Sprintf("%.1f%%", s.WinRate()*100),
				output.FormatPercent(s.AvgReturn()),
				output.FormatPnL(s.PnL))
		}
		table.Render()
		output.Println()
	}

	if listTrades {
		output.Bold("Trades")
		table := NewTable(output, "Symbol", "Entry", "Exit", "Shares", "Days", "PnL", "Reason")
		for _, t := range res.Trades {
			table.AddRow(t.Symbol,
				t.EntryDate.Format(time.DateOnly),
				t.ExitDate.Format(time.DateOnly),
				utils.FormatQuantity(int64(t.Shares)),
				fmt.Sprintf("%d", t.HoldingDays),
				output.FormatPnL(t.PnL),
				string(t.Reason))
		}
		table.Render()
	}
}
