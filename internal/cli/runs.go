package cli

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pattern-optimizer/pkg/utils"
)

func newRunsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved optimization runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("run history unavailable: store failed to initialize")
			}
			output := NewOutput(cmd)
			recs, err := app.Store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(recs)
			}
			if len(recs) == 0 {
				output.Dim("No saved runs")
				return nil
			}
			table := NewTable(output, "ID", "Finished", "Pop", "Gens", "Evals", "Best Fitness")
			for _, r := range recs {
				table.AddRow(
					strconv.FormatInt(r.ID, 10),
					r.FinishedAt.Format(time.DateOnly),
					fmt.Sprintf("%d", r.Population),
					fmt.Sprintf("%d", r.Generations),
					fmt.Sprintf("%d", r.Evaluations),
					fmt.Sprintf("%.2f", r.BestFitness),
				)
			}
			table.Render()
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("run history unavailable: store failed to initialize")
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			output := NewOutput(cmd)
			rec, err := app.Store.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rec)
			}

			m := rec.Metrics
			output.Bold("Run #%d", rec.ID)
			output.Printf("  Finished:       %s (%s)\n",
				rec.FinishedAt.Format(time.RFC3339),
				utils.FormatDuration(rec.FinishedAt.Sub(rec.StartedAt)))
			output.Printf("  Seed:           %d\n", rec.Seed)
			output.Printf("  Population:     %d x %d generations (%d evaluations)\n",
				rec.Population, rec.Generations, rec.Evaluations)
			output.Printf("  Best Genome:    %s\n", rec.BestGenomeID)
			output.Printf("  Best Fitness:   %.2f\n", rec.BestFitness)
			output.Printf("  Total Return:   %s\n", output.FormatPercent(m.TotalReturn))
			output.Printf("  Trades:         %d (win rate %.1f%%)\n", m.Trades, m.WinRate*100)
			output.Printf("  Sharpe:         %s  Sortino: %s  Calmar: %s\n",
				utils.FormatRatio(m.Sharpe), utils.FormatRatio(m.Sortino), utils.FormatRatio(m.Calmar))
			output.Printf("  Max Drawdown:   %.1f%%\n", m.MaxDrawdown*100)
			output.Println()

			output.Bold("Genes")
			table := NewTable(output, "Parameter", "Value")
			names := make([]string, 0, len(rec.Genes))
			for name := range rec.Genes {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				table.AddRow(name, fmt.Sprintf("%.4f", rec.Genes[name]))
			}
			table.Render()
			output.Println()

			if len(rec.History) > 0 {
				output.Bold("Progress")
				hist := NewTable(output, "Gen", "Best", "Mean", "Evaluated")
				for _, h := range rec.History {
					hist.AddRow(
						fmt.Sprintf("%d", h.Generation),
						fmt.Sprintf("%.2f", h.BestFitness),
						fmt.Sprintf("%.2f", h.MeanFitness),
						fmt.Sprintf("%d", h.Evaluated),
					)
				}
				hist.Render()
			}
			return nil
		},
	})

	return cmd
}
