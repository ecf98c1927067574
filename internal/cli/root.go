package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pattern-optimizer/internal/config"
	"pattern-optimizer/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-30"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  *store.SQLiteStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Data.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, caching and run history unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Data.DBPath).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "optimizer",
		Short: "Genetic optimization of chart-pattern trading strategies",
		Long: `optimizer searches the parameter space of a pattern-driven trading
strategy with a genetic algorithm. Each candidate parameter set is scored by
backtesting a composite-signal strategy over a multi-symbol daily bar
universe.

Use 'optimizer help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/pattern-optimizer)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newOptimizeCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))
	rootCmd.AddCommand(newRunsCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("pattern-optimizer v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Data Configuration")
	output.Printf("  Bar Directory:   %s\n", cfg.Data.BarDir)
	output.Printf("  Database:        %s\n", cfg.Data.DBPath)
	output.Printf("  Symbols:         %d configured\n", len(cfg.Data.Symbols))
	output.Printf("  Min Universe:    %d\n", cfg.Data.MinUniverseSize)
	output.Printf("  Cache Bars:      %v\n", cfg.Data.CacheBars)
	output.Println()

	output.Bold("Backtest Configuration")
	output.Printf("  Initial Capital: %.0f\n", cfg.Backtest.InitialCapital)
	output.Println()

	output.Bold("Optimizer Configuration")
	output.Printf("  Population:      %d\n", cfg.Optimizer.PopulationSize)
	output.Printf("  Iterations:      %d\n", cfg.Optimizer.TotalIterations)
	output.Printf("  Elites:          %d\n", cfg.Optimizer.EliteCount)
	output.Printf("  Tournament:      %d\n", cfg.Optimizer.TournamentSize)
	output.Printf("  Crossover Rate:  %.2f\n", cfg.Optimizer.CrossoverRate)
	output.Printf("  Mutation Rate:   %.2f\n", cfg.Optimizer.MutationRate)
	output.Printf("  Workers:         %d\n", cfg.Optimizer.Workers)
}
