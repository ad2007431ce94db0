// Package cmd implements the goalcast CLI commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/theirongolddev/goalcast/internal/cli"
	"github.com/theirongolddev/goalcast/internal/config"
	"github.com/theirongolddev/goalcast/internal/dataset"
	"github.com/theirongolddev/goalcast/internal/forecast"
	"github.com/theirongolddev/goalcast/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagConfig     string
	flagOutputDir  string
	flagSamples    int
	flagEpochs     int
	flagSeed       int64
	flagAdamW      bool
	flagNoRegistry bool
	flagQuiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "goalcast",
	Short: "Savings goal forecaster",
	Long: "Generate synthetic household budgets, train a two-headed LSTM to predict\n" +
		"months needed to reach a savings goal and whether it is reachable, then\n" +
		"evaluate it on a held-out split.",
	RunE:         runPipeline,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	defaults := config.DefaultConfig()

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.ConfigPath(), "Config file (TOML)")
	rootCmd.PersistentFlags().StringVarP(&flagOutputDir, "output-dir", "o", defaults.Output.Dir, "Artifact output directory")
	rootCmd.PersistentFlags().IntVarP(&flagSamples, "samples", "n", defaults.Data.Samples, "Number of synthetic samples")
	rootCmd.PersistentFlags().IntVarP(&flagEpochs, "epochs", "e", defaults.Training.Epochs, "Maximum training epochs")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", defaults.Data.Seed, "Seed for data generation, split and weights")
	rootCmd.PersistentFlags().BoolVar(&flagAdamW, "adamw", false, "Use AdamW instead of Adam")
	rootCmd.PersistentFlags().BoolVar(&flagNoRegistry, "no-registry", false, "Do not record runs in the SQLite registry")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// loadConfig reads the config file and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.Output.Dir = flagOutputDir
	}
	if flags.Changed("samples") {
		cfg.Data.Samples = flagSamples
	}
	if flags.Changed("epochs") {
		cfg.Training.Epochs = flagEpochs
	}
	if flags.Changed("seed") {
		cfg.Data.Seed = flagSeed
	}
	if flagAdamW {
		cfg.Training.Optimizer = config.OptimizerAdamW
	}
	if flagNoRegistry {
		cfg.Output.Registry = false
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger returns the component logger; --quiet discards everything.
func newLogger() *log.Logger {
	if flagQuiet {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "", log.LstdFlags)
}

// openRegistry opens the run registry, or returns nil when it is disabled.
// A registry that cannot be opened is reported and skipped.
func openRegistry(cfg config.Config) *store.Registry {
	if !cfg.Output.Registry {
		return nil
	}
	reg, err := store.Open(cfg.RegistryPath())
	if err != nil {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Registry unavailable, continuing without it: %v\n", err)
		}
		return nil
	}
	return reg
}

func closeRegistry(reg *store.Registry) {
	if reg != nil {
		_ = reg.Close()
	}
}

func generateData(cfg config.Config, lg *log.Logger) dataset.Dataset {
	lg.Printf("Generating %s samples of %d months", cli.FormatCount(cfg.Data.Samples), cfg.Data.Months)
	return dataset.Generate(cfg.Data.Samples, cfg.Data.Months, cfg.Data.ScaleFactor, cfg.Data.Seed)
}

// runPipeline is the default command: generate, train, evaluate.
func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lg := newLogger()
	reg := openRegistry(cfg)
	defer closeRegistry(reg)

	ds := generateData(cfg, lg)

	tr := &forecast.Trainer{Cfg: cfg, Logger: lg, Registry: reg}
	res, err := tr.Train(cmd.Context(), ds)
	if err != nil {
		return err
	}

	ev := &forecast.Evaluator{Cfg: cfg, Logger: lg, Registry: reg}
	eval, err := ev.Evaluate(cmd.Context(), res.CheckpointPath, res.Test)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("GOALCAST RUN"))
	fmt.Println()
	fmt.Print(cli.RenderKV(trainingRows(res)))
	fmt.Print(cli.RenderKV(evaluationRows(eval)))
	return nil
}

func trainingRows(res forecast.TrainResult) [][2]string {
	rows := [][2]string{
		{"Run", res.RunID},
		{"Train / test", fmt.Sprintf("%s / %s", cli.FormatCount(res.Train.Len()), cli.FormatCount(res.Test.Len()))},
		{"Epochs run", fmt.Sprintf("%d (best %d)", len(res.History.Epochs), res.BestEpoch)},
		{"Best val goal acc", cli.FormatPercent(res.BestValGoalAcc)},
		{"Checkpoint", res.CheckpointPath},
		{"Loss plot", res.PlotPath},
	}
	if res.History.StoppedEarly {
		rows[2][1] += ", stopped early"
	}
	return rows
}

func evaluationRows(eval forecast.EvalResult) [][2]string {
	sheet := eval.Sheet.Status.String()
	if eval.Sheet.Written() {
		sheet = eval.Sheet.Path
	}
	return [][2]string{
		{"Test MAE (months)", cli.FormatMonths(eval.MonthsMAE)},
		{"Test goal accuracy", cli.FormatPercent(eval.GoalAccuracy)},
		{"Predictions", sheet},
	}
}
