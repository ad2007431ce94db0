package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/goalcast/internal/cli"
	"github.com/theirongolddev/goalcast/internal/config"
	"github.com/theirongolddev/goalcast/internal/dataset"
	"github.com/theirongolddev/goalcast/internal/forecast"
	"github.com/theirongolddev/goalcast/internal/store"

	"github.com/spf13/cobra"
)

var flagModelPath string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a checkpoint on its held-out split",
	Long: "Regenerates the dataset a checkpoint was trained on (from its manifest),\n" +
		"re-creates the held-out split and writes a predictions spreadsheet.",
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&flagModelPath, "model", "m", "", "Checkpoint to evaluate (default: latest)")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lg := newLogger()
	reg := openRegistry(cfg)
	defer closeRegistry(reg)

	ckpt, err := resolveCheckpoint(cfg, reg, flagModelPath)
	if err != nil {
		return err
	}
	cfg, err = forecast.ConfigFor(ckpt, cfg)
	if err != nil {
		return err
	}

	ds := generateData(cfg, lg)
	_, test := dataset.Split(ds, cfg.Data.TestFraction, cfg.Data.Seed)

	ev := &forecast.Evaluator{Cfg: cfg, Logger: lg, Registry: reg}
	eval, err := ev.Evaluate(cmd.Context(), ckpt, test)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("EVALUATION"))
	fmt.Println()
	fmt.Print(cli.RenderKV(append([][2]string{
		{"Checkpoint", ckpt},
		{"Test samples", cli.FormatCount(eval.Samples)},
	}, evaluationRows(eval)...)))
	if !eval.Sheet.Written() {
		fmt.Println()
		fmt.Println("  " + cli.RenderWarning("predictions spreadsheet was not written: "+eval.Sheet.Cause.Error()))
	}
	return nil
}

// resolveCheckpoint picks the explicit path, else the registry's latest run,
// else the newest checkpoint file on disk.
func resolveCheckpoint(cfg config.Config, reg *store.Registry, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if reg != nil {
		run, err := reg.LatestRun()
		switch {
		case err == nil:
			return run.CheckpointPath, nil
		case !errors.Is(err, store.ErrNotFound):
			return "", err
		}
	}
	ckpt, err := forecast.LatestCheckpoint(cfg.ModelsDir())
	if err != nil {
		return "", fmt.Errorf("no model to use, run `goalcast train` first: %w", err)
	}
	return ckpt, nil
}
