package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/goalcast/internal/cli"
	"github.com/theirongolddev/goalcast/internal/store"

	"github.com/spf13/cobra"
)

var flagLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded training runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&flagLimit, "limit", "l", 10, "Maximum runs to show (0 for all)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Output.Registry {
		return errors.New("the run registry is disabled")
	}
	if _, err := os.Stat(cfg.RegistryPath()); err != nil {
		fmt.Println("\n  No runs recorded yet. Train a model first.")
		return nil
	}

	reg, err := store.Open(cfg.RegistryPath())
	if err != nil {
		return err
	}
	defer reg.Close()

	runs, err := reg.ListRuns(flagLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("\n  No runs recorded yet. Train a model first.")
		return nil
	}
	total, err := reg.RunCount()
	if err != nil {
		return err
	}

	now := time.Now()
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		evalCell := "-"
		evals, err := reg.Evaluations(r.ID)
		if err != nil {
			return err
		}
		if len(evals) > 0 {
			last := evals[len(evals)-1]
			evalCell = fmt.Sprintf("%s / %s", cli.FormatPercent(last.GoalAccuracy), cli.FormatMonths(last.MonthsMAE))
		}

		size := "missing"
		if info, err := os.Stat(r.CheckpointPath); err == nil {
			size = cli.FormatBytes(info.Size())
		}

		epochs := fmt.Sprintf("%d", r.EpochsRun)
		if r.StoppedEarly {
			epochs += "*"
		}

		rows = append(rows, []string{
			shortID(r.ID),
			cli.FormatAgo(r.FinishedAt, now),
			cli.FormatCount(r.Samples),
			r.Optimizer,
			epochs,
			cli.FormatPercent(r.BestValGoalAcc),
			evalCell,
			size,
			cli.FormatDuration(r.Duration()),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("RUNS  %d of %s", len(runs), cli.FormatCount(total))))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Run", "Finished", "Samples", "Opt", "Epochs", "Val acc", "Test acc / MAE", "Model", "Took"},
		Rows:    rows,
	}))
	fmt.Println("  * stopped early")
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
