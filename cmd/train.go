package cmd

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/theirongolddev/goalcast/internal/cli"
	"github.com/theirongolddev/goalcast/internal/forecast"
	"github.com/theirongolddev/goalcast/internal/nn"
	"github.com/theirongolddev/goalcast/internal/tui"

	"github.com/spf13/cobra"
)

var flagTUI bool

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Generate data and train a model",
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().BoolVar(&flagTUI, "tui", false, "Show a live training view")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lg := newLogger()
	reg := openRegistry(cfg)
	defer closeRegistry(reg)

	ds := generateData(cfg, lg)

	var res forecast.TrainResult
	if flagTUI {
		// Log lines would tear the view; collect them and replay afterwards.
		var buf bytes.Buffer
		tr := forecast.Trainer{Cfg: cfg, Logger: log.New(&buf, "", log.LstdFlags), Registry: reg}
		res, err = tui.Run(cmd.Context(), tr, ds)
		if !flagQuiet {
			_, _ = os.Stderr.Write(buf.Bytes())
		}
	} else {
		tr := &forecast.Trainer{Cfg: cfg, Logger: lg, Registry: reg}
		res, err = tr.Train(cmd.Context(), ds)
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("TRAINING COMPLETE"))
	fmt.Println()
	fmt.Print(cli.RenderKV(trainingRows(res)))
	fmt.Println()
	fmt.Printf("  loss      %s\n", cli.RenderSparkline(res.History.Series(nn.MetricLoss)))
	fmt.Printf("  val_loss  %s\n", cli.RenderSparkline(res.History.Series(nn.MetricValLoss)))
	return nil
}
