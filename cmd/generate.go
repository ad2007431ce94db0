package cmd

import (
	"fmt"

	"github.com/theirongolddev/goalcast/internal/cli"
	"github.com/theirongolddev/goalcast/internal/dataset"

	"github.com/spf13/cobra"
)

var flagHead int

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic data and print label statistics",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().IntVar(&flagHead, "head", 5, "Show the first N samples")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ds := generateData(cfg, newLogger())
	train, test := dataset.Split(ds, cfg.Data.TestFraction, cfg.Data.Seed)
	s := dataset.Summarize(ds)

	n, months, features := ds.Shape()
	fmt.Println()
	fmt.Println(cli.RenderTitle("SYNTHETIC DATA"))
	fmt.Println()
	fmt.Print(cli.RenderKV([][2]string{
		{"Shape", fmt.Sprintf("(%s, %d, %d)", cli.FormatCount(n), months, features)},
		{"Train / test", fmt.Sprintf("%s / %s", cli.FormatCount(train.Len()), cli.FormatCount(test.Len()))},
		{"Goal possible", fmt.Sprintf("%s (%s)", cli.FormatCount(s.GoalPossible), cli.FormatPercent(s.PossibleRate()))},
		{"Capped at 60 months", cli.FormatCount(s.CappedMonths)},
		{"Mean months needed", cli.FormatMonths(s.MeanMonthsNeeded)},
		{"Final savings mean", cli.FormatMoney(s.MeanFinalSavings)},
		{"Final savings range", fmt.Sprintf("%s .. %s", cli.FormatMoney(s.MinFinalSavings), cli.FormatMoney(s.MaxFinalSavings))},
	}))

	if flagHead <= 0 || ds.Len() == 0 {
		return nil
	}
	head := flagHead
	if head > ds.Len() {
		head = ds.Len()
	}

	rows := make([][]string, head)
	for i, smp := range ds.Samples[:head] {
		last := smp.Months[len(smp.Months)-1]
		rows[i] = []string{
			fmt.Sprintf("%d", i),
			cli.FormatMoney(last[dataset.FeatureIncome] * cfg.Data.ScaleFactor),
			cli.FormatMoney(last[dataset.FeatureGoal] * cfg.Data.ScaleFactor),
			cli.FormatMoney(smp.FinalSavings),
			cli.FormatMonths(smp.MonthsNeeded),
			cli.YesNo(smp.GoalPossible),
		}
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "First samples (final month)",
		Headers: []string{"#", "Income", "Goal", "Savings", "Months", "Possible"},
		Rows:    rows,
	}))
	return nil
}
