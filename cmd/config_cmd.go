package cmd

import (
	"fmt"

	"github.com/theirongolddev/goalcast/internal/cli"
	"github.com/theirongolddev/goalcast/internal/config"

	"github.com/spf13/cobra"
)

var flagInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&flagInit, "init", false, "Write the default configuration to the config file")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	if flagInit {
		if config.Exists(flagConfig) {
			return fmt.Errorf("%s already exists", flagConfig)
		}
		if err := config.Save(flagConfig, config.DefaultConfig()); err != nil {
			return err
		}
		fmt.Printf("  Wrote default config to %s\n", flagConfig)
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", flagConfig)
	if config.Exists(flagConfig) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [data]")
	fmt.Print(cli.RenderKV([][2]string{
		{"samples", cli.FormatCount(cfg.Data.Samples)},
		{"months", fmt.Sprintf("%d", cfg.Data.Months)},
		{"scale_factor", cli.FormatMoney(cfg.Data.ScaleFactor)},
		{"seed", fmt.Sprintf("%d", cfg.Data.Seed)},
		{"test_fraction", fmt.Sprintf("%g", cfg.Data.TestFraction)},
	}))
	fmt.Println()

	tc := cfg.Training
	fmt.Println("  [training]")
	fmt.Print(cli.RenderKV([][2]string{
		{"epochs", fmt.Sprintf("%d", tc.Epochs)},
		{"batch_size", fmt.Sprintf("%d", tc.BatchSize)},
		{"validation_split", fmt.Sprintf("%g", tc.ValidationSplit)},
		{"optimizer", tc.Optimizer},
		{"learning_rate", fmt.Sprintf("%g", tc.LearningRate)},
		{"weight_decay", fmt.Sprintf("%g", tc.WeightDecay)},
		{"dropout", fmt.Sprintf("%g", tc.Dropout)},
		{"loss weights", fmt.Sprintf("months %g, goal %g", tc.MonthsLossWeight, tc.GoalLossWeight)},
		{"early stop", fmt.Sprintf("patience %d", tc.EarlyStopPatience)},
		{"plateau", fmt.Sprintf("patience %d, factor %g, floor %g", tc.PlateauPatience, tc.PlateauFactor, tc.MinLearningRate)},
	}))
	fmt.Println()

	fmt.Println("  [output]")
	fmt.Print(cli.RenderKV([][2]string{
		{"dir", cfg.Output.Dir},
		{"registry", fmt.Sprintf("%v (%s)", cfg.Output.Registry, cfg.RegistryPath())},
	}))
	fmt.Println()

	fmt.Println("  Run `goalcast config --init` to write an editable config file.")
	return nil
}
