package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/goalcast/internal/cli"
	"github.com/theirongolddev/goalcast/internal/dataset"
	"github.com/theirongolddev/goalcast/internal/forecast"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	flagForm      bool
	flagNoiseSeed int64
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict one household's savings goal interactively",
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&flagModelPath, "model", "m", "", "Checkpoint to use (default: latest)")
	predictCmd.Flags().BoolVar(&flagForm, "form", false, "Use an interactive form instead of line prompts")
	predictCmd.Flags().Int64Var(&flagNoiseSeed, "noise-seed", 0, "Seed for the simulated monthly variation (default: time based)")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg := openRegistry(cfg)
	ckpt, err := resolveCheckpoint(cfg, reg, flagModelPath)
	closeRegistry(reg)
	if err != nil {
		return err
	}

	seed := flagNoiseSeed
	if !cmd.Flags().Changed("noise-seed") {
		seed = time.Now().UnixNano()
	}
	p, err := forecast.LoadPredictor(ckpt, cfg, seed)
	if err != nil {
		return err
	}

	var profile dataset.Profile
	if flagForm {
		profile, err = profileForm()
	} else {
		fmt.Println()
		fmt.Println("--- User Input Prediction ---")
		profile, err = forecast.PromptProfile(os.Stdin, os.Stdout)
	}
	if err != nil {
		return err
	}

	v, err := p.Predict(profile)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(cli.RenderVerdict(v.MonthsNeeded, v.GoalPossible))
	return nil
}

// profileForm collects the profile with a huh form, validating each field
// as it is entered.
func profileForm() (dataset.Profile, error) {
	var p dataset.Profile
	values := make([]string, dataset.NumFeatures)
	fields := make([]huh.Field, dataset.NumFeatures)
	for i := range values {
		feature := i
		fields[i] = huh.NewInput().
			Title(forecast.ProfilePrompts[feature]).
			Value(&values[feature]).
			Validate(func(s string) error {
				_, err := forecast.ParseField(feature, s)
				return err
			})
	}

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		return p, fmt.Errorf("profile form: %w", err)
	}

	for i, raw := range values {
		v, err := forecast.ParseField(i, raw)
		if err != nil {
			return p, err
		}
		p.Set(i, v)
	}
	return p, nil
}
