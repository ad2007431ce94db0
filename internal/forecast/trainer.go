package forecast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/goalcast/internal/config"
	"github.com/theirongolddev/goalcast/internal/dataset"
	"github.com/theirongolddev/goalcast/internal/nn"
	"github.com/theirongolddev/goalcast/internal/report"
	"github.com/theirongolddev/goalcast/internal/store"

	"github.com/google/uuid"
)

// ErrInputShape is returned when a sample does not have (months × 9) features.
var ErrInputShape = errors.New("forecast: input shape mismatch")

// Artifact naming.
const (
	timestampLayout  = "20060102_150405"
	checkpointPrefix = "best_model_"
	checkpointExt    = ".gcm"
)

// Trainer fits a fresh model on a generated dataset and persists the best
// checkpoint, its manifest, and a loss plot.
type Trainer struct {
	Cfg    config.Config
	Logger *log.Logger
	// Registry, if set, records the finished run.
	Registry *store.Registry
	// Monitors run after the built-in checkpoint, early-stop and plateau
	// monitors on every epoch. A monitor that stops the fit (nn.StopRequest)
	// still gets a plot, manifest and registry row.
	Monitors []nn.Monitor
	Now      func() time.Time
}

// TrainResult is what a training run leaves behind.
type TrainResult struct {
	RunID          string
	Train          dataset.Dataset
	Test           dataset.Dataset
	Model          *nn.Model
	History        nn.History
	CheckpointPath string
	ManifestPath   string
	PlotPath       string
	BestEpoch      int
	BestValGoalAcc float64
}

// Train splits ds, fits the model and writes its artifacts. The returned test
// split is the held-out data for Evaluator.Evaluate.
func (t *Trainer) Train(ctx context.Context, ds dataset.Dataset) (TrainResult, error) {
	var res TrainResult
	lg := logger(t.Logger)
	cfg := t.Cfg

	if err := checkShape(ds, cfg.Data.Months); err != nil {
		return res, err
	}

	started := now(t.Now)
	stamp := started.Format(timestampLayout)
	res.RunID = uuid.NewString()

	res.Train, res.Test = dataset.Split(ds, cfg.Data.TestFraction, cfg.Data.Seed)
	lg.Printf("Split %d samples: %d train, %d test", ds.Len(), res.Train.Len(), res.Test.Len())

	model, err := BuildModel(cfg)
	if err != nil {
		return res, err
	}
	res.Model = model

	if err := os.MkdirAll(cfg.ModelsDir(), 0o755); err != nil {
		return res, fmt.Errorf("creating models dir: %w", err)
	}
	res.CheckpointPath = filepath.Join(cfg.ModelsDir(), checkpointPrefix+stamp+checkpointExt)
	res.PlotPath = filepath.Join(cfg.Output.Dir, "training_loss_plot_"+stamp+".png")

	tc := cfg.Training
	checkpoint := nn.NewCheckpoint(res.CheckpointPath, nn.MetricValGoalAccuracy, nn.Max)
	checkpoint.OnSave = func(epoch int, v float64) {
		lg.Printf("Epoch %d: %s improved to %.5f, saving model to %s", epoch, nn.MetricValGoalAccuracy, v, res.CheckpointPath)
	}
	early := nn.NewEarlyStopping(nn.MetricValGoalAccuracy, nn.Max, tc.EarlyStopPatience, true)
	plateau := nn.NewReduceLROnPlateau(nn.MetricValGoalAccuracy, nn.Max, tc.PlateauFactor, tc.PlateauPatience, tc.MinLearningRate)
	plateau.OnReduce = func(epoch int, from, to float64) {
		lg.Printf("Epoch %d: reducing learning rate from %g to %g", epoch, from, to)
	}

	monitors := []nn.Monitor{epochLogger(lg, tc.Epochs), checkpoint, early, plateau}
	monitors = append(monitors, t.Monitors...)

	data := nn.Data{X: res.Train.Inputs(), Months: res.Train.MonthsLabels(), Goal: res.Train.GoalLabels()}
	fitCfg := nn.FitConfig{
		Epochs:          tc.Epochs,
		BatchSize:       tc.BatchSize,
		ValidationSplit: tc.ValidationSplit,
		Seed:            cfg.Data.Seed,
	}

	lg.Printf("Training %s model for up to %d epochs", model.Optimizer.Name(), tc.Epochs)
	res.History, err = nn.Fit(ctx, model, data, fitCfg, monitors...)
	if err != nil {
		// An aborted run leaves no checkpoint without its manifest.
		if rmErr := os.Remove(res.CheckpointPath); rmErr != nil && !os.IsNotExist(rmErr) {
			lg.Printf("removing partial checkpoint: %v", rmErr)
		}
		res.CheckpointPath = ""
		return res, fmt.Errorf("fitting model: %w", err)
	}

	best, bestEpoch, ok := checkpoint.Best()
	if !ok {
		return res, fmt.Errorf("no checkpoint written: %s never produced a finite value", nn.MetricValGoalAccuracy)
	}
	res.BestEpoch, res.BestValGoalAcc = bestEpoch, best
	if res.History.StoppedEarly {
		if stopped := early.StoppedEpoch(); stopped > 0 {
			lg.Printf("Early stopping at epoch %d, restored weights from epoch %d", stopped, early.BestEpoch())
		} else {
			lg.Printf("Training stopped on request after epoch %d", len(res.History.Epochs))
		}
	}

	if err := report.WriteLossPlot(res.PlotPath, res.History); err != nil {
		return res, err
	}
	lg.Printf("Saved loss plot to %s", res.PlotPath)

	finished := now(t.Now)
	res.ManifestPath = ManifestPath(res.CheckpointPath)
	manifest := Manifest{
		RunID:      res.RunID,
		StartedAt:  started,
		FinishedAt: finished,
		Checkpoint: res.CheckpointPath,
		Plot:       res.PlotPath,
		Data:       manifestData(cfg.Data),
		Training: ManifestTraining{
			Optimizer:           model.Optimizer.Name(),
			LearningRate:        tc.LearningRate,
			Epochs:              tc.Epochs,
			EpochsRun:           len(res.History.Epochs),
			StoppedEarly:        res.History.StoppedEarly,
			BestEpoch:           bestEpoch,
			BestValGoalAccuracy: best,
		},
	}
	if err := WriteManifest(res.ManifestPath, manifest); err != nil {
		return res, err
	}

	if t.Registry != nil {
		if err := t.Registry.SaveRun(runRecord(manifest, res)); err != nil {
			return res, err
		}
	}

	lg.Printf("Best model saved to %s (%s %.4f at epoch %d)", res.CheckpointPath, nn.MetricValGoalAccuracy, best, bestEpoch)
	return res, nil
}

func runRecord(m Manifest, res TrainResult) store.Run {
	run := store.Run{
		ID:             m.RunID,
		StartedAt:      m.StartedAt,
		FinishedAt:     m.FinishedAt,
		CheckpointPath: m.Checkpoint,
		ManifestPath:   res.ManifestPath,
		PlotPath:       m.Plot,
		Samples:        m.Data.Samples,
		Months:         m.Data.Months,
		Seed:           m.Data.Seed,
		Optimizer:      m.Training.Optimizer,
		EpochsRun:      m.Training.EpochsRun,
		StoppedEarly:   m.Training.StoppedEarly,
		BestValGoalAcc: m.Training.BestValGoalAccuracy,
	}
	if last, ok := res.History.Last(); ok {
		run.FinalLoss = last.Loss
		run.FinalValLoss = last.ValLoss
	}
	return run
}

// checkShape asserts every sample is (months × NumFeatures).
func checkShape(ds dataset.Dataset, months int) error {
	if ds.Months != months {
		return fmt.Errorf("%w: dataset has %d months, model expects %d", ErrInputShape, ds.Months, months)
	}
	for i, s := range ds.Samples {
		if len(s.Months) != months {
			return fmt.Errorf("%w: sample %d has shape (%d, %d), want (%d, %d)",
				ErrInputShape, i, len(s.Months), dataset.NumFeatures, months, dataset.NumFeatures)
		}
	}
	return nil
}

func epochLogger(lg *log.Logger, total int) nn.Monitor {
	return nn.EpochFunc(func(l nn.EpochLogs) {
		lg.Printf("Epoch %d/%d - loss: %.4f - months_mae: %.4f - goal_accuracy: %.4f - val_loss: %.4f - val_months_mae: %.4f - val_goal_accuracy: %.4f - lr: %g",
			l.Epoch, total, l.Loss, l.MonthsMAE, l.GoalAccuracy, l.ValLoss, l.ValMonthsMAE, l.ValGoalAccuracy, l.LearningRate)
	})
}

func logger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard, "", 0)
	}
	return l
}

func now(f func() time.Time) time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}
