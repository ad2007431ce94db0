// Package store provides a SQLite-backed registry of training runs and
// evaluations.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Run is one completed training run.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	CheckpointPath string
	ManifestPath   string
	PlotPath       string
	Samples        int
	Months         int
	Seed           int64
	Optimizer      string
	EpochsRun      int
	StoppedEarly   bool
	BestValGoalAcc float64
	FinalLoss      float64
	FinalValLoss   float64
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Evaluation is one evaluation of a checkpoint on a held-out split.
type Evaluation struct {
	ID             int64
	RunID          string
	EvaluatedAt    time.Time
	CheckpointPath string
	TestSamples    int
	MonthsMAE      float64
	GoalAccuracy   float64
	SheetPath      string
	SheetStatus    string
}

// Registry records runs and evaluations.
type Registry struct {
	db *sql.DB
}

// Open opens or creates the registry database at the given path.
func Open(dbPath string) (*Registry, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating registry dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening registry db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the registry database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// SaveRun stores a run, replacing any previous row with the same id.
func (r *Registry) SaveRun(run Run) error {
	_, err := r.db.Exec(`INSERT OR REPLACE INTO runs
		(run_id, started_at, finished_at, checkpoint_path, manifest_path, plot_path,
		 samples, months, seed, optimizer, epochs_run, stopped_early,
		 best_val_goal_acc, final_loss, final_val_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.CheckpointPath, run.ManifestPath, run.PlotPath,
		run.Samples, run.Months, run.Seed, run.Optimizer, run.EpochsRun, boolInt(run.StoppedEarly),
		run.BestValGoalAcc, run.FinalLoss, run.FinalValLoss,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", run.ID, err)
	}
	return nil
}

// SaveEvaluation stores an evaluation and returns its row id. An empty RunID
// is stored as NULL so evaluations of unregistered checkpoints still land.
func (r *Registry) SaveEvaluation(e Evaluation) (int64, error) {
	var runID sql.NullString
	if e.RunID != "" {
		runID = sql.NullString{String: e.RunID, Valid: true}
	}
	res, err := r.db.Exec(`INSERT INTO evaluations
		(run_id, evaluated_at, checkpoint_path, test_samples, months_mae, goal_accuracy,
		 sheet_path, sheet_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, formatTime(e.EvaluatedAt), e.CheckpointPath, e.TestSamples,
		e.MonthsMAE, e.GoalAccuracy, e.SheetPath, e.SheetStatus,
	)
	if err != nil {
		return 0, fmt.Errorf("saving evaluation: %w", err)
	}
	return res.LastInsertId()
}

const runColumns = `run_id, started_at, finished_at, checkpoint_path, manifest_path, plot_path,
	samples, months, seed, optimizer, epochs_run, stopped_early,
	best_val_goal_acc, final_loss, final_val_loss`

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (r *Registry) ListRuns(limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY finished_at DESC, run_id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recently finished run.
func (r *Registry) LatestRun() (Run, error) {
	row := r.db.QueryRow("SELECT " + runColumns + " FROM runs ORDER BY finished_at DESC LIMIT 1")
	return scanOne(row)
}

// RunByCheckpoint finds the run that produced a checkpoint file.
func (r *Registry) RunByCheckpoint(path string) (Run, error) {
	row := r.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE checkpoint_path = ?", path)
	return scanOne(row)
}

// Evaluations returns every evaluation of a run, oldest first.
func (r *Registry) Evaluations(runID string) ([]Evaluation, error) {
	rows, err := r.db.Query(`SELECT id, run_id, evaluated_at, checkpoint_path, test_samples,
		months_mae, goal_accuracy, sheet_path, sheet_status
		FROM evaluations WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var evals []Evaluation
	for rows.Next() {
		var e Evaluation
		var rid, at, sheetPath, sheetStatus sql.NullString
		if err := rows.Scan(&e.ID, &rid, &at, &e.CheckpointPath, &e.TestSamples,
			&e.MonthsMAE, &e.GoalAccuracy, &sheetPath, &sheetStatus); err != nil {
			return nil, err
		}
		e.RunID = rid.String
		e.EvaluatedAt = parseTime(at)
		e.SheetPath = sheetPath.String
		e.SheetStatus = sheetStatus.String
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

// RunCount returns the number of recorded runs.
func (r *Registry) RunCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (Run, error) {
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var started, finished, manifest, plot sql.NullString
	var stopped int
	var bestAcc, finalLoss, finalVal sql.NullFloat64
	err := s.Scan(&run.ID, &started, &finished, &run.CheckpointPath, &manifest, &plot,
		&run.Samples, &run.Months, &run.Seed, &run.Optimizer, &run.EpochsRun, &stopped,
		&bestAcc, &finalLoss, &finalVal)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.ManifestPath = manifest.String
	run.PlotPath = plot.String
	run.StoppedEarly = stopped != 0
	run.BestValGoalAcc = bestAcc.Float64
	run.FinalLoss = finalLoss.Float64
	run.FinalValLoss = finalVal.Float64
	return run, nil
}

// timeLayout is fixed width so stored timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s.String)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
