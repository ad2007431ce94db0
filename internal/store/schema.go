package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id               TEXT PRIMARY KEY,
    started_at           TEXT NOT NULL,
    finished_at          TEXT NOT NULL,
    checkpoint_path      TEXT NOT NULL,
    manifest_path        TEXT,
    plot_path            TEXT,
    samples              INTEGER NOT NULL,
    months               INTEGER NOT NULL,
    seed                 INTEGER NOT NULL,
    optimizer            TEXT NOT NULL,
    epochs_run           INTEGER NOT NULL,
    stopped_early        INTEGER NOT NULL DEFAULT 0,
    best_val_goal_acc    REAL,
    final_loss           REAL,
    final_val_loss       REAL
);

CREATE TABLE IF NOT EXISTS evaluations (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id               TEXT REFERENCES runs(run_id) ON DELETE CASCADE,
    evaluated_at         TEXT NOT NULL,
    checkpoint_path      TEXT NOT NULL,
    test_samples         INTEGER NOT NULL,
    months_mae           REAL NOT NULL,
    goal_accuracy        REAL NOT NULL,
    sheet_path           TEXT,
    sheet_status         TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at);
CREATE INDEX IF NOT EXISTS idx_evaluations_run ON evaluations(run_id);
`
