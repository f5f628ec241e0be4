// Package persistence stores runs and their step trajectories in SQLite.
package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/akshitanchan/trading-network-sim/internal/domain"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Run is one stored simulation run.
type Run struct {
	ID           string `db:"id" json:"id"`
	Scenario     string `db:"scenario" json:"scenario"`
	Seed         int64  `db:"seed" json:"seed"`
	CreatedAt    string `db:"created_at" json:"created_at"` // RFC 3339, UTC
	Steps        int64  `db:"steps" json:"steps"`
	Converged    bool   `db:"converged" json:"converged"`
	FinalWelfare int64  `db:"final_welfare" json:"final_welfare"`
	LogHash      string `db:"log_hash" json:"log_hash"`
	ConfigJSON   string `db:"config_json" json:"-"`
}

type stepRow struct {
	Step        int64  `db:"step"`
	Agent       int    `db:"agent"`
	Demanded    string `db:"demanded"`
	Changed     string `db:"changed"`
	Offers      string `db:"offers"`
	Unsatisfied string `db:"unsatisfied"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// NewRun creates a run record stamped with the current time.
func NewRun(scenario string, seed int64) *Run {
	return &Run{
		ID:        NewRunID(),
		Scenario:  scenario,
		Seed:      seed,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		steps INTEGER NOT NULL,
		converged INTEGER NOT NULL,
		final_welfare INTEGER NOT NULL,
		log_hash TEXT NOT NULL,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		agent INTEGER NOT NULL,
		demanded TEXT NOT NULL,
		changed TEXT NOT NULL,
		offers TEXT NOT NULL,
		unsatisfied TEXT NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario, seed);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun writes a run and its trajectory (full replace of that run).
func (db *DB) SaveRun(run *Run, steps []domain.StepRecord) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	converged := 0
	if run.Converged {
		converged = 1
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO runs
		(id, scenario, seed, created_at, steps, converged, final_welfare, log_hash, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Scenario, run.Seed, run.CreatedAt, run.Steps, converged,
		run.FinalWelfare, run.LogHash, run.ConfigJSON,
	); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM steps WHERE run_id = ?", run.ID); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO steps
		(run_id, step, agent, demanded, changed, offers, unsatisfied)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range steps {
		s := &steps[i]
		demanded, _ := json.Marshal(s.Demanded)
		changed, _ := json.Marshal(s.Changed)
		offers, err := json.Marshal(s.Offers)
		if err != nil {
			return fmt.Errorf("marshal step %d offers: %w", s.Step, err)
		}
		unsatisfied, _ := json.Marshal(s.Unsatisfied)

		if _, err := stmt.Exec(run.ID, s.Step, s.Agent,
			string(demanded), string(changed), string(offers), string(unsatisfied),
		); err != nil {
			return fmt.Errorf("save step %d: %w", s.Step, err)
		}
	}

	return tx.Commit()
}

// LoadRun retrieves a run by id.
func (db *DB) LoadRun(id string) (*Run, error) {
	var run Run
	err := db.conn.Get(&run, "SELECT * FROM runs WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	return &run, nil
}

// RecentRuns returns the most recent N runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// LoadSteps returns a run's trajectory in step order.
func (db *DB) LoadSteps(runID string) ([]domain.StepRecord, error) {
	var rows []stepRow
	err := db.conn.Select(&rows,
		"SELECT step, agent, demanded, changed, offers, unsatisfied FROM steps WHERE run_id = ? ORDER BY step",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load steps of %s: %w", runID, err)
	}

	out := make([]domain.StepRecord, len(rows))
	for i, r := range rows {
		rec := domain.StepRecord{Step: uint64(r.Step), Agent: r.Agent}
		if err := json.Unmarshal([]byte(r.Demanded), &rec.Demanded); err != nil {
			return nil, fmt.Errorf("step %d demanded: %w", r.Step, err)
		}
		if err := json.Unmarshal([]byte(r.Changed), &rec.Changed); err != nil {
			return nil, fmt.Errorf("step %d changed: %w", r.Step, err)
		}
		if err := json.Unmarshal([]byte(r.Offers), &rec.Offers); err != nil {
			return nil, fmt.Errorf("step %d offers: %w", r.Step, err)
		}
		if err := json.Unmarshal([]byte(r.Unsatisfied), &rec.Unsatisfied); err != nil {
			return nil, fmt.Errorf("step %d unsatisfied: %w", r.Step, err)
		}
		out[i] = rec
	}
	return out, nil
}
