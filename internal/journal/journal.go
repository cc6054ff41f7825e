// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal records batch runs and per-symbol outcomes in SQLite so
// failed symbols can be found and retried by hand. The journal is write-only
// from the harvester's point of view: it is never consulted to skip work.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/plant-harvester/pkg/types"
)

// ErrNoRuns is returned by LatestRun on an empty journal.
var ErrNoRuns = errors.New("journal has no runs")

// now is the journal clock. Tests pin it.
var now = time.Now

// Journal is an open journal database.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path and ensures its schema exists.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return j, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			output_dir TEXT,
			api_base TEXT,
			total INTEGER,
			succeeded INTEGER,
			failed INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			symbol TEXT NOT NULL,
			identifier TEXT,
			state TEXT NOT NULL,
			fetched TEXT,
			missing TEXT,
			images_downloaded INTEGER,
			images_failed INTEGER,
			error TEXT,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_symbol ON outcomes(symbol)`,
	}
	for _, stmt := range statements {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Run is one batch run in the journal. It satisfies harvest.Recorder.
type Run struct {
	j  *Journal
	ID string
}

// Begin starts a new run for cfg covering total symbols.
func (j *Journal) Begin(ctx context.Context, cfg types.HarvestConfig, total int) (*Run, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, output_dir, api_base, total) VALUES (?, ?, ?, ?, ?)`,
		id, now().UTC().Format(time.RFC3339Nano), cfg.OutputDir, cfg.APIBase, total,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return &Run{j: j, ID: id}, nil
}

// Record appends one symbol outcome to the run.
func (r *Run) Record(ctx context.Context, o types.SymbolOutcome) error {
	fetchedJSON, _ := json.Marshal(o.Fetched)
	missingJSON, _ := json.Marshal(o.Missing)
	_, err := r.j.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, symbol, identifier, state, fetched, missing,
			images_downloaded, images_failed, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, o.Symbol, o.Identifier, string(o.State),
		string(fetchedJSON), string(missingJSON),
		o.ImagesDownloaded, o.ImagesFailed, o.Err,
		now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", o.Symbol, err)
	}
	return nil
}

// Finish stores the final counts of the run.
func (r *Run) Finish(ctx context.Context, succeeded, failed int) error {
	_, err := r.j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, failed = ? WHERE id = ?`,
		now().UTC().Format(time.RFC3339Nano), succeeded, failed, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// LatestRun returns the ID of the most recently started run.
func (j *Journal) LatestRun(ctx context.Context) (string, error) {
	var id string
	err := j.db.QueryRowContext(ctx,
		`SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("querying latest run: %w", err)
	}
	return id, nil
}

// Entry is one recorded symbol outcome.
type Entry struct {
	types.SymbolOutcome
	RunID      string
	RecordedAt time.Time
}

// Outcomes returns every outcome of runID in recording order. When
// failedOnly is set, only failed symbols are returned.
func (j *Journal) Outcomes(ctx context.Context, runID string, failedOnly bool) ([]Entry, error) {
	var qb strings.Builder
	qb.WriteString(
		`SELECT run_id, symbol, identifier, state, fetched, missing,
			images_downloaded, images_failed, error, recorded_at
		FROM outcomes WHERE run_id = ?`)
	args := []any{runID}
	if failedOnly {
		qb.WriteString(` AND state = ?`)
		args = append(args, string(types.StateFailed))
	}
	qb.WriteString(` ORDER BY id`)

	rows, err := j.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			state       string
			identifier  sql.NullString
			fetchedJSON sql.NullString
			missingJSON sql.NullString
			errText     sql.NullString
			recordedAt  string
		)
		if err := rows.Scan(&e.RunID, &e.Symbol, &identifier, &state, &fetchedJSON, &missingJSON,
			&e.ImagesDownloaded, &e.ImagesFailed, &errText, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		e.Identifier = identifier.String
		e.State = types.SymbolState(state)
		e.Err = errText.String
		if fetchedJSON.Valid {
			if err := json.Unmarshal([]byte(fetchedJSON.String), &e.Fetched); err != nil {
				return nil, fmt.Errorf("scanning outcome %s: fetched: %w", e.Symbol, err)
			}
		}
		if missingJSON.Valid {
			if err := json.Unmarshal([]byte(missingJSON.String), &e.Missing); err != nil {
				return nil, fmt.Errorf("scanning outcome %s: missing: %w", e.Symbol, err)
			}
		}
		if t, perr := time.Parse(time.RFC3339Nano, recordedAt); perr == nil {
			e.RecordedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Failures returns the failed outcomes of runID.
func (j *Journal) Failures(ctx context.Context, runID string) ([]Entry, error) {
	return j.Outcomes(ctx, runID, true)
}
