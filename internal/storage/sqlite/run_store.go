package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrRunNotFound is returned when run id is unknown
var ErrRunNotFound = errors.New("run not found")

// Run describes a single tracker invocation
type Run struct {
	ID         uuid.UUID
	InputPath  string
	StartedAt  time.Time
	Frames     int
	Width      int
	Height     int
	ConfigYAML string
}

// RunStore manages persistence of runs
type RunStore struct {
	db *DB
}

// NewRunStore creates RunStore backed by the database
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Insert stores a finished run
func (rs *RunStore) Insert(ctx context.Context, run Run) error {
	_, err := rs.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, input_path, started_at, frames, width, height, config_yaml) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.InputPath, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Frames, run.Width, run.Height, run.ConfigYAML,
	)
	if err != nil {
		return errors.Wrapf(err, "can't insert run %s", run.ID)
	}
	return nil
}

// Get returns run by id
func (rs *RunStore) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := rs.db.QueryRowContext(ctx,
		`SELECT run_id, input_path, started_at, frames, width, height, config_yaml FROM runs WHERE run_id = ?`,
		id.String(),
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Wrapf(ErrRunNotFound, "%s", id)
	}
	return run, err
}

// List returns every run, most recent first
func (rs *RunStore) List(ctx context.Context) ([]Run, error) {
	rows, err := rs.db.QueryContext(ctx,
		`SELECT run_id, input_path, started_at, frames, width, height, config_yaml FROM runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "can't list runs")
	}
	defer rows.Close()
	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, errors.Wrap(rows.Err(), "can't iterate runs")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run       Run
		id        string
		startedAt string
	)
	if err := s.Scan(&id, &run.InputPath, &startedAt, &run.Frames, &run.Width, &run.Height, &run.ConfigYAML); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, errors.Wrap(err, "can't scan run")
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return Run{}, errors.Wrapf(err, "bad run id '%s'", id)
	}
	run.ID = parsedID
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, errors.Wrapf(err, "bad start time of run %s", id)
	}
	return run, nil
}
