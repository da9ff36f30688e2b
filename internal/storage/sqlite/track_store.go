package sqlite

import (
	"context"
	"fmt"
	"image/color"

	"github.com/LdDl/fbtrack-go/mot"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TrackStore manages persistence of trajectories
type TrackStore struct {
	db *DB
}

// NewTrackStore creates TrackStore backed by the database
func NewTrackStore(db *DB) *TrackStore {
	return &TrackStore{db: db}
}

// SaveSnapshot replaces every stored track of the run with the given records in a single transaction
func (ts *TrackStore) SaveSnapshot(ctx context.Context, runID uuid.UUID, records []mot.TrackRecord) error {
	tx, err := ts.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	defer tx.Rollback()

	id := runID.String()
	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE run_id = ?`, id); err != nil {
		return errors.Wrap(err, "can't delete samples")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE run_id = ?`, id); err != nil {
		return errors.Wrap(err, "can't delete tracks")
	}
	trackStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tracks (run_id, track_id, state, color, created_frame, last_frame) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "can't prepare track insert")
	}
	defer trackStmt.Close()
	sampleStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (run_id, track_id, frame, x, y) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "can't prepare sample insert")
	}
	defer sampleStmt.Close()

	for _, record := range records {
		if len(record.Samples) == 0 {
			return errors.Errorf("track %d has no samples", record.ID)
		}
		first := record.Samples[0].Frame
		last := record.Samples[len(record.Samples)-1].Frame
		if _, err := trackStmt.ExecContext(ctx, id, record.ID, record.State.String(), formatColor(record.Color), first, last); err != nil {
			return errors.Wrapf(err, "can't insert track %d", record.ID)
		}
		for _, s := range record.Samples {
			if _, err := sampleStmt.ExecContext(ctx, id, record.ID, s.Frame, s.X, s.Y); err != nil {
				return errors.Wrapf(err, "can't insert sample %d of track %d", s.Frame, record.ID)
			}
		}
	}
	return errors.Wrap(tx.Commit(), "can't commit snapshot")
}

// LoadSnapshot returns stored tracks of the run ordered by id with samples ordered by frame
func (ts *TrackStore) LoadSnapshot(ctx context.Context, runID uuid.UUID) ([]mot.TrackRecord, error) {
	id := runID.String()
	rows, err := ts.db.QueryContext(ctx,
		`SELECT track_id, state, color FROM tracks WHERE run_id = ? ORDER BY track_id`, id)
	if err != nil {
		return nil, errors.Wrap(err, "can't query tracks")
	}
	records := []mot.TrackRecord{}
	index := make(map[int]int)
	for rows.Next() {
		var (
			record     mot.TrackRecord
			state, hex string
		)
		if err := rows.Scan(&record.ID, &state, &hex); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "can't scan track")
		}
		if record.State, err = parseState(state); err != nil {
			rows.Close()
			return nil, err
		}
		if record.Color, err = parseColor(hex); err != nil {
			rows.Close()
			return nil, err
		}
		index[record.ID] = len(records)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "can't iterate tracks")
	}
	rows.Close()

	// Single connection: tracks cursor has to be closed before this query
	sampleRows, err := ts.db.QueryContext(ctx,
		`SELECT track_id, frame, x, y FROM samples WHERE run_id = ? ORDER BY track_id, frame`, id)
	if err != nil {
		return nil, errors.Wrap(err, "can't query samples")
	}
	defer sampleRows.Close()
	for sampleRows.Next() {
		var (
			trackID int
			s       mot.Sample
		)
		if err := sampleRows.Scan(&trackID, &s.Frame, &s.X, &s.Y); err != nil {
			return nil, errors.Wrap(err, "can't scan sample")
		}
		i, ok := index[trackID]
		if !ok {
			return nil, errors.Errorf("sample of unknown track %d", trackID)
		}
		records[i].Samples = append(records[i].Samples, s)
	}
	return records, errors.Wrap(sampleRows.Err(), "can't iterate samples")
}

// CountSamples returns number of stored samples of the run
func (ts *TrackStore) CountSamples(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	err := ts.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples WHERE run_id = ?`, runID.String()).Scan(&n)
	return n, errors.Wrap(err, "can't count samples")
}

func formatColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func parseColor(hex string) (color.RGBA, error) {
	var c color.RGBA
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return color.RGBA{}, errors.Wrapf(err, "bad color '%s'", hex)
	}
	c.A = 255
	return c, nil
}

func parseState(s string) (mot.TrackState, error) {
	switch s {
	case mot.TrackActive.String():
		return mot.TrackActive, nil
	case mot.TrackTerminated.String():
		return mot.TrackTerminated, nil
	default:
		return 0, errors.Errorf("unknown track state '%s'", s)
	}
}
