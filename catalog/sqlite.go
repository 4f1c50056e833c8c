package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kinase-msm/kinmsm/tica"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps the catalog in a SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	params, err := json.Marshal(run.Params)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, protein, kind, params, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			protein = excluded.protein,
			kind = excluded.kind,
			params = excluded.params,
			created_at = excluded.created_at
	`, run.ID, run.Protein, run.Kind, params, run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	for i, a := range run.Artifacts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (run_id, ord, path, digest, size)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, i, a.Path, a.Digest, a.Size)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	var (
		run     = Run{ID: id}
		params  []byte
		created string
	)
	err = db.QueryRowContext(ctx, `SELECT protein, kind, params, created_at FROM runs WHERE id = ?`, id).
		Scan(&run.Protein, &run.Kind, &params, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	if err := json.Unmarshal(params, &run.Params); err != nil {
		return Run{}, false, fmt.Errorf("decode params of run %s: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Run{}, false, fmt.Errorf("decode created_at of run %s: %w", id, err)
	}

	rows, err := db.QueryContext(ctx, `SELECT path, digest, size FROM artifacts WHERE run_id = ? ORDER BY ord`, id)
	if err != nil {
		return Run{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Path, &a.Digest, &a.Size); err != nil {
			return Run{}, false, err
		}
		run.Artifacts = append(run.Artifacts, a)
	}
	return run, true, rows.Err()
}

func (s *SQLiteStore) ListRuns(ctx context.Context, protein string) ([]Run, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id FROM runs
		WHERE ? = '' OR protein = ?
		ORDER BY created_at, id
	`, protein, protein)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Run, 0, len(ids))
	for _, id := range ids {
		run, ok, err := s.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, run)
		}
	}
	return out, nil
}

func (s *SQLiteStore) SavePath(ctx context.Context, runID string, steps []tica.Step) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM path_steps WHERE run_id = ?`, runID); err != nil {
		return err
	}
	for _, st := range steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO path_steps (run_id, step, requested, achieved, traj, frame)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, st.Index, st.Requested, st.Achieved, st.Traj, st.Frame)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetPath(ctx context.Context, runID string) ([]tica.Step, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT step, requested, achieved, traj, frame FROM path_steps
		WHERE run_id = ?
		ORDER BY step
	`, runID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var steps []tica.Step
	for rows.Next() {
		var st tica.Step
		if err := rows.Scan(&st.Index, &st.Requested, &st.Achieved, &st.Traj, &st.Frame); err != nil {
			return nil, false, err
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return steps, len(steps) > 0, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			protein TEXT NOT NULL,
			kind TEXT NOT NULL,
			params BLOB NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT NOT NULL,
			ord INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			size INTEGER NOT NULL,
			PRIMARY KEY (run_id, ord)
		);
		CREATE TABLE IF NOT EXISTS path_steps (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			requested REAL NOT NULL,
			achieved REAL NOT NULL,
			traj TEXT NOT NULL,
			frame INTEGER NOT NULL,
			PRIMARY KEY (run_id, step)
		);
	`)
	return err
}
