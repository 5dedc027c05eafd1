package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"

	"github.com/wonny/valuepool/internal/contracts"
)

// StatusStore is the collector's checkpoint: one row per (job, code)
type StatusStore interface {
	Get(ctx context.Context, job, code string) (*contracts.FetchStatus, error)
	MarkPending(ctx context.Context, job, code string) error
	Mark(ctx context.Context, job, code string, state contracts.FetchState, rows int, errMsg string) error
	List(ctx context.Context, job string) ([]contracts.FetchStatus, error)
}

const statusSchema = `
CREATE TABLE IF NOT EXISTS fetch_status (
	job        TEXT    NOT NULL,
	code       TEXT    NOT NULL,
	state      TEXT    NOT NULL,
	attempts   INTEGER NOT NULL DEFAULT 0,
	rows       INTEGER NOT NULL DEFAULT 0,
	last_error TEXT    NOT NULL DEFAULT '',
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (job, code)
)`

// SQLiteStatusStore keeps checkpoints in a local SQLite file.
// A single connection serialises writes from the worker pool.
type SQLiteStatusStore struct {
	db *sql.DB
}

// OpenStatusStore opens (or creates) the database at path. ":memory:" works for tests.
func OpenStatusStore(ctx context.Context, path string) (*SQLiteStatusStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, statusSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create status table: %w", err)
	}
	return &SQLiteStatusStore{db: db}, nil
}

func (s *SQLiteStatusStore) Close() error {
	return s.db.Close()
}

// Get returns nil without error when the code has no checkpoint yet
func (s *SQLiteStatusStore) Get(ctx context.Context, job, code string) (*contracts.FetchStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT code, state, attempts, rows, last_error, updated_at
		FROM fetch_status WHERE job = ? AND code = ?`, job, code)

	st, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get status %s/%s: %w", job, code, err)
	}
	return st, nil
}

// MarkPending records an attempt before fetching, so a crash leaves the code retryable
func (s *SQLiteStatusStore) MarkPending(ctx context.Context, job, code string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_status (job, code, state, attempts, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (job, code) DO UPDATE SET
			state = excluded.state,
			attempts = fetch_status.attempts + 1,
			updated_at = excluded.updated_at`,
		job, code, string(contracts.FetchPending), now())
	if err != nil {
		return fmt.Errorf("mark pending %s/%s: %w", job, code, err)
	}
	return nil
}

func (s *SQLiteStatusStore) Mark(ctx context.Context, job, code string, state contracts.FetchState, rows int, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_status (job, code, state, rows, last_error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (job, code) DO UPDATE SET
			state = excluded.state,
			rows = excluded.rows,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`,
		job, code, string(state), rows, errMsg, now())
	if err != nil {
		return fmt.Errorf("mark %s %s/%s: %w", state, job, code, err)
	}
	return nil
}

// List returns every checkpoint of job ordered by code
func (s *SQLiteStatusStore) List(ctx context.Context, job string) ([]contracts.FetchStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, state, attempts, rows, last_error, updated_at
		FROM fetch_status WHERE job = ? ORDER BY code`, job)
	if err != nil {
		return nil, fmt.Errorf("list status %s: %w", job, err)
	}
	defer rows.Close()

	var out []contracts.FetchStatus
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// Jobs lists the job names with checkpoints
func (s *SQLiteStatusStore) Jobs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT job FROM fetch_status ORDER BY job`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []string
	for rows.Next() {
		var j string
		if err := rows.Scan(&j); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Counts tallies the states of job
func Counts(statuses []contracts.FetchStatus) map[contracts.FetchState]int {
	out := make(map[contracts.FetchState]int)
	for _, st := range statuses {
		out[st.State]++
	}
	return out
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStatus(row rowScanner) (*contracts.FetchStatus, error) {
	var (
		st      contracts.FetchStatus
		state   string
		updated string
	)
	if err := row.Scan(&st.Code, &state, &st.Attempts, &st.Rows, &st.LastError, &updated); err != nil {
		return nil, err
	}
	st.State = contracts.FetchState(state)
	st.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &st, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
