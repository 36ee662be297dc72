package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"harvester/internal/platform/postgres"
)

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists jobs in Postgres. A job row is written only by the worker
// that owns the job; readers tolerate interleaved field updates.
type Store struct{ db DB }

func NewStore(pg *postgres.Service) *Store { return &Store{db: pg.Pool()} }

// NewStoreWithDB constructs a store from an existing connection (for tests).
func NewStoreWithDB(db DB) *Store { return &Store{db: db} }

func (s *Store) Create(ctx context.Context, id string, totalURLs int) error {
	const q = `INSERT INTO jobs (id, status, total_urls) VALUES ($1, $2, $3)`
	if _, err := s.db.Exec(ctx, q, id, StatusPending, totalURLs); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// MarkRunning persists the pending->running transition. It must happen before
// the first URL is touched so observers never see pending once work started.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	const q = `UPDATE jobs SET status = $2 WHERE id = $1`
	if _, err := s.db.Exec(ctx, q, id, StatusRunning); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return nil
}

// SetProgress records the URL about to be processed and the counters so far.
func (s *Store) SetProgress(ctx context.Context, id string, completed, failed int, currentURL string) error {
	const q = `UPDATE jobs SET completed_urls = $2, failed_urls = $3, current_url = $4 WHERE id = $1`
	if _, err := s.db.Exec(ctx, q, id, completed, failed, currentURL); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, id string, totalURLs, failed int) error {
	const q = `UPDATE jobs
		SET status = $2, completed_urls = $3, failed_urls = $4, current_url = NULL, completed_at = now()
		WHERE id = $1`
	if _, err := s.db.Exec(ctx, q, id, StatusCompleted, totalURLs, failed); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

func (s *Store) Fail(ctx context.Context, id string, errMsg string) error {
	const q = `UPDATE jobs SET status = $2, error_message = $3, completed_at = now() WHERE id = $1`
	if _, err := s.db.Exec(ctx, q, id, StatusFailed, errMsg); err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

const jobColumns = `id, status, total_urls, completed_urls, failed_urls, current_url, error_message, created_at, completed_at`

func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	q := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1`, jobColumns)
	row := s.db.QueryRow(ctx, q, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// List returns the most recent jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	q := fmt.Sprintf(`SELECT %s FROM jobs ORDER BY created_at DESC LIMIT $1`, jobColumns)
	rows, err := s.db.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0, limit)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	if err := row.Scan(
		&j.ID,
		&j.Status,
		&j.TotalURLs,
		&j.CompletedURLs,
		&j.FailedURLs,
		&j.CurrentURL,
		&j.ErrorMessage,
		&j.CreatedAt,
		&j.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &j, nil
}
