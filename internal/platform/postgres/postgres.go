package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"harvester/internal/logger"
)

type Options struct {
	DSN      string
	MaxConns int32
}

type Service struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Service{pool: pool, log: logger.New("Postgres")}, nil
}

func (s *Service) Pool() *pgxpool.Pool { return s.pool }
func (s *Service) Close()              { s.pool.Close() }

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		s.log.LogErrorf("Postgres health check failed: %v", err)
		return fmt.Errorf("postgres ping failed: %v", err)
	}
	return nil
}

// Migrate creates the schema when it does not exist yet. The service owns its
// tables outright, so plain CREATE IF NOT EXISTS is enough.
func (s *Service) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'pending',
	total_urls INTEGER NOT NULL DEFAULT 0,
	completed_urls INTEGER NOT NULL DEFAULT 0,
	failed_urls INTEGER NOT NULL DEFAULT 0,
	current_url TEXT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	job_id TEXT NOT NULL REFERENCES jobs(id),
	title TEXT,
	price TEXT,
	description TEXT,
	part_number TEXT,
	ean TEXT,
	brand TEXT,
	color TEXT,
	condition TEXT,
	image_url TEXT,
	additional_images TEXT,
	source_url TEXT NOT NULL,
	features TEXT,
	availability TEXT,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_products_job_id ON products(job_id);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
