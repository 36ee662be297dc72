package product

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"harvester/internal/platform/postgres"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists product records. Rows are append-only: once written for a
// job they are never modified.
type Store struct{ db DB }

func NewStore(pg *postgres.Service) *Store { return &Store{db: pg.Pool()} }

// NewStoreWithDB constructs a store from an existing connection (for tests).
func NewStoreWithDB(db DB) *Store { return &Store{db: db} }

func (s *Store) Insert(ctx context.Context, p *Product) error {
	const q = `INSERT INTO products (
		job_id, title, price, description, part_number, ean, brand, color,
		condition, image_url, additional_images, source_url, features,
		availability, scraped_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := s.db.Exec(ctx, q,
		p.JobID,
		p.Title,
		p.Price,
		p.Description,
		p.PartNumber,
		p.EAN,
		p.Brand,
		p.Color,
		p.Condition,
		p.ImageURL,
		p.AdditionalImages,
		p.SourceURL,
		p.Features,
		p.Availability,
		p.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// ListByJob returns all records for a job in insertion order. An empty slice
// is a legitimate result for a job that has produced nothing yet.
func (s *Store) ListByJob(ctx context.Context, jobID string) ([]Product, error) {
	const q = `SELECT id, job_id, title, price, description, part_number, ean,
		brand, color, condition, image_url, additional_images, source_url,
		features, availability, scraped_at
		FROM products WHERE job_id = $1 ORDER BY id`
	rows, err := s.db.Query(ctx, q, jobID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID,
			&p.JobID,
			&p.Title,
			&p.Price,
			&p.Description,
			&p.PartNumber,
			&p.EAN,
			&p.Brand,
			&p.Color,
			&p.Condition,
			&p.ImageURL,
			&p.AdditionalImages,
			&p.SourceURL,
			&p.Features,
			&p.Availability,
			&p.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}
