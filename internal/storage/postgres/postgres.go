package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/qaharvest/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS visits (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	records INTEGER NOT NULL,
	text_length INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	detected_bot BOOLEAN NOT NULL,
	detection_src TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS visits_run_id ON visits (run_id);
`

// New creates a Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, v *storage.Visit) error {
	query := `
	INSERT INTO visits (
		id, run_id, url, status, error, records, text_length, duration_ms, detected_bot, detection_src, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := b.pool.Exec(ctx, query,
		v.ID,
		v.RunID,
		v.URL,
		string(v.Status),
		v.Error,
		v.Records,
		v.TextLength,
		v.Duration.Milliseconds(),
		v.DetectedBot,
		v.DetectionSrc,
		v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert visit %s: %w", v.ID, err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Visit, error) {
	query := `SELECT id, run_id, url, status, error, records, text_length, duration_ms, detected_bot, detection_src, created_at FROM visits WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.URL != "" {
		query += fmt.Sprintf(` AND url = $%d`, paramCount)
		args = append(args, filter.URL)
		paramCount++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, paramCount)
		args = append(args, string(filter.Status))
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	var visits []*storage.Visit
	for rows.Next() {
		var v storage.Visit
		var status string
		var durationMs int64

		err := rows.Scan(
			&v.ID, &v.RunID, &v.URL, &status, &v.Error, &v.Records, &v.TextLength,
			&durationMs, &v.DetectedBot, &v.DetectionSrc, &v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}

		v.Status = storage.Status(status)
		v.Duration = time.Duration(durationMs) * time.Millisecond
		visits = append(visits, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}

	return visits, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
