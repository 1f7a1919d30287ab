package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FranksOps/qaharvest/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS visits (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	records INTEGER NOT NULL,
	text_length INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	detected_bot BOOLEAN NOT NULL,
	detection_src TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS visits_run_id ON visits (run_id);
`

// New creates a SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, v *storage.Visit) error {
	query := `
	INSERT INTO visits (
		id, run_id, url, status, error, records, text_length, duration_ms, detected_bot, detection_src, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
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
		v.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert visit %s: %w", v.ID, err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Visit, error) {
	query := `SELECT id, run_id, url, status, error, records, text_length, duration_ms, detected_bot, detection_src, created_at FROM visits WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.URL != "" {
		query += ` AND url = ?`
		args = append(args, filter.URL)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite needs a LIMIT before OFFSET.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	var visits []*storage.Visit
	for rows.Next() {
		var v storage.Visit
		var status string
		var errText, detectionSrc sql.NullString
		var durationMs int64

		err := rows.Scan(
			&v.ID, &v.RunID, &v.URL, &status, &errText, &v.Records, &v.TextLength,
			&durationMs, &v.DetectedBot, &detectionSrc, &v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}

		v.Status = storage.Status(status)
		v.Error = errText.String
		v.DetectionSrc = detectionSrc.String
		v.Duration = time.Duration(durationMs) * time.Millisecond
		visits = append(visits, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate visits: %w", err)
	}

	return visits, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
