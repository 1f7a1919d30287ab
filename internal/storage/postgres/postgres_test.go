package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/FranksOps/qaharvest/internal/storage/storagetest"
)

func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("QAHARVEST_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping Postgres backend test: QAHARVEST_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	b, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create Postgres backend: %v", err)
	}
	defer b.Close()

	pb := b.(*postgresBackend)
	if _, err := pb.pool.Exec(ctx, `TRUNCATE visits`); err != nil {
		t.Fatalf("Failed to truncate visits: %v", err)
	}

	storagetest.Run(t, b)
}
