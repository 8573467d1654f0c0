package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const dialect = "postgres"

func init() {
	migrate.SetTable("schema_migrations")
}

// MigrationSource exposes the embedded schema files.
func MigrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
}

// Migrate applies pending migrations (max <= 0 means all) in the given direction.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dir migrate.MigrationDirection, max int) (int, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := migrate.ExecMax(sqlDB, dialect, MigrationSource(), dir, max)
		done <- result{n: n, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("platform/db: migrate: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return res.n, fmt.Errorf("platform/db: migrate: %w", res.err)
		}
		slog.Default().InfoContext(ctx, "applied migrations", slog.Int("count", res.n))
		return res.n, nil
	}
}

// MigrationStatus lists applied migration records.
func MigrationStatus(pool *pgxpool.Pool) ([]*migrate.MigrationRecord, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	return records(sqlDB)
}

func records(db *sql.DB) ([]*migrate.MigrationRecord, error) {
	recs, err := migrate.GetMigrationRecords(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("platform/db: migration records: %w", err)
	}
	return recs, nil
}
