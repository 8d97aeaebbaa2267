// Package store owns the PostgreSQL connection, schema migrations and the
// startup schema capability check.
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSchemaMissing indicates the backing tables are not provisioned. It is a
// deployment error, distinct from any per-record lookup miss.
var ErrSchemaMissing = errors.New("required tables are not provisioned")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect creates a pgx connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// Migrate applies the embedded SQL migrations.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("opening migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("initializing migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied", "version", version, "dirty", dirty)

	return nil
}

// migrateURL rewrites a postgres:// DSN to the pgx5:// scheme golang-migrate
// routes to its pgx v5 driver.
func migrateURL(databaseURL string) string {
	if rest, ok := strings.CutPrefix(databaseURL, "postgresql://"); ok {
		return "pgx5://" + rest
	}
	if rest, ok := strings.CutPrefix(databaseURL, "postgres://"); ok {
		return "pgx5://" + rest
	}
	return databaseURL
}

// CheckSchema verifies once, at startup, that every table this service reads
// or writes exists. A failure here means a deployment error, not a denial.
func CheckSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range []string{"administrators", "surface_role_tags"} {
		var reg *string
		if err := pool.QueryRow(ctx, "SELECT to_regclass($1)::text", table).Scan(&reg); err != nil {
			return fmt.Errorf("checking relation %q: %w", table, err)
		}
		if reg == nil {
			return fmt.Errorf("relation %q: %w", table, ErrSchemaMissing)
		}
	}
	return nil
}

// IsUndefinedTable reports whether err is PostgreSQL's undefined_table error.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
