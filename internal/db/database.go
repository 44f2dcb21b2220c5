package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DialectFor picks postgres for postgres:// URLs and sqlite for anything else.
func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// DatabaseConnection is a database/sql handle plus the dialect its queries
// are rebound for.
type DatabaseConnection struct {
	*sql.DB
	Dialect Dialect
	pool    *pgxpool.Pool
}

// NewPostgresConnection wraps an already pinged pgx pool.
func NewPostgresConnection(pool *pgxpool.Pool) *DatabaseConnection {
	return &DatabaseConnection{
		DB:      stdlib.OpenDBFromPool(pool),
		Dialect: DialectPostgres,
		pool:    pool,
	}
}

// OpenSQLite opens (creating if needed) the sqlite database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*DatabaseConnection, error) {
	dsn := path
	if path != ":memory:" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = sqliteDSN(abs)
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &DatabaseConnection{DB: sqlDB, Dialect: DialectSQLite}, nil
}

// sqliteDSN builds a file: URI for an absolute path, escaping characters such
// as ? and # that would otherwise end the file name.
func sqliteDSN(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{
		Scheme:   "file",
		Path:     p,
		RawQuery: url.Values{"_pragma": {"busy_timeout(5000)", "journal_mode(WAL)"}}.Encode(),
	}
	return u.String()
}

// Close closes the database connection
func (db *DatabaseConnection) Close() error {
	err := db.DB.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// Rebind rewrites ? placeholders into $n for postgres.
func (db *DatabaseConnection) Rebind(query string) string {
	return Rebind(db.Dialect, query)
}

//go:embed sql/migrations/*/*.sql
var embedMigrations embed.FS

// Migrate runs the goose migrations for the connection's dialect.
// GOOSE_UP_TO and GOOSE_DOWN_TO pin a target version.
func (db *DatabaseConnection) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(embedMigrations, "sql/migrations/"+string(db.Dialect))
	if err != nil {
		return err
	}

	gooseDialect := goose.DialectSQLite3
	if db.Dialect == DialectPostgres {
		gooseDialect = goose.DialectPostgres
	}

	provider, err := goose.NewProvider(gooseDialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	currentVersion, err := provider.GetDBVersion(ctx)
	if err != nil {
		return err
	}
	for _, src := range provider.ListSources() {
		marker := " "
		if src.Version == currentVersion {
			marker = "*"
		}
		slog.Debug("migration", "current", marker, "source", filepath.Base(src.Path), "version", src.Version)
	}

	if down, ok := os.LookupEnv("GOOSE_DOWN_TO"); ok {
		target, err := strconv.ParseInt(down, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse GOOSE_DOWN_TO version: %w", err)
		}
		_, err = provider.DownTo(ctx, target)
		return err
	}

	if up, ok := os.LookupEnv("GOOSE_UP_TO"); ok {
		target, err := strconv.ParseInt(up, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse GOOSE_UP_TO version: %w", err)
		}
		_, err = provider.UpTo(ctx, target)
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		slog.Info("applied migration", "dialect", db.Dialect, "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}
