package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/fs"
)

const migrationsDir = "migrations"

// Open connects to the configured SQL database and waits for it to answer.
// Supported drivers are `postgres` and `sqlite`.
func Open(conf core.StorageConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch conf.Driver {
	case "postgres":
		db, err = sqlx.Open("postgres", conf.DSN)
	case "sqlite":
		db, err = openSQLite(conf.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver %q", conf.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if err = ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openSQLite(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	if path := strings.SplitN(dsn, "?", 2)[0]; path != ":memory:" && !strings.HasPrefix(path, "file::memory:") {
		if err := os.MkdirAll(filepath.Dir(strings.TrimPrefix(path, "file:")), 0o750); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps in-memory databases alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	return sqlx.NewDb(sqlDB, "sqlite3"), nil
}

var pingBackoff = 100 * time.Millisecond // mockable

// ping waits for the database to be ready. Waits a bit longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * pingBackoff)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func gooseDialect(driverName string) string {
	if driverName == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

// RunMigrations runs a goose command (up, down, status, redo, version, ...) against the embedded migrations.
func RunMigrations(db *sqlx.DB, command string, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect(gooseDialect(db.DriverName())); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	if err := goose.Run(command, db.DB, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migrations %q", command)
	}
	return nil
}

func Migrate(db *sqlx.DB) error {
	if err := RunMigrations(db, "up"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// Store keeps storage slots in the `storage_items` table.
type Store struct {
	db  *sqlx.DB
	ttl time.Duration
}

var nowFunc = time.Now // mockable

// NewStore returns a Store over a migrated database; a ttl > 0 ignores rows not set for that long.
func NewStore(db *sqlx.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var row struct {
		Value     string `db:"value"`
		UpdatedAt int64  `db:"updated_at"`
	}
	q := s.db.Rebind("SELECT value, updated_at FROM storage_items WHERE key = ?")
	if err := s.db.GetContext(ctx, &row, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "reading %q", key)
	}

	if s.ttl > 0 && nowFunc().After(time.Unix(row.UpdatedAt, 0).Add(s.ttl)) {
		return "", false, nil
	}
	return row.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	q := s.db.Rebind(`
		INSERT INTO storage_items (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, q, key, value, nowFunc().Unix()); err != nil {
		return errors.Wrapf(err, "writing %q", key)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM storage_items WHERE key IN (?)", keys)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = s.db.ExecContext(ctx, s.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "removing keys")
	}
	return nil
}

// Purge deletes the rows that expired; it returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	q := s.db.Rebind("DELETE FROM storage_items WHERE updated_at < ?")
	res, err := s.db.ExecContext(ctx, q, nowFunc().Add(-s.ttl).Unix())
	if err != nil {
		return 0, errors.Wrap(err, "purging expired rows")
	}
	return res.RowsAffected()
}
