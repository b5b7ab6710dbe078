package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jonwraymond/blockpress/hooks"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/store/migrations"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Sentinel errors.
var (
	ErrNotFound    = errors.New("store: not found")
	ErrInvalidPath = errors.New("store: database path is required")
	ErrInvalid     = errors.New("store: invalid argument")
)

// Config configures Open.
type Config struct {
	// Path is the database file, or MemoryPath.
	Path string `mapstructure:"path" yaml:"path" json:"path" validate:"required"`
	// BusyTimeout is how long SQLite waits on a locked database before
	// returning a busy error.
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" json:"busy_timeout"`
	// MaxOpenConns caps the connection pool. Ignored for MemoryPath, which
	// uses a single connection.
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns" json:"max_open_conns" validate:"gte=0"`
	// SkipMigrations leaves the schema untouched on Open.
	SkipMigrations bool `mapstructure:"skip_migrations" yaml:"skip_migrations" json:"skip_migrations"`
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 4
	}
}

// Request is a prepared SQL statement with its arguments.
type Request struct {
	SQL  string
	Args []any
}

// Option configures a Store.
type Option func(*Store)

// WithHooks sets the registry whose actions mutations fire.
func WithHooks(h *hooks.Registry) Option {
	return func(s *Store) {
		if h != nil {
			s.hooks = h
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store is a SQLite-backed content store.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: lock contention surfaces as errors for which IsBusy is true.
type Store struct {
	db     *sql.DB
	hooks  *hooks.Registry
	logger observe.Logger
}

// Open opens the database at cfg.Path and applies pending migrations.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	cfg.ApplyDefaults()
	if cfg.Path == "" {
		return nil, ErrInvalidPath
	}

	s := &Store{
		hooks:  hooks.NewRegistry(),
		logger: observe.NoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if cfg.Path == MemoryPath {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	s.db = db

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if !cfg.SkipMigrations {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

func dsn(cfg Config) string {
	pragmas := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()),
		"_pragma=foreign_keys(1)",
	}
	if cfg.Path == MemoryPath {
		return "file::memory:?" + strings.Join(pragmas, "&")
	}
	pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	return "file:" + cfg.Path + "?" + strings.Join(pragmas, "&")
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Info(ctx, "running database migrations")

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("store: create migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("store: create migration source: %w", err)
	}
	// Closing the migrate instance would close s.db.
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("store: create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migration failed: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("store: migration version: %w", verr)
	}
	if dirty {
		s.logger.Warn(ctx, "database schema is in dirty state",
			observe.Field{Key: "version", Value: version})
	}
	if errors.Is(err, migrate.ErrNoChange) {
		s.logger.Debug(ctx, "database schema is up to date",
			observe.Field{Key: "version", Value: version})
	} else {
		s.logger.Info(ctx, "database migrations applied",
			observe.Field{Key: "version", Value: version})
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Hooks returns the registry mutations fire on.
func (s *Store) Hooks() *hooks.Registry { return s.hooks }

// Query runs req after restoring escaped placeholders. The caller must
// close the returned rows.
func (s *Store) Query(ctx context.Context, req Request) (*sql.Rows, error) {
	q, args := prepare(req)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	return rows, nil
}

// QueryRow runs req and returns its first row.
func (s *Store) QueryRow(ctx context.Context, req Request) *sql.Row {
	q, args := prepare(req)
	return s.db.QueryRowContext(ctx, q, args...)
}

// QueryInt64s runs req and collects its first column.
func (s *Store) QueryInt64s(ctx context.Context, req Request) ([]int64, error) {
	rows, err := s.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return out, nil
}

func prepare(req Request) (string, []any) {
	args := make([]any, len(req.Args))
	for i, a := range req.Args {
		if str, ok := a.(string); ok {
			a = RemovePlaceholderEscape(str)
		}
		args[i] = a
	}
	return RemovePlaceholderEscape(req.SQL), args
}

// IsBusy reports whether err is SQLite lock contention worth retrying.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// inTx runs fn in a transaction.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// placeholders returns "?,?,..." for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
