package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS          = 5000
	defaultMaxOpenConns    = 1
	defaultMaxIdleConns    = 1
	defaultConnMaxLifetime = 5 * time.Minute

	maxOpenConnsEnvKey    = "COLLABVC_DB_MAX_OPEN_CONNS"
	maxIdleConnsEnvKey    = "COLLABVC_DB_MAX_IDLE_CONNS"
	connMaxLifetimeEnvKey = "COLLABVC_DB_CONN_MAX_LIFETIME"

	// Pragmas ride on the DSN so every pooled connection gets them.
	dsnQuery  = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	memoryDSN = "file::memory:?" + dsnQuery
)

// Store wraps the SQLite database that holds workspaces, users, content
// metadata and version history.
type Store struct {
	db     *sql.DB
	path   string
	memory bool
	now    func() time.Time
}

// Open opens the SQLite database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	return openDSN(dsn, path, false)
}

// OpenMemory opens a private in-memory database. Its contents vanish on Close.
func OpenMemory() (*Store, error) {
	return openDSN(memoryDSN, ":memory:", true)
}

func openDSN(dsn, path string, memory bool) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := configureDB(db, memory); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path, memory: memory, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SetClock replaces the time source used for created_at and updated_at.
// A nil now restores the wall clock.
func (s *Store) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.now = now
}

// Path returns the database location, or ":memory:".
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	return s.db.PingContext(ctx)
}

// StoreInfo summarizes stored objects.
type StoreInfo struct {
	SchemaVersion int   `json:"schema_version"`
	Workspaces    int   `json:"workspaces"`
	Users         int   `json:"users"`
	Versions      int   `json:"versions"`
	Blobs         int   `json:"blobs"`
	BlobBytes     int64 `json:"blob_bytes"`
}

// Info returns schema version and object counts.
func (s *Store) Info(ctx context.Context) (StoreInfo, error) {
	var info StoreInfo
	version, err := currentVersion(s.db)
	if err != nil {
		return info, err
	}
	info.SchemaVersion = version

	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM workspaces),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM versions),
			(SELECT COUNT(*) FROM file_contents),
			(SELECT COALESCE(SUM(size_bytes), 0) FROM file_contents)
	`)
	if err := row.Scan(&info.Workspaces, &info.Users, &info.Versions, &info.Blobs, &info.BlobBytes); err != nil {
		return info, err
	}
	return info, nil
}

func configureDB(db *sql.DB, memory bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	if !memory {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL;",
			"PRAGMA synchronous = NORMAL;",
		)
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	if memory {
		// Every connection to :memory: is a separate database, so pin one
		// connection for the lifetime of the store.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return nil
	}

	db.SetMaxOpenConns(intFromEnv(maxOpenConnsEnvKey, defaultMaxOpenConns))
	db.SetMaxIdleConns(intFromEnv(maxIdleConnsEnvKey, defaultMaxIdleConns))
	db.SetConnMaxLifetime(durationFromEnv(connMaxLifetimeEnvKey, defaultConnMaxLifetime))

	return nil
}

func sqliteDSN(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path, RawQuery: dsnQuery}
	return u.String(), nil
}

func intFromEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}

// dbTimeLayout is fixed width so stored timestamps sort lexically.
const dbTimeLayout = "2006-01-02T15:04:05.000000000Z"

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func dbParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dbTimeLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
	}
	return t.UTC(), nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

type rowScanner interface {
	Scan(dest ...any) error
}
