package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"grade_watchdog/internal/domain/result"
	"grade_watchdog/internal/domain/session"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	defaultMaxOpenConns    = 2
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
	connectTimeout         = 10 * time.Second
)

// Row names in the watchdog_state table.
const (
	stateCookies = "cookies"
	stateHistory = "history"
	stateUsers   = "users"
)

const createStateTable = `CREATE TABLE IF NOT EXISTS watchdog_state (
    name       TEXT PRIMARY KEY,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// NewPostgresConnection opens the state database. The pool is kept small
// since only one check cycle talks to it at a time.
func NewPostgresConnection(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := preparePool(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// preparePool sizes the pool and checks the database answers within
// connectTimeout.
func preparePool(ctx context.Context, db *sql.DB) error {
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("state database unreachable: %w", err)
	}
	return nil
}

// PostgresStateStore keeps the same three records as FileStore in one
// key/value table. The users row can be edited with plain SQL between cycles.
type PostgresStateStore struct {
	db *sql.DB
}

func NewPostgresStateStore(db *sql.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

// EnsureSchema creates the state table if it does not exist.
func (r *PostgresStateStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createStateTable); err != nil {
		return fmt.Errorf("error creating watchdog_state table: %w", err)
	}
	return nil
}

func (r *PostgresStateStore) LoadHistory(ctx context.Context) (result.Snapshot, error) {
	raw, err := r.load(ctx, stateHistory)
	if err != nil {
		return result.Snapshot{}, err
	}
	return decodeHistory(raw)
}

func (r *PostgresStateStore) SaveHistory(ctx context.Context, snapshot result.Snapshot) error {
	return r.save(ctx, stateHistory, snapshot)
}

func (r *PostgresStateStore) LoadTargets(ctx context.Context) (result.Targets, error) {
	raw, err := r.load(ctx, stateUsers)
	if err != nil {
		return result.Targets{}, err
	}
	return decodeTargets(raw)
}

func (r *PostgresStateStore) LoadCookies(ctx context.Context) ([]session.Cookie, error) {
	raw, err := r.load(ctx, stateCookies)
	if err != nil {
		return nil, err
	}
	return decodeCookies(raw)
}

func (r *PostgresStateStore) SaveCookies(ctx context.Context, cookies []session.Cookie) error {
	if cookies == nil {
		cookies = []session.Cookie{}
	}
	return r.save(ctx, stateCookies, cookies)
}

func (r *PostgresStateStore) load(ctx context.Context, name string) ([]byte, error) {
	query := `SELECT payload FROM watchdog_state WHERE name = $1`
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading %s state: %w", name, err)
	}
	return payload, nil
}

func (r *PostgresStateStore) save(ctx context.Context, name string, v any) error {
	payload, err := encodeState(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s state: %w", name, err)
	}
	query := `INSERT INTO watchdog_state (name, payload, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, name, payload); err != nil {
		return fmt.Errorf("error saving %s state: %w", name, err)
	}
	return nil
}
