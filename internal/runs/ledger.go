package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/storefront/internal/config"
	"github.com/JonMunkholm/storefront/internal/core"
)

// Run statuses recorded in the ledger.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// advisoryKey is the pg_advisory_lock key shared by every storefront run.
const advisoryKey int64 = 0x73746f7265 // "store"

// DBTX is the subset of pgx used by the ledger.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          uuid PRIMARY KEY,
	command     text NOT NULL,
	status      text NOT NULL,
	started_at  timestamptz NOT NULL,
	finished_at timestamptz,
	detail      jsonb
)`

// Ledger records runs in Postgres and provides a cross-host run lock.
type Ledger struct {
	pool *pgxpool.Pool
	db   DBTX
	now  func() time.Time
}

// Open connects to DATABASE_URL and ensures the pipeline_runs table exists.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Ledger, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	l := &Ledger{pool: pool, db: pool, now: time.Now}
	if _, err := l.db.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create pipeline_runs: %w", err)
	}
	slog.Info("run ledger connected", "max_conns", cfg.MaxConns)
	return l, nil
}

// NewLedger wraps an existing connection. Lock requires a pool and is
// unavailable on a ledger built this way.
func NewLedger(db DBTX) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

func (l *Ledger) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}

// Start inserts a running row for id.
func (l *Ledger) Start(ctx context.Context, id uuid.UUID, command string) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO pipeline_runs (id, command, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, command, StatusRunning, l.now().UTC())
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// Finish sets the final status and JSON detail of run id.
func (l *Ledger) Finish(ctx context.Context, id uuid.UUID, status string, detail any) error {
	body, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("encode run detail: %w", err)
	}
	tag, err := l.db.Exec(ctx,
		`UPDATE pipeline_runs SET status = $2, finished_at = $3, detail = $4 WHERE id = $1`,
		id, status, l.now().UTC(), body)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record run finish: run %s not found", id)
	}
	return nil
}

// LastStatus returns the status of the most recent run of command.
func (l *Ledger) LastStatus(ctx context.Context, command string) (string, error) {
	var status string
	err := l.db.QueryRow(ctx,
		`SELECT status FROM pipeline_runs WHERE command = $1 ORDER BY started_at DESC LIMIT 1`,
		command).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last run: %w", err)
	}
	return status, nil
}

// advisoryLock holds a session-level advisory lock on one pooled connection.
type advisoryLock struct {
	conn *pgxpool.Conn
}

// Lock takes the storefront advisory lock without waiting. If another
// session holds it the error matches core.ErrLockHeld.
func (l *Ledger) Lock(ctx context.Context) (Lock, error) {
	if l.pool == nil {
		return nil, errors.New("advisory lock: ledger has no pool")
	}
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, advisoryKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, fmt.Errorf("%w: advisory lock %d", core.ErrLockHeld, advisoryKey)
	}
	return &advisoryLock{conn: conn}, nil
}

func (a *advisoryLock) Release() error {
	defer a.conn.Release()
	// Unlock must outlive a cancelled run context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, advisoryKey); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}
