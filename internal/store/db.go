package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"

	"github.com/jobflow/go-jobflow/internal/config"
	"github.com/jobflow/go-jobflow/internal/logger"
)

// DB is the pooled Postgres connection shared by the worker
type DB struct {
	Pool *sql.DB
	echo bool
	log  *logger.Logger
}

// Open connects with the pool limits from cfg and pings before returning
func Open(ctx context.Context, cfg config.PostgresConfig) (*DB, error) {
	dsn, err := cfg.DatabaseURL()
	if err != nil {
		return nil, err
	}

	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns())
	pool.SetMaxIdleConns(cfg.PoolSize)
	pool.SetConnMaxLifetime(cfg.PoolRecycle)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{Pool: pool, echo: cfg.Echo, log: logger.Named("store")}, nil
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

// Ping runs SELECT 1 and logs the failure instead of returning it
func (d *DB) Ping(ctx context.Context) bool {
	var one int
	if err := d.Pool.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		d.log.Error().Err(err).Msg("database connection failed")
		return false
	}
	return true
}

// WithTx runs fn in a transaction, committing on success and rolling back
// on error or panic
func (d *DB) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	sqlTx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	tx := &Tx{tx: sqlTx, echo: d.echo, log: d.log}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil {
				d.log.Error().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Tx wraps sql.Tx with statement echo and savepoints
type Tx struct {
	tx   *sql.Tx
	echo bool
	log  *logger.Logger
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.trace(query, args)
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	t.trace(query, args)
	return t.tx.QueryRowContext(ctx, query, args...)
}

var savepointName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Savepoint runs fn inside a savepoint. If fn fails only its work is undone
// and the transaction stays usable.
func (t *Tx) Savepoint(ctx context.Context, name string, fn func() error) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := t.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(); err != nil {
		if _, rbErr := t.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("rollback to savepoint %s: %w (after %v)", name, rbErr, err)
		}
		return err
	}
	if _, err := t.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}

func (t *Tx) trace(query string, args []any) {
	if t.echo {
		t.log.Debug().Str("sql", query).Interface("args", args).Msg("exec")
	}
}
