package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/coursehub/internal/config"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/dberrors"
	"github.com/yigit/coursehub/internal/pkg/helpers"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

// Querier is the subset of pgx shared by the pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is the connection pool surface the repositories rely on. It is
// satisfied by *pgxpool.Pool.
type Pool interface {
	Querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Transaction isolation presets.
var (
	ReadCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	Serializable  = pgx.TxOptions{IsoLevel: pgx.Serializable}
)

// PostgresDB database connection structure
type PostgresDB struct {
	Pool  Pool
	retry RetryPolicy
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool Pool, retry RetryPolicy) *PostgresDB {
	return &PostgresDB{Pool: pool, retry: retry}
}

// NewPostgresDB creates a new PostgreSQL connection pool
func NewPostgresDB(cfg *config.Config) (*PostgresDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.GetPostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgxpool config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)

	maxLifetime, err := time.ParseDuration(cfg.Database.ConnMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection max lifetime: %w", err)
	}
	poolConfig.MaxConnLifetime = maxLifetime

	poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		if err := conn.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("Unhealthy connection detected")
			return false
		}
		return true
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	return &PostgresDB{
		Pool: pool,
		retry: RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: helpers.ParseDuration(cfg.Retry.InitialInterval, 100*time.Millisecond),
			MaxInterval:     helpers.ParseDuration(cfg.Retry.MaxInterval, 2*time.Second),
		},
	}, nil
}

// Close closes the pool
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks that the store answers within ctx.
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// WithRetry runs fn against the pool, retrying transient failures under the
// configured policy. Exhausted retries surface as apperrors.ErrStoreUnavailable.
func (db *PostgresDB) WithRetry(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	return Retry(ctx, db.retry, func(ctx context.Context) error {
		return fn(ctx, db.Pool)
	})
}

// TransactionFn is a function that executes within a transaction
type TransactionFn func(ctx context.Context, tx pgx.Tx) error

// WithTransaction runs fn within a transaction using opts. Serialization
// conflicts are reported as apperrors.ErrConcurrentModification and are never
// retried here; only failures to begin the transaction are.
func (db *PostgresDB) WithTransaction(ctx context.Context, opts pgx.TxOptions, fn TransactionFn) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	var tx pgx.Tx
	err := Retry(ctx, db.retry, func(ctx context.Context) error {
		var err error
		tx, err = db.Pool.BeginTx(ctx, opts)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.FromContext(ctx).Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return classifyTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyTxError(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

func classifyTxError(err error) error {
	switch {
	case dberrors.IsSerializationConflict(err):
		return apperrors.NewCustomError(apperrors.ErrConcurrentModification,
			"the resource was modified concurrently, retry the request")
	case dberrors.IsTransient(err):
		return apperrors.NewStoreUnavailableError(err)
	default:
		return err
	}
}
