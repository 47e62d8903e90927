package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kedai/internal/core/apperror"
	"kedai/internal/core/tx"
	"kedai/pkg/logger"
)

var tracer = otel.Tracer("kedai/tx")

// Compile-time checks against the domain transaction interfaces.
var (
	_ tx.Manager          = (*TxManager)(nil)
	_ tx.RetryableManager = (*TxManager)(nil)
	_ tx.ReadOnlyManager  = (*TxManager)(nil)
)

// retryAttempts bounds how often a serialization failure is retried
// before it surfaces as CONCURRENT_MODIFICATION.
const retryAttempts = 3

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// AccessMode: pgx.ReadWrite, pgx.ReadOnly
	AccessMode pgx.TxAccessMode

	// StatementTimeout protects against long-running queries (default 30s)
	StatementTimeout time.Duration
}

// DefaultTxOptions returns production-safe defaults.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// TxManager manages database transactions. A transaction started here is
// carried in the context, so repositories called from the same fn share it.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new transaction manager.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool.Pool}
}

// txKey is the context key for the active transaction.
type txKey struct{}

// RunInTransaction executes fn within a transaction. If a transaction
// already exists in ctx it is reused.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransactionWithOptions(ctx, DefaultTxOptions(), fn)
}

// RunInTransactionWithOptions executes fn with custom transaction options.
func (m *TxManager) RunInTransactionWithOptions(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.isolation", string(opts.IsolationLevel)),
		))
	defer span.End()

	if m.getTx(ctx) != nil {
		// Already inside a transaction, reuse it.
		return fn(ctx)
	}

	return m.startNewTransaction(ctx, opts, fn)
}

// RunInRetryableTransaction executes fn in a transaction, re-running the
// whole fn when the database reports a serialization failure or deadlock.
// fn must therefore be safe to run more than once: reads included.
func (m *TxManager) RunInRetryableTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.getTx(ctx) != nil {
		// Retrying inside an outer transaction would replay only part
		// of it. The outer caller owns the retry loop.
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = m.startNewTransaction(ctx, DefaultTxOptions(), fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		logger.Warn(ctx, "retrying transaction after write conflict",
			"attempt", attempt,
			"error", err,
		)
	}

	if apperror.IsConcurrentModification(err) {
		return err
	}
	return apperror.NewConcurrentModification("transaction", "retries exhausted").WithCause(err)
}

// ReadOnly executes fn in a read-only transaction.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := DefaultTxOptions()
	opts.AccessMode = pgx.ReadOnly
	return m.RunInTransactionWithOptions(ctx, opts, fn)
}

func (m *TxManager) startNewTransaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context) error) error {
	dbTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsolationLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if opts.StatementTimeout > 0 {
		_, err = dbTx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", opts.StatementTimeout.Milliseconds()))
		if err != nil {
			_ = dbTx.Rollback(ctx)
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	txCtx := context.WithValue(ctx, txKey{}, dbTx)

	if err := fn(txCtx); err != nil {
		// Rollback on a background context so it completes even when
		// the original context is already cancelled.
		if rbErr := dbTx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (m *TxManager) getTx(ctx context.Context) pgx.Tx {
	if dbTx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return dbTx
	}
	return nil
}

// Querier is the common query surface of pgx.Tx and pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the context transaction when present, otherwise the
// pool. Repositories work both inside and outside transactions.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if dbTx := m.getTx(ctx); dbTx != nil {
		return dbTx
	}
	return m.pool
}

// isRetryable reports whether err is a transient conflict worth replaying:
// a serialization failure, a deadlock, or an optimistic-lock miss.
func isRetryable(err error) bool {
	if apperror.IsConcurrentModification(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
