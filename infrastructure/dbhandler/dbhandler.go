package dbhandler

import (
	"context"
	"database/sql"
	"errors"

	"github.com/behrang/sqlbatch"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	pqSerializationFailure = "40001"
	maxBatchAttempts       = 10
)

// DBHandler contains a connection to database.
type DBHandler struct {
	DB     *sql.DB
	Logger *zap.Logger
}

// Batch creates a transaction and executes the batch of commands in that transaction.
// If a retryable error is received, the batch is retried.
func (handler DBHandler) Batch(ctx context.Context, opts *sql.TxOptions, commands []sqlbatch.Command) ([]interface{}, error) {
	var (
		results []interface{}
		err     error
	)
	for attempt := 1; attempt <= maxBatchAttempts; attempt++ {
		results, err = handler.tryBatch(ctx, opts, commands)
		if !isRetryable(err) || ctx.Err() != nil {
			return results, err
		}
		handler.logger().Warn("🟡 retryable postgres error, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return results, err
}

// Exec runs statements outside of a batch, one after another. It is meant for schema
// changes.
func (handler DBHandler) Exec(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if _, err := handler.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (handler DBHandler) tryBatch(ctx context.Context, opts *sql.TxOptions, commands []sqlbatch.Command) (results []interface{}, err error) {
	results = make([]interface{}, len(commands))

	tx, err := handler.DB.BeginTx(ctx, opts)
	if err != nil {
		return
	}
	defer tx.Rollback()

	results, err = sqlbatch.Batch(tx, commands)

	if err == nil {
		err = tx.Commit()
	}

	return
}

func (handler DBHandler) logger() *zap.Logger {
	if handler.Logger == nil {
		return zap.NewNop()
	}
	return handler.Logger
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqSerializationFailure
}
