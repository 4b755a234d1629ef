package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// todo: Support multiple isolation levels, Postgres default is used for now

const (
	defaultIsolationLevel = pgx.ReadCommitted
	txContextKey          = "storebridge-pgx-tx"
)

var (
	ErrAlreadyInTx = errors.New("already executing in existing db tx")
	ErrNotInTx     = errors.New("not executing in existing db tx")
)

// ExecuteTxWithinCtx executes a DB transaction that's scoped to a call to fn.
// The transaction rides along on the context, so store operations invoked
// inside fn join it through ExecuteInTx instead of opening their own.
// Commit/rollback is decided here based on whether fn returns an error.
func ExecuteTxWithinCtx(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context) error) error {
	if ctx.Value(txContextKey) != nil {
		return ErrAlreadyInTx
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel: defaultIsolationLevel,
	})
	if err != nil {
		return err
	}
	defer tx.Rollback(context.Background())

	ctx = context.WithValue(ctx, txContextKey, tx)

	if err := fn(ctx); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return tx.Commit(ctx)
}

// ExecuteInTx is meant for DB store implementations to execute an operation
// within the scope of a DB transaction. This method is aware of
// ExecuteTxWithinCtx, and will dynamically decide when to use a new or
// existing transaction, as well as where the responsibility for
// commit/rollback calls lie.
func ExecuteInTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := getTxFromCtx(ctx)
	if err != nil && err != ErrNotInTx {
		return err
	}

	var startedNewTx bool // To determine who is responsible for commit/rollback
	if err == ErrNotInTx {
		startedNewTx = true
		tx, err = pool.BeginTx(ctx, pgx.TxOptions{
			IsoLevel: defaultIsolationLevel,
		})
		if err != nil {
			return err
		}
		defer tx.Rollback(context.Background())
	}

	if err := fn(tx); err != nil {
		return err
	}
	if startedNewTx {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return tx.Commit(ctx)
	}
	return nil
}

func getTxFromCtx(ctx context.Context) (pgx.Tx, error) {
	txFromCtx := ctx.Value(txContextKey)
	if txFromCtx == nil {
		return nil, ErrNotInTx
	}

	tx, ok := txFromCtx.(pgx.Tx)
	if !ok {
		return nil, errors.New("invalid type for tx")
	}
	return tx, nil
}
