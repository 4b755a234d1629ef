package postgres

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openiap/storebridge/billing"
	pg "github.com/openiap/storebridge/database/postgres"
	"github.com/openiap/storebridge/history"
)

const (
	recordsTableName = "storebridge_purchase"
	allRecordFields  = `"transactionId", "platform", "productId", "token", "state", "finalized", "purchasedAt", "createdAt"`
)

// Schema is the DDL for the purchase history table, applied by callers that
// own migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS ` + recordsTableName + ` (
	"transactionId" TEXT PRIMARY KEY,
	"platform" INTEGER NOT NULL,
	"productId" TEXT NOT NULL,
	"token" TEXT NOT NULL,
	"state" INTEGER NOT NULL,
	"finalized" BOOLEAN NOT NULL DEFAULT FALSE,
	"purchasedAt" TIMESTAMPTZ NOT NULL,
	"createdAt" TIMESTAMPTZ NOT NULL
)`

type model struct {
	TransactionID string    `db:"transactionId"`
	Platform      int       `db:"platform"`
	ProductID     string    `db:"productId"`
	Token         string    `db:"token"`
	State         int       `db:"state"`
	Finalized     bool      `db:"finalized"`
	PurchasedAt   time.Time `db:"purchasedAt"`
	CreatedAt     time.Time `db:"createdAt"`
}

func toModel(record *history.Record) *model {
	return &model{
		TransactionID: record.TransactionID,
		Platform:      int(record.Platform),
		ProductID:     record.ProductID,
		Token:         record.Token,
		State:         int(record.State),
		Finalized:     record.Finalized,
		PurchasedAt:   record.PurchasedAt,
	}
}

func fromModel(m *model) *history.Record {
	return &history.Record{
		TransactionID: m.TransactionID,
		Platform:      billing.Platform(m.Platform),
		ProductID:     m.ProductID,
		Token:         m.Token,
		State:         billing.PurchaseState(m.State),
		Finalized:     m.Finalized,
		PurchasedAt:   m.PurchasedAt,
		CreatedAt:     m.CreatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, pool *pgxpool.Pool) error {
	return pg.ExecuteInTx(ctx, pool, func(tx pgx.Tx) error {
		query := `INSERT INTO ` + recordsTableName + `(` + allRecordFields + `) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) ON CONFLICT DO NOTHING RETURNING ` + allRecordFields
		err := pgxscan.Get(
			ctx,
			tx,
			m,
			query,
			m.TransactionID,
			m.Platform,
			m.ProductID,
			m.Token,
			m.State,
			m.Finalized,
			m.PurchasedAt,
		)
		if pgxscan.NotFound(err) {
			return history.ErrExists
		}
		return err
	})
}

func dbGetRecordByTransactionID(ctx context.Context, pool *pgxpool.Pool, transactionID string) (*model, error) {
	res := &model{}
	query := `SELECT ` + allRecordFields + ` FROM ` + recordsTableName + ` WHERE "transactionId" = $1`
	err := pgxscan.Get(ctx, pool, res, query, transactionID)
	if pgxscan.NotFound(err) {
		return nil, history.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return res, nil
}

func dbGetRecordsByProduct(ctx context.Context, pool *pgxpool.Pool, productID string) ([]*model, error) {
	var res []*model
	query := `SELECT ` + allRecordFields + ` FROM ` + recordsTableName + ` WHERE "productId" = $1 ORDER BY "purchasedAt"`
	err := pgxscan.Select(ctx, pool, &res, query, productID)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, history.ErrNotFound
	}
	return res, nil
}

func dbMarkFinalized(ctx context.Context, pool *pgxpool.Pool, transactionID string) error {
	return pg.ExecuteInTx(ctx, pool, func(tx pgx.Tx) error {
		query := `UPDATE ` + recordsTableName + ` SET "finalized" = TRUE WHERE "transactionId" = $1`
		cmd, err := tx.Exec(ctx, query, transactionID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return history.ErrNotFound
		}
		return nil
	})
}
