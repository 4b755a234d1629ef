package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/history"
)

type store struct {
	pool *pgxpool.Pool
}

func NewInPostgres(pool *pgxpool.Pool) history.Store {
	return &store{
		pool: pool,
	}
}

func (s *store) CreateRecord(ctx context.Context, record *history.Record) error {
	if len(record.TransactionID) == 0 {
		return errors.New("transaction id is required")
	}
	if len(record.ProductID) == 0 {
		return errors.New("product id is required")
	}
	if record.Platform == billing.PlatformUnknown {
		return errors.New("platform is required")
	}

	return toModel(record).dbPut(ctx, s.pool)
}

func (s *store) GetRecordByTransactionID(ctx context.Context, transactionID string) (*history.Record, error) {
	model, err := dbGetRecordByTransactionID(ctx, s.pool, transactionID)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

func (s *store) GetRecordsByProduct(ctx context.Context, productID string) ([]*history.Record, error) {
	models, err := dbGetRecordsByProduct(ctx, s.pool, productID)
	if err != nil {
		return nil, err
	}
	res := make([]*history.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

func (s *store) MarkFinalized(ctx context.Context, transactionID string) error {
	return dbMarkFinalized(ctx, s.pool, transactionID)
}

func (s *store) reset() {
	_, err := s.pool.Exec(context.Background(), "DELETE FROM "+recordsTableName)
	if err != nil {
		panic(err)
	}
}
