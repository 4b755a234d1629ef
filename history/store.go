package history

import (
	"context"
	"errors"
	"time"

	"github.com/openiap/storebridge/billing"
)

var (
	ErrExists   = errors.New("purchase record already exists")
	ErrNotFound = errors.New("purchase record not found")
)

// Record is a persisted snapshot of a normalized purchase. The orchestrator
// core is stateless across restarts; callers that need durable purchase
// history write records here after normalization.
type Record struct {
	TransactionID string
	Platform      billing.Platform
	ProductID     string
	Token         string
	State         billing.PurchaseState
	Finalized     bool
	PurchasedAt   time.Time
	CreatedAt     time.Time
}

type Store interface {
	CreateRecord(ctx context.Context, record *Record) error
	GetRecordByTransactionID(ctx context.Context, transactionID string) (*Record, error)
	GetRecordsByProduct(ctx context.Context, productID string) ([]*Record, error)
	MarkFinalized(ctx context.Context, transactionID string) error
}

// FromPurchase snapshots a canonical purchase into a storable record.
func FromPurchase(p *billing.Purchase) *Record {
	return &Record{
		TransactionID: p.TransactionID,
		Platform:      p.Platform,
		ProductID:     p.ProductID,
		Token:         p.Token,
		State:         p.State,
		Finalized:     p.Finalized,
		PurchasedAt:   p.PurchasedAt,
		CreatedAt:     time.Now(),
	}
}

func (r *Record) Clone() *Record {
	return &Record{
		TransactionID: r.TransactionID,
		Platform:      r.Platform,
		ProductID:     r.ProductID,
		Token:         r.Token,
		State:         r.State,
		Finalized:     r.Finalized,
		PurchasedAt:   r.PurchasedAt,
		CreatedAt:     r.CreatedAt,
	}
}
