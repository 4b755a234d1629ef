package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/history"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*history.Record
}

func NewInMemory() history.Store {
	return &InMemoryStore{
		records: map[string]*history.Record{},
	}
}

func (s *InMemoryStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*history.Record)
}

func (s *InMemoryStore) CreateRecord(ctx context.Context, record *history.Record) error {
	if len(record.TransactionID) == 0 {
		return errors.New("transaction id is required")
	}
	if len(record.ProductID) == 0 {
		return errors.New("product id is required")
	}
	if record.Platform == billing.PlatformUnknown {
		return errors.New("platform is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[record.TransactionID]
	if ok {
		return history.ErrExists
	}

	s.records[record.TransactionID] = record.Clone()

	return nil
}

func (s *InMemoryStore) GetRecordByTransactionID(ctx context.Context, transactionID string) (*history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[transactionID]
	if !ok {
		return nil, history.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemoryStore) GetRecordsByProduct(ctx context.Context, productID string) ([]*history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []*history.Record

	for _, record := range s.records {
		if record.ProductID != productID {
			continue
		}

		res = append(res, record.Clone())
	}

	if len(res) == 0 {
		return nil, history.ErrNotFound
	}
	return res, nil
}

func (s *InMemoryStore) MarkFinalized(ctx context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[transactionID]
	if !ok {
		return history.ErrNotFound
	}

	record.Finalized = true
	return nil
}
