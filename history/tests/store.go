package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/history"
)

func RunStoreTests(t *testing.T, s history.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s history.Store){
		testHistoryStore_HappyPath,
		testHistoryStore_MarkFinalized,
	} {
		tf(t, s)
		teardown()
	}
}

func testHistoryStore_HappyPath(t *testing.T, store history.Store) {
	expected := &history.Record{
		TransactionID: "GPA.1234-5678-9012-34567",
		Platform:      billing.PlatformGoogle,
		ProductID:     "coins_100",
		Token:         "token-abc",
		State:         billing.PurchaseStatePurchased,
		Finalized:     false,
		PurchasedAt:   time.Now().UTC().Truncate(time.Millisecond),
		CreatedAt:     time.Now(),
	}

	_, err := store.GetRecordByTransactionID(context.Background(), expected.TransactionID)
	require.Equal(t, history.ErrNotFound, err)

	_, err = store.GetRecordsByProduct(context.Background(), expected.ProductID)
	require.Equal(t, history.ErrNotFound, err)

	require.NoError(t, store.CreateRecord(context.Background(), expected))

	actual, err := store.GetRecordByTransactionID(context.Background(), expected.TransactionID)
	require.NoError(t, err)
	require.Equal(t, expected.TransactionID, actual.TransactionID)
	require.Equal(t, expected.Platform, actual.Platform)
	require.Equal(t, expected.ProductID, actual.ProductID)
	require.Equal(t, expected.Token, actual.Token)
	require.Equal(t, expected.State, actual.State)
	require.False(t, actual.Finalized)

	_, err = store.GetRecordsByProduct(context.Background(), "some_other_product")
	require.Equal(t, history.ErrNotFound, err)

	byProduct, err := store.GetRecordsByProduct(context.Background(), expected.ProductID)
	require.NoError(t, err)
	require.Len(t, byProduct, 1)
	require.Equal(t, expected.TransactionID, byProduct[0].TransactionID)

	require.Equal(t, history.ErrExists, store.CreateRecord(context.Background(), expected))
}

func testHistoryStore_MarkFinalized(t *testing.T, store history.Store) {
	require.Equal(t, history.ErrNotFound, store.MarkFinalized(context.Background(), "missing"))

	record := &history.Record{
		TransactionID: "2000000123456789",
		Platform:      billing.PlatformApple,
		ProductID:     "premium_monthly",
		Token:         "token-xyz",
		State:         billing.PurchaseStatePurchased,
		PurchasedAt:   time.Now().UTC(),
		CreatedAt:     time.Now(),
	}
	require.NoError(t, store.CreateRecord(context.Background(), record))

	require.NoError(t, store.MarkFinalized(context.Background(), record.TransactionID))

	actual, err := store.GetRecordByTransactionID(context.Background(), record.TransactionID)
	require.NoError(t, err)
	require.True(t, actual.Finalized)
}
