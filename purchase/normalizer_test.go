package purchase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/billing/memory"
)

func TestNormalizer_CanonicalizesSignals(t *testing.T) {
	native := memory.NewGoogleNative()
	require.NoError(t, native.Connect(context.Background(), nil))

	n := NewNormalizer(zaptest.NewLogger(t), native)
	sub := n.Updates().Subscribe()

	sig := native.CompletePurchase("coins_100", billing.PurchaseStatePurchased)

	p := <-sub.C()
	require.Equal(t, sig.TransactionID, p.TransactionID)
	require.Equal(t, "coins_100", p.ProductID)
	require.Equal(t, sig.Token, p.Token)
	require.Equal(t, billing.PurchaseStatePurchased, p.State)
	require.Equal(t, billing.PlatformGoogle, p.Platform)
	require.False(t, p.Finalized)
}

func TestNormalizer_DeduplicatesByTransactionID(t *testing.T) {
	native := memory.NewAppleNative()
	require.NoError(t, native.Connect(context.Background(), nil))

	n := NewNormalizer(zaptest.NewLogger(t), native)
	sub := n.Updates().Subscribe()

	sig := native.CompletePurchase("premium_monthly", billing.PurchaseStatePending)
	native.RefinePurchase(sig, billing.PurchaseStatePurchased)
	native.RefinePurchase(sig, billing.PurchaseStatePurchased)

	first := <-sub.C()
	second := <-sub.C()
	third := <-sub.C()

	// One logical record transitioning pending -> purchased, never a second
	// record for the same transaction.
	require.Equal(t, first.TransactionID, second.TransactionID)
	require.Equal(t, second.TransactionID, third.TransactionID)
	require.Equal(t, billing.PurchaseStatePending, first.State)
	require.Equal(t, billing.PurchaseStatePurchased, second.State)
	require.Equal(t, billing.PurchaseStatePurchased, third.State)
}

func TestNormalizer_NeverRegressesSettledState(t *testing.T) {
	native := memory.NewGoogleNative()
	require.NoError(t, native.Connect(context.Background(), nil))

	n := NewNormalizer(zaptest.NewLogger(t), native)
	sub := n.Updates().Subscribe()

	sig := native.CompletePurchase("coins_100", billing.PurchaseStatePurchased)
	native.RefinePurchase(sig, billing.PurchaseStatePending)

	<-sub.C()
	replay := <-sub.C()
	require.Equal(t, billing.PurchaseStatePurchased, replay.State)
}

func TestNormalizer_TranslatesFailures(t *testing.T) {
	native := memory.NewGoogleNative()
	require.NoError(t, native.Connect(context.Background(), nil))

	n := NewNormalizer(zaptest.NewLogger(t), native)
	updates := n.Updates().Subscribe()
	errs := n.Errors().Subscribe()

	native.FailPurchase(1, "user dismissed the sheet")

	err := <-errs.C()
	require.Equal(t, billing.ErrorUserCancelled, err.Kind)
	require.Equal(t, 1, err.Code)

	select {
	case p := <-updates.C():
		t.Fatalf("unexpected purchase update %v", p)
	default:
	}
}

func TestNormalizer_RecoverPollsOwnedPurchases(t *testing.T) {
	native := memory.NewGoogleNative(
		memory.NewProduct("coins_100", "100 Coins", billing.ProductTypeInApp, 0.99, "USD"),
	)

	// Purchase settles while nothing is listening; Google-style runtimes do
	// not redeliver it by push.
	require.NoError(t, native.Connect(context.Background(), nil))
	sig := native.CompletePurchase("coins_100", billing.PurchaseStatePurchased)
	native.Disconnect()
	require.NoError(t, native.Connect(context.Background(), nil))

	n := NewNormalizer(zaptest.NewLogger(t), native)
	sub := n.Updates().Subscribe()

	recovered, err := n.Recover(context.Background(), billing.ProductTypeInApp)
	require.NoError(t, err)
	require.Len(t, recovered, 1)
	require.Equal(t, sig.TransactionID, recovered[0].TransactionID)

	// Recovery flows through the same dedup and broadcast path.
	p := <-sub.C()
	require.Equal(t, sig.TransactionID, p.TransactionID)
}

func TestNormalizer_ConcurrentRefinementKeepsCausalOrder(t *testing.T) {
	// A push refinement racing a recovery poll for the same transaction must
	// reach subscribers in record-mutation order: once a subscriber has seen
	// the purchase settled, no later emission may show it pending again.
	for i := 0; i < 200; i++ {
		native := memory.NewGoogleNative(
			memory.NewProduct("coins_100", "100 Coins", billing.ProductTypeInApp, 0.99, "USD"),
		)
		require.NoError(t, native.Connect(context.Background(), nil))

		n := NewNormalizer(zaptest.NewLogger(t), native)
		sub := n.Updates().Subscribe()

		sig := native.CompletePurchase("coins_100", billing.PurchaseStatePending)
		<-sub.C()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			native.RefinePurchase(sig, billing.PurchaseStatePurchased)
		}()
		go func() {
			defer wg.Done()
			_, err := n.Recover(context.Background(), billing.ProductTypeInApp)
			require.NoError(t, err)
		}()
		wg.Wait()

		settled := false
		for {
			var p *billing.Purchase
			select {
			case p = <-sub.C():
			default:
			}
			if p == nil {
				break
			}
			require.Equal(t, sig.TransactionID, p.TransactionID)
			if settled {
				require.Equal(t, billing.PurchaseStatePurchased, p.State)
			}
			if p.State == billing.PurchaseStatePurchased {
				settled = true
			}
		}
		require.True(t, settled)
		sub.Cancel()
	}
}

func TestNormalizer_ResetTerminatesSubscribers(t *testing.T) {
	native := memory.NewAppleNative()
	require.NoError(t, native.Connect(context.Background(), nil))

	n := NewNormalizer(zaptest.NewLogger(t), native)
	old := n.Updates().Subscribe()

	n.Reset()

	_, open := <-old.C()
	require.False(t, open)

	// A fresh session gets fresh buses and an empty dedup window.
	sub := n.Updates().Subscribe()
	native.CompletePurchase("coins_100", billing.PurchaseStatePurchased)
	p := <-sub.C()
	require.Equal(t, "coins_100", p.ProductID)
}

func TestNormalizer_MarkFinalized(t *testing.T) {
	native := memory.NewGoogleNative()
	require.NoError(t, native.Connect(context.Background(), nil))

	n := NewNormalizer(zaptest.NewLogger(t), native)
	sub := n.Updates().Subscribe()

	sig := native.CompletePurchase("coins_100", billing.PurchaseStatePurchased)
	<-sub.C()

	n.MarkFinalized(sig.TransactionID)

	// The flag lands on the live record and is visible on later emissions.
	native.RefinePurchase(sig, billing.PurchaseStatePurchased)
	p := <-sub.C()
	require.True(t, p.Finalized)
}
