package memory

import (
	"testing"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/verify/tests"
)

func TestMemoryVerifier(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("error generating key pair: %v", err)
	}

	verifier := NewVerifier(pub)

	validPurchase := func() *billing.Purchase {
		return &billing.Purchase{
			TransactionID: "txn-1",
			ProductID:     "coins_100",
			Token:         SignToken(priv, "coins_100"),
			Platform:      billing.PlatformGoogle,
		}
	}

	invalidPurchase := func() *billing.Purchase {
		return &billing.Purchase{
			TransactionID: "txn-2",
			ProductID:     "coins_100",
			Token:         "not-a-signed-token",
			Platform:      billing.PlatformGoogle,
		}
	}

	teardown := func() {}

	tests.RunVerifierTests(t, verifier, validPurchase, invalidPurchase, teardown)
}

func TestMemoryVerifier_ProductMismatch(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("error generating key pair: %v", err)
	}

	verifier := NewVerifier(pub)

	// A token signed for one product must not entitle another.
	tests.RunVerifierTests(t, verifier,
		func() *billing.Purchase {
			return &billing.Purchase{
				TransactionID: "txn-3",
				ProductID:     "premium_monthly",
				Token:         SignToken(priv, "premium_monthly"),
				Platform:      billing.PlatformApple,
			}
		},
		func() *billing.Purchase {
			return &billing.Purchase{
				TransactionID: "txn-4",
				ProductID:     "premium_monthly",
				Token:         SignToken(priv, "coins_100"),
				Platform:      billing.PlatformApple,
			}
		},
		func() {},
	)
}
