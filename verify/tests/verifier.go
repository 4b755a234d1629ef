package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/verify"
)

// RunVerifierTests exercises any provider against the parts of the contract
// every provider shares: a purchase it recognizes verifies as entitled, one
// it does not never does.
func RunVerifierTests(
	t *testing.T,
	v verify.Verifier,
	validPurchase func() *billing.Purchase,
	invalidPurchase func() *billing.Purchase,
	teardown func(),
) {
	for _, tf := range []func(t *testing.T, v verify.Verifier, validPurchase, invalidPurchase func() *billing.Purchase){
		testVerifier_ValidPurchase,
		testVerifier_InvalidPurchase,
	} {
		tf(t, v, validPurchase, invalidPurchase)
		teardown()
	}
}

func testVerifier_ValidPurchase(t *testing.T, v verify.Verifier, validPurchase, _ func() *billing.Purchase) {
	res, err := v.VerifyPurchase(context.Background(), validPurchase())
	require.NoError(t, err)
	require.True(t, res.IsValid)
	require.Equal(t, verify.EntitlementEntitled, res.State)
}

func testVerifier_InvalidPurchase(t *testing.T, v verify.Verifier, _, invalidPurchase func() *billing.Purchase) {
	res, err := v.VerifyPurchase(context.Background(), invalidPurchase())
	require.NoError(t, err)
	require.False(t, res.IsValid)
	require.NotEqual(t, verify.EntitlementEntitled, res.State)
}
