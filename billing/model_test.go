package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProduct_Offer(t *testing.T) {
	product := &Product{
		ID:   "premium_monthly",
		Type: ProductTypeSubs,
		Offers: []Offer{
			{OfferID: "intro", BasePlanID: "monthly", PaymentMode: PaymentModeFreeTrial, Token: "tok-intro"},
			{OfferID: "full", BasePlanID: "monthly", Token: "tok-full"},
		},
	}

	offer, ok := product.Offer("intro")
	require.True(t, ok)
	require.Equal(t, "tok-intro", offer.Token)

	_, ok = product.Offer("missing")
	require.False(t, ok)
}

func TestPurchase_Clone(t *testing.T) {
	original := &Purchase{
		TransactionID: "txn-1",
		ProductID:     "coins_100",
		Token:         "token",
		State:         PurchaseStatePending,
		PurchasedAt:   time.Now(),
		Platform:      PlatformApple,
		Payload:       map[string]string{"environment": "Sandbox"},
	}

	cloned := original.Clone()
	require.Equal(t, original, cloned)

	cloned.State = PurchaseStatePurchased
	cloned.Payload["environment"] = "Production"
	require.Equal(t, PurchaseStatePending, original.State)
	require.Equal(t, "Sandbox", original.Payload["environment"])
}
