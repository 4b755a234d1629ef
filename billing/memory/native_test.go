package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openiap/storebridge/billing"
)

func TestNative_PlatformTraits(t *testing.T) {
	apple := NewAppleNative()
	google := NewGoogleNative()

	require.Equal(t, billing.PlatformApple, apple.Platform())
	require.False(t, apple.RequiresOfferToken())
	require.True(t, apple.RedeliversOnReconnect())

	require.Equal(t, billing.PlatformGoogle, google.Platform())
	require.True(t, google.RequiresOfferToken())
	require.False(t, google.RedeliversOnReconnect())
}

func TestNative_AppleRedeliversMissedPurchases(t *testing.T) {
	native := NewAppleNative()

	var received []billing.Signal
	native.SetPurchaseListener(func(sig billing.Signal) {
		received = append(received, sig)
	})

	// Purchase settles while disconnected.
	sig := native.CompletePurchase("coins_100", billing.PurchaseStatePurchased)
	require.Empty(t, received)

	require.NoError(t, native.Connect(context.Background(), nil))
	require.Len(t, received, 1)
	require.Equal(t, sig.TransactionID, received[0].TransactionID)

	// Redelivery happens once.
	native.Disconnect()
	require.NoError(t, native.Connect(context.Background(), nil))
	require.Len(t, received, 1)
}

func TestNative_GoogleDoesNotRedeliver(t *testing.T) {
	native := NewGoogleNative()

	var received []billing.Signal
	native.SetPurchaseListener(func(sig billing.Signal) {
		received = append(received, sig)
	})

	sig := native.CompletePurchase("coins_100", billing.PurchaseStatePurchased)

	require.NoError(t, native.Connect(context.Background(), nil))
	require.Empty(t, received)

	// The poll path is the only way to see it.
	owned, err := native.QueryPurchases(context.Background(), billing.ProductTypeUnknown)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.Equal(t, sig.TransactionID, owned[0].TransactionID)
}

func TestNative_DoubleFinalizeSemantics(t *testing.T) {
	google := NewGoogleNative()
	require.NoError(t, google.Connect(context.Background(), nil))
	sig := google.CompletePurchase("coins_100", billing.PurchaseStatePurchased)

	require.NoError(t, google.Finalize(context.Background(), sig.Token, false))
	// Google-style runtimes reject a second acknowledge.
	err := google.Finalize(context.Background(), sig.Token, false)
	require.Error(t, err)

	apple := NewAppleNative()
	require.NoError(t, apple.Connect(context.Background(), nil))
	sig = apple.CompletePurchase("coins_100", billing.PurchaseStatePurchased)

	require.NoError(t, apple.Finalize(context.Background(), sig.Token, false))
	// StoreKit-style runtimes treat it as a no-op.
	require.NoError(t, apple.Finalize(context.Background(), sig.Token, false))
}

func TestFormatPrice(t *testing.T) {
	require.NotEmpty(t, FormatPrice(0.99, "USD"))
	require.NotEmpty(t, FormatPrice(4.99, "EUR"))
	// Unknown codes fall back to a plain rendering.
	require.Contains(t, FormatPrice(1.50, "???"), "???")
}
