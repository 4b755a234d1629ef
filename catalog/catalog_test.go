package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/billing/memory"
)

func TestCatalog_FetchProducts(t *testing.T) {
	native := memory.NewGoogleNative(
		memory.NewProduct("coins_100", "100 Coins", billing.ProductTypeInApp, 0.99, "USD"),
	)
	require.NoError(t, native.Connect(context.Background(), nil))

	cat := New(zaptest.NewLogger(t), native)

	products, err := cat.FetchProducts(context.Background(), []string{"coins_100"}, billing.ProductTypeInApp)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "coins_100", products[0].ID)
	require.Equal(t, 0.99, products[0].Price)
	require.Equal(t, "USD", products[0].Currency)
	require.NotEmpty(t, products[0].DisplayPrice)
}

func TestCatalog_MissingSkuIsNotAnError(t *testing.T) {
	native := memory.NewGoogleNative(
		memory.NewProduct("coins_100", "100 Coins", billing.ProductTypeInApp, 0.99, "USD"),
	)
	require.NoError(t, native.Connect(context.Background(), nil))

	cat := New(zaptest.NewLogger(t), native)

	products, err := cat.FetchProducts(context.Background(), []string{"coins_100", "missing_sku"}, billing.ProductTypeInApp)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "coins_100", products[0].ID)
}

func TestCatalog_MultipleOffersAreAllReturned(t *testing.T) {
	native := memory.NewGoogleNative(
		memory.NewProduct("premium_monthly", "Premium", billing.ProductTypeSubs, 4.99, "USD",
			billing.Offer{OfferID: "trial", BasePlanID: "monthly", PaymentMode: billing.PaymentModeFreeTrial, Token: "tok-trial"},
			billing.Offer{OfferID: "full", BasePlanID: "monthly", Token: "tok-full"},
		),
	)
	require.NoError(t, native.Connect(context.Background(), nil))

	cat := New(zaptest.NewLogger(t), native)

	products, err := cat.FetchProducts(context.Background(), []string{"premium_monthly"}, billing.ProductTypeSubs)
	require.NoError(t, err)
	require.Len(t, products, 1)

	// No "best" offer is chosen; the caller picks from the full list.
	require.Len(t, products[0].Offers, 2)
}

func TestCatalog_LookupUsesCache(t *testing.T) {
	native := memory.NewGoogleNative(
		memory.NewProduct("coins_100", "100 Coins", billing.ProductTypeInApp, 0.99, "USD"),
	)
	require.NoError(t, native.Connect(context.Background(), nil))

	cat := New(zaptest.NewLogger(t), native)

	_, ok := cat.Lookup("coins_100", billing.ProductTypeInApp)
	require.False(t, ok)

	_, err := cat.FetchProducts(context.Background(), []string{"coins_100"}, billing.ProductTypeInApp)
	require.NoError(t, err)

	product, ok := cat.Lookup("coins_100", billing.ProductTypeInApp)
	require.True(t, ok)
	require.Equal(t, "coins_100", product.ID)

	// Lookup is keyed by (id, type).
	_, ok = cat.Lookup("coins_100", billing.ProductTypeSubs)
	require.False(t, ok)

	cat.Reset()
	_, ok = cat.Lookup("coins_100", billing.ProductTypeInApp)
	require.False(t, ok)
}
