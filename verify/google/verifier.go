package google

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/verify"
)

// Verifier checks purchase tokens against the Google Play Developer API.
// This is a remote-tier provider: every call goes over the network.
type Verifier struct {

	// The contents of a service account JSON file.
	serviceAccountJSON []byte

	// packageName is the Android app's package name.
	packageName string
}

func NewVerifier(serviceAccountJSON []byte, packageName string) verify.Verifier {
	return &Verifier{
		serviceAccountJSON: serviceAccountJSON,
		packageName:        packageName,
	}
}

func (v *Verifier) VerifyPurchase(ctx context.Context, purchase *billing.Purchase) (*verify.Result, error) {
	svc, err := androidpublisher.NewService(ctx, option.WithCredentialsJSON(v.serviceAccountJSON))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create android publisher client")
	}

	call := svc.Purchases.Products.Get(v.packageName, purchase.ProductID, purchase.Token)

	productPurchase, err := call.Context(ctx).Do()
	if err != nil {
		// A failed lookup (e.g. 404 for an unknown token) means the token
		// does not identify a real purchase.
		return &verify.Result{
			IsValid: false,
			State:   verify.EntitlementInauthentic,
			Store:   billing.PlatformGoogle,
		}, nil
	}

	// PurchaseState: 0 purchased, 1 canceled, 2 pending.
	// ConsumptionState: 0 yet to be consumed, 1 consumed.
	state := verify.MapEntitlementState(purchaseStateString(productPurchase.PurchaseState))
	if state == verify.EntitlementEntitled && productPurchase.ConsumptionState == 1 {
		state = verify.EntitlementConsumed
	}

	return &verify.Result{
		IsValid: state == verify.EntitlementEntitled || state == verify.EntitlementConsumed,
		State:   state,
		Store:   billing.PlatformGoogle,
	}, nil
}

func purchaseStateString(state int64) string {
	switch state {
	case 0:
		return "purchased"
	case 1:
		return "canceled"
	case 2:
		return "pending"
	default:
		return strconv.FormatInt(state, 10)
	}
}
