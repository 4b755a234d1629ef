package apple

import (
	"context"

	"github.com/devsisters/go-applereceipt"
	"github.com/devsisters/go-applereceipt/applepki"
	"github.com/pkg/errors"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/verify"
)

// Verifier decodes the App Store receipt carried in the purchase token and
// checks it locally against Apple's root certificates. No network access is
// involved, which makes this suitable as a local-tier provider.
type Verifier struct {
	// bundleID is the app's bundle identifier, e.g. "com.example.app".
	bundleID string
}

func NewVerifier(bundleID string) verify.Verifier {
	return &Verifier{
		bundleID: bundleID,
	}
}

func (v *Verifier) VerifyPurchase(ctx context.Context, purchase *billing.Purchase) (*verify.Result, error) {
	receipt, err := applereceipt.DecodeBase64(purchase.Token, applepki.CertPool())
	if err != nil {
		return nil, errors.Wrap(err, "error decoding receipt")
	}

	if receipt.BundleIdentifier != v.bundleID {
		return &verify.Result{
			IsValid: false,
			State:   verify.EntitlementInauthentic,
			Store:   billing.PlatformApple,
		}, nil
	}

	// The envelope may omit per-purchase fields, so the product identifier
	// is not cross-checked here.
	// See https://developer.apple.com/library/archive/releasenotes/General/ValidateAppStoreReceipt/Chapters/ReceiptFields.html

	return &verify.Result{
		IsValid: true,
		State:   verify.EntitlementEntitled,
		Store:   billing.PlatformApple,
	}, nil
}
