package memory

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/verify"
)

// Verifier is a development-only provider: it accepts purchase tokens signed
// with a locally held key. It never touches the network, which is exactly
// why it must not ship in a production configuration.
type Verifier struct {
	pub ed25519.PublicKey
}

func NewVerifier(pub ed25519.PublicKey) verify.Verifier {
	return &Verifier{
		pub: pub,
	}
}

func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// SignToken produces a token for the given product that NewVerifier's
// counterpart will accept.
func SignToken(priv ed25519.PrivateKey, productID string) string {
	sig := ed25519.Sign(priv, []byte(productID))
	return base64.RawURLEncoding.EncodeToString([]byte(productID)) + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func (v *Verifier) VerifyPurchase(ctx context.Context, purchase *billing.Purchase) (*verify.Result, error) {
	inauthentic := &verify.Result{
		IsValid: false,
		State:   verify.EntitlementInauthentic,
		Store:   purchase.Platform,
	}

	parts := strings.SplitN(purchase.Token, ".", 2)
	if len(parts) != 2 {
		return inauthentic, nil
	}

	productID, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return inauthentic, nil
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return inauthentic, nil
	}

	if !ed25519.Verify(v.pub, productID, sig) {
		return inauthentic, nil
	}
	if string(productID) != purchase.ProductID {
		return inauthentic, nil
	}

	return &verify.Result{
		IsValid: true,
		State:   verify.EntitlementEntitled,
		Store:   purchase.Platform,
	}, nil
}
