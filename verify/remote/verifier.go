package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/verify"
)

// Config points the verifier at an external entitlement service. The only
// contract with the service is "send a token, get back a state string".
type Config struct {
	Endpoint string
	APIKey   string

	// HTTPClient overrides http.DefaultClient when set.
	HTTPClient *http.Client
}

// Verifier delegates verification to an arbitrary remote provider speaking
// JSON over HTTP. Whatever the provider answers is mapped into the canonical
// entitlement enum; states it invents come back as unknown, never entitled.
type Verifier struct {
	config Config
}

func NewVerifier(config Config) verify.Verifier {
	return &Verifier{
		config: config,
	}
}

type verifyRequest struct {
	PurchaseToken string `json:"purchaseToken"`
	ProductID     string `json:"productId"`
	TransactionID string `json:"transactionId"`
	Platform      string `json:"platform"`
}

type verifyResponse struct {
	Valid bool   `json:"valid"`
	State string `json:"state"`
}

func (v *Verifier) VerifyPurchase(ctx context.Context, purchase *billing.Purchase) (*verify.Result, error) {
	body, err := json.Marshal(&verifyRequest{
		PurchaseToken: purchase.Token,
		ProductID:     purchase.ProductID,
		TransactionID: purchase.TransactionID,
		Platform:      purchase.Platform.String(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "error marshalling verification request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "error building verification request")
	}
	req.Header.Set("Content-Type", "application/json")
	if len(v.config.APIKey) > 0 {
		req.Header.Set("Authorization", "Bearer "+v.config.APIKey)
	}

	client := v.config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "error calling verification provider")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, billing.NewKindError(billing.ErrorVerificationFailed, "verification provider returned status "+resp.Status)
	}

	var decoded verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "error decoding verification response")
	}

	state := verify.MapEntitlementState(decoded.State)
	return &verify.Result{
		IsValid: decoded.Valid && state != verify.EntitlementUnknown && state != verify.EntitlementInauthentic,
		State:   state,
		Store:   purchase.Platform,
	}, nil
}
