package verify

import (
	"context"
	"strings"

	"github.com/openiap/storebridge/billing"
)

// EntitlementState is the verified, authoritative status of a purchase as
// reported by a provider, distinct from the locally observed purchase state.
type EntitlementState uint8

const (
	EntitlementUnknown EntitlementState = iota
	EntitlementEntitled
	EntitlementExpired
	EntitlementCanceled
	EntitlementPending
	EntitlementConsumed
	EntitlementInauthentic
)

func (s EntitlementState) String() string {
	switch s {
	case EntitlementEntitled:
		return "entitled"
	case EntitlementExpired:
		return "expired"
	case EntitlementCanceled:
		return "canceled"
	case EntitlementPending:
		return "pending"
	case EntitlementConsumed:
		return "consumed"
	case EntitlementInauthentic:
		return "inauthentic"
	default:
		return "unknown"
	}
}

// Result is produced per verification call and not retained by this module.
type Result struct {
	IsValid bool
	State   EntitlementState
	Store   billing.Platform
}

// Verifier checks a normalized purchase against a local or remote authority.
// Callers verify after normalization and before finalization.
type Verifier interface {
	VerifyPurchase(ctx context.Context, purchase *billing.Purchase) (*Result, error)
}

// MapEntitlementState maps an arbitrary provider state string into the
// canonical enum. Unmapped values map to EntitlementUnknown, never silently
// to EntitlementEntitled.
func MapEntitlementState(state string) EntitlementState {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "entitled", "active", "purchased":
		return EntitlementEntitled
	case "expired":
		return EntitlementExpired
	case "canceled", "cancelled", "revoked":
		return EntitlementCanceled
	case "pending", "deferred":
		return EntitlementPending
	case "consumed":
		return EntitlementConsumed
	case "inauthentic", "invalid", "forged":
		return EntitlementInauthentic
	default:
		return EntitlementUnknown
	}
}
