package verify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapEntitlementState(t *testing.T) {
	for state, expected := range map[string]EntitlementState{
		"entitled":  EntitlementEntitled,
		"ACTIVE":    EntitlementEntitled,
		"purchased": EntitlementEntitled,
		"expired":   EntitlementExpired,
		"canceled":  EntitlementCanceled,
		"cancelled": EntitlementCanceled,
		"revoked":   EntitlementCanceled,
		" pending ": EntitlementPending,
		"deferred":  EntitlementPending,
		"consumed":  EntitlementConsumed,
		"invalid":   EntitlementInauthentic,
	} {
		require.Equal(t, expected, MapEntitlementState(state), "state %q", state)
	}
}

func TestMapEntitlementState_UnmappedIsNeverEntitled(t *testing.T) {
	for _, state := range []string{"", "grace_period", "on_hold", "paused", "something_new"} {
		require.Equal(t, EntitlementUnknown, MapEntitlementState(state), "state %q", state)
	}
}
