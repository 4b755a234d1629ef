package billing

import (
	"context"
	"time"
)

// Signal is a raw purchase notification from the native layer, either pushed
// through SetPurchaseListener or polled via QueryPurchases. A failed purchase
// attempt carries Err and no transaction fields.
type Signal struct {
	TransactionID string
	ProductID     string
	Token         string
	State         PurchaseState
	PurchasedAt   time.Time
	Payload       map[string]string
	Err           *Error
}

// Native is the narrow capability this module requires from a billing
// runtime. The orchestrator is platform-agnostic; only implementations of
// this interface differ per platform.
type Native interface {
	Platform() Platform

	// Connect establishes the billing service session. onServiceLost is
	// invoked if the service drops after a successful connect; the native
	// layer never reconnects on its own.
	Connect(ctx context.Context, onServiceLost func()) error
	Disconnect()

	QueryProducts(ctx context.Context, skus []string, typ ProductType) ([]*Product, error)

	// LaunchPurchaseFlow submits a purchase to the native UI. The outcome is
	// delivered asynchronously through the purchase listener, never returned.
	LaunchPurchaseFlow(ctx context.Context, payload *PurchasePayload) error

	// SetPurchaseListener registers the push sink for purchase signals.
	// At most one listener is active; registering replaces the previous one.
	SetPurchaseListener(fn func(Signal))

	// QueryPurchases is the poll source for owned purchases. It is the only
	// recovery path on platforms that do not redeliver missed purchases
	// through the push listener.
	QueryPurchases(ctx context.Context, typ ProductType) ([]Signal, error)

	// Finalize acknowledges (consume=false) or consumes (consume=true) the
	// purchase identified by token.
	Finalize(ctx context.Context, token string, consume bool) error

	// RequiresOfferToken reports whether subscription purchases on this
	// platform must carry an offer token.
	RequiresOfferToken() bool

	// RedeliversOnReconnect reports whether purchases completed while the
	// app was not running are pushed to the listener after reconnect.
	RedeliversOnReconnect() bool
}
