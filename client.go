// Package storebridge orchestrates the purchase lifecycle across the two
// native in-app billing runtimes behind one canonical event stream and
// request API: connection management, product resolution, purchase dispatch,
// event normalization, finalization, and pluggable verification.
package storebridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/catalog"
	"github.com/openiap/storebridge/purchase"
	"github.com/openiap/storebridge/session"
	"github.com/openiap/storebridge/verify"
)

// Client wires the orchestrator components around one native billing
// session. Multiple clients may coexist in a process, but they must not
// share a native connection handle.
type Client struct {
	log        *zap.Logger
	native     billing.Native
	session    *session.Session
	catalog    *catalog.Catalog
	dispatcher *purchase.Dispatcher
	normalizer *purchase.Normalizer
	finalizer  *purchase.Finalizer
	verifier   verify.Verifier
}

// NewClient builds a client over the given native runtime. verifier may be
// nil when the caller performs no entitlement verification.
func NewClient(log *zap.Logger, native billing.Native, verifier verify.Verifier) *Client {
	sess := session.New(log, native)
	cat := catalog.New(log, native)
	normalizer := purchase.NewNormalizer(log, native)

	return &Client{
		log:        log,
		native:     native,
		session:    sess,
		catalog:    cat,
		dispatcher: purchase.NewDispatcher(log, native, sess, cat),
		normalizer: normalizer,
		finalizer:  purchase.NewFinalizer(log, native, normalizer),
		verifier:   verifier,
	}
}

// Connect establishes the billing session. Concurrent calls share one native
// attempt. The client never retries; backoff is caller policy.
func (c *Client) Connect(ctx context.Context) error {
	return c.session.Connect(ctx)
}

// Disconnect ends the session: it terminates the broadcast subscriptions,
// clears the single-flight guards and the product cache, and tears down the
// native connection. Already finalized purchases stay finalized.
func (c *Client) Disconnect() {
	c.session.Disconnect()
	c.normalizer.Reset()
	c.finalizer.ClearGuards()
	c.catalog.Reset()
}

func (c *Client) IsConnected() bool {
	return c.session.IsConnected()
}

// OnServiceLost registers a handler for the native service dropping the
// connection. Reconnection is left to the handler.
func (c *Client) OnServiceLost(fn func()) {
	c.session.OnServiceLost(fn)
}

// FetchProducts resolves SKUs to product descriptors. Missing SKUs are
// omitted from the result without error.
func (c *Client) FetchProducts(ctx context.Context, skus []string, typ billing.ProductType) ([]*billing.Product, error) {
	if !c.session.IsConnected() {
		return nil, billing.NewKindError(billing.ErrorNotPrepared, "billing service is not connected")
	}
	return c.catalog.FetchProducts(ctx, skus, typ)
}

// RequestPurchase submits a purchase. The outcome arrives asynchronously on
// PurchaseUpdates or PurchaseErrors.
func (c *Client) RequestPurchase(ctx context.Context, req *billing.PurchaseRequest) error {
	return c.dispatcher.Dispatch(ctx, req)
}

// GetAvailablePurchases polls the native layer for owned purchases. This is
// the recovery path for purchases the platform does not redeliver by push.
func (c *Client) GetAvailablePurchases(ctx context.Context, typ billing.ProductType) ([]*billing.Purchase, error) {
	if !c.session.IsConnected() {
		return nil, billing.NewKindError(billing.ErrorNotPrepared, "billing service is not connected")
	}
	return c.normalizer.Recover(ctx, typ)
}

// Finalize acknowledges or consumes a purchase, at most once per
// transaction.
func (c *Client) Finalize(ctx context.Context, p *billing.Purchase, consumable bool) (bool, error) {
	return c.finalizer.Finalize(ctx, p, consumable)
}

// Verify runs the configured verification provider for a normalized
// purchase. Callers verify before finalizing.
func (c *Client) Verify(ctx context.Context, p *billing.Purchase) (*verify.Result, error) {
	if c.verifier == nil {
		return nil, billing.NewKindError(billing.ErrorInvalidConfiguration, "no verification provider configured")
	}
	return c.verifier.VerifyPurchase(ctx, p)
}

// PurchaseUpdates subscribes to the canonical purchase stream. Each emission
// is the latest known state of its transaction.
func (c *Client) PurchaseUpdates() *purchase.Subscription[*billing.Purchase] {
	return c.normalizer.Updates().Subscribe()
}

// PurchaseErrors subscribes to failed purchase attempts.
func (c *Client) PurchaseErrors() *purchase.Subscription[*billing.Error] {
	return c.normalizer.Errors().Subscribe()
}
