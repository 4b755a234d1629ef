package memory

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/openiap/storebridge/billing"
)

// Native is an in-process billing runtime used by tests and development
// builds. It models the behavioral differences that matter to the
// orchestrator: the Apple flavor redelivers missed purchases through the
// push listener on reconnect and treats double-finish as a no-op; the Google
// flavor never redelivers (poll only), requires offer tokens for
// subscriptions, and rejects a second acknowledge for one token.
type Native struct {
	platform billing.Platform

	mu            sync.Mutex
	products      map[string]*billing.Product
	listener      func(billing.Signal)
	onServiceLost func()
	connected     bool

	owned     map[string]billing.Signal // by transaction id
	finalized map[string]bool           // by token
	undeliv   []billing.Signal          // completed while disconnected

	connectAttempts int
	connectGate     chan struct{}
	connectErr      *billing.Error

	launches      []*billing.PurchasePayload
	finalizeCalls map[string]int
	finalizeGate  chan struct{}
}

func NewAppleNative(products ...*billing.Product) *Native {
	return newNative(billing.PlatformApple, products)
}

func NewGoogleNative(products ...*billing.Product) *Native {
	return newNative(billing.PlatformGoogle, products)
}

func newNative(platform billing.Platform, products []*billing.Product) *Native {
	n := &Native{
		platform:      platform,
		products:      make(map[string]*billing.Product),
		owned:         make(map[string]billing.Signal),
		finalized:     make(map[string]bool),
		finalizeCalls: make(map[string]int),
	}
	for _, product := range products {
		n.products[product.ID] = product
	}
	return n
}

func (n *Native) Platform() billing.Platform {
	return n.platform
}

func (n *Native) RequiresOfferToken() bool {
	return n.platform == billing.PlatformGoogle
}

func (n *Native) RedeliversOnReconnect() bool {
	return n.platform == billing.PlatformApple
}

func (n *Native) Connect(ctx context.Context, onServiceLost func()) error {
	n.mu.Lock()
	n.connectAttempts++
	gate := n.connectGate
	connectErr := n.connectErr
	n.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if connectErr != nil {
		return connectErr
	}

	n.mu.Lock()
	n.connected = true
	n.onServiceLost = onServiceLost
	listener := n.listener
	var redelivery []billing.Signal
	if n.RedeliversOnReconnect() {
		redelivery = n.undeliv
		n.undeliv = nil
	}
	n.mu.Unlock()

	if listener != nil {
		for _, sig := range redelivery {
			listener(sig)
		}
	}
	return nil
}

func (n *Native) Disconnect() {
	n.mu.Lock()
	n.connected = false
	n.onServiceLost = nil
	n.mu.Unlock()
}

func (n *Native) QueryProducts(ctx context.Context, skus []string, typ billing.ProductType) ([]*billing.Product, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.connected {
		return nil, billing.NewKindError(billing.ErrorServiceUnavailable, "not connected")
	}

	var res []*billing.Product
	for _, sku := range skus {
		product, ok := n.products[sku]
		if !ok || product.Type != typ {
			continue
		}
		res = append(res, product)
	}
	return res, nil
}

func (n *Native) LaunchPurchaseFlow(ctx context.Context, payload *billing.PurchasePayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.connected {
		return billing.NewKindError(billing.ErrorServiceUnavailable, "not connected")
	}

	n.launches = append(n.launches, payload)
	return nil
}

func (n *Native) SetPurchaseListener(fn func(billing.Signal)) {
	n.mu.Lock()
	n.listener = fn
	n.mu.Unlock()
}

func (n *Native) QueryPurchases(ctx context.Context, typ billing.ProductType) ([]billing.Signal, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.connected {
		return nil, billing.NewKindError(billing.ErrorServiceUnavailable, "not connected")
	}

	var res []billing.Signal
	for _, sig := range n.owned {
		product, ok := n.products[sig.ProductID]
		if ok && product.Type != typ {
			continue
		}
		res = append(res, sig)
	}
	return res, nil
}

func (n *Native) Finalize(ctx context.Context, token string, consume bool) error {
	n.mu.Lock()
	n.finalizeCalls[token]++
	gate := n.finalizeGate
	alreadyFinalized := n.finalized[token]
	connected := n.connected
	n.mu.Unlock()

	if !connected {
		return billing.NewKindError(billing.ErrorServiceUnavailable, "not connected")
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if alreadyFinalized {
		if n.platform == billing.PlatformGoogle {
			return billing.NewError(8, billing.PlatformGoogle, "purchase is not owned")
		}
		// Finishing a finished transaction is a no-op.
		return nil
	}

	n.mu.Lock()
	n.finalized[token] = true
	if consume {
		for id, sig := range n.owned {
			if sig.Token == token {
				delete(n.owned, id)
			}
		}
	}
	n.mu.Unlock()

	return nil
}

// --- test hooks -----------------------------------------------------------

// CompletePurchase simulates the user finishing the native purchase UI. The
// resulting signal is pushed to the listener when connected, or queued for
// the platform's recovery semantics otherwise.
func (n *Native) CompletePurchase(productID string, state billing.PurchaseState) billing.Signal {
	tokenBytes := make([]byte, 24)
	if _, err := rand.Read(tokenBytes); err != nil {
		panic(errors.Wrap(err, "error generating purchase token"))
	}

	sig := billing.Signal{
		TransactionID: uuid.NewString(),
		ProductID:     productID,
		Token:         base58.Encode(tokenBytes),
		State:         state,
		PurchasedAt:   time.Now(),
	}

	n.deliver(sig)
	return sig
}

// RefinePurchase re-delivers an earlier signal with a new state, keeping the
// transaction id stable.
func (n *Native) RefinePurchase(sig billing.Signal, state billing.PurchaseState) billing.Signal {
	sig.State = state
	n.deliver(sig)
	return sig
}

// FailPurchase pushes a failed purchase attempt with the given native code.
func (n *Native) FailPurchase(code int, message string) {
	n.mu.Lock()
	listener := n.listener
	n.mu.Unlock()

	if listener != nil {
		listener(billing.Signal{Err: billing.NewError(code, n.platform, message)})
	}
}

// DropService simulates the billing service dying underneath an established
// connection.
func (n *Native) DropService() {
	n.mu.Lock()
	n.connected = false
	onLost := n.onServiceLost
	n.onServiceLost = nil
	n.mu.Unlock()

	if onLost != nil {
		onLost()
	}
}

// HoldConnect makes Connect block until the returned release func is called.
func (n *Native) HoldConnect() (release func()) {
	gate := make(chan struct{})
	n.mu.Lock()
	n.connectGate = gate
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			n.connectGate = nil
			n.mu.Unlock()
			close(gate)
		})
	}
}

// HoldFinalize makes Finalize block until the returned release func is called.
func (n *Native) HoldFinalize() (release func()) {
	gate := make(chan struct{})
	n.mu.Lock()
	n.finalizeGate = gate
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			n.finalizeGate = nil
			n.mu.Unlock()
			close(gate)
		})
	}
}

// SetConnectError makes subsequent Connect attempts fail.
func (n *Native) SetConnectError(err *billing.Error) {
	n.mu.Lock()
	n.connectErr = err
	n.mu.Unlock()
}

func (n *Native) Connected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

func (n *Native) ConnectAttempts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connectAttempts
}

func (n *Native) Launches() []*billing.PurchasePayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	res := make([]*billing.PurchasePayload, len(n.launches))
	copy(res, n.launches)
	return res
}

func (n *Native) FinalizeCalls(token string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finalizeCalls[token]
}

func (n *Native) deliver(sig billing.Signal) {
	n.mu.Lock()
	n.owned[sig.TransactionID] = sig
	connected := n.connected
	listener := n.listener
	if !connected || listener == nil {
		// The Apple flavor pushes these on the next connect; the Google
		// flavor surfaces them only through QueryPurchases.
		if n.RedeliversOnReconnect() {
			n.undeliv = append(n.undeliv, sig)
		}
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	listener(sig)
}
