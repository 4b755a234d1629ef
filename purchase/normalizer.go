package purchase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/openiap/storebridge/billing"
)

// Normalizer turns raw native purchase signals into canonical Purchase
// records, deduplicated by transaction id within a connection session, and
// fans them out on two broadcast buses.
//
// Platform asymmetry: the Apple-style runtime redelivers purchases completed
// while the app was not running by pushing them to the listener after
// reconnect; the Google-style runtime does not. On the latter, Recover is
// the only path to such purchases. The normalizer does not invent synthetic
// events to hide this.
type Normalizer struct {
	log    *zap.Logger
	native billing.Native

	mu      sync.Mutex
	live    map[string]*billing.Purchase
	updates *Bus[*billing.Purchase]
	errors  *Bus[*billing.Error]
}

func NewNormalizer(log *zap.Logger, native billing.Native) *Normalizer {
	n := &Normalizer{
		log:     log,
		native:  native,
		live:    make(map[string]*billing.Purchase),
		updates: NewBus[*billing.Purchase](),
		errors:  NewBus[*billing.Error](),
	}
	native.SetPurchaseListener(n.onSignal)
	return n
}

// Updates is the broadcast bus of canonical purchase records. Each emission
// is the latest known state for its transaction, not a distinct event; a
// state refinement re-emits the same logical record.
func (n *Normalizer) Updates() *Bus[*billing.Purchase] {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.updates
}

// Errors is the broadcast bus of failed purchase attempts, already
// translated to the canonical taxonomy.
func (n *Normalizer) Errors() *Bus[*billing.Error] {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.errors
}

// Recover polls the native layer for owned purchases and runs them through
// normalization. This is the documented recovery path on platforms without
// push redelivery.
func (n *Normalizer) Recover(ctx context.Context, typ billing.ProductType) ([]*billing.Purchase, error) {
	signals, err := n.native.QueryPurchases(ctx, typ)
	if err != nil {
		return nil, err
	}

	recovered := make([]*billing.Purchase, 0, len(signals))
	for _, sig := range signals {
		if p := n.ingest(sig); p != nil {
			recovered = append(recovered, p)
		}
	}
	return recovered, nil
}

// MarkFinalized flips the finalized flag on the live record for the given
// transaction. Only the finalizer calls this.
func (n *Normalizer) MarkFinalized(transactionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if p, ok := n.live[transactionID]; ok {
		p.Finalized = true
	}
}

// Reset clears the dedup state and terminates both buses, signaling session
// end to existing subscribers. Fresh buses back any later session.
func (n *Normalizer) Reset() {
	n.mu.Lock()
	n.live = make(map[string]*billing.Purchase)
	oldUpdates, oldErrors := n.updates, n.errors
	n.updates = NewBus[*billing.Purchase]()
	n.errors = NewBus[*billing.Error]()
	n.mu.Unlock()

	oldUpdates.Close()
	oldErrors.Close()
}

func (n *Normalizer) onSignal(sig billing.Signal) {
	n.ingest(sig)
}

func (n *Normalizer) ingest(sig billing.Signal) *billing.Purchase {
	if sig.Err != nil {
		n.log.Debug("Purchase attempt failed",
			zap.String("kind", sig.Err.Kind.String()),
			zap.Int("code", sig.Err.Code),
		)
		n.Errors().Publish(sig.Err)
		return nil
	}

	if len(sig.TransactionID) == 0 {
		n.log.Warn("Dropping purchase signal without transaction id",
			zap.String("product_id", sig.ProductID),
		)
		return nil
	}

	n.mu.Lock()
	p, ok := n.live[sig.TransactionID]
	if !ok {
		p = &billing.Purchase{
			TransactionID: sig.TransactionID,
			ProductID:     sig.ProductID,
			Token:         sig.Token,
			State:         sig.State,
			PurchasedAt:   sig.PurchasedAt,
			Platform:      n.native.Platform(),
			Payload:       sig.Payload,
		}
		n.live[sig.TransactionID] = p
	} else {
		// Same logical record: refine state causally, never regress a
		// settled purchase back to pending.
		if p.State != billing.PurchaseStatePurchased || sig.State == billing.PurchaseStatePurchased {
			p.State = sig.State
		}
		if len(sig.Token) > 0 {
			p.Token = sig.Token
		}
		for k, v := range sig.Payload {
			if p.Payload == nil {
				p.Payload = make(map[string]string)
			}
			p.Payload[k] = v
		}
	}
	// Publish while holding the lock so concurrent ingests of one
	// transaction (a push refinement racing a recovery poll) reach
	// subscribers in record-mutation order. Publish never blocks.
	emitted := p.Clone()
	n.updates.Publish(emitted)
	n.mu.Unlock()

	return emitted
}
