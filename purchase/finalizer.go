package purchase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/openiap/storebridge/billing"
)

type finalizeOp struct {
	done chan struct{}
	ok   bool
	err  error
}

// Finalizer performs the native acknowledge/consume/finish call with an
// at-most-once-per-transaction guarantee. Concurrent and retried calls for
// one transaction share a single native call and observe its outcome; only
// after a failure may a deliberate retry issue a new one.
type Finalizer struct {
	log    *zap.Logger
	native billing.Native

	// recorder, when set, is told about successful finalizations so the
	// canonical record can be flipped. Normally the normalizer.
	recorder interface{ MarkFinalized(transactionID string) }

	mu       sync.Mutex
	inflight map[string]*finalizeOp
	settled  map[string]*finalizeOp
}

func NewFinalizer(log *zap.Logger, native billing.Native, recorder interface{ MarkFinalized(string) }) *Finalizer {
	return &Finalizer{
		log:      log,
		native:   native,
		recorder: recorder,
		inflight: make(map[string]*finalizeOp),
		settled:  make(map[string]*finalizeOp),
	}
}

// Finalize consumes the purchase when consumable is true (it becomes
// re-purchasable) or acknowledges/finishes it otherwise. Picking the wrong
// branch is a caller error this component cannot detect. The returned bool
// reports whether this call (or the in-flight call it joined) performed the
// finalization; a settled transaction returns true with no native call.
func (f *Finalizer) Finalize(ctx context.Context, p *billing.Purchase, consumable bool) (bool, error) {
	if len(p.TransactionID) == 0 {
		return false, billing.NewKindError(billing.ErrorDeveloper, "purchase has no transaction id")
	}
	if len(p.Token) == 0 {
		return false, billing.NewKindError(billing.ErrorDeveloper, "purchase has no token to finalize")
	}

	f.mu.Lock()

	if op, ok := f.settled[p.TransactionID]; ok {
		f.mu.Unlock()
		p.Finalized = true
		return op.ok, op.err
	}

	if op, ok := f.inflight[p.TransactionID]; ok {
		f.mu.Unlock()
		select {
		case <-op.done:
			if op.err == nil {
				p.Finalized = true
			}
			return op.ok, op.err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	op := &finalizeOp{done: make(chan struct{})}
	f.inflight[p.TransactionID] = op
	f.mu.Unlock()

	err := f.native.Finalize(ctx, p.Token, consumable)

	f.mu.Lock()
	delete(f.inflight, p.TransactionID)
	if err == nil {
		op.ok = true
		// Remember the outcome so a late retry doesn't re-finalize.
		f.settled[p.TransactionID] = op
	} else {
		op.err = err
	}
	f.mu.Unlock()

	close(op.done)

	if err != nil {
		f.log.Warn("Finalize failed",
			zap.String("transaction_id", p.TransactionID),
			zap.Bool("consumable", consumable),
			zap.Error(err),
		)
		return false, err
	}

	p.Finalized = true
	if f.recorder != nil {
		f.recorder.MarkFinalized(p.TransactionID)
	}

	f.log.Debug("Finalized transaction",
		zap.String("transaction_id", p.TransactionID),
		zap.Bool("consumable", consumable),
	)
	return true, nil
}

// ClearGuards drops all single-flight and settled state. Called on
// disconnect; it does not retroactively invalidate finalized purchases.
func (f *Finalizer) ClearGuards() {
	f.mu.Lock()
	f.inflight = make(map[string]*finalizeOp)
	f.settled = make(map[string]*finalizeOp)
	f.mu.Unlock()
}
