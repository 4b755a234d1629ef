package purchase

import (
	"context"

	"go.uber.org/zap"

	"github.com/openiap/storebridge/billing"
	"github.com/openiap/storebridge/catalog"
	"github.com/openiap/storebridge/session"
)

// Dispatcher validates a canonical purchase request and submits it through
// the native layer. The outcome never comes back through Dispatch; it
// arrives asynchronously on the normalizer's buses, mirroring the async
// purchase UI flow of both platforms.
type Dispatcher struct {
	log     *zap.Logger
	native  billing.Native
	session *session.Session
	catalog *catalog.Catalog
}

func NewDispatcher(log *zap.Logger, native billing.Native, sess *session.Session, cat *catalog.Catalog) *Dispatcher {
	return &Dispatcher{
		log:     log,
		native:  native,
		session: sess,
		catalog: cat,
	}
}

// Dispatch fails fast with NotPrepared when the session is not connected or
// the product was never resolved this session, and with InvalidConfiguration
// when the platform mandates an offer token and the request does not pin an
// offer that carries one. The native layer is not contacted in either case.
func (d *Dispatcher) Dispatch(ctx context.Context, req *billing.PurchaseRequest) error {
	if !d.session.IsConnected() {
		return billing.NewKindError(billing.ErrorNotPrepared, "billing service is not connected")
	}

	product, ok := d.catalog.Lookup(req.ProductID, req.Type)
	if !ok {
		return billing.NewKindError(billing.ErrorNotPrepared, "product has not been resolved in this session: "+req.ProductID)
	}

	payload := &billing.PurchasePayload{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		AccountToken: req.AccountToken,
		Personalized: req.Personalized,
	}
	if payload.Quantity <= 0 {
		payload.Quantity = 1
	}

	if len(req.OfferID) > 0 {
		offer, ok := product.Offer(req.OfferID)
		if !ok {
			return billing.NewKindError(billing.ErrorInvalidConfiguration, "offer is not part of product "+req.ProductID+": "+req.OfferID)
		}
		payload.OfferToken = offer.Token
	}

	if product.Type == billing.ProductTypeSubs && d.native.RequiresOfferToken() {
		if len(req.OfferID) == 0 {
			return billing.NewKindError(billing.ErrorInvalidConfiguration, "platform requires an explicit offer for subscription purchases")
		}
		if len(payload.OfferToken) == 0 {
			return billing.NewKindError(billing.ErrorInvalidConfiguration, "selected offer carries no offer token: "+req.OfferID)
		}
	}

	d.log.Debug("Dispatching purchase request",
		zap.String("product_id", req.ProductID),
		zap.String("offer_id", req.OfferID),
		zap.Int("quantity", payload.Quantity),
	)

	return d.native.LaunchPurchaseFlow(ctx, payload)
}
