package billing

import (
	"maps"
	"time"
)

type ProductType uint8

const (
	ProductTypeUnknown ProductType = iota
	ProductTypeInApp
	ProductTypeSubs
)

func (t ProductType) String() string {
	switch t {
	case ProductTypeInApp:
		return "inapp"
	case ProductTypeSubs:
		return "subs"
	default:
		return "unknown"
	}
}

type PaymentMode uint8

const (
	PaymentModeNone PaymentMode = iota
	PaymentModeFreeTrial
	PaymentModePayAsYouGo
	PaymentModePayUpFront
)

// Offer is a purchasable pricing plan under a product. Token is the opaque
// platform payload required at purchase time on platforms that mandate it.
type Offer struct {
	OfferID     string
	BasePlanID  string
	PaymentMode PaymentMode
	Period      string
	Token       string
}

// Product is an immutable descriptor resolved from the native catalog.
// Re-fetching replaces the descriptor; it is never mutated in place.
type Product struct {
	ID           string
	Title        string
	Description  string
	Type         ProductType
	DisplayPrice string
	Currency     string
	Price        float64
	Offers       []Offer
}

// Offer returns the offer with the given id, if the product carries one.
func (p *Product) Offer(offerID string) (Offer, bool) {
	for _, offer := range p.Offers {
		if offer.OfferID == offerID {
			return offer, true
		}
	}
	return Offer{}, false
}

// PurchaseRequest is caller intent for a single purchase dispatch.
type PurchaseRequest struct {
	ProductID    string
	Type         ProductType
	OfferID      string
	Quantity     int
	AccountToken string
	Personalized bool
}

// PurchasePayload is the platform-ready form of a PurchaseRequest built by
// the dispatcher after validation.
type PurchasePayload struct {
	ProductID    string
	OfferToken   string
	Quantity     int
	AccountToken string
	Personalized bool
}

type PurchaseState uint8

const (
	PurchaseStateUnknown PurchaseState = iota
	PurchaseStatePending
	PurchaseStatePurchased
)

func (s PurchaseState) String() string {
	switch s {
	case PurchaseStatePending:
		return "pending"
	case PurchaseStatePurchased:
		return "purchased"
	default:
		return "unknown"
	}
}

// Purchase is the canonical record for one native transaction. TransactionID
// is its identity within a connection session. Payload carries fields that
// have no cross-platform equivalent (auto-renew flag, environment tag,
// signature), keyed by platform-specific names.
type Purchase struct {
	TransactionID string
	ProductID     string
	Token         string
	State         PurchaseState
	PurchasedAt   time.Time
	Finalized     bool
	Platform      Platform
	Payload       map[string]string
}

func (p *Purchase) Clone() *Purchase {
	cloned := &Purchase{
		TransactionID: p.TransactionID,
		ProductID:     p.ProductID,
		Token:         p.Token,
		State:         p.State,
		PurchasedAt:   p.PurchasedAt,
		Finalized:     p.Finalized,
		Platform:      p.Platform,
	}
	if p.Payload != nil {
		cloned.Payload = maps.Clone(p.Payload)
	}
	return cloned
}
