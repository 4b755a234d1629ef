package memory

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/openiap/storebridge/billing"
)

// NewProduct builds a catalog entry for the simulator, deriving the display
// price from the numeric price the way a real store front would.
func NewProduct(id, title string, typ billing.ProductType, price float64, currencyCode string, offers ...billing.Offer) *billing.Product {
	return &billing.Product{
		ID:           id,
		Title:        title,
		Description:  title,
		Type:         typ,
		DisplayPrice: FormatPrice(price, currencyCode),
		Currency:     currencyCode,
		Price:        price,
		Offers:       offers,
	}
}

// FormatPrice renders an amount with its currency symbol, e.g. "$ 0.99".
func FormatPrice(price float64, currencyCode string) string {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return message.NewPrinter(language.English).Sprintf("%.2f %s", price, currencyCode)
	}
	return message.NewPrinter(language.English).Sprintf("%v", currency.Symbol(unit.Amount(price)))
}
