// Package format renders core values for display at the API and bot edges.
package format

import (
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/learoder-max/Wishlist/internal/models"
)

var printer = message.NewPrinter(language.English)

// Price renders a price for display, e.g. "$1,200.00" or "EUR 15.00".
// It returns "" when there is no price.
func Price(price *float64, currency string) string {
	if price == nil {
		return ""
	}
	if currency == "" {
		currency = models.DefaultCurrency
	}
	if utf8.RuneCountInString(currency) == 1 {
		return printer.Sprintf("%s%.2f", currency, *price)
	}
	return printer.Sprintf("%s %.2f", currency, *price)
}
