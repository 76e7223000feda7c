package explorer

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatPrice renders a whole-real amount the way the site shows prices,
// e.g. "R$ 1.250.000" (no cents, non-breaking space after the symbol).
func FormatPrice(price int64) string {
	if price < 0 {
		return "-R$\u00a0" + brl.Sprintf("%d", -price)
	}
	return "R$\u00a0" + brl.Sprintf("%d", price)
}
