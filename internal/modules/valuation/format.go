package valuation

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// eurFormatter renders cents the way de-DE currency formatting does: "441.000,00 €"
// with a no-break space before the sign
var eurFormatter = money.NewFormatter(2, ",", ".", "€", "1\u00a0$")

// FormatEUR rounds half away from zero to cents and formats in de-DE style
func FormatEUR(v float64) string {
	cents := decimal.NewFromFloat(NormalizeAmount(v)).Round(2).Shift(2).IntPart()
	return eurFormatter.Format(cents)
}
