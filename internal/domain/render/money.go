package render

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/widget"
)

var printer = message.NewPrinter(language.English)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"ZAR": "R",
}

// FormatMoney renders m with grouping and two fraction digits, e.g. $1,234.56.
// Currencies without a known symbol are prefixed with their code.
func FormatMoney(m widget.Money) string {
	code := strings.ToUpper(m.Currency)
	digits := printer.Sprintf("%v", number.Decimal(math.Abs(m.Amount),
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))

	sign := ""
	if m.Amount < 0 {
		sign = "-"
	}
	if symbol, ok := currencySymbols[code]; ok {
		return sign + symbol + digits
	}
	return sign + code + " " + digits
}

// Total sums the accounts sharing the first account's currency.
// Accounts in other currencies are skipped rather than converted.
func Total(accounts []widget.Account) (widget.Money, bool) {
	if len(accounts) == 0 {
		return widget.Money{}, false
	}

	total := widget.Money{Currency: accounts[0].Balance.Currency}
	for _, account := range accounts {
		if strings.EqualFold(account.Balance.Currency, total.Currency) {
			total.Amount += account.Balance.Amount
		}
	}
	return total, true
}
