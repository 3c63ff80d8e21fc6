package widget

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestAcceptedPayloadsConform verifies every accepted payload carries a known
// type and its required fields.
// Property: Validate(x) succeeds => x.type is known and required fields are set
func TestAcceptedPayloadsConform(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	registry := Default()

	properties.Property("accepted balance cards conform", prop.ForAll(
		func(title, currency string, amount float64, n int) bool {
			accounts := make([]any, 0, n)
			for i := 0; i < n; i++ {
				accounts = append(accounts, map[string]any{
					"id": "a", "label": "A",
					"balance": map[string]any{"currency": currency, "amount": amount},
				})
			}
			raw := map[string]any{"type": "balance_card", "title": title, "accounts": accounts}

			payload, err := registry.Validate(raw)
			shouldAccept := n > 0 && len([]rune(currency)) == 3
			if !shouldAccept {
				return err != nil && payload == nil
			}
			if err != nil {
				return false
			}
			card, ok := payload.(*BalanceCard)
			return ok && card.WidgetType().Known() && card.Title == title && len(card.Accounts) == n
		},
		gen.AlphaString(),
		gen.OneConstOf("USD", "EUR", "GBP", "ZWL", "US", "DOLLAR", ""),
		gen.Float64Range(-1e9, 1e9),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

// TestUnknownDiscriminatorsRejected verifies no unknown type reaches dispatch.
// Property: type not in Types => Validate fails
func TestUnknownDiscriminatorsRejected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	registry := Default()

	properties.Property("unknown types are rejected", prop.ForAll(
		func(name string) bool {
			if Type(name).Known() {
				return true
			}
			payload, err := registry.Validate(map[string]any{"type": name, "title": "x"})
			verr, ok := AsValidationError(err)
			return payload == nil && ok && verr.Path == "/type"
		},
		gen.AnyString(),
	))

	properties.Property("dropping a required field rejects", prop.ForAll(
		func(field string) bool {
			raw := map[string]any{"type": "confirmation_dialog", "title": "T", "body": "B"}
			delete(raw, field)
			payload, err := registry.Validate(raw)
			return payload == nil && err != nil
		},
		gen.OneConstOf("type", "title", "body"),
	))

	properties.TestingRun(t)
}
