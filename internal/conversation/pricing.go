package conversation

import (
	"fmt"
	"strings"

	"github.com/lucianoherrera1000/vendobot/pkg/locales"
	"github.com/lucianoherrera1000/vendobot/pkg/menu"
	"github.com/lucianoherrera1000/vendobot/pkg/models"
)

// ComputeTotal sums item prices and adds the delivery fee when the order
// ships. Unknown products price at 0, they never abort the computation.
func ComputeTotal(data models.OrderData, deliveryFee int) int {
	total := 0
	for _, it := range data.Items {
		if it.Qty <= 0 {
			continue
		}
		total += menu.Price(CanonicalItem(it.Name)) * it.Qty
	}
	if data.DeliveryMethod == models.DeliveryEnvio {
		total += deliveryFee
	}
	return total
}

// RenderSummary builds the pre-confirmation recap in fixed field order:
// items, delivery method, address, payment, name, then the yes/no prompt.
// The address renders as a dash unless the order ships.
func RenderSummary(data models.OrderData) string {
	l := locales.Get()

	lines := []string{l.Summary.Header}
	for _, it := range data.Items {
		lines = append(lines, fmt.Sprintf("- %d %s", it.Qty, it.Name))
	}
	lines = append(lines, "")

	dm := orDash(data.DeliveryMethod)
	addr := "-"
	if data.DeliveryMethod == models.DeliveryEnvio {
		addr = orDash(data.Address)
	}
	lines = append(lines,
		l.Summary.DeliveryLabel+" "+dm,
		l.Summary.AddressLabel+" "+addr,
		l.Summary.PaymentLabel+" "+orDash(data.PaymentMethod),
		l.Summary.NameLabel+" "+orDash(data.Name),
		"",
		l.Summary.ConfirmPrompt,
	)
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
