package conversation

import (
	"regexp"
	"strings"

	"github.com/lucianoherrera1000/vendobot/pkg/models"
)

var (
	// Fragment separators: "2 hamburguesas y 1 coca", "2 hamb + 1 coca", "1 coca, 2 papas".
	separatorRe = regexp.MustCompile(`\s*(?:,| y |\+|/)\s*`)

	orderVerbRe = regexp.MustCompile(`^(?:quiero|dame|mandame|mandáme)\s+`)
	qtyNameRe   = regexp.MustCompile(`^(\d+|[a-záéíóúüñ]+)\s+(.+)$`)

	// Loose whole-text scan used when no fragment matched on its own.
	looseItemRe = regexp.MustCompile(`(\d+|[a-záéíóúüñ]+)\s+([a-záéíóúüñ\s]+)`)
)

// ExtractItems parses "quantity + product" phrases out of free text.
// Fragments introduced by an ordering verb ("quiero hamburguesa") default to
// quantity 1; fragments with neither verb nor quantity are dropped.
func ExtractItems(text string) []models.OrderItem {
	t := Normalize(text)
	if t == "" {
		return nil
	}

	var items []models.OrderItem
	for _, part := range separatorRe.Split(t, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		hadVerb := false
		if loc := orderVerbRe.FindStringIndex(part); loc != nil {
			hadVerb = true
			part = strings.TrimSpace(part[loc[1]:])
		}

		if m := qtyNameRe.FindStringSubmatch(part); m != nil {
			if qty, ok := ParseQty(m[1]); ok {
				if name := CanonicalItem(m[2]); name != "" {
					items = append(items, models.OrderItem{Name: name, Qty: qty})
				}
				continue
			}
		}
		if hadVerb {
			if name := CanonicalItem(part); name != "" {
				items = append(items, models.OrderItem{Name: name, Qty: 1})
			}
		}
	}
	if len(items) > 0 {
		return items
	}

	// Nothing matched fragment-wise; scan the whole text for the first clear
	// quantity+name pair ("me mandas 2 hamburguesas porfa").
	for _, m := range looseItemRe.FindAllStringSubmatch(t, -1) {
		qty, ok := ParseQty(m[1])
		if !ok {
			continue
		}
		if name := CanonicalItem(m[2]); name != "" {
			return []models.OrderItem{{Name: name, Qty: qty}}
		}
	}
	return nil
}
