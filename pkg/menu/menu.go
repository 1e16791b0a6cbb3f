// Package menu holds the vendor's product catalog: canonical names, prices
// and the rendered menu text sent to customers.
package menu

import (
	"fmt"
	"strings"
)

// Product is one sellable menu entry.
type Product struct {
	Name  string // canonical name, lookup key for pricing
	Price int
	Emoji string
}

// Products is the fixed daily menu, in display order.
var Products = []Product{
	{Name: "hamburguesa simple", Price: 9000, Emoji: "🍔"},
	{Name: "hamburguesa doble", Price: 12000, Emoji: "🍔"},
	{Name: "papas", Price: 5000, Emoji: "🍟"},
	{Name: "tallarines", Price: 10000, Emoji: "🍝"},
	{Name: "empanadas de pollo", Price: 1500, Emoji: "🥟"},
	{Name: "empanadas de carne", Price: 1500, Emoji: "🥟"},
	{Name: "coca", Price: 2000, Emoji: "🥤"},
}

// DefaultDeliveryFee is the surcharge added when the order is shipped.
const DefaultDeliveryFee = 3000

var priceByName = func() map[string]int {
	m := make(map[string]int, len(Products)+1)
	for _, p := range Products {
		m[p.Name] = p.Price
	}
	// A bare "hamburguesa" sells at the simple price.
	m["hamburguesa"] = m["hamburguesa simple"]
	return m
}()

// Price returns the unit price for a canonical product name. Unknown names
// price at 0: the bot records them but never charges for what it can't map.
// Hamburguesa variants that slipped past canonicalization still resolve here.
func Price(name string) int {
	if p, ok := priceByName[name]; ok {
		return p
	}
	if strings.Contains(name, "hamb") {
		if strings.Contains(name, "doble") {
			return priceByName["hamburguesa doble"]
		}
		return priceByName["hamburguesa simple"]
	}
	return 0
}

// Find looks a normalized token up against the catalog, matching canonical
// names loosely so "coca" or "empanadas" both land somewhere.
func Find(token string) (Product, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Product{}, false
	}
	for _, p := range Products {
		if p.Name == token || strings.Contains(p.Name, token) || strings.Contains(token, p.Name) {
			return p, true
		}
	}
	return Product{}, false
}

// Text renders the menu block shown to customers.
func Text() string {
	var b strings.Builder
	b.WriteString("📋 MENÚ MARIETTA (HOY)\n\n")
	for _, p := range Products {
		fmt.Fprintf(&b, "%s %s $%d\n", p.Emoji, title(p.Name), p.Price)
	}
	return b.String()
}

// IntroText is the greeting sent on first contact: hello, menu, order hint.
func IntroText() string {
	return "Hola! Somos *Marietta* 👋\n" +
		"📋 *Menú del día:*\n" +
		Text() +
		"\nDecime tu pedido con cantidades (ej: *2 hamburguesas y 1 coca*)."
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
