package conversation

import (
	"regexp"
	"strconv"
	"strings"
)

// wordNumbers maps Spanish cardinal words onto quantities. Digits parse
// directly in ParseQty.
var wordNumbers = map[string]int{
	"un": 1, "una": 1, "uno": 1,
	"dos": 2, "tres": 3, "cuatro": 4, "cinco": 5, "seis": 6,
	"siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	"once": 11, "doce": 12, "trece": 13, "catorce": 14, "quince": 15,
	"dieciseis": 16, "dieciséis": 16, "diecisiete": 17, "dieciocho": 18, "diecinueve": 19,
	"veinte": 20,
}

// connectorWords are filler tokens dropped from item names before matching.
var connectorWords = map[string]bool{
	"y": true, "con": true, "de": true, "del": true,
	"la": true, "el": true, "los": true, "las": true,
}

var (
	spaceRe     = regexp.MustCompile(`\s+`)
	nonLetterRe = regexp.MustCompile(`[^a-záéíóúüñ\s]`)
)

// Normalize trims, lowercases and collapses whitespace.
func Normalize(s string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// ParseQty turns a quantity token (digits or a number word) into an integer.
func ParseQty(token string) (int, bool) {
	token = Normalize(token)
	if token == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(token); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	n, ok := wordNumbers[token]
	return n, ok
}

// CanonicalItem maps a raw product phrase onto its canonical menu name.
// Unknown products pass through cleaned instead of failing, so fuzzy matches
// still get recorded. Idempotent: applying it twice changes nothing.
func CanonicalItem(raw string) string {
	n := Normalize(strings.ReplaceAll(raw, "+", " "))
	n = nonLetterRe.ReplaceAllString(n, " ")
	n = spaceRe.ReplaceAllString(n, " ")
	n = strings.TrimSpace(n)
	if n == "" {
		return ""
	}

	words := strings.Fields(n)
	kept := words[:0]
	for _, w := range words {
		if !connectorWords[w] {
			kept = append(kept, w)
		}
	}
	n = strings.Join(kept, " ")

	switch {
	case strings.Contains(n, "hamb") && strings.Contains(n, "doble"):
		return "hamburguesa doble"
	case strings.Contains(n, "hamb") && strings.Contains(n, "simple"):
		return "hamburguesa simple"
	case strings.Contains(n, "hamb"):
		return "hamburguesa"
	case strings.Contains(n, "papa"):
		return "papas"
	case strings.Contains(n, "tallar") || strings.Contains(n, "fideo"):
		return "tallarines"
	case strings.Contains(n, "empanada") && strings.Contains(n, "pollo"):
		return "empanadas de pollo"
	case strings.Contains(n, "empanada") && strings.Contains(n, "carne"):
		return "empanadas de carne"
	case strings.Contains(n, "coca"):
		return "coca"
	}
	return n
}
