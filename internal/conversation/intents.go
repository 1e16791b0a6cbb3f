package conversation

import (
	"regexp"
	"strings"

	"github.com/lucianoherrera1000/vendobot/pkg/models"
)

var greetingPhrases = []string{
	"hola", "buenas", "buen día", "buen dia", "buenas tardes", "buenas noches",
}

// IsGreeting reports whether the text contains a greeting phrase.
func IsGreeting(text string) bool {
	t := Normalize(text)
	for _, g := range greetingPhrases {
		if strings.Contains(t, g) {
			return true
		}
	}
	return false
}

var wholeMenuPhrases = map[string]bool{
	"menu": true, "menú": true, "carta": true,
	"que tienen": true, "qué tienen": true,
	"que hay": true, "qué hay": true,
}

var itemQuestionRe = regexp.MustCompile(`(?:tienen|tenés|tenes|hay)\s+([a-záéíóúüñ\s]+)`)

// MenuQuery classifies menu-related questions. It returns ("", true) for a
// whole-menu request, (product, true) when the customer asks about a specific
// item ("tienen coca?"), and ok=false when the text is not menu-related.
func MenuQuery(text string) (string, bool) {
	t := Normalize(text)
	if wholeMenuPhrases[t] || strings.Contains(t, "menu") || strings.Contains(t, "menú") || strings.Contains(t, "carta") {
		return "", true
	}
	if m := itemQuestionRe.FindStringSubmatch(t); m != nil {
		if q := CanonicalItem(m[1]); q != "" {
			return q, true
		}
	}
	return "", false
}

// Keyword sets for delivery method detection. Envio is checked before retiro:
// that priority is part of the behavioral contract.
var (
	envioKeywords  = []string{"envio", "envío", "enviar", "delivery", "mandalo", "a domicilio"}
	retiroKeywords = []string{"retiro", "retira", "paso a buscar", "lo busco", "buscar"}
)

// ParseDelivery detects the fulfillment mode, or "" when unmatched.
func ParseDelivery(text string) string {
	t := Normalize(text)
	for _, k := range envioKeywords {
		if strings.Contains(t, k) {
			return models.DeliveryEnvio
		}
	}
	for _, k := range retiroKeywords {
		if strings.Contains(t, k) {
			return models.DeliveryRetiro
		}
	}
	return ""
}

// transferKeywords accept common misspellings and related payment terms.
var transferKeywords = []string{"transfer", "tranfer", "trasnfer", "alias", "cbu", "mercadopago", "mp"}

// ParsePayment detects the payment method, or "" when unmatched.
// Efectivo is checked before transferencia.
func ParsePayment(text string) string {
	t := Normalize(text)
	if strings.Contains(t, "efectivo") {
		return models.PaymentEfectivo
	}
	for _, k := range transferKeywords {
		if strings.Contains(t, k) {
			return models.PaymentTransferencia
		}
	}
	return ""
}

var (
	yesTokens = map[string]bool{
		"si": true, "sí": true, "s": true, "dale": true, "ok": true, "oka": true,
		"confirmo": true, "confirmar": true, "confirmo si": true,
	}
	noTokens = map[string]bool{
		"no": true, "n": true, "cancelar": true, "cancelo": true,
	}
)

// ParseYesNo matches the fixed confirmation token sets. The second return is
// false when the text is neither, so the caller can re-prompt.
func ParseYesNo(text string) (bool, bool) {
	t := Normalize(text)
	if yesTokens[t] {
		return true, true
	}
	if noTokens[t] {
		return false, true
	}
	return false, false
}
