// Package conversation implements the order-taking state machine: given the
// current state, the customer's message and the data collected so far, it
// decides the next state, the updated data and the reply. It keeps no state
// of its own; sessions live with the caller.
package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/lucianoherrera1000/vendobot/pkg/locales"
	"github.com/lucianoherrera1000/vendobot/pkg/menu"
	"github.com/lucianoherrera1000/vendobot/pkg/models"
)

// ExtractedItem is one product reported by the fallback extractor.
// Qty <= 0 means the extractor didn't find a quantity; it defaults to 1.
type ExtractedItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// ExtractResult is what the fallback extractor returns. Fields other than
// Items may leak into the session data when present.
type ExtractResult struct {
	OK             bool            `json:"ok"`
	Items          []ExtractedItem `json:"items"`
	DeliveryMethod string          `json:"delivery_method"`
	Address        string          `json:"address"`
	PaymentMethod  string          `json:"payment_method"`
	Name           string          `json:"name"`
}

// Extractor is the optional AI text-extraction collaborator. A nil Extractor
// means the capability is disabled; the engine then relies on regex parsing only.
type Extractor interface {
	Extract(ctx context.Context, text, menuText string) (*ExtractResult, error)
}

// OrderWriter persists a confirmed order and returns its location.
// Failures are logged and swallowed; they never block the confirmation reply.
type OrderWriter interface {
	Write(customerID string, data models.OrderData) (string, error)
}

type ctxKey string

const customerIDKey ctxKey = "customer_id"

// WithCustomerID attaches the customer identifier to the context so the
// engine can hand it to the order writer without widening Step's contract.
func WithCustomerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, customerIDKey, id)
}

// CustomerID returns the customer identifier from the context, or "unknown".
func CustomerID(ctx context.Context) string {
	if id, ok := ctx.Value(customerIDKey).(string); ok && id != "" {
		return id
	}
	return "unknown"
}

// Engine is the conversation state machine.
type Engine struct {
	deliveryFee int
	extractor   Extractor
	writer      OrderWriter
	log         *zap.SugaredLogger
}

// New builds an engine. extractor and writer may be nil; fee <= 0 falls back
// to the default delivery fee.
func New(deliveryFee int, extractor Extractor, writer OrderWriter, log *zap.SugaredLogger) *Engine {
	if deliveryFee <= 0 {
		deliveryFee = menu.DefaultDeliveryFee
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{deliveryFee: deliveryFee, extractor: extractor, writer: writer, log: log}
}

// Step runs one transition. It never fails: malformed states fold to NEW,
// collaborator errors degrade to the local path, and the input data is cloned
// before any mutation.
func (e *Engine) Step(ctx context.Context, state models.State, text string, data models.OrderData) models.StepResult {
	if !state.Valid() {
		state = models.StateNew
	}
	data = data.Clone()
	t := Normalize(text)

	switch state {
	case models.StateNew:
		return models.StepResult{NextState: models.StateAwaitingOrder, Data: models.OrderData{}, Reply: menu.IntroText()}

	case models.StateGreeting:
		// Transitional state: run the same text under AWAITING_ORDER rules.
		return e.stepAwaitingOrder(ctx, t, text, data)

	case models.StateAwaitingOrder:
		return e.stepAwaitingOrder(ctx, t, text, data)

	case models.StateAskDelivery:
		return e.stepAskDelivery(t, data)

	case models.StateAskAddress:
		return e.stepAskAddress(text, data)

	case models.StateAskPayment:
		return e.stepAskPayment(t, data)

	case models.StateAskName:
		return e.stepAskName(text, t, data)

	case models.StateAskConfirm:
		return e.stepAskConfirm(ctx, t, data)

	case models.StateDone:
		if IsGreeting(t) {
			return models.StepResult{NextState: models.StateAwaitingOrder, Data: models.OrderData{}, Reply: menu.IntroText()}
		}
		return models.StepResult{NextState: models.StateDone, Data: data, Reply: locales.Get().Done.Idle}
	}

	// Unreachable given the Valid() check, but never leave the caller hanging.
	return models.StepResult{NextState: models.StateAwaitingOrder, Data: models.OrderData{}, Reply: menu.IntroText()}
}

func (e *Engine) stepAwaitingOrder(ctx context.Context, t, raw string, data models.OrderData) models.StepResult {
	l := locales.Get()

	if IsGreeting(t) {
		return models.StepResult{NextState: models.StateAwaitingOrder, Data: data, Reply: menu.IntroText()}
	}
	if query, ok := MenuQuery(t); ok {
		return models.StepResult{NextState: models.StateAwaitingOrder, Data: data, Reply: e.menuAnswer(query)}
	}

	if items := ExtractItems(t); len(items) > 0 {
		data.Items = items
		return models.StepResult{NextState: models.StateAskDelivery, Data: data, Reply: l.Order.GotItems}
	}

	if e.extractor != nil {
		if res := e.tryExtract(ctx, raw); res != nil {
			if items := normalizeExtracted(res.Items); len(items) > 0 {
				data.Items = items
				return models.StepResult{NextState: models.StateAskDelivery, Data: data, Reply: l.Order.GotItems}
			}
			// No items, but the extractor may have picked up stray fields.
			// Keep them without advancing the state.
			mergeStrayFields(&data, res)
			return models.StepResult{NextState: models.StateAwaitingOrder, Data: data, Reply: l.Order.AIPartial}
		}
	}

	return models.StepResult{NextState: models.StateAwaitingOrder, Data: data, Reply: l.Order.Retry}
}

func (e *Engine) stepAskDelivery(t string, data models.OrderData) models.StepResult {
	l := locales.Get()
	dm := ParseDelivery(t)
	if dm == "" {
		return models.StepResult{NextState: models.StateAskDelivery, Data: data, Reply: l.Delivery.Retry}
	}
	data.DeliveryMethod = dm
	if dm == models.DeliveryEnvio {
		return models.StepResult{NextState: models.StateAskAddress, Data: data, Reply: l.Address.Ask}
	}
	return models.StepResult{NextState: models.StateAskPayment, Data: data, Reply: l.Payment.Ask}
}

func (e *Engine) stepAskAddress(raw string, data models.OrderData) models.StepResult {
	l := locales.Get()
	addr := strings.TrimSpace(raw)
	if len([]rune(addr)) < 5 {
		return models.StepResult{NextState: models.StateAskAddress, Data: data, Reply: l.Address.Retry}
	}
	data.Address = addr
	return models.StepResult{NextState: models.StateAskPayment, Data: data, Reply: l.Payment.Ask}
}

func (e *Engine) stepAskPayment(t string, data models.OrderData) models.StepResult {
	l := locales.Get()
	pm := ParsePayment(t)
	if pm == "" {
		return models.StepResult{NextState: models.StateAskPayment, Data: data, Reply: l.Payment.Retry}
	}
	data.PaymentMethod = pm
	return models.StepResult{NextState: models.StateAskName, Data: data, Reply: l.Name.Ask}
}

var soyPrefixRe = regexp.MustCompile(`(?i)^\s*soy\s+`)

func (e *Engine) stepAskName(raw, t string, data models.OrderData) models.StepResult {
	l := locales.Get()

	// Guard-rails: late answers to earlier questions must not become the name.
	if pm := ParsePayment(t); pm != "" {
		data.PaymentMethod = pm
		return models.StepResult{NextState: models.StateAskName, Data: data, Reply: l.Name.PaymentCorrected}
	}
	if dm := ParseDelivery(t); dm != "" {
		data.DeliveryMethod = dm
		if dm == models.DeliveryEnvio {
			return models.StepResult{NextState: models.StateAskAddress, Data: data, Reply: l.Name.DeliveryEnvio}
		}
		return models.StepResult{NextState: models.StateAskPayment, Data: data, Reply: l.Name.DeliveryRetiro}
	}

	name := strings.TrimSpace(soyPrefixRe.ReplaceAllString(strings.TrimSpace(raw), ""))
	if len([]rune(name)) < 2 {
		return models.StepResult{NextState: models.StateAskName, Data: data, Reply: l.Name.Retry}
	}
	data.Name = name
	return models.StepResult{NextState: models.StateAskConfirm, Data: data, Reply: RenderSummary(data)}
}

func (e *Engine) stepAskConfirm(ctx context.Context, t string, data models.OrderData) models.StepResult {
	l := locales.Get()

	yes, ok := ParseYesNo(t)
	if !ok {
		return models.StepResult{NextState: models.StateAskConfirm, Data: data, Reply: l.Confirm.Retry}
	}
	if !yes {
		// Restart the order but keep the customer in conversation.
		return models.StepResult{NextState: models.StateAwaitingOrder, Data: models.OrderData{}, Reply: l.Confirm.Cancelled}
	}

	data.Total = ComputeTotal(data, e.deliveryFee)
	if e.writer != nil {
		if loc, err := e.writer.Write(CustomerID(ctx), data); err != nil {
			e.log.Warnw("order persist failed", "customer", CustomerID(ctx), "error", err)
		} else {
			e.log.Infow("order persisted", "customer", CustomerID(ctx), "location", loc, "total", data.Total)
		}
	}
	return models.StepResult{NextState: models.StateDone, Data: data, Reply: fmt.Sprintf(l.Confirm.Confirmed, data.Total)}
}

func (e *Engine) menuAnswer(query string) string {
	l := locales.Get()
	if query == "" {
		return menu.Text()
	}
	if p, ok := menu.Find(query); ok {
		return fmt.Sprintf(l.Menu.ItemAvailable, p.Emoji, p.Name, p.Price)
	}
	return l.Menu.ItemUnavailable + "\n\n" + menu.Text()
}

// tryExtract calls the fallback extractor and reduces every failure to nil.
func (e *Engine) tryExtract(ctx context.Context, text string) *ExtractResult {
	res, err := e.extractor.Extract(ctx, text, menu.Text())
	if err != nil {
		e.log.Warnw("fallback extraction failed", "error", err)
		return nil
	}
	if res == nil || !res.OK {
		return nil
	}
	return res
}

func normalizeExtracted(items []ExtractedItem) []models.OrderItem {
	var out []models.OrderItem
	for _, it := range items {
		name := CanonicalItem(it.Name)
		if name == "" {
			continue
		}
		qty := it.Qty
		if qty <= 0 {
			qty = 1
		}
		out = append(out, models.OrderItem{Name: name, Qty: qty})
	}
	return out
}

// streetRe requires some letters followed by a number, which filters out
// hallucinated "addresses" from the extractor.
var streetRe = regexp.MustCompile(`(?i)[a-záéíóúüñ]{2,}.*\d`)

func mergeStrayFields(data *models.OrderData, res *ExtractResult) {
	switch res.DeliveryMethod {
	case models.DeliveryEnvio, models.DeliveryRetiro:
		data.DeliveryMethod = res.DeliveryMethod
	}
	if addr := strings.TrimSpace(res.Address); addr != "" && streetRe.MatchString(addr) {
		data.Address = addr
	}
	switch res.PaymentMethod {
	case models.PaymentEfectivo, models.PaymentTransferencia:
		data.PaymentMethod = res.PaymentMethod
	}
	if name := strings.TrimSpace(res.Name); name != "" {
		data.Name = name
	}
}
