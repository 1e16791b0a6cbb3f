package models

import "time"

// State identifies where a customer is in the ordering conversation.
// It doubles as the persisted string form, so comparisons work on either side.
type State string

// Conversation states for the order state machine.
const (
	StateNew           State = "NEW"
	StateGreeting      State = "GREETING"
	StateAwaitingOrder State = "AWAITING_ORDER"
	StateAskDelivery   State = "ASK_DELIVERY"
	StateAskAddress    State = "ASK_ADDRESS"
	StateAskPayment    State = "ASK_PAYMENT"
	StateAskName       State = "ASK_NAME"
	StateAskConfirm    State = "ASK_CONFIRM"
	StateDone          State = "DONE"
)

// AllStates lists every member of the enumeration.
var AllStates = []State{
	StateNew,
	StateGreeting,
	StateAwaitingOrder,
	StateAskDelivery,
	StateAskAddress,
	StateAskPayment,
	StateAskName,
	StateAskConfirm,
	StateDone,
}

// Valid reports whether s is a member of the enumeration.
func (s State) Valid() bool {
	for _, st := range AllStates {
		if s == st {
			return true
		}
	}
	return false
}

// ParseState maps a stored string onto a State. Anything unknown folds to
// StateNew so a corrupted session restarts the conversation instead of failing.
func ParseState(s string) State {
	st := State(s)
	if st.Valid() {
		return st
	}
	return StateNew
}

// Delivery methods.
const (
	DeliveryEnvio  = "envio"
	DeliveryRetiro = "retiro"
)

// Payment methods.
const (
	PaymentEfectivo      = "efectivo"
	PaymentTransferencia = "transferencia"
)

// OrderItem is one extracted "quantity + product" pair. Name is the canonical
// product name; items with the same name are kept separate, never merged.
type OrderItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// OrderData accumulates everything the customer has told us so far.
// Address is only meaningful while DeliveryMethod is "envio".
type OrderData struct {
	Items          []OrderItem `json:"items,omitempty"`
	DeliveryMethod string      `json:"delivery_method,omitempty"`
	Address        string      `json:"address,omitempty"`
	PaymentMethod  string      `json:"payment_method,omitempty"`
	Name           string      `json:"name,omitempty"`
	Total          int         `json:"total,omitempty"`
}

// Clone returns a deep copy so the engine can mutate freely without touching
// the caller's data.
func (d OrderData) Clone() OrderData {
	out := d
	if d.Items != nil {
		out.Items = make([]OrderItem, len(d.Items))
		copy(out.Items, d.Items)
	}
	return out
}

// Empty reports whether nothing has been collected yet.
func (d OrderData) Empty() bool {
	return len(d.Items) == 0 && d.DeliveryMethod == "" && d.Address == "" &&
		d.PaymentMethod == "" && d.Name == "" && d.Total == 0
}

// Session is one customer's persisted conversation.
type Session struct {
	Phone     string
	State     State
	Data      OrderData
	UpdatedAt time.Time
}

// StepResult is the transition triple produced by the engine.
type StepResult struct {
	NextState State
	Data      OrderData
	Reply     string
}
