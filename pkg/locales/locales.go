// Package locales loads every user-facing reply string from the embedded
// replies.json so wording can be tuned without touching the state machine.
package locales

import (
	_ "embed"
	"encoding/json"
	"log"
)

//go:embed replies.json
var repliesJSON []byte

// Locales contains all reply strings from replies.json.
type Locales struct {
	Order    Order    `json:"order"`
	Delivery Delivery `json:"delivery"`
	Address  Address  `json:"address"`
	Payment  Payment  `json:"payment"`
	Name     Name     `json:"name"`
	Confirm  Confirm  `json:"confirm"`
	Done     Done     `json:"done"`
	Menu     Menu     `json:"menu"`
	Summary  Summary  `json:"summary"`
}

type Order struct {
	Retry     string `json:"retry"`
	AIPartial string `json:"ai_partial"`
	GotItems  string `json:"got_items"`
}

type Delivery struct {
	Retry string `json:"retry"`
}

type Address struct {
	Ask   string `json:"ask"`
	Retry string `json:"retry"`
}

type Payment struct {
	Ask   string `json:"ask"`
	Retry string `json:"retry"`
}

type Name struct {
	Ask              string `json:"ask"`
	Retry            string `json:"retry"`
	PaymentCorrected string `json:"payment_corrected"`
	DeliveryEnvio    string `json:"delivery_envio"`
	DeliveryRetiro   string `json:"delivery_retiro"`
}

type Confirm struct {
	Retry     string `json:"retry"`
	Confirmed string `json:"confirmed"` // fmt string, %d = total
	Cancelled string `json:"cancelled"`
}

type Done struct {
	Idle string `json:"idle"`
}

type Menu struct {
	ItemAvailable   string `json:"item_available"` // fmt: emoji, name, price
	ItemUnavailable string `json:"item_unavailable"`
}

type Summary struct {
	Header        string `json:"header"`
	DeliveryLabel string `json:"delivery_label"`
	AddressLabel  string `json:"address_label"`
	PaymentLabel  string `json:"payment_label"`
	NameLabel     string `json:"name_label"`
	ConfirmPrompt string `json:"confirm_prompt"`
}

var l *Locales

func init() {
	l = &Locales{}
	if err := json.Unmarshal(repliesJSON, l); err != nil {
		log.Fatalf("failed to parse replies.json: %v", err)
	}
}

// Get returns the loaded reply catalog.
func Get() *Locales {
	return l
}
