package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucianoherrera1000/vendobot/pkg/models"
)

type stubExtractor struct {
	res *ExtractResult
	err error

	calls int
	text  string
}

func (s *stubExtractor) Extract(_ context.Context, text, _ string) (*ExtractResult, error) {
	s.calls++
	s.text = text
	return s.res, s.err
}

type memWriter struct {
	customerID string
	data       models.OrderData
	err        error
	calls      int
}

func (m *memWriter) Write(customerID string, data models.OrderData) (string, error) {
	m.calls++
	m.customerID = customerID
	m.data = data
	return "orders/test.txt", m.err
}

func newTestEngine(ex Extractor, w OrderWriter) *Engine {
	return New(3000, ex, w, nil)
}

func TestStepGreetingFromNew(t *testing.T) {
	e := newTestEngine(nil, nil)

	res := e.Step(context.Background(), models.StateNew, "hola", models.OrderData{})

	assert.Equal(t, models.StateAwaitingOrder, res.NextState)
	assert.Contains(t, res.Reply, "Menú")
	assert.True(t, res.Data.Empty())
}

func TestStepUnknownStateFoldsToNew(t *testing.T) {
	e := newTestEngine(nil, nil)

	res := e.Step(context.Background(), models.State("WAT"), "hola", models.OrderData{})

	assert.Equal(t, models.StateAwaitingOrder, res.NextState)
	assert.Contains(t, res.Reply, "Menú")
}

func TestStepAwaitingOrder(t *testing.T) {
	e := newTestEngine(nil, nil)
	ctx := context.Background()

	t.Run("order with quantities advances", func(t *testing.T) {
		res := e.Step(ctx, models.StateAwaitingOrder, "2 hamburguesas y 1 coca", models.OrderData{})

		assert.Equal(t, models.StateAskDelivery, res.NextState)
		assert.Equal(t, []models.OrderItem{
			{Name: "hamburguesa", Qty: 2},
			{Name: "coca", Qty: 1},
		}, res.Data.Items)
		assert.Contains(t, res.Reply, "retiro o envío")
	})

	t.Run("greeting resends the intro", func(t *testing.T) {
		res := e.Step(ctx, models.StateAwaitingOrder, "buenas!", models.OrderData{})

		assert.Equal(t, models.StateAwaitingOrder, res.NextState)
		assert.Contains(t, res.Reply, "Menú")
	})

	t.Run("menu question answers with the item", func(t *testing.T) {
		res := e.Step(ctx, models.StateAwaitingOrder, "tienen coca?", models.OrderData{})

		assert.Equal(t, models.StateAwaitingOrder, res.NextState)
		assert.Contains(t, res.Reply, "coca")
		assert.Contains(t, res.Reply, "2000")
	})

	t.Run("unparseable text retries in place", func(t *testing.T) {
		res := e.Step(ctx, models.StateAwaitingOrder, "qsy dhjask", models.OrderData{})

		assert.Equal(t, models.StateAwaitingOrder, res.NextState)
		assert.Contains(t, res.Reply, "No entendí")
	})
}

func TestStepGreetingStateDelegates(t *testing.T) {
	e := newTestEngine(nil, nil)

	res := e.Step(context.Background(), models.StateGreeting, "2 papas", models.OrderData{})

	assert.Equal(t, models.StateAskDelivery, res.NextState)
	assert.Equal(t, []models.OrderItem{{Name: "papas", Qty: 2}}, res.Data.Items)
}

func TestStepAskDelivery(t *testing.T) {
	e := newTestEngine(nil, nil)
	ctx := context.Background()
	data := models.OrderData{Items: []models.OrderItem{{Name: "coca", Qty: 1}}}

	t.Run("envio asks for address", func(t *testing.T) {
		res := e.Step(ctx, models.StateAskDelivery, "envío por favor", data)

		assert.Equal(t, models.StateAskAddress, res.NextState)
		assert.Equal(t, models.DeliveryEnvio, res.Data.DeliveryMethod)
		assert.Contains(t, res.Reply, "dirección")
	})

	t.Run("retiro skips to payment", func(t *testing.T) {
		res := e.Step(ctx, models.StateAskDelivery, "retiro", data)

		assert.Equal(t, models.StateAskPayment, res.NextState)
		assert.Equal(t, models.DeliveryRetiro, res.Data.DeliveryMethod)
		assert.Contains(t, res.Reply, "efectivo o transferencia")
	})

	t.Run("unclear answer retries", func(t *testing.T) {
		res := e.Step(ctx, models.StateAskDelivery, "no se", data)

		assert.Equal(t, models.StateAskDelivery, res.NextState)
		assert.Empty(t, res.Data.DeliveryMethod)
	})
}

func TestStepAskAddress(t *testing.T) {
	e := newTestEngine(nil, nil)
	ctx := context.Background()
	data := models.OrderData{DeliveryMethod: models.DeliveryEnvio}

	t.Run("short answer is not an address", func(t *testing.T) {
		res := e.Step(ctx, models.StateAskAddress, "ok", data)

		assert.Equal(t, models.StateAskAddress, res.NextState)
		assert.Empty(t, res.Data.Address)
	})

	t.Run("full address advances to payment", func(t *testing.T) {
		res := e.Step(ctx, models.StateAskAddress, "San Martín 1234", data)

		assert.Equal(t, models.StateAskPayment, res.NextState)
		assert.Equal(t, "San Martín 1234", res.Data.Address)
	})
}

func TestStepAskName(t *testing.T) {
	e := newTestEngine(nil, nil)
	ctx := context.Background()
	data := models.OrderData{
		Items:          []models.OrderItem{{Name: "coca", Qty: 1}},
		DeliveryMethod: models.DeliveryRetiro,
		PaymentMethod:  models.PaymentEfectivo,
	}

	t.Run("payment keyword corrects payment instead of naming", func(t *testing.T) {
		res := e.Step(ctx, models.StateAskName, "transferencia", data)

		assert.Equal(t, models.StateAskName, res.NextState)
		assert.Equal(t, models.PaymentTransferencia, res.Data.PaymentMethod)
		assert.Empty(t, res.Data.Name)
	})

	t.Run("delivery keyword redirects to address", func(t *testing.T) {
		res := e.Step(ctx, models.StateAskName, "mejor envio", data)

		assert.Equal(t, models.StateAskAddress, res.NextState)
		assert.Equal(t, models.DeliveryEnvio, res.Data.DeliveryMethod)
		assert.Empty(t, res.Data.Name)
	})

	t.Run("soy prefix is stripped", func(t *testing.T) {
		res := e.Step(ctx, models.StateAskName, "soy Ana", data)

		assert.Equal(t, models.StateAskConfirm, res.NextState)
		assert.Equal(t, "Ana", res.Data.Name)
		assert.Contains(t, res.Reply, "Resumen del pedido")
	})

	t.Run("too short retries", func(t *testing.T) {
		res := e.Step(ctx, models.StateAskName, "a", data)

		assert.Equal(t, models.StateAskName, res.NextState)
		assert.Empty(t, res.Data.Name)
	})
}

func TestStepAskConfirm(t *testing.T) {
	ctx := WithCustomerID(context.Background(), "5491100000000")
	data := models.OrderData{
		Items: []models.OrderItem{
			{Name: "hamburguesa simple", Qty: 2},
			{Name: "coca", Qty: 1},
		},
		DeliveryMethod: models.DeliveryRetiro,
		PaymentMethod:  models.PaymentEfectivo,
		Name:           "Ana",
	}

	t.Run("yes computes total, persists and finishes", func(t *testing.T) {
		w := &memWriter{}
		e := newTestEngine(nil, w)

		res := e.Step(ctx, models.StateAskConfirm, "si", data)

		assert.Equal(t, models.StateDone, res.NextState)
		assert.Equal(t, 20000, res.Data.Total)
		assert.Contains(t, res.Reply, "20000")
		require.Equal(t, 1, w.calls)
		assert.Equal(t, "5491100000000", w.customerID)
		assert.Equal(t, 20000, w.data.Total)
	})

	t.Run("delivery order includes the fee", func(t *testing.T) {
		e := newTestEngine(nil, nil)
		d := data.Clone()
		d.DeliveryMethod = models.DeliveryEnvio
		d.Address = "San Martín 1234"

		res := e.Step(ctx, models.StateAskConfirm, "dale", d)

		assert.Equal(t, models.StateDone, res.NextState)
		assert.Equal(t, 23000, res.Data.Total)
	})

	t.Run("writer failure does not block confirmation", func(t *testing.T) {
		w := &memWriter{err: errors.New("disk full")}
		e := newTestEngine(nil, w)

		res := e.Step(ctx, models.StateAskConfirm, "si", data)

		assert.Equal(t, models.StateDone, res.NextState)
		assert.Contains(t, res.Reply, "confirmado")
	})

	t.Run("no restarts with empty data", func(t *testing.T) {
		w := &memWriter{}
		e := newTestEngine(nil, w)

		res := e.Step(ctx, models.StateAskConfirm, "no", data)

		assert.Equal(t, models.StateAwaitingOrder, res.NextState)
		assert.True(t, res.Data.Empty())
		assert.Zero(t, w.calls)
	})

	t.Run("unclear answer retries", func(t *testing.T) {
		e := newTestEngine(nil, nil)

		res := e.Step(ctx, models.StateAskConfirm, "mmm", data)

		assert.Equal(t, models.StateAskConfirm, res.NextState)
		assert.Contains(t, res.Reply, "si o no")
	})
}

func TestStepDone(t *testing.T) {
	e := newTestEngine(nil, nil)
	ctx := context.Background()
	data := models.OrderData{Name: "Ana", Total: 20000}

	t.Run("greeting starts a fresh order", func(t *testing.T) {
		res := e.Step(ctx, models.StateDone, "hola", data)

		assert.Equal(t, models.StateAwaitingOrder, res.NextState)
		assert.True(t, res.Data.Empty())
	})

	t.Run("anything else stays idle", func(t *testing.T) {
		res := e.Step(ctx, models.StateDone, "gracias", data)

		assert.Equal(t, models.StateDone, res.NextState)
		assert.Contains(t, res.Reply, "hola")
	})
}

func TestFullOrderFlow(t *testing.T) {
	w := &memWriter{}
	e := newTestEngine(nil, w)
	ctx := WithCustomerID(context.Background(), "5491122334455")

	state := models.StateNew
	data := models.OrderData{}
	step := func(text string) models.StepResult {
		res := e.Step(ctx, state, text, data)
		state = res.NextState
		data = res.Data
		return res
	}

	step("hola")
	step("2 hamburguesas simples y 1 coca")
	step("retiro")
	step("efectivo")
	step("Ana")
	res := step("si")

	assert.Equal(t, models.StateDone, state)
	assert.Equal(t, 20000, data.Total)
	assert.Contains(t, res.Reply, "20000")
	assert.Equal(t, 1, w.calls)
}

func TestStepAlwaysYieldsValidState(t *testing.T) {
	e := newTestEngine(nil, nil)
	ctx := context.Background()

	texts := []string{"", "hola", "2 hamburguesas", "envio", "efectivo", "Ana", "si", "no", "???", "menu"}
	for _, st := range models.AllStates {
		for _, text := range texts {
			res := e.Step(ctx, st, text, models.OrderData{})
			assert.True(t, res.NextState.Valid(), "state %s text %q yielded %q", st, text, res.NextState)
			assert.NotEmpty(t, res.Reply, "state %s text %q yielded empty reply", st, text)
		}
	}
}

func TestFallbackExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("items from the extractor advance the order", func(t *testing.T) {
		ex := &stubExtractor{res: &ExtractResult{
			OK:    true,
			Items: []ExtractedItem{{Name: "hamburguesas dobles", Qty: 2}, {Name: "coca"}},
		}}
		e := newTestEngine(ex, nil)

		res := e.Step(ctx, models.StateAwaitingOrder, "lo de siempre porfa", models.OrderData{})

		assert.Equal(t, 1, ex.calls)
		assert.Equal(t, models.StateAskDelivery, res.NextState)
		assert.Equal(t, []models.OrderItem{
			{Name: "hamburguesa doble", Qty: 2},
			{Name: "coca", Qty: 1},
		}, res.Data.Items)
	})

	t.Run("stray fields merge without advancing", func(t *testing.T) {
		ex := &stubExtractor{res: &ExtractResult{
			OK:            true,
			Address:       "Belgrano 742",
			PaymentMethod: models.PaymentEfectivo,
			Name:          "Luis",
		}}
		e := newTestEngine(ex, nil)

		res := e.Step(ctx, models.StateAwaitingOrder, "despues te digo que quiero, es para Belgrano 742", models.OrderData{})

		assert.Equal(t, models.StateAwaitingOrder, res.NextState)
		assert.Equal(t, "Belgrano 742", res.Data.Address)
		assert.Equal(t, models.PaymentEfectivo, res.Data.PaymentMethod)
		assert.Equal(t, "Luis", res.Data.Name)
	})

	t.Run("address without a street number is rejected", func(t *testing.T) {
		ex := &stubExtractor{res: &ExtractResult{OK: true, Address: "por ahi cerca"}}
		e := newTestEngine(ex, nil)

		res := e.Step(ctx, models.StateAwaitingOrder, "mandamelo por ahi cerca", models.OrderData{})

		assert.Empty(t, res.Data.Address)
	})

	t.Run("extractor error degrades to retry", func(t *testing.T) {
		ex := &stubExtractor{err: fmt.Errorf("upstream down")}
		e := newTestEngine(ex, nil)

		res := e.Step(ctx, models.StateAwaitingOrder, "algo raro", models.OrderData{})

		assert.Equal(t, models.StateAwaitingOrder, res.NextState)
		assert.Contains(t, res.Reply, "No entendí")
	})

	t.Run("not ok result degrades to retry", func(t *testing.T) {
		ex := &stubExtractor{res: &ExtractResult{OK: false}}
		e := newTestEngine(ex, nil)

		res := e.Step(ctx, models.StateAwaitingOrder, "algo raro", models.OrderData{})

		assert.Equal(t, models.StateAwaitingOrder, res.NextState)
		assert.Contains(t, res.Reply, "No entendí")
	})

	t.Run("regex match skips the extractor", func(t *testing.T) {
		ex := &stubExtractor{res: &ExtractResult{OK: true}}
		e := newTestEngine(ex, nil)

		e.Step(ctx, models.StateAwaitingOrder, "2 cocas", models.OrderData{})

		assert.Zero(t, ex.calls)
	})
}

func TestStepClonesInputData(t *testing.T) {
	e := newTestEngine(nil, nil)
	data := models.OrderData{Items: []models.OrderItem{{Name: "coca", Qty: 1}}}

	res := e.Step(context.Background(), models.StateAskDelivery, "envio", data)

	assert.Empty(t, data.DeliveryMethod, "input data must not be mutated")
	assert.Equal(t, models.DeliveryEnvio, res.Data.DeliveryMethod)
}
