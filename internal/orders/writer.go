// Package orders writes confirmed orders as plain-text receipts so the
// vendor can read them without any tooling.
package orders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucianoherrera1000/vendobot/pkg/models"
)

// Writer persists receipts under a single directory.
type Writer struct {
	dir string
}

// NewWriter creates the receipts directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "orders"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create orders dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Write renders and stores the receipt, returning its path. It also refreshes
// latest_<phone>.txt best-effort so the vendor can always find the newest order.
func (w *Writer) Write(customerID string, data models.OrderData) (string, error) {
	phone := sanitizePhone(customerID)
	now := time.Now()

	receipt := render(customerID, data, now)
	name := fmt.Sprintf("%s_%s.txt", now.Format("20060102_150405"), phone)
	path := filepath.Join(w.dir, name)

	if err := os.WriteFile(path, []byte(receipt), 0o644); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}

	latest := filepath.Join(w.dir, "latest_"+phone+".txt")
	_ = os.WriteFile(latest, []byte(receipt), 0o644)

	return path, nil
}

func render(customerID string, data models.OrderData, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido: %s\n", uuid.NewString())
	fmt.Fprintf(&b, "Fecha: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Telefono: %s\n\n", customerID)

	b.WriteString("Items:\n")
	for _, it := range data.Items {
		fmt.Fprintf(&b, "- %d %s\n", it.Qty, it.Name)
	}
	b.WriteString("\n")

	addr := "-"
	if data.DeliveryMethod == models.DeliveryEnvio {
		addr = data.Address
	}
	fmt.Fprintf(&b, "Modalidad: %s\n", data.DeliveryMethod)
	fmt.Fprintf(&b, "Direccion: %s\n", addr)
	fmt.Fprintf(&b, "Pago: %s\n", data.PaymentMethod)
	fmt.Fprintf(&b, "Nombre: %s\n", data.Name)
	fmt.Fprintf(&b, "Total: %d\n", data.Total)
	return b.String()
}

// sanitizePhone keeps only characters safe for a filename.
func sanitizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
