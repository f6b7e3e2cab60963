package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-boutique/internal/pricing"
)

// TypeWhatsAppRequested is the task emitted for every WhatsApp checkout.
const TypeWhatsAppRequested = "order:whatsapp_requested"

// Customer holds the delivery details typed at checkout.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	City    string `json:"city"`
	Address string `json:"address"`
}

// Line is one ordered product selection.
type Line struct {
	ProductID int64         `json:"product_id"`
	Name      string        `json:"name"`
	Size      string        `json:"size,omitempty"`
	Color     string        `json:"color,omitempty"`
	Quantity  int           `json:"quantity"`
	UnitPrice pricing.Money `json:"unit_price"`
}

// Request is the task payload and the stored order request.
type Request struct {
	Reference         string        `json:"reference"`
	CartID            string        `json:"cart_id"`
	Customer          Customer      `json:"customer"`
	Lines             []Line        `json:"lines"`
	RegularTotal      pricing.Money `json:"regular_total"`
	PromotionalTotal  pricing.Money `json:"promotional_total"`
	Savings           pricing.Money `json:"savings"`
	DeliveryFee       pricing.Money `json:"delivery_fee"`
	Total             pricing.Money `json:"total"`
	AppliedPromotions []string      `json:"applied_promotions"`
	RequestedAt       time.Time     `json:"requested_at"`
}

// NewWhatsAppRequestedTask wraps req into an asynq task. The reference doubles
// as the task id so a retried checkout does not enqueue twice.
func NewWhatsAppRequestedTask(req Request) (*asynq.Task, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode order request: %w", err)
	}
	return asynq.NewTask(TypeWhatsAppRequested, payload,
		asynq.TaskID(req.Reference),
		asynq.MaxRetry(10),
		asynq.Timeout(30*time.Second),
	), nil
}
