package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/intent"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/order"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
)

const (
	EventTypeOrderPaid       = "order.paid"
	EventTypePaymentCanceled = "payment.canceled"
	EventTypePaymentFailed   = "payment.failed"
)

// OrderPaidEvent is raised once an order has been authorized by a paid gateway payment.
type OrderPaidEvent struct {
	BaseEvent
	Order  *order.Order  `json:"order"`
	Driver string        `json:"driver"`
	Intent intent.Intent `json:"intent"`
}

func NewOrderPaidEvent(o *order.Order, driver string, in intent.Intent) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderPaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":   o.ID,
				"driver":     driver,
				"payment_id": in.ID,
				"amount":     in.Amount,
			},
		},
		Order:  o,
		Driver: driver,
		Intent: in,
	}
}

type PaymentCanceledEvent struct {
	BaseEvent
	Order       *order.Order             `json:"order"`
	Transaction *transaction.Transaction `json:"transaction"`
	Intent      intent.Intent            `json:"intent"`
}

func NewPaymentCanceledEvent(o *order.Order, tx *transaction.Transaction, in intent.Intent) *PaymentCanceledEvent {
	return &PaymentCanceledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCanceled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":   o.ID,
				"payment_id": in.ID,
				"amount":     in.Amount,
			},
		},
		Order:       o,
		Transaction: tx,
		Intent:      in,
	}
}

// PaymentFailedEvent covers both failed and expired payments; Reason holds the gateway status.
type PaymentFailedEvent struct {
	BaseEvent
	Order       *order.Order             `json:"order"`
	Transaction *transaction.Transaction `json:"transaction"`
	Intent      intent.Intent            `json:"intent"`
	Reason      string                   `json:"reason"`
}

func NewPaymentFailedEvent(o *order.Order, tx *transaction.Transaction, in intent.Intent, reason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":   o.ID,
				"payment_id": in.ID,
				"amount":     in.Amount,
				"reason":     reason,
			},
		},
		Order:       o,
		Transaction: tx,
		Intent:      in,
		Reason:      reason,
	}
}
