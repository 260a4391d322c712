package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/mollie-checkout/internal/core/events"
	"github.com/frahmantamala/mollie-checkout/internal/metrics"
)

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// EventHandler records payment outcomes for operators.
type EventHandler struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewEventHandler(logger *slog.Logger, m *metrics.Metrics) *EventHandler {
	return &EventHandler{
		logger:  logger,
		metrics: m,
	}
}

func (h *EventHandler) HandleOrderPaid(ctx context.Context, event events.Event) error {
	paid, ok := event.(*events.OrderPaidEvent)
	if !ok {
		h.logger.Error("invalid event type for order paid handler", "event_type", event.EventType())
		return fmt.Errorf("expected OrderPaidEvent, got %T", event)
	}

	h.metrics.PaymentEvent(event.EventType())
	h.logger.Info("order paid",
		"order_id", paid.Order.ID,
		"driver", paid.Driver,
		"payment_id", paid.Intent.ID,
		"amount", paid.Intent.Amount,
		"event_id", paid.EventID())
	return nil
}

func (h *EventHandler) HandlePaymentCanceled(ctx context.Context, event events.Event) error {
	canceled, ok := event.(*events.PaymentCanceledEvent)
	if !ok {
		h.logger.Error("invalid event type for payment canceled handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentCanceledEvent, got %T", event)
	}

	h.metrics.PaymentEvent(event.EventType())
	h.logger.Info("payment canceled",
		"order_id", canceled.Order.ID,
		"payment_id", canceled.Intent.ID,
		"event_id", canceled.EventID())
	return nil
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment failed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentFailedEvent, got %T", event)
	}

	h.metrics.PaymentEvent(event.EventType())
	h.logger.Warn("payment failed",
		"order_id", failed.Order.ID,
		"payment_id", failed.Intent.ID,
		"reason", failed.Reason,
		"event_id", failed.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(bus Subscriber) {
	bus.Subscribe(events.EventTypeOrderPaid, h.HandleOrderPaid)
	bus.Subscribe(events.EventTypePaymentCanceled, h.HandlePaymentCanceled)
	bus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)

	h.logger.Info("payment event handlers registered",
		"handlers", []string{events.EventTypeOrderPaid, events.EventTypePaymentCanceled, events.EventTypePaymentFailed})
}
