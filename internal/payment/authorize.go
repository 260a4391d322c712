package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/intent"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/order"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
	"github.com/frahmantamala/mollie-checkout/internal/core/events"
)

type orderMarker interface {
	MarkPaid(ctx context.Context, o *order.Order) error
}

type statusWriter interface {
	UpdateStatus(ctx context.Context, reference, status string) error
}

// Authorizer finalizes an order once its payment has been confirmed.
type Authorizer struct {
	driver     string
	orders     orderMarker
	ledger     statusWriter
	dispatcher events.Dispatcher
	logger     *slog.Logger
}

func NewAuthorizer(driver string, orders orderMarker, ledger statusWriter, dispatcher events.Dispatcher, logger *slog.Logger) *Authorizer {
	return &Authorizer{
		driver:     driver,
		orders:     orders,
		ledger:     ledger,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Authorize marks the order paid and records the transaction as paid before dispatching
// OrderPaidEvent. An order already paid by an earlier partial attempt is not marked again.
func (a *Authorizer) Authorize(ctx context.Context, o *order.Order, in intent.Intent, tx *transaction.Transaction) error {
	if !o.IsPaid() {
		if err := a.orders.MarkPaid(ctx, o); err != nil {
			return fmt.Errorf("authorize order %d: %w", o.ID, err)
		}
	}

	if err := a.ledger.UpdateStatus(ctx, tx.Reference, transaction.StatusPaid); err != nil {
		return fmt.Errorf("record payment %s as paid: %w", tx.Reference, err)
	}
	tx.Status = transaction.StatusPaid

	if err := a.dispatcher.PublishSync(ctx, events.NewOrderPaidEvent(o, a.driver, in)); err != nil {
		return fmt.Errorf("dispatch order paid for order %d: %w", o.ID, err)
	}

	a.logger.Info("order authorized",
		"order_id", o.ID,
		"payment_id", in.ID,
		"reference", tx.Reference,
		"amount", in.Amount)
	return nil
}
