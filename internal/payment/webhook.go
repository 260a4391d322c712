package payment

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errors "github.com/frahmantamala/mollie-checkout/internal"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/intent"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/order"
	gatewaytypes "github.com/frahmantamala/mollie-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
	"github.com/frahmantamala/mollie-checkout/internal/core/events"
)

const (
	MessageSuccess      = "success"
	MessageCancelled    = "cancelled"
	MessageFailed       = "failed"
	MessageExpired      = "expired"
	MessageUnknownEvent = "unknown event"

	errPaymentIDRequired = "Payment id is required"
	errPaymentNotFound   = "Payment not found"
)

// WebhookOutcome is the response the gateway callback receives.
// Exactly one of Message or Error is set.
type WebhookOutcome struct {
	StatusCode int
	Message    string
	Error      string
}

// Body is the JSON payload for the outcome.
func (o WebhookOutcome) Body() map[string]string {
	if o.Error != "" {
		return map[string]string{"error": o.Error}
	}
	return map[string]string{"message": o.Message}
}

func handled(message string) WebhookOutcome {
	return WebhookOutcome{StatusCode: http.StatusOK, Message: message}
}

func rejected(status int, message string) WebhookOutcome {
	return WebhookOutcome{StatusCode: status, Error: message}
}

type webhookAction int

const (
	actionNone webhookAction = iota
	actionAuthorize
	actionCancel
	actionFail
)

type webhookDecision struct {
	action  webhookAction
	status  string
	message string
}

// decide maps a gateway status onto the local action. The first matching row wins.
// Only the paid row consults the local status; the others fire on every delivery.
func decide(gatewayStatus gatewaytypes.PaymentStatus, tx *transaction.Transaction) webhookDecision {
	switch {
	case gatewayStatus == gatewaytypes.PaymentStatusPaid && !tx.IsPaid():
		return webhookDecision{action: actionAuthorize, status: transaction.StatusPaid, message: MessageSuccess}
	case gatewayStatus == gatewaytypes.PaymentStatusCanceled:
		return webhookDecision{action: actionCancel, status: transaction.StatusCancelled, message: MessageCancelled}
	case gatewayStatus == gatewaytypes.PaymentStatusFailed:
		return webhookDecision{action: actionFail, status: transaction.StatusFailed, message: MessageFailed}
	case gatewayStatus == gatewaytypes.PaymentStatusExpired:
		return webhookDecision{action: actionFail, status: transaction.StatusExpired, message: MessageExpired}
	default:
		return webhookDecision{action: actionNone, message: MessageUnknownEvent}
	}
}

// HandleWebhook reconciles the local ledger with the gateway's view of paymentID.
// Client-facing rejections are reported through the outcome; the error is reserved for
// failures talking to the gateway, the ledger or event subscribers.
func (a *Adapter) HandleWebhook(ctx context.Context, paymentID string) (WebhookOutcome, error) {
	ctx, span := a.tracer.Start(ctx, "payment.HandleWebhook",
		trace.WithAttributes(attribute.String("payment.id", paymentID)))
	defer span.End()

	outcome, err := a.handleWebhook(ctx, strings.TrimSpace(paymentID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook processing failed")
		status := http.StatusInternalServerError
		if appErr, ok := errors.IsAppError(err); ok {
			status = appErr.StatusCode
		}
		a.metrics.WebhookOutcome(strconv.Itoa(status), "error")
		return outcome, err
	}

	label := outcome.Message
	if label == "" {
		label = "rejected"
	}
	span.SetAttributes(attribute.Int("webhook.status_code", outcome.StatusCode))
	a.metrics.WebhookOutcome(strconv.Itoa(outcome.StatusCode), label)
	return outcome, nil
}

func (a *Adapter) handleWebhook(ctx context.Context, paymentID string) (WebhookOutcome, error) {
	if paymentID == "" {
		return rejected(http.StatusBadRequest, errPaymentIDRequired), nil
	}

	payment, err := a.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return WebhookOutcome{}, errors.NewGatewayError("failed to fetch payment", err)
	}
	if payment == nil {
		a.logger.Warn("webhook for unknown payment", "payment_id", paymentID)
		return rejected(http.StatusNotFound, errPaymentNotFound), nil
	}

	tx, o, ok := a.resolveOrder(ctx, paymentID)
	if !ok {
		a.logger.Warn("webhook for payment without local transaction", "payment_id", paymentID)
		return rejected(http.StatusNotFound, fmt.Sprintf("Transaction %s not found", paymentID)), nil
	}

	in, err := intentFromPayment(payment, tx.Meta)
	if err != nil {
		return WebhookOutcome{}, errors.NewGatewayError("gateway returned an unreadable payment", err)
	}

	d := decide(payment.Status, tx)
	a.logger.Info("webhook received",
		"payment_id", paymentID,
		"order_id", o.ID,
		"gateway_status", payment.Status,
		"local_status", tx.Status,
		"message", d.message)

	if err := a.apply(ctx, d, o, in, tx); err != nil {
		return WebhookOutcome{}, err
	}

	// the authorizer records the paid status itself, ahead of its event
	if d.status != "" && d.action != actionAuthorize {
		if err := a.transactions.UpdateStatus(ctx, tx.Reference, d.status); err != nil {
			return WebhookOutcome{}, errors.NewInternalError("failed to update transaction", err)
		}
		tx.Status = d.status
	}

	return handled(d.message), nil
}

func (a *Adapter) apply(ctx context.Context, d webhookDecision, o *order.Order, in intent.Intent, tx *transaction.Transaction) error {
	switch d.action {
	case actionAuthorize:
		if err := a.authorizer.Authorize(ctx, o, in, tx); err != nil {
			return errors.NewInternalError("failed to authorize order", err)
		}
	case actionCancel:
		if err := a.dispatcher.PublishSync(ctx, events.NewPaymentCanceledEvent(o, tx, in)); err != nil {
			return errors.NewInternalError("failed to dispatch payment canceled", err)
		}
	case actionFail:
		if err := a.dispatcher.PublishSync(ctx, events.NewPaymentFailedEvent(o, tx, in, in.Status)); err != nil {
			return errors.NewInternalError("failed to dispatch payment failed", err)
		}
	}
	return nil
}
