package payment

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errors "github.com/frahmantamala/mollie-checkout/internal"
	"github.com/frahmantamala/mollie-checkout/internal/core/common/validation"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/cart"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/intent"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/order"
	gatewaytypes "github.com/frahmantamala/mollie-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
	"github.com/frahmantamala/mollie-checkout/internal/core/events"
	"github.com/frahmantamala/mollie-checkout/internal/metrics"
	orderpkg "github.com/frahmantamala/mollie-checkout/internal/order"
	"github.com/frahmantamala/mollie-checkout/internal/paymentgateway"
	transactionpkg "github.com/frahmantamala/mollie-checkout/internal/transaction"
)

const tracerName = "github.com/frahmantamala/mollie-checkout/internal/payment"

// GatewayAPI is the remote payment provider as seen by the adapter.
type GatewayAPI interface {
	CreatePayment(ctx context.Context, req *gatewaytypes.CreatePaymentRequest) (*gatewaytypes.Payment, error)
	// GetPayment returns (nil, nil) when the provider does not know the id.
	GetPayment(ctx context.Context, id string) (*gatewaytypes.Payment, error)
}

// OrderServiceAPI is the host order store.
type OrderServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*order.Order, error)
	DraftForCart(ctx context.Context, c *cart.Cart) (*order.Order, error)
	MarkPaid(ctx context.Context, o *order.Order) error
}

type AdapterConfig struct {
	Driver   string
	Currency string
}

// Adapter connects the checkout to a hosted-checkout payment provider.
type Adapter struct {
	driver       string
	currency     string
	gateway      GatewayAPI
	orders       OrderServiceAPI
	transactions transactionpkg.RepositoryAPI
	dispatcher   events.Dispatcher
	authorizer   *Authorizer
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer

	mu         sync.RWMutex
	methodType string
}

func NewAdapter(
	cfg AdapterConfig,
	gateway GatewayAPI,
	orders OrderServiceAPI,
	transactions transactionpkg.RepositoryAPI,
	dispatcher events.Dispatcher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Adapter {
	if cfg.Driver == "" {
		cfg.Driver = errors.DefaultPaymentDriver
	}
	if cfg.Currency == "" {
		cfg.Currency = errors.DefaultCurrency
	}
	return &Adapter{
		driver:       cfg.Driver,
		currency:     cfg.Currency,
		gateway:      gateway,
		orders:       orders,
		transactions: transactions,
		dispatcher:   dispatcher,
		authorizer:   NewAuthorizer(cfg.Driver, orders, transactions, dispatcher, logger),
		logger:       logger.With("driver", cfg.Driver),
		metrics:      m,
		tracer:       otel.Tracer(tracerName),
	}
}

// Driver is the identifier this adapter is registered under.
func (a *Adapter) Driver() string {
	return a.driver
}

// Type is the payment method type of the most recently created intent.
func (a *Adapter) Type() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.methodType
}

func (a *Adapter) setType(methodType string) {
	a.mu.Lock()
	a.methodType = methodType
	a.mu.Unlock()
}

// CreateIntent opens a hosted-checkout payment for the cart and records it in the ledger.
// meta must carry payment_method_type and, for issuer methods, payment_method_issuer.
// amount overrides the cart total when non-nil.
func (a *Adapter) CreateIntent(ctx context.Context, c *cart.Cart, meta map[string]string, amount *int64) (intent.Intent, error) {
	ctx, span := a.tracer.Start(ctx, "payment.CreateIntent",
		trace.WithAttributes(attribute.Int64("cart.id", c.ID)))
	defer span.End()

	methodType := gatewaytypes.PaymentMethod(meta[transaction.MetaPaymentMethodType])
	issuer := strings.TrimSpace(meta[transaction.MetaPaymentMethodIssuer])

	charge := c.Total()
	if amount != nil {
		charge = *amount
	}

	if appErr := validateIntentInput(methodType, issuer, charge); appErr != nil {
		a.logger.Warn("intent input rejected", "cart_id", c.ID, "error", appErr.GetDetailedMessage())
		span.SetStatus(codes.Error, string(appErr.Code))
		return intent.Intent{}, appErr
	}

	currency := c.Currency
	if currency == "" {
		currency = a.currency
	}

	draft, err := a.orders.DraftForCart(ctx, c)
	if err != nil {
		span.RecordError(err)
		return intent.Intent{}, errors.NewInternalError("failed to prepare order", err)
	}

	req := &gatewaytypes.CreatePaymentRequest{
		Total:        c.Total(),
		Amount:       amount,
		Currency:     currency,
		MethodType:   methodType,
		MethodIssuer: issuer,
		Description:  fmt.Sprintf("Cart #%d", c.ID),
		Metadata: map[string]string{
			"cart_id":  strconv.FormatInt(c.ID, 10),
			"order_id": strconv.FormatInt(draft.ID, 10),
		},
	}

	payment, err := a.gateway.CreatePayment(ctx, req)
	if err != nil {
		a.logger.Error("gateway rejected payment", "cart_id", c.ID, "method", methodType, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway error")
		return intent.Intent{}, errors.NewGatewayError("failed to create payment", err)
	}

	in, err := intentFromPayment(payment, meta)
	if err != nil {
		span.RecordError(err)
		return intent.Intent{}, errors.NewGatewayError("gateway returned an unreadable payment", err)
	}
	span.SetAttributes(attribute.String("payment.id", in.ID))

	tx := &transaction.Transaction{
		OrderID:   draft.ID,
		Type:      transaction.TypeIntent,
		Driver:    a.driver,
		Reference: payment.ID,
		Status:    in.Status,
		Amount:    in.Amount,
		Currency:  currency,
		CardType:  string(methodType),
		Meta: map[string]string{
			transaction.MetaPaymentMethodType:   string(methodType),
			transaction.MetaPaymentMethodIssuer: issuer,
			transaction.MetaCheckoutURL:         in.CheckoutURL(),
		},
	}
	if err := a.transactions.Create(ctx, tx); err != nil {
		a.logger.Error("failed to record intent transaction", "payment_id", payment.ID, "order_id", draft.ID, "error", err)
		span.RecordError(err)
		if stderrors.Is(err, transactionpkg.ErrDuplicateReference) {
			return intent.Intent{}, errors.NewConflictError("payment already recorded", errors.ErrCodeDuplicateReference)
		}
		return intent.Intent{}, errors.NewInternalError("failed to record transaction", err)
	}

	a.setType(string(methodType))
	a.metrics.IntentCreated(string(methodType))

	a.logger.Info("payment intent created",
		"payment_id", in.ID,
		"cart_id", c.ID,
		"order_id", draft.ID,
		"amount", in.Amount,
		"method", methodType)

	return in, nil
}

// FetchIntent looks a payment up at the gateway. The boolean is false when the gateway does not know it.
func (a *Adapter) FetchIntent(ctx context.Context, paymentID string) (intent.Intent, bool, error) {
	payment, err := a.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return intent.Intent{}, false, errors.NewGatewayError("failed to fetch payment", err)
	}
	if payment == nil {
		return intent.Intent{}, false, nil
	}

	var meta map[string]string
	if tx, err := a.transactions.GetByReference(ctx, paymentID); err == nil {
		meta = tx.Meta
	}

	in, err := intentFromPayment(payment, meta)
	if err != nil {
		return intent.Intent{}, false, errors.NewGatewayError("gateway returned an unreadable payment", err)
	}
	return in, true, nil
}

// ListTransactions returns the ledger rows recorded for an order.
func (a *Adapter) ListTransactions(ctx context.Context, orderID int64) ([]*transaction.Transaction, error) {
	txs, err := a.transactions.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list transactions", err)
	}
	if len(txs) == 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no transactions recorded for order %d", orderID), errors.ErrCodeTransactionNotFound)
	}
	return txs, nil
}

// resolveOrder finds the ledger row for a gateway payment and the order it belongs to.
func (a *Adapter) resolveOrder(ctx context.Context, reference string) (*transaction.Transaction, *order.Order, bool) {
	tx, err := a.transactions.GetByReference(ctx, reference)
	if err != nil {
		if !stderrors.Is(err, transactionpkg.ErrNotFound) {
			a.logger.Error("transaction lookup failed", "reference", reference, "error", err)
		}
		return nil, nil, false
	}

	o, err := a.orders.GetByID(ctx, tx.OrderID)
	if err != nil {
		if !stderrors.Is(err, orderpkg.ErrNotFound) {
			a.logger.Error("order lookup failed", "reference", reference, "order_id", tx.OrderID, "error", err)
		}
		return nil, nil, false
	}

	return tx, o, true
}

// validateIntentInput checks the metadata first, then the amount that would be charged.
func validateIntentInput(methodType gatewaytypes.PaymentMethod, issuer string, charge int64) *errors.AppError {
	v := validation.NewValidator(errors.ErrCodeMissingMetadata)
	v.Field(transaction.MetaPaymentMethodType, string(methodType)).
		Required(errors.ErrCodeMissingMetadata).
		OneOf(gatewaytypes.SupportedMethods(), errors.ErrCodeMissingMetadata)
	v.Field(transaction.MetaPaymentMethodIssuer, issuer).
		Custom(func(value interface{}) *errors.AppError {
			if methodType.RequiresIssuer() && value.(string) == "" {
				return errors.NewMissingMetadataError(transaction.MetaPaymentMethodIssuer,
					fmt.Sprintf("%s is required for %s", transaction.MetaPaymentMethodIssuer, methodType))
			}
			return nil
		})
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}

	amountCheck := validation.NewValidator(errors.ErrCodeInvalidAmount)
	amountCheck.Field("amount", charge).MinInt(1, errors.ErrCodeInvalidAmount)
	return amountCheck.Validate()
}

// intentFromPayment snapshots a gateway payment. Caller meta is copied and the checkout URL added.
func intentFromPayment(p *gatewaytypes.Payment, meta map[string]string) (intent.Intent, error) {
	amount, err := paymentgateway.NormalizeAmountToInteger(p.Amount)
	if err != nil {
		return intent.Intent{}, err
	}

	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	if p.CheckoutURL != "" {
		out[transaction.MetaCheckoutURL] = p.CheckoutURL
	}

	return intent.New(p.ID, string(p.Status), amount, out), nil
}
