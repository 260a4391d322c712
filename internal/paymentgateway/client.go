package paymentgateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/mollie-checkout/internal"
	gatewaytypes "github.com/frahmantamala/mollie-checkout/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/mollie-checkout/internal/metrics"
)

// ErrNotFound is returned by a PaymentsAPI when the gateway has no payment with the given id.
var ErrNotFound = errors.New("payment not found at gateway")

// RemotePayment is the create call as sent to the gateway.
type RemotePayment struct {
	Amount      string
	Currency    string
	Description string
	Method      gatewaytypes.PaymentMethod
	Issuer      string
	RedirectURL string
	WebhookURL  string
	Metadata    map[string]string
}

// PaymentsAPI is the subset of the gateway SDK the client relies on.
type PaymentsAPI interface {
	Create(ctx context.Context, p RemotePayment) (*gatewaytypes.Payment, error)
	Get(ctx context.Context, id string) (*gatewaytypes.Payment, error)
}

type Config struct {
	APIKey      string
	TestMode    bool
	RedirectURL string
	WebhookURL  string
	Timeout     time.Duration
}

type Client struct {
	api     PaymentsAPI
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient builds a client backed by the Mollie SDK, authenticated with config.APIKey.
func NewClient(config Config, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	api, err := newMolliePayments(config)
	if err != nil {
		return nil, err
	}
	return NewClientWithAPI(api, config, logger, m), nil
}

func NewClientWithAPI(api PaymentsAPI, config Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		api:     api,
		config:  config,
		logger:  logger,
		metrics: m,
	}
}

func (c *Client) CreatePayment(ctx context.Context, req *gatewaytypes.CreatePaymentRequest) (*gatewaytypes.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	remote := RemotePayment{
		Amount:      FormatAmount(req.ChargeAmount()),
		Currency:    req.Currency,
		Description: req.Description,
		Method:      req.MethodType,
		Issuer:      req.MethodIssuer,
		RedirectURL: c.config.RedirectURL,
		WebhookURL:  c.config.WebhookURL,
		Metadata:    req.Metadata,
	}

	ctx, cancel := internal.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	c.logger.Info("creating gateway payment",
		"amount", remote.Amount,
		"currency", remote.Currency,
		"method", remote.Method,
		"test_mode", c.config.TestMode)

	start := time.Now()
	payment, err := c.api.Create(ctx, remote)
	c.metrics.ObserveGatewayCall("create_payment", start, err)
	if err != nil {
		c.logger.Error("gateway payment creation failed", "error", err, "method", remote.Method)
		return nil, fmt.Errorf("create payment: %w", err)
	}

	c.logger.Info("gateway payment created",
		"payment_id", payment.ID,
		"status", payment.Status)

	return payment, nil
}

// GetPayment fetches a payment by id. A payment unknown to the gateway yields (nil, nil).
func (c *Client) GetPayment(ctx context.Context, id string) (*gatewaytypes.Payment, error) {
	ctx, cancel := internal.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	payment, err := c.api.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		c.metrics.ObserveGatewayCall("get_payment", start, nil)
		c.logger.Warn("gateway payment not found", "payment_id", id)
		return nil, nil
	}
	c.metrics.ObserveGatewayCall("get_payment", start, err)
	if err != nil {
		c.logger.Error("gateway payment lookup failed", "error", err, "payment_id", id)
		return nil, fmt.Errorf("get payment %s: %w", id, err)
	}

	return payment, nil
}
