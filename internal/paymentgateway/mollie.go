package paymentgateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/VictorAvelar/mollie-api-go/v3/mollie"

	gatewaytypes "github.com/frahmantamala/mollie-checkout/internal/core/datamodel/paymentgateway"
)

type molliePayments struct {
	client *mollie.Client
}

func newMolliePayments(config Config) (*molliePayments, error) {
	if config.APIKey == "" {
		return nil, errors.New("mollie: api key is required")
	}

	conf := mollie.NewConfig(config.TestMode, mollie.APITokenEnv)
	client, err := mollie.NewClient(&http.Client{Timeout: config.Timeout}, conf)
	if err != nil {
		return nil, fmt.Errorf("mollie: init client: %w", err)
	}
	if err := client.WithAuthenticationValue(config.APIKey); err != nil {
		return nil, fmt.Errorf("mollie: set api key: %w", err)
	}

	return &molliePayments{client: client}, nil
}

func (m *molliePayments) Create(ctx context.Context, p RemotePayment) (*gatewaytypes.Payment, error) {
	req := mollie.Payment{
		Amount: &mollie.Amount{
			Currency: p.Currency,
			Value:    p.Amount,
		},
		Description: p.Description,
		RedirectURL: p.RedirectURL,
		WebhookURL:  p.WebhookURL,
		Issuer:      p.Issuer,
		Metadata:    p.Metadata,
	}
	if p.Method != "" {
		req.Method = []mollie.PaymentMethod{mollie.PaymentMethod(p.Method)}
	}

	_, created, err := m.client.Payments.Create(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	return fromMolliePayment(created), nil
}

func (m *molliePayments) Get(ctx context.Context, id string) (*gatewaytypes.Payment, error) {
	res, payment, err := m.client.Payments.Get(ctx, id, nil)
	if err != nil {
		if isNotFound(res, err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromMolliePayment(payment), nil
}

func isNotFound(res *mollie.Response, err error) bool {
	var baseErr *mollie.BaseError
	if errors.As(err, &baseErr) && baseErr.Status == http.StatusNotFound {
		return true
	}
	return res != nil && res.Response != nil && res.StatusCode == http.StatusNotFound
}

func fromMolliePayment(p *mollie.Payment) *gatewaytypes.Payment {
	out := &gatewaytypes.Payment{
		ID:          p.ID,
		Status:      gatewaytypes.PaymentStatus(p.Status),
		Description: p.Description,
	}
	if p.Amount != nil {
		out.Amount = p.Amount.Value
		out.Currency = p.Amount.Currency
	}
	if len(p.Method) > 0 {
		out.Method = string(p.Method[0])
	}
	if p.Links.Checkout != nil {
		out.CheckoutURL = p.Links.Checkout.Href
	}
	return out
}
