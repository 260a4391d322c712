package payment

import (
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/intent"
)

// CreateIntentRequest is the body of POST /api/v1/carts/{cartID}/payment-intents
type CreateIntentRequest struct {
	Meta   map[string]string `json:"meta"`
	Amount *int64            `json:"amount,omitempty"`
}

// IntentResponse is the storefront view of an intent
type IntentResponse struct {
	ID          string            `json:"id"`
	Driver      string            `json:"driver"`
	Status      string            `json:"status"`
	Amount      int64             `json:"amount"`
	CheckoutURL string            `json:"checkout_url,omitempty"`
	Meta        map[string]string `json:"meta"`
}

func NewIntentResponse(driver string, in intent.Intent) IntentResponse {
	return IntentResponse{
		ID:          in.ID,
		Driver:      driver,
		Status:      in.Status,
		Amount:      in.Amount,
		CheckoutURL: in.CheckoutURL(),
		Meta:        in.Meta,
	}
}
