package paymentgateway

import (
	"errors"
	"sort"
)

type PaymentStatus string

// Statuses reported by the gateway for a payment.
const (
	PaymentStatusOpen       PaymentStatus = "open"
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusExpired    PaymentStatus = "expired"
	PaymentStatusFailed     PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodApplePay       PaymentMethod = "applepay"
	MethodBancontact     PaymentMethod = "bancontact"
	MethodBankTransfer   PaymentMethod = "banktransfer"
	MethodBelfius        PaymentMethod = "belfius"
	MethodCreditCard     PaymentMethod = "creditcard"
	MethodDirectDebit    PaymentMethod = "directdebit"
	MethodEPS            PaymentMethod = "eps"
	MethodGiftCard       PaymentMethod = "giftcard"
	MethodGiropay        PaymentMethod = "giropay"
	MethodIDeal          PaymentMethod = "ideal"
	MethodKBC            PaymentMethod = "kbc"
	MethodKlarnaPayLater PaymentMethod = "klarnapaylater"
	MethodKlarnaSliceIt  PaymentMethod = "klarnasliceit"
	MethodMyBank         PaymentMethod = "mybank"
	MethodPayPal         PaymentMethod = "paypal"
	MethodPaysafecard    PaymentMethod = "paysafecard"
	MethodPrzelewy24     PaymentMethod = "przelewy24"
	MethodSofort         PaymentMethod = "sofort"
)

var supportedMethods = map[PaymentMethod]struct{}{
	MethodApplePay: {}, MethodBancontact: {}, MethodBankTransfer: {}, MethodBelfius: {},
	MethodCreditCard: {}, MethodDirectDebit: {}, MethodEPS: {}, MethodGiftCard: {},
	MethodGiropay: {}, MethodIDeal: {}, MethodKBC: {}, MethodKlarnaPayLater: {},
	MethodKlarnaSliceIt: {}, MethodMyBank: {}, MethodPayPal: {}, MethodPaysafecard: {},
	MethodPrzelewy24: {}, MethodSofort: {},
}

var issuerMethods = map[PaymentMethod]struct{}{
	MethodIDeal:    {},
	MethodKBC:      {},
	MethodGiftCard: {},
}

// RequiresIssuer reports whether the hosted checkout needs a preselected issuer (bank or card brand).
func (m PaymentMethod) RequiresIssuer() bool {
	_, ok := issuerMethods[m]
	return ok
}

// SupportedMethods returns the method names in sorted order.
func SupportedMethods() []string {
	out := make([]string, 0, len(supportedMethods))
	for m := range supportedMethods {
		out = append(out, string(m))
	}
	sort.Strings(out)
	return out
}

type CreatePaymentRequest struct {
	// Total is the cart total in minor units, used unless Amount is set.
	Total        int64
	Amount       *int64
	Currency     string
	MethodType   PaymentMethod
	MethodIssuer string
	Description  string
	Metadata     map[string]string
}

// ChargeAmount is the override when present, otherwise the total.
func (r *CreatePaymentRequest) ChargeAmount() int64 {
	if r.Amount != nil {
		return *r.Amount
	}
	return r.Total
}

func (r *CreatePaymentRequest) Validate() error {
	if r.ChargeAmount() <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	if r.Description == "" {
		return errors.New("description is required")
	}
	return nil
}

// Payment is the gateway's view of a payment, decoupled from the SDK types.
type Payment struct {
	ID          string        `json:"id"`
	Status      PaymentStatus `json:"status"`
	Amount      string        `json:"amount"`
	Currency    string        `json:"currency"`
	Method      string        `json:"method,omitempty"`
	Description string        `json:"description,omitempty"`
	CheckoutURL string        `json:"checkout_url,omitempty"`
}
