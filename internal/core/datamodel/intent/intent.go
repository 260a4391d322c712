package intent

import "github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"

// Intent is an immutable snapshot of a gateway payment as seen by the checkout.
type Intent struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Amount int64             `json:"amount"`
	Meta   map[string]string `json:"meta"`
}

func New(id, status string, amount int64, meta map[string]string) Intent {
	copied := make(map[string]string, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return Intent{ID: id, Status: status, Amount: amount, Meta: copied}
}

func (i Intent) CheckoutURL() string {
	return i.Meta[transaction.MetaCheckoutURL]
}
