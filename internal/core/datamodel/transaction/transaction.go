package transaction

import "time"

const TypeIntent = "intent"

// Local lifecycle statuses. The spelling of cancelled differs from the gateway's "canceled".
const (
	StatusOpen      = "open"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

const (
	MetaPaymentMethodType   = "payment_method_type"
	MetaPaymentMethodIssuer = "payment_method_issuer"
	MetaCheckoutURL         = "checkout_url"
)

// Transaction is the local ledger entry for one gateway payment. Reference holds the gateway payment id.
type Transaction struct {
	ID        int64             `json:"id" gorm:"primaryKey"`
	OrderID   int64             `json:"order_id" gorm:"column:order_id;not null;index"`
	Type      string            `json:"type" gorm:"column:type;not null"`
	Driver    string            `json:"driver" gorm:"column:driver;not null"`
	Reference string            `json:"reference" gorm:"column:reference;not null;uniqueIndex"`
	Status    string            `json:"status" gorm:"column:status;not null"`
	Amount    int64             `json:"amount" gorm:"column:amount;not null"`
	Currency  string            `json:"currency" gorm:"column:currency;not null"`
	CardType  string            `json:"card_type" gorm:"column:card_type"`
	Meta      map[string]string `json:"meta" gorm:"column:meta;type:jsonb;serializer:json"`
	CreatedAt time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"column:updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) IsPaid() bool {
	return t.Status == StatusPaid
}
