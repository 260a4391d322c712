package order

import "time"

const (
	StatusDraft = "draft"
	StatusPaid  = "paid"
)

type Order struct {
	ID        int64      `gorm:"primaryKey"`
	CartID    int64      `gorm:"column:cart_id;not null;index"`
	Status    string     `gorm:"column:status;not null;default:draft"`
	Total     int64      `gorm:"column:total;not null"`
	Currency  string     `gorm:"column:currency;not null"`
	PlacedAt  *time.Time `gorm:"column:placed_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid
}
