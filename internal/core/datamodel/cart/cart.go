package cart

import "time"

type Cart struct {
	ID         int64      `gorm:"primaryKey"`
	CustomerID *string    `gorm:"column:customer_id"`
	Currency   string     `gorm:"column:currency;not null;default:EUR"`
	Lines      []CartLine `gorm:"foreignKey:CartID"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

// Total returns the cart total in minor currency units.
func (c *Cart) Total() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.Subtotal()
	}
	return total
}

type CartLine struct {
	ID          int64     `gorm:"primaryKey"`
	CartID      int64     `gorm:"column:cart_id;not null;index"`
	Description string    `gorm:"column:description;not null"`
	UnitPrice   int64     `gorm:"column:unit_price;not null"`
	Quantity    int64     `gorm:"column:quantity;not null;default:1"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (CartLine) TableName() string {
	return "cart_lines"
}

func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * l.Quantity
}
