package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/order"
	orderpkg "github.com/frahmantamala/mollie-checkout/internal/order"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) orderpkg.RepositoryAPI {
	return &OrderRepository{
		db: db,
	}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderpkg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) FindDraftByCartID(ctx context.Context, cartID int64) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND status = ?", cartID, order.StatusDraft).
		Order("created_at DESC").
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderpkg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id int64, placedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&order.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":    order.StatusPaid,
		"placed_at": placedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return orderpkg.ErrNotFound
	}
	return nil
}
