package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	cartpkg "github.com/frahmantamala/mollie-checkout/internal/cart"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/cart"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) cartpkg.RepositoryAPI {
	return &CartRepository{
		db: db,
	}
}

// Create inserts the cart together with its lines.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CartRepository) GetByID(ctx context.Context, id int64) (*cart.Cart, error) {
	var c cart.Cart
	err := r.db.WithContext(ctx).Preload("Lines").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cartpkg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
