package cart

import (
	"context"
	"errors"

	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/cart"
)

var ErrNotFound = errors.New("cart not found")

type RepositoryAPI interface {
	Create(ctx context.Context, c *cart.Cart) error
	GetByID(ctx context.Context, id int64) (*cart.Cart, error)
}
