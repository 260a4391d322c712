package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/cart"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/order"
)

var ErrNotFound = errors.New("order not found")

type RepositoryAPI interface {
	Create(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, id int64) (*order.Order, error)
	FindDraftByCartID(ctx context.Context, cartID int64) (*order.Order, error)
	MarkPaid(ctx context.Context, id int64, placedAt time.Time) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// DraftForCart returns the cart's open draft order, creating one from the cart when none exists.
func (s *Service) DraftForCart(ctx context.Context, c *cart.Cart) (*order.Order, error) {
	existing, err := s.repo.FindDraftByCartID(ctx, c.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find draft order for cart %d: %w", c.ID, err)
	}

	o := &order.Order{
		CartID:   c.ID,
		Status:   order.StatusDraft,
		Total:    c.Total(),
		Currency: c.Currency,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create draft order for cart %d: %w", c.ID, err)
	}

	s.logger.Info("draft order created", "order_id", o.ID, "cart_id", c.ID, "total", o.Total)
	return o, nil
}

// MarkPaid moves the order to paid and stamps placed_at, updating o in place.
func (s *Service) MarkPaid(ctx context.Context, o *order.Order) error {
	placedAt := s.now().UTC()
	if err := s.repo.MarkPaid(ctx, o.ID, placedAt); err != nil {
		return fmt.Errorf("mark order %d paid: %w", o.ID, err)
	}
	o.Status = order.StatusPaid
	o.PlacedAt = &placedAt

	s.logger.Info("order marked paid", "order_id", o.ID, "placed_at", placedAt)
	return nil
}
