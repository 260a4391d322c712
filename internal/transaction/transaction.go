package transaction

import (
	"context"
	"errors"

	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
)

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrDuplicateReference = errors.New("transaction reference already recorded")
)

// RepositoryAPI is the payment ledger. References are unique and rows are never deleted.
type RepositoryAPI interface {
	Create(ctx context.Context, tx *transaction.Transaction) error
	GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]*transaction.Transaction, error)
	UpdateStatus(ctx context.Context, reference, status string) error
}
