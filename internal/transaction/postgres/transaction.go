package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
	transactionpkg "github.com/frahmantamala/mollie-checkout/internal/transaction"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) transactionpkg.RepositoryAPI {
	return &TransactionRepository{
		db: db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	err := r.translate(r.db.WithContext(ctx).Create(tx).Error)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return transactionpkg.ErrDuplicateReference
	}
	return err
}

// translate maps driver errors onto gorm's sentinels whether or not the session has TranslateError set.
func (r *TransactionRepository) translate(err error) error {
	if err == nil {
		return nil
	}
	if translator, ok := r.db.Dialector.(gorm.ErrorTranslator); ok {
		return translator.Translate(err)
	}
	return err
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, transactionpkg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) ListByOrderID(ctx context.Context, orderID int64) ([]*transaction.Transaction, error) {
	var txs []*transaction.Transaction
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at DESC").Find(&txs).Error
	return txs, err
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, reference, status string) error {
	result := r.db.WithContext(ctx).Model(&transaction.Transaction{}).
		Where("reference = ?", reference).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return transactionpkg.ErrNotFound
	}
	return nil
}
