package repo

import (
	"context"
	"errors"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"gorm.io/gorm"
)

// CreateTransaction inserts record.
func (r *Repository) CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	return r.conn(ctx, tx).Create(t).Error
}

// FindByReference checks for an already-posted effect of the given purpose.
func (r *Repository) FindByReference(ctx context.Context, tx *gorm.DB, referenceID string, purpose model.Purpose) (*model.Transaction, error) {
	var t model.Transaction
	err := r.conn(ctx, tx).Where("reference_id = ? AND purpose = ?", referenceID, purpose).First(&t).Error
	if err == nil {
		return &t, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *Repository) ListTransactions(ctx context.Context, f model.TransactionFilter, p model.Pagination) ([]model.Transaction, int64, error) {
	return paginate[model.Transaction](func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Transaction{})
		if f.UserID != "" {
			q = q.Where("user_id = ?", f.UserID)
		}
		if f.Purpose != "" {
			q = q.Where("purpose = ?", f.Purpose)
		}
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		return q
	}, p)
}

// UserTransactions returns a user's full history in posting order.
func (r *Repository) UserTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("seq asc").Order("created_at asc").Find(&txs).Error
	return txs, err
}
