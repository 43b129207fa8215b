package repo

import (
	"context"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"gorm.io/gorm"
)

func (r *Repository) CreateDeposit(ctx context.Context, tx *gorm.DB, d *model.Deposit) error {
	return r.conn(ctx, tx).Create(d).Error
}

func (r *Repository) GetDeposit(ctx context.Context, tx *gorm.DB, id string) (*model.Deposit, error) {
	var d model.Deposit
	if err := first(r.conn(ctx, tx), &d, "deposit", id); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDepositForUpdate locks the deposit row for the rest of tx.
func (r *Repository) GetDepositForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Deposit, error) {
	var d model.Deposit
	if err := first(locked(r.conn(ctx, tx)), &d, "deposit", id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) SaveDeposit(ctx context.Context, tx *gorm.DB, d *model.Deposit) error {
	return r.conn(ctx, tx).Save(d).Error
}

func (r *Repository) ListDeposits(ctx context.Context, userID string, p model.Pagination) ([]model.Deposit, int64, error) {
	return paginate[model.Deposit](r.ownedBy(ctx, &model.Deposit{}, userID), p)
}
