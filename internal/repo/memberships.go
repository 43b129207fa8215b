package repo

import (
	"context"
	"errors"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"gorm.io/gorm"
)

func (r *Repository) CreateMembership(ctx context.Context, tx *gorm.DB, m *model.Membership) error {
	return r.conn(ctx, tx).Create(m).Error
}

func (r *Repository) GetMembership(ctx context.Context, tx *gorm.DB, id string) (*model.Membership, error) {
	var m model.Membership
	if err := first(r.conn(ctx, tx), &m, "membership", id); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMembershipForUpdate locks the membership row for the rest of tx.
func (r *Repository) GetMembershipForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Membership, error) {
	var m model.Membership
	if err := first(locked(r.conn(ctx, tx)), &m, "membership", id); err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveMembership writes every column, including nil timestamps.
func (r *Repository) SaveMembership(ctx context.Context, tx *gorm.DB, m *model.Membership) error {
	return r.conn(ctx, tx).Save(m).Error
}

func (r *Repository) LatestActiveMembership(ctx context.Context, tx *gorm.DB, userID, excludeID string) (*model.Membership, error) {
	var m model.Membership
	err := r.conn(ctx, tx).
		Where("user_id = ? AND status = ? AND id <> ?", userID, model.MembershipActive, excludeID).
		Order("started_at desc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) ListMemberships(ctx context.Context, userID string, p model.Pagination) ([]model.Membership, int64, error) {
	return paginate[model.Membership](r.ownedBy(ctx, &model.Membership{}, userID), p)
}
