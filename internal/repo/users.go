package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserCounter names a purchase counter column on users.
type UserCounter string

const (
	CounterBookings UserCounter = "bookings_count"
	CounterTickets  UserCounter = "tickets_count"
)

func (r *Repository) GetUser(ctx context.Context, tx *gorm.DB, id string) (*model.User, error) {
	var u model.User
	if err := first(r.conn(ctx, tx), &u, "user", id); err != nil {
		return nil, err
	}
	return &u, nil
}

// DebitBalance is a single conditional UPDATE; two concurrent debits can
// never both pass the balance check.
func (r *Repository) DebitBalance(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (bool, error) {
	res := r.conn(ctx, tx).
		Model(&model.User{}).
		Where("id = ? AND balance >= ?", id, amount).
		Updates(map[string]interface{}{
			"balance":     gorm.Expr("balance - ?", amount),
			"total_spent": gorm.Expr("total_spent + ?", amount),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("debit balance: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) CreditBalance(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (bool, error) {
	res := r.conn(ctx, tx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("credit balance: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) GetBalance(ctx context.Context, tx *gorm.DB, id string) (decimal.Decimal, error) {
	var u model.User
	err := r.conn(ctx, tx).Select("id", "balance").Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, model.NotFound("user", id)
		}
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	return u.Balance, nil
}

// NextLedgerSeq bumps the user's ledger position and returns the new value.
// The UPDATE takes the user row lock, so postings for one user are numbered
// in commit order.
func (r *Repository) NextLedgerSeq(ctx context.Context, tx *gorm.DB, id string) (int64, error) {
	db := r.conn(ctx, tx)
	res := db.Model(&model.User{}).Where("id = ?", id).Update("ledger_seq", gorm.Expr("ledger_seq + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("bump ledger seq: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, model.NotFound("user", id)
	}
	var u model.User
	if err := db.Select("id", "ledger_seq").Where("id = ?", id).First(&u).Error; err != nil {
		return 0, fmt.Errorf("read ledger seq: %w", err)
	}
	return u.LedgerSeq, nil
}

func (r *Repository) IncrementUserCounter(ctx context.Context, tx *gorm.DB, id string, counter UserCounter, delta int) error {
	col := string(counter)
	return r.conn(ctx, tx).Model(&model.User{}).Where("id = ?", id).
		Update(col, gorm.Expr(col+" + ?", delta)).Error
}

func (r *Repository) SetCurrentMembership(ctx context.Context, tx *gorm.DB, userID string, membershipID *string) error {
	return r.conn(ctx, tx).Model(&model.User{}).Where("id = ?", userID).
		Update("current_membership_id", membershipID).Error
}
