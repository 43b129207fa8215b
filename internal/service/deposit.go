package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richardliu001/celebrity-wallet/internal/metrics"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/richardliu001/celebrity-wallet/internal/notify"
	"github.com/richardliu001/celebrity-wallet/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateDepositRequest struct {
	UserID          string
	Amount          decimal.Decimal
	ProofURL        *string
	PaymentMethodID *string
	Note            string
}

type UpdateDepositRequest struct {
	Status model.DepositStatus
	Note   *string
}

// DepositService records claimed top-ups. Funds reach the balance only when an
// operator marks the deposit COMPLETED, and never more than once.
type DepositService struct {
	repo   repo.RepositoryInterface
	ledger *LedgerService
	fx     sideEffects
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewDepositService(r repo.RepositoryInterface, l *LedgerService, fx Effects, logger *zap.SugaredLogger) *DepositService {
	return &DepositService{repo: r, ledger: l, fx: sideEffects{fx: fx, log: logger}, log: logger, now: time.Now}
}

// Create records a user's deposit claim as PENDING.
func (s *DepositService) Create(ctx context.Context, req CreateDepositRequest) (*model.Deposit, error) {
	return s.create(ctx, req.UserID, req, model.DepositPending)
}

// CreateAsAdmin records a deposit in the chosen status; COMPLETED credits it
// in the same transaction. An empty status means PENDING.
func (s *DepositService) CreateAsAdmin(ctx context.Context, actorID string, req CreateDepositRequest, status model.DepositStatus) (*model.Deposit, error) {
	if status == "" {
		status = model.DepositPending
	}
	return s.create(ctx, actorID, req, status)
}

func (s *DepositService) create(ctx context.Context, actorID string, req CreateDepositRequest, status model.DepositStatus) (*model.Deposit, error) {
	if !req.Amount.IsPositive() {
		return nil, model.ErrInvalidAmount
	}
	var (
		deposit *model.Deposit
		user    *model.User
	)
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.repo.GetUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		d := &model.Deposit{
			ID:              uuid.NewString(),
			UserID:          u.ID,
			Amount:          req.Amount,
			ProofURL:        req.ProofURL,
			PaymentMethodID: req.PaymentMethodID,
			Status:          status,
			Note:            req.Note,
		}
		if err := s.repo.CreateDeposit(ctx, tx, d); err != nil {
			return fmt.Errorf("insert deposit: %w", err)
		}
		if status == model.DepositCompleted {
			if err := s.credit(ctx, tx, d); err != nil {
				return err
			}
			if err := s.repo.SaveDeposit(ctx, tx, d); err != nil {
				return fmt.Errorf("mark deposit credited: %w", err)
			}
		}
		if err := emit(ctx, s.repo, tx, "Deposit", d.ID, "deposit.created", d); err != nil {
			return err
		}
		deposit, user = d, u
		return nil
	})
	if err != nil {
		if !isBusiness(err) {
			s.log.Errorw("create deposit", "user_id", req.UserID, "error", err)
		}
		return nil, err
	}

	if deposit.CreditedAt != nil {
		s.ledger.RefreshCache(ctx, user.ID)
	}
	s.fx.notify(ctx, user.ID, notify.KindDeposit, "Deposit received",
		fmt.Sprintf("Your deposit of %s is %s.", deposit.Amount.StringFixed(2), deposit.Status))
	s.fx.mail(ctx, "deposit received", func(m notify.Mailer) error { return m.SendDepositReceived(ctx, user, deposit) })
	s.fx.audit(ctx, actorID, "CREATE", "deposit", deposit.ID,
		fmt.Sprintf("deposit of %s created as %s", deposit.Amount.String(), deposit.Status))
	return deposit, nil
}

// credit posts the TOPUP and stamps CreditedAt; callers must check CreditedAt first.
func (s *DepositService) credit(ctx context.Context, tx *gorm.DB, d *model.Deposit) error {
	_, err := s.ledger.Credit(ctx, tx, PostingRequest{
		UserID:      d.UserID,
		Amount:      d.Amount,
		Purpose:     model.PurposeTopup,
		Description: "Deposit approved",
		ReferenceID: d.ID,
	})
	if err != nil {
		return err
	}
	now := s.now()
	d.CreditedAt = &now
	return nil
}

// UpdateStatus is the operator's approve/fail action. Approving an already
// credited deposit only updates its other fields. Failing a credited deposit
// does not claw the funds back.
func (s *DepositService) UpdateStatus(ctx context.Context, actorID, depositID string, req UpdateDepositRequest) (*model.Deposit, error) {
	var (
		deposit  *model.Deposit
		changed  bool
		credited bool
	)
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := s.repo.GetDepositForUpdate(ctx, tx, depositID)
		if err != nil {
			return err
		}
		if !d.Status.CanMoveTo(req.Status) {
			return model.InvalidTransition("deposit", d.Status, req.Status)
		}
		changed = d.Status != req.Status
		if req.Note != nil && *req.Note != d.Note {
			d.Note = *req.Note
			changed = true
		}
		d.Status = req.Status

		switch req.Status {
		case model.DepositCompleted:
			if d.CreditedAt != nil {
				metrics.IdempotentSkips.WithLabelValues("deposit").Inc()
				break
			}
			if err := s.credit(ctx, tx, d); err != nil {
				return err
			}
			credited = true
		case model.DepositFailed:
			if d.CreditedAt != nil {
				s.log.Warnw("deposit failed after credit; balance left unchanged",
					"deposit_id", d.ID, "credited_at", d.CreditedAt)
			}
		}
		if !changed && !credited {
			deposit = d
			return nil
		}
		if err := s.repo.SaveDeposit(ctx, tx, d); err != nil {
			return fmt.Errorf("save deposit: %w", err)
		}
		if err := emit(ctx, s.repo, tx, "Deposit", d.ID, "deposit.status_changed",
			map[string]interface{}{"deposit_id": d.ID, "status": d.Status, "credited": credited}); err != nil {
			return err
		}
		deposit = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed && !credited {
		return deposit, nil
	}

	if credited {
		s.ledger.RefreshCache(ctx, deposit.UserID)
	}
	s.fx.notify(ctx, deposit.UserID, notify.KindDeposit, "Deposit "+deposit.Status.String(),
		fmt.Sprintf("Your deposit of %s is now %s.", deposit.Amount.StringFixed(2), deposit.Status))
	if u, err := s.repo.GetUser(ctx, nil, deposit.UserID); err == nil {
		s.fx.mail(ctx, "deposit status", func(m notify.Mailer) error { return m.SendDepositStatus(ctx, u, deposit) })
	}
	s.fx.audit(ctx, actorID, "UPDATE_STATUS", "deposit", deposit.ID,
		fmt.Sprintf("status %s, credited=%t", deposit.Status, credited))
	return deposit, nil
}

// Get returns a deposit only to its owner.
func (s *DepositService) Get(ctx context.Context, userID, depositID string) (*model.Deposit, error) {
	d, err := s.repo.GetDeposit(ctx, nil, depositID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, model.ErrUnauthorized
	}
	return d, nil
}

func (s *DepositService) List(ctx context.Context, userID string, p model.Pagination) (*model.Page[model.Deposit], error) {
	items, total, err := s.repo.ListDeposits(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	return toPage(items, total, p), nil
}
