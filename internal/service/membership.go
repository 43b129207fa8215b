package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/richardliu001/celebrity-wallet/internal/notify"
	"github.com/richardliu001/celebrity-wallet/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PurchaseMembershipRequest struct {
	UserID string
	PlanID string
	// Amount overrides the plan price; admin only.
	Amount          *decimal.Decimal
	AutoRenew       bool
	PaymentMethodID *string
}

type UpgradeMembershipRequest struct {
	UserID          string
	PlanID          string
	PaymentMethodID *string
}

// MembershipService sells plans and keeps users.current_membership_id in step
// with the membership rows, which remain the source of truth.
type MembershipService struct {
	repo   repo.RepositoryInterface
	ledger *LedgerService
	fx     sideEffects
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewMembershipService(r repo.RepositoryInterface, l *LedgerService, fx Effects, logger *zap.SugaredLogger) *MembershipService {
	return &MembershipService{repo: r, ledger: l, fx: sideEffects{fx: fx, log: logger}, log: logger, now: time.Now}
}

func snapshotPlan(id, userID string, p *model.Plan, price decimal.Decimal, now time.Time) *model.Membership {
	exp := p.BillingPeriod.ExpiresAt(now, p.CustomDays)
	return &model.Membership{
		ID:            id,
		UserID:        userID,
		PlanID:        p.ID,
		PlanName:      p.Name,
		Price:         price,
		BillingPeriod: p.BillingPeriod,
		CustomDays:    p.CustomDays,
		Features:      p.Features,
		Status:        model.MembershipPending,
		ExpiresAt:     &exp,
	}
}

func activePlan(ctx context.Context, r repo.CatalogStore, tx *gorm.DB, planID string) (*model.Plan, error) {
	plan, err := r.GetPlan(ctx, tx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, model.Unavailable("plan", plan.ID)
	}
	return plan, nil
}

// Purchase debits the plan price and records a PENDING membership, which
// becomes the user's current one straight away.
func (s *MembershipService) Purchase(ctx context.Context, actorID string, req PurchaseMembershipRequest) (*model.Membership, error) {
	var (
		membership *model.Membership
		user       *model.User
	)
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.repo.GetUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		plan, err := activePlan(ctx, s.repo, tx, req.PlanID)
		if err != nil {
			return err
		}
		price := plan.Price
		if req.Amount != nil {
			price = *req.Amount
		}
		if !price.IsPositive() {
			return model.ErrInvalidAmount
		}

		m := snapshotPlan(uuid.NewString(), u.ID, plan, price, s.now())
		m.AutoRenew = req.AutoRenew
		m.PaymentMethodID = req.PaymentMethodID
		_, err = s.ledger.Debit(ctx, tx, PostingRequest{
			UserID:      u.ID,
			Amount:      price,
			Purpose:     model.PurposeMembershipPayment,
			Description: fmt.Sprintf("%s membership", plan.Name),
			ReferenceID: m.ID,
			Meta:        map[string]interface{}{"planId": plan.ID, "billingPeriod": plan.BillingPeriod},
		})
		if err != nil {
			return err
		}
		if err := s.repo.CreateMembership(ctx, tx, m); err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}
		if err := s.repo.SetCurrentMembership(ctx, tx, u.ID, &m.ID); err != nil {
			return fmt.Errorf("point user at membership: %w", err)
		}
		if err := emit(ctx, s.repo, tx, "Membership", m.ID, "membership.purchased", m); err != nil {
			return err
		}
		membership, user = m, u
		return nil
	})
	if err != nil {
		if !isBusiness(err) {
			s.log.Errorw("purchase membership", "user_id", req.UserID, "plan_id", req.PlanID, "error", err)
		}
		return nil, err
	}
	s.afterPurchase(ctx, actorID, user, membership, "CREATE")
	return membership, nil
}

// Upgrade buys the new plan at full price and cancels the current membership.
// The unused part of the old plan is not refunded.
func (s *MembershipService) Upgrade(ctx context.Context, req UpgradeMembershipRequest) (*model.Membership, error) {
	var (
		membership *model.Membership
		user       *model.User
	)
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.repo.GetUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if u.CurrentMembershipID == nil {
			return model.NotFound("current membership for user", u.ID)
		}
		cur, err := s.repo.GetMembershipForUpdate(ctx, tx, *u.CurrentMembershipID)
		if err != nil {
			return err
		}
		if cur.Status != model.MembershipActive && cur.Status != model.MembershipPending {
			return model.InvalidTransition("membership", cur.Status, model.MembershipCanceled)
		}
		plan, err := activePlan(ctx, s.repo, tx, req.PlanID)
		if err != nil {
			return err
		}
		if plan.ID == cur.PlanID {
			return model.Validation("already on plan " + plan.Name)
		}
		if !plan.Price.IsPositive() {
			return model.ErrInvalidAmount
		}

		now := s.now()
		m := snapshotPlan(uuid.NewString(), u.ID, plan, plan.Price, now)
		m.AutoRenew = cur.AutoRenew
		m.PaymentMethodID = req.PaymentMethodID
		if m.PaymentMethodID == nil {
			m.PaymentMethodID = cur.PaymentMethodID
		}
		_, err = s.ledger.Debit(ctx, tx, PostingRequest{
			UserID:      u.ID,
			Amount:      plan.Price,
			Purpose:     model.PurposeMembershipUpgrade,
			Description: fmt.Sprintf("Upgrade from %s to %s", cur.PlanName, plan.Name),
			ReferenceID: m.ID,
			Meta:        map[string]interface{}{"fromMembershipId": cur.ID, "fromPlanId": cur.PlanID, "planId": plan.ID},
		})
		if err != nil {
			return err
		}

		cur.Status = model.MembershipCanceled
		cur.CanceledAt = &now
		if err := s.repo.SaveMembership(ctx, tx, cur); err != nil {
			return fmt.Errorf("cancel old membership: %w", err)
		}
		if err := s.repo.CreateMembership(ctx, tx, m); err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}
		if err := s.repo.SetCurrentMembership(ctx, tx, u.ID, &m.ID); err != nil {
			return fmt.Errorf("point user at membership: %w", err)
		}
		if err := emit(ctx, s.repo, tx, "Membership", m.ID, "membership.upgraded",
			map[string]interface{}{"membership_id": m.ID, "from_membership_id": cur.ID, "plan_id": plan.ID}); err != nil {
			return err
		}
		membership, user = m, u
		return nil
	})
	if err != nil {
		if !isBusiness(err) {
			s.log.Errorw("upgrade membership", "user_id", req.UserID, "plan_id", req.PlanID, "error", err)
		}
		return nil, err
	}
	s.afterPurchase(ctx, user.ID, user, membership, "UPGRADE")
	return membership, nil
}

func (s *MembershipService) afterPurchase(ctx context.Context, actorID string, u *model.User, m *model.Membership, action string) {
	s.ledger.RefreshCache(ctx, u.ID)
	s.fx.notify(ctx, u.ID, notify.KindMembership, "Membership purchased",
		fmt.Sprintf("Your %s membership is awaiting activation.", m.PlanName))
	s.fx.mail(ctx, "membership purchased", func(ml notify.Mailer) error { return ml.SendMembershipPurchased(ctx, u, m) })
	s.fx.audit(ctx, actorID, action, "membership", m.ID,
		fmt.Sprintf("membership %s on plan %s paid %s", m.ID, m.PlanID, m.Price.String()))
}

// UpdateStatus applies an admin transition. No money moves: membership
// payments are not refundable. When the user's current membership leaves
// service the pointer falls back to their latest other ACTIVE membership.
func (s *MembershipService) UpdateStatus(ctx context.Context, actorID, membershipID string, status model.MembershipStatus) (*model.Membership, error) {
	var (
		membership *model.Membership
		changed    bool
	)
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.GetMembershipForUpdate(ctx, tx, membershipID)
		if err != nil {
			return err
		}
		membership = m
		if !m.Status.CanMoveTo(status) {
			return model.InvalidTransition("membership", m.Status, status)
		}
		if m.Status == status {
			return nil
		}

		now := s.now()
		switch status {
		case model.MembershipActive:
			if m.Status == model.MembershipPending {
				exp := m.BillingPeriod.ExpiresAt(now, m.CustomDays)
				m.StartedAt = &now
				m.ExpiresAt = &exp
			}
			m.SuspendedAt = nil
		case model.MembershipCanceled:
			m.CanceledAt = &now
		case model.MembershipSuspended:
			m.SuspendedAt = &now
		}
		m.Status = status
		if err := s.repo.SaveMembership(ctx, tx, m); err != nil {
			return fmt.Errorf("save membership: %w", err)
		}

		switch {
		case status == model.MembershipActive:
			if err := s.repo.SetCurrentMembership(ctx, tx, m.UserID, &m.ID); err != nil {
				return fmt.Errorf("promote membership: %w", err)
			}
		case status.Ends():
			if err := s.repairPointer(ctx, tx, m); err != nil {
				return err
			}
		}
		if err := emit(ctx, s.repo, tx, "Membership", m.ID, "membership.status_changed",
			map[string]interface{}{"membership_id": m.ID, "status": m.Status}); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return membership, nil
	}

	s.fx.notify(ctx, membership.UserID, notify.KindMembership, "Membership "+membership.Status.String(),
		fmt.Sprintf("Your %s membership is now %s.", membership.PlanName, membership.Status))
	if u, err := s.repo.GetUser(ctx, nil, membership.UserID); err == nil {
		s.fx.mail(ctx, "membership status", func(ml notify.Mailer) error { return ml.SendMembershipStatus(ctx, u, membership) })
	}
	s.fx.audit(ctx, actorID, "UPDATE_STATUS", "membership", membership.ID, "status "+membership.Status.String())
	return membership, nil
}

// repairPointer only touches the user when m is the one they point at.
func (s *MembershipService) repairPointer(ctx context.Context, tx *gorm.DB, m *model.Membership) error {
	u, err := s.repo.GetUser(ctx, tx, m.UserID)
	if err != nil {
		return err
	}
	if u.CurrentMembershipID == nil || *u.CurrentMembershipID != m.ID {
		return nil
	}
	next, err := s.repo.LatestActiveMembership(ctx, tx, m.UserID, m.ID)
	if err != nil {
		return fmt.Errorf("find fallback membership: %w", err)
	}
	var ptr *string
	if next != nil {
		ptr = &next.ID
	}
	if err := s.repo.SetCurrentMembership(ctx, tx, m.UserID, ptr); err != nil {
		return fmt.Errorf("repoint membership: %w", err)
	}
	return nil
}

// SetAutoRenew lets the owner toggle renewal.
func (s *MembershipService) SetAutoRenew(ctx context.Context, userID, membershipID string, autoRenew bool) (*model.Membership, error) {
	m, err := s.Get(ctx, userID, membershipID)
	if err != nil {
		return nil, err
	}
	if m.AutoRenew == autoRenew {
		return m, nil
	}
	m.AutoRenew = autoRenew
	if err := s.repo.SaveMembership(ctx, nil, m); err != nil {
		return nil, fmt.Errorf("save membership: %w", err)
	}
	s.fx.audit(ctx, userID, "UPDATE", "membership", m.ID, fmt.Sprintf("autoRenew=%t", autoRenew))
	return m, nil
}

// Get returns a membership only to its owner.
func (s *MembershipService) Get(ctx context.Context, userID, membershipID string) (*model.Membership, error) {
	m, err := s.repo.GetMembership(ctx, nil, membershipID)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, model.ErrUnauthorized
	}
	return m, nil
}

func (s *MembershipService) List(ctx context.Context, userID string, p model.Pagination) (*model.Page[model.Membership], error) {
	items, total, err := s.repo.ListMemberships(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return toPage(items, total, p), nil
}
