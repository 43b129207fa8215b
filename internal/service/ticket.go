package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/richardliu001/celebrity-wallet/internal/metrics"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/richardliu001/celebrity-wallet/internal/notify"
	"github.com/richardliu001/celebrity-wallet/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PurchaseTicketRequest struct {
	UserID       string
	EventID      string
	TicketTypeID string
	Quantity     int
}

type TicketService struct {
	repo   repo.RepositoryInterface
	ledger *LedgerService
	fx     sideEffects
	log    *zap.SugaredLogger
}

func NewTicketService(r repo.RepositoryInterface, l *LedgerService, fx Effects, logger *zap.SugaredLogger) *TicketService {
	return &TicketService{repo: r, ledger: l, fx: sideEffects{fx: fx, log: logger}, log: logger}
}

// Purchase charges the user, reserves inventory and records a PENDING ticket,
// all or nothing.
func (s *TicketService) Purchase(ctx context.Context, req PurchaseTicketRequest) (*model.Ticket, error) {
	if req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}
	var (
		ticket *model.Ticket
		user   *model.User
	)
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.repo.GetUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		ev, err := s.repo.GetEvent(ctx, tx, req.EventID)
		if err != nil {
			return err
		}
		if !ev.Active {
			return model.Unavailable("event", ev.ID)
		}
		tt, err := s.repo.GetTicketType(ctx, tx, ev.ID, req.TicketTypeID)
		if err != nil {
			return err
		}
		if !tt.Price.IsPositive() {
			return model.ErrInvalidAmount
		}
		if tt.Remaining() < req.Quantity {
			return model.ErrInsufficientInventory
		}
		total := tt.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))

		id := uuid.NewString()
		_, err = s.ledger.Debit(ctx, tx, PostingRequest{
			UserID:      u.ID,
			Amount:      total,
			Purpose:     model.PurposeTicketPurchase,
			Description: fmt.Sprintf("%d x %s for %s", req.Quantity, tt.Name, ev.Name),
			ReferenceID: id,
			Meta:        map[string]interface{}{"eventId": ev.ID, "ticketTypeId": tt.ID, "quantity": req.Quantity},
		})
		if err != nil {
			return err
		}

		// the read above can go stale under concurrent buyers; this update is the real check
		ok, err := s.repo.ReserveTickets(ctx, tx, tt.ID, req.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrInsufficientInventory
		}

		t := &model.Ticket{
			ID:             id,
			UserID:         u.ID,
			EventID:        ev.ID,
			TicketTypeID:   tt.ID,
			EventName:      ev.Name,
			EventSlug:      ev.Slug,
			TicketTypeName: tt.Name,
			UnitPrice:      tt.Price,
			Quantity:       req.Quantity,
			TotalAmount:    total,
			Status:         model.TicketPending,
		}
		if err := s.repo.CreateTicket(ctx, tx, t); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		if err := s.repo.IncrementEventTicketsSold(ctx, tx, ev.ID, req.Quantity); err != nil {
			return fmt.Errorf("bump event tickets sold: %w", err)
		}
		if err := s.repo.IncrementUserCounter(ctx, tx, u.ID, repo.CounterTickets, 1); err != nil {
			return fmt.Errorf("bump user tickets: %w", err)
		}
		if err := emit(ctx, s.repo, tx, "Ticket", t.ID, "ticket.purchased", t); err != nil {
			return err
		}
		ticket, user = t, u
		return nil
	})
	if err != nil {
		if !isBusiness(err) {
			s.log.Errorw("purchase ticket", "user_id", req.UserID, "event_id", req.EventID, "error", err)
		}
		return nil, err
	}

	s.ledger.RefreshCache(ctx, user.ID)
	s.fx.notify(ctx, user.ID, notify.KindTicket, "Ticket purchased",
		fmt.Sprintf("You bought %d x %s for %s.", ticket.Quantity, ticket.TicketTypeName, ticket.EventName))
	s.fx.mail(ctx, "ticket purchased", func(m notify.Mailer) error { return m.SendTicketPurchased(ctx, user, ticket) })
	s.fx.audit(ctx, user.ID, "CREATE", "ticket", ticket.ID,
		fmt.Sprintf("ticket %s for %s paid", ticket.ID, ticket.TotalAmount.String()))
	return ticket, nil
}

// UpdateStatus applies an admin transition. CANCELED and REJECTED refund the
// buyer and release the seats exactly once.
func (s *TicketService) UpdateStatus(ctx context.Context, actorID, ticketID string, status model.TicketStatus) (*model.Ticket, error) {
	var (
		ticket   *model.Ticket
		changed  bool
		refunded bool
	)
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.repo.GetTicketForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if !t.Status.CanMoveTo(status) {
			return model.InvalidTransition("ticket", t.Status, status)
		}
		if t.Status != status {
			if err := s.repo.UpdateTicketStatus(ctx, tx, t.ID, status); err != nil {
				return fmt.Errorf("update ticket status: %w", err)
			}
			t.Status = status
			changed = true
		}
		if status.Refunds() {
			refunded, err = s.refundOnce(ctx, tx, t)
			if err != nil {
				return err
			}
		}
		if changed || refunded {
			if err := emit(ctx, s.repo, tx, "Ticket", t.ID, "ticket.status_changed",
				map[string]interface{}{"ticket_id": t.ID, "status": t.Status, "refunded": refunded}); err != nil {
				return err
			}
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed && !refunded {
		return ticket, nil
	}

	if refunded {
		s.ledger.RefreshCache(ctx, ticket.UserID)
	}
	s.fx.notify(ctx, ticket.UserID, notify.KindTicket, "Ticket "+ticket.Status.String(),
		fmt.Sprintf("Your ticket for %s is now %s.", ticket.EventName, ticket.Status))
	if u, err := s.repo.GetUser(ctx, nil, ticket.UserID); err == nil {
		s.fx.mail(ctx, "ticket status", func(m notify.Mailer) error { return m.SendTicketStatus(ctx, u, ticket) })
	}
	s.fx.audit(ctx, actorID, "UPDATE_STATUS", "ticket", ticket.ID,
		fmt.Sprintf("status %s, refunded=%t", ticket.Status, refunded))
	return ticket, nil
}

func (s *TicketService) refundOnce(ctx context.Context, tx *gorm.DB, t *model.Ticket) (bool, error) {
	existing, err := s.ledger.FindCompensation(ctx, tx, t.ID, model.PurposeTicketRefund)
	if err != nil {
		return false, err
	}
	if existing != nil {
		metrics.IdempotentSkips.WithLabelValues("ticket").Inc()
		return false, nil
	}
	_, err = s.ledger.Credit(ctx, tx, PostingRequest{
		UserID:      t.UserID,
		Amount:      t.TotalAmount,
		Purpose:     model.PurposeTicketRefund,
		Description: fmt.Sprintf("Refund for %d x %s (%s)", t.Quantity, t.TicketTypeName, t.EventName),
		ReferenceID: t.ID,
		Meta:        map[string]interface{}{"status": t.Status},
	})
	if err != nil {
		return false, err
	}
	if err := s.repo.ReleaseTickets(ctx, tx, t.TicketTypeID, t.Quantity); err != nil {
		return false, err
	}
	if err := s.repo.IncrementEventTicketsSold(ctx, tx, t.EventID, -t.Quantity); err != nil {
		return false, fmt.Errorf("release event tickets sold: %w", err)
	}
	return true, nil
}

// Get returns a ticket only to its owner.
func (s *TicketService) Get(ctx context.Context, userID, ticketID string) (*model.Ticket, error) {
	t, err := s.repo.GetTicket(ctx, nil, ticketID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, model.ErrUnauthorized
	}
	return t, nil
}

func (s *TicketService) List(ctx context.Context, userID string, p model.Pagination) (*model.Page[model.Ticket], error) {
	items, total, err := s.repo.ListTickets(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return toPage(items, total, p), nil
}
