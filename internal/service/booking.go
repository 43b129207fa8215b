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

type CreateBookingRequest struct {
	UserID        string
	CelebrityID   string
	BookingTypeID string
	Quantity      int
	ScheduledAt   *time.Time
	Notes         string
}

type BookingService struct {
	repo   repo.RepositoryInterface
	ledger *LedgerService
	fx     sideEffects
	log    *zap.SugaredLogger
}

func NewBookingService(r repo.RepositoryInterface, l *LedgerService, fx Effects, logger *zap.SugaredLogger) *BookingService {
	return &BookingService{repo: r, ledger: l, fx: sideEffects{fx: fx, log: logger}, log: logger}
}

// Create charges the user and records a PENDING booking in one transaction.
// Price comes from the catalog, never from the request.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*model.Booking, error) {
	if req.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}
	var (
		booking *model.Booking
		user    *model.User
	)
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.repo.GetUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		celeb, err := s.repo.GetCelebrity(ctx, tx, req.CelebrityID)
		if err != nil {
			return err
		}
		if !celeb.Active {
			return model.Unavailable("celebrity", celeb.ID)
		}
		bt, err := s.repo.GetBookingType(ctx, tx, celeb.ID, req.BookingTypeID)
		if err != nil {
			return err
		}
		if !bt.Active {
			return model.Unavailable("booking type", bt.ID)
		}
		if !bt.Price.IsPositive() {
			return model.ErrInvalidAmount
		}
		total := bt.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))

		id := uuid.NewString()
		_, err = s.ledger.Debit(ctx, tx, PostingRequest{
			UserID:      u.ID,
			Amount:      total,
			Purpose:     model.PurposeBookingPayment,
			Description: fmt.Sprintf("%s booking with %s", bt.Name, celeb.Name),
			ReferenceID: id,
			Meta:        map[string]interface{}{"celebrityId": celeb.ID, "bookingTypeId": bt.ID, "quantity": req.Quantity},
		})
		if err != nil {
			return err
		}

		b := &model.Booking{
			ID:              id,
			UserID:          u.ID,
			CelebrityID:     celeb.ID,
			BookingTypeID:   bt.ID,
			CelebrityName:   celeb.Name,
			CelebritySlug:   celeb.Slug,
			BookingTypeName: bt.Name,
			UnitPrice:       bt.Price,
			Quantity:        req.Quantity,
			TotalAmount:     total,
			ScheduledAt:     req.ScheduledAt,
			Notes:           req.Notes,
			Status:          model.BookingPending,
		}
		if err := s.repo.CreateBooking(ctx, tx, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		if err := s.repo.IncrementCelebrityBookings(ctx, tx, celeb.ID, 1); err != nil {
			return fmt.Errorf("bump celebrity bookings: %w", err)
		}
		if err := s.repo.IncrementUserCounter(ctx, tx, u.ID, repo.CounterBookings, 1); err != nil {
			return fmt.Errorf("bump user bookings: %w", err)
		}
		if err := emit(ctx, s.repo, tx, "Booking", b.ID, "booking.created", b); err != nil {
			return err
		}
		booking, user = b, u
		return nil
	})
	if err != nil {
		if !isBusiness(err) {
			s.log.Errorw("create booking", "user_id", req.UserID, "error", err)
		}
		return nil, err
	}

	s.ledger.RefreshCache(ctx, user.ID)
	s.fx.notify(ctx, user.ID, notify.KindBooking, "Booking received",
		fmt.Sprintf("Your %s booking with %s is pending.", booking.BookingTypeName, booking.CelebrityName))
	s.fx.mail(ctx, "booking created", func(m notify.Mailer) error { return m.SendBookingCreated(ctx, user, booking) })
	s.fx.audit(ctx, user.ID, "CREATE", "booking", booking.ID,
		fmt.Sprintf("booking %s for %s paid", booking.ID, booking.TotalAmount.String()))
	return booking, nil
}

// UpdateStatus moves a booking through its state machine. Entering CANCELED or
// REJECTED refunds the buyer once; a retried call finds the existing refund
// and does nothing.
func (s *BookingService) UpdateStatus(ctx context.Context, actorID, bookingID string, status model.BookingStatus) (*model.Booking, error) {
	var (
		booking  *model.Booking
		changed  bool
		refunded bool
	)
	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.repo.GetBookingForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.CanMoveTo(status) {
			return model.InvalidTransition("booking", b.Status, status)
		}
		if b.Status != status {
			if err := s.repo.UpdateBookingStatus(ctx, tx, b.ID, status); err != nil {
				return fmt.Errorf("update booking status: %w", err)
			}
			b.Status = status
			changed = true
		}
		if status.Refunds() {
			refunded, err = s.refundOnce(ctx, tx, b)
			if err != nil {
				return err
			}
		}
		if changed || refunded {
			if err := emit(ctx, s.repo, tx, "Booking", b.ID, "booking.status_changed",
				map[string]interface{}{"booking_id": b.ID, "status": b.Status, "refunded": refunded}); err != nil {
				return err
			}
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed && !refunded {
		return booking, nil
	}

	if refunded {
		s.ledger.RefreshCache(ctx, booking.UserID)
	}
	s.fx.notify(ctx, booking.UserID, notify.KindBooking, "Booking "+booking.Status.String(),
		fmt.Sprintf("Your booking with %s is now %s.", booking.CelebrityName, booking.Status))
	if u, err := s.repo.GetUser(ctx, nil, booking.UserID); err == nil {
		s.fx.mail(ctx, "booking status", func(m notify.Mailer) error { return m.SendBookingStatus(ctx, u, booking) })
	}
	s.fx.audit(ctx, actorID, "UPDATE_STATUS", "booking", booking.ID,
		fmt.Sprintf("status %s, refunded=%t", booking.Status, refunded))
	return booking, nil
}

func (s *BookingService) refundOnce(ctx context.Context, tx *gorm.DB, b *model.Booking) (bool, error) {
	existing, err := s.ledger.FindCompensation(ctx, tx, b.ID, model.PurposeBookingRefund)
	if err != nil {
		return false, err
	}
	if existing != nil {
		metrics.IdempotentSkips.WithLabelValues("booking").Inc()
		return false, nil
	}
	_, err = s.ledger.Credit(ctx, tx, PostingRequest{
		UserID:      b.UserID,
		Amount:      b.TotalAmount,
		Purpose:     model.PurposeBookingRefund,
		Description: fmt.Sprintf("Refund for %s booking with %s", b.BookingTypeName, b.CelebrityName),
		ReferenceID: b.ID,
		Meta:        map[string]interface{}{"status": b.Status},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns a booking only to its owner.
func (s *BookingService) Get(ctx context.Context, userID, bookingID string) (*model.Booking, error) {
	b, err := s.repo.GetBooking(ctx, nil, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, model.ErrUnauthorized
	}
	return b, nil
}

// List returns one user's bookings, or every booking when userID is empty.
func (s *BookingService) List(ctx context.Context, userID string, p model.Pagination) (*model.Page[model.Booking], error) {
	items, total, err := s.repo.ListBookings(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return toPage(items, total, p), nil
}
