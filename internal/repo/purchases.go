package repo

import (
	"context"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"gorm.io/gorm"
)

func (r *Repository) CreateBooking(ctx context.Context, tx *gorm.DB, b *model.Booking) error {
	return r.conn(ctx, tx).Create(b).Error
}

func (r *Repository) GetBooking(ctx context.Context, tx *gorm.DB, id string) (*model.Booking, error) {
	var b model.Booking
	if err := first(r.conn(ctx, tx), &b, "booking", id); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBookingForUpdate locks the booking row for the rest of tx.
func (r *Repository) GetBookingForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Booking, error) {
	var b model.Booking
	if err := first(locked(r.conn(ctx, tx)), &b, "booking", id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) UpdateBookingStatus(ctx context.Context, tx *gorm.DB, id string, status model.BookingStatus) error {
	return r.conn(ctx, tx).Model(&model.Booking{}).Where("id = ?", id).Update("status", status).Error
}

// ListBookings lists one user's bookings, or all when userID is empty.
func (r *Repository) ListBookings(ctx context.Context, userID string, p model.Pagination) ([]model.Booking, int64, error) {
	return paginate[model.Booking](r.ownedBy(ctx, &model.Booking{}, userID), p)
}

func (r *Repository) CreateTicket(ctx context.Context, tx *gorm.DB, t *model.Ticket) error {
	return r.conn(ctx, tx).Create(t).Error
}

func (r *Repository) GetTicket(ctx context.Context, tx *gorm.DB, id string) (*model.Ticket, error) {
	var t model.Ticket
	if err := first(r.conn(ctx, tx), &t, "ticket", id); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTicketForUpdate locks the ticket row for the rest of tx.
func (r *Repository) GetTicketForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Ticket, error) {
	var t model.Ticket
	if err := first(locked(r.conn(ctx, tx)), &t, "ticket", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) UpdateTicketStatus(ctx context.Context, tx *gorm.DB, id string, status model.TicketStatus) error {
	return r.conn(ctx, tx).Model(&model.Ticket{}).Where("id = ?", id).Update("status", status).Error
}

func (r *Repository) ListTickets(ctx context.Context, userID string, p model.Pagination) ([]model.Ticket, int64, error) {
	return paginate[model.Ticket](r.ownedBy(ctx, &model.Ticket{}, userID), p)
}

func (r *Repository) ownedBy(ctx context.Context, m interface{}, userID string) func() *gorm.DB {
	return func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(m)
		if userID != "" {
			q = q.Where("user_id = ?", userID)
		}
		return q
	}
}
