package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"gorm.io/gorm"
)

func (r *Repository) GetCelebrity(ctx context.Context, tx *gorm.DB, id string) (*model.Celebrity, error) {
	var c model.Celebrity
	if err := first(r.conn(ctx, tx), &c, "celebrity", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetBookingType(ctx context.Context, tx *gorm.DB, celebrityID, id string) (*model.BookingType, error) {
	var bt model.BookingType
	if err := first(r.conn(ctx, tx).Where("celebrity_id = ?", celebrityID), &bt, "booking type", id); err != nil {
		return nil, err
	}
	return &bt, nil
}

func (r *Repository) GetEvent(ctx context.Context, tx *gorm.DB, id string) (*model.Event, error) {
	var e model.Event
	if err := first(r.conn(ctx, tx), &e, "event", id); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) GetTicketType(ctx context.Context, tx *gorm.DB, eventID, id string) (*model.TicketType, error) {
	var tt model.TicketType
	if err := first(r.conn(ctx, tx).Where("event_id = ?", eventID), &tt, "ticket type", id); err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *Repository) GetPlan(ctx context.Context, tx *gorm.DB, id string) (*model.Plan, error) {
	var p model.Plan
	if err := first(r.conn(ctx, tx), &p, "plan", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) IncrementCelebrityBookings(ctx context.Context, tx *gorm.DB, id string, delta int) error {
	return r.conn(ctx, tx).Model(&model.Celebrity{}).Where("id = ?", id).
		Update("bookings_count", gorm.Expr("bookings_count + ?", delta)).Error
}

func (r *Repository) ReserveTickets(ctx context.Context, tx *gorm.DB, ticketTypeID string, qty int) (bool, error) {
	res := r.conn(ctx, tx).Model(&model.TicketType{}).
		Where("id = ? AND total - sold >= ?", ticketTypeID, qty).
		Update("sold", gorm.Expr("sold + ?", qty))
	if res.Error != nil {
		return false, fmt.Errorf("reserve tickets: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) ReleaseTickets(ctx context.Context, tx *gorm.DB, ticketTypeID string, qty int) error {
	res := r.conn(ctx, tx).Model(&model.TicketType{}).
		Where("id = ? AND sold >= ?", ticketTypeID, qty).
		Update("sold", gorm.Expr("sold - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("release tickets: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.New("release tickets: sold counter below released quantity")
	}
	return nil
}

func (r *Repository) IncrementEventTicketsSold(ctx context.Context, tx *gorm.DB, eventID string, delta int) error {
	return r.conn(ctx, tx).Model(&model.Event{}).Where("id = ?", eventID).
		Update("tickets_sold", gorm.Expr("tickets_sold + ?", delta)).Error
}
