package model

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type Pagination struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and limit to 1..MaxPageLimit.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// AllModels lists every table for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&User{}, &Transaction{}, &OutboxEvent{},
		&Celebrity{}, &BookingType{}, &Event{}, &TicketType{}, &Plan{},
		&Booking{}, &Ticket{}, &Membership{}, &Deposit{},
		&Notification{}, &AuditLog{},
	}
}
