package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Catalog rows are maintained elsewhere; this service only reads them and
// bumps their counters.

type Celebrity struct {
	ID            string        `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string        `gorm:"size:255;not null" json:"name"`
	Slug          string        `gorm:"size:255;uniqueIndex" json:"slug"`
	Active        bool          `gorm:"not null" json:"active"`
	BookingsCount int           `gorm:"not null;default:0" json:"bookingsCount"`
	BookingTypes  []BookingType `json:"bookingTypes,omitempty"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Celebrity) TableName() string { return "celebrity" }

type BookingType struct {
	ID          string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	CelebrityID string          `gorm:"type:varchar(36);not null;index" json:"celebrityId"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"price"`
	Active      bool            `gorm:"not null" json:"active"`
}

func (BookingType) TableName() string { return "booking_type" }

type Event struct {
	ID          string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string       `gorm:"size:255;not null" json:"name"`
	Slug        string       `gorm:"size:255;uniqueIndex" json:"slug"`
	Active      bool         `gorm:"not null" json:"active"`
	TicketsSold int          `gorm:"not null;default:0" json:"ticketsSold"`
	TicketTypes []TicketType `json:"ticketTypes,omitempty"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Event) TableName() string { return "event" }

type TicketType struct {
	ID      string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	EventID string          `gorm:"type:varchar(36);not null;index" json:"eventId"`
	Name    string          `gorm:"size:255;not null" json:"name"`
	Price   decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"price"`
	Total   int             `gorm:"not null" json:"total"`
	Sold    int             `gorm:"not null;default:0" json:"sold"`
}

func (TicketType) TableName() string { return "ticket_type" }

func (t TicketType) Remaining() int { return t.Total - t.Sold }

type BillingPeriod string

const (
	PeriodMonth  BillingPeriod = "MONTH"
	PeriodYear   BillingPeriod = "YEAR"
	PeriodCustom BillingPeriod = "CUSTOM"
)

// ExpiresAt returns the end of one billing period starting at from.
func (p BillingPeriod) ExpiresAt(from time.Time, customDays int) time.Time {
	switch p {
	case PeriodYear:
		return from.AddDate(1, 0, 0)
	case PeriodCustom:
		return from.AddDate(0, 0, customDays)
	default:
		return from.AddDate(0, 1, 0)
	}
}

type Plan struct {
	ID            string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	Slug          string          `gorm:"size:255;uniqueIndex" json:"slug"`
	Price         decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"price"`
	BillingPeriod BillingPeriod   `gorm:"size:16;not null" json:"billingPeriod"`
	CustomDays    int             `gorm:"not null;default:0" json:"customDays"`
	Features      datatypes.JSON  `json:"features,omitempty"`
	Active        bool            `gorm:"not null" json:"active"`
}

func (Plan) TableName() string { return "plan" }
