package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking keeps name and price snapshots taken at purchase time so later
// catalog edits never rewrite a receipt.
type Booking struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(36);not null;index" json:"userId"`
	CelebrityID     string          `gorm:"type:varchar(36);not null;index" json:"celebrityId"`
	BookingTypeID   string          `gorm:"type:varchar(36);not null" json:"bookingTypeId"`
	CelebrityName   string          `gorm:"size:255" json:"celebrityName"`
	CelebritySlug   string          `gorm:"size:255" json:"celebritySlug"`
	BookingTypeName string          `gorm:"size:255" json:"bookingTypeName"`
	UnitPrice       decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"unitPrice"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"totalAmount"`
	ScheduledAt     *time.Time      `json:"scheduledAt,omitempty"`
	Notes           string          `gorm:"size:1024" json:"notes,omitempty"`
	Status          BookingStatus   `gorm:"size:16;not null;index" json:"status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Booking) TableName() string { return "booking" }
