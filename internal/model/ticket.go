package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string          `gorm:"type:varchar(36);not null;index" json:"userId"`
	EventID        string          `gorm:"type:varchar(36);not null;index" json:"eventId"`
	TicketTypeID   string          `gorm:"type:varchar(36);not null" json:"ticketTypeId"`
	EventName      string          `gorm:"size:255" json:"eventName"`
	EventSlug      string          `gorm:"size:255" json:"eventSlug"`
	TicketTypeName string          `gorm:"size:255" json:"ticketTypeName"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"unitPrice"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"totalAmount"`
	Status         TicketStatus    `gorm:"size:16;not null;index" json:"status"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Ticket) TableName() string { return "ticket" }
