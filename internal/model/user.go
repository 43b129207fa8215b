package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User carries the account balance. Balance, TotalSpent and
// CurrentMembershipID are written only by the service layer.
type User struct {
	ID                  string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email               string          `gorm:"size:255;uniqueIndex" json:"email"`
	Name                string          `gorm:"size:255" json:"name"`
	Balance             decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"balance"`
	TotalSpent          decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"totalSpent"`
	BookingsCount       int             `gorm:"not null;default:0" json:"bookingsCount"`
	TicketsCount        int             `gorm:"not null;default:0" json:"ticketsCount"`
	LedgerSeq           int64           `gorm:"not null;default:0" json:"-"`
	CurrentMembershipID *string         `gorm:"type:varchar(36)" json:"currentMembershipId,omitempty"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
