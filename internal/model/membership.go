package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Membership snapshots the plan at purchase; activation computes the expiry
// from these fields, never from the live plan.
type Membership struct {
	ID              string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string           `gorm:"type:varchar(36);not null;index" json:"userId"`
	PlanID          string           `gorm:"type:varchar(36);not null" json:"planId"`
	PlanName        string           `gorm:"size:255" json:"planName"`
	Price           decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"price"`
	BillingPeriod   BillingPeriod    `gorm:"size:16;not null" json:"billingPeriod"`
	CustomDays      int              `gorm:"not null;default:0" json:"customDays"`
	Features        datatypes.JSON   `json:"features,omitempty"`
	Status          MembershipStatus `gorm:"size:16;not null;index" json:"status"`
	AutoRenew       bool             `gorm:"not null" json:"autoRenew"`
	PaymentMethodID *string          `gorm:"type:varchar(64)" json:"paymentMethodId,omitempty"`
	StartedAt       *time.Time       `json:"startedAt,omitempty"`
	ExpiresAt       *time.Time       `json:"expiresAt,omitempty"`
	CanceledAt      *time.Time       `json:"canceledAt,omitempty"`
	SuspendedAt     *time.Time       `json:"suspendedAt,omitempty"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Membership) TableName() string { return "membership" }
