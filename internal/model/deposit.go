package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deposit is a claimed top-up. CreditedAt is set once, when the balance is
// actually credited, and guards against crediting twice.
type Deposit struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(36);not null;index" json:"userId"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount"`
	ProofURL        *string         `gorm:"size:1024" json:"proofUrl,omitempty"`
	PaymentMethodID *string         `gorm:"type:varchar(64)" json:"paymentMethodId,omitempty"`
	Status          DepositStatus   `gorm:"size:16;not null;index" json:"status"`
	Note            string          `gorm:"size:1024" json:"note,omitempty"`
	CreditedAt      *time.Time      `json:"creditedAt,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Deposit) TableName() string { return "deposit" }
