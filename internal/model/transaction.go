package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TxType string

const (
	TxDebit  TxType = "DEBIT"
	TxCredit TxType = "CREDIT"
)

type Purpose string

const (
	PurposeBookingPayment    Purpose = "BOOKING_PAYMENT"
	PurposeBookingRefund     Purpose = "BOOKING_REFUND"
	PurposeTicketPurchase    Purpose = "TICKET_PURCHASE"
	PurposeTicketRefund      Purpose = "TICKET_REFUND"
	PurposeMembershipPayment Purpose = "MEMBERSHIP_PAYMENT"
	PurposeMembershipUpgrade Purpose = "MEMBERSHIP_UPGRADE"
	PurposeTopup             Purpose = "TOPUP"
	PurposeAdjustment        Purpose = "ADJUSTMENT"
)

// Transaction is an immutable ledger record. Amount is always positive; the
// direction lives in Type. Seq orders one user's records; a reference carries
// at most one record per purpose.
type Transaction struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_tx_user_seq,priority:1" json:"userId"`
	Seq             int64           `gorm:"not null;default:0;uniqueIndex:idx_tx_user_seq,priority:2" json:"seq"`
	Type            TxType          `gorm:"size:16;not null" json:"type"`
	Purpose         Purpose         `gorm:"size:32;not null;uniqueIndex:idx_tx_reference,priority:2" json:"purpose"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"amount"`
	PreviousBalance decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"previousBalance"`
	NewBalance      decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"newBalance"`
	ReferenceID     *string         `gorm:"type:varchar(36);uniqueIndex:idx_tx_reference,priority:1" json:"referenceId,omitempty"`
	Description     string          `gorm:"size:255" json:"description"`
	Meta            datatypes.JSON  `json:"meta,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Transaction) TableName() string { return "transaction" }

// Signed returns the amount with the sign of its direction.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TxDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Consistent checks newBalance == previousBalance ± amount.
func (t Transaction) Consistent() bool {
	return t.PreviousBalance.Add(t.Signed()).Equal(t.NewBalance)
}

// TransactionFilter narrows list queries; zero values mean "any".
type TransactionFilter struct {
	UserID  string
	Purpose Purpose
	Type    TxType
}
