// Package service holds the ledger and the purchase and status workflows
// built on it. Each workflow runs as one gorm transaction; side effects run
// after commit and never roll it back.
package service

import (
	"github.com/richardliu001/celebrity-wallet/internal/repo"
	"go.uber.org/zap"
)

// Services glues the workflows to one repository and one set of side effects.
type Services struct {
	Ledger      *LedgerService
	Bookings    *BookingService
	Tickets     *TicketService
	Memberships *MembershipService
	Deposits    *DepositService
}

func NewServices(r repo.RepositoryInterface, fx Effects, logger *zap.SugaredLogger) *Services {
	ledger := NewLedgerService(r, logger)
	return &Services{
		Ledger:      ledger,
		Bookings:    NewBookingService(r, ledger, fx, logger),
		Tickets:     NewTicketService(r, ledger, fx, logger),
		Memberships: NewMembershipService(r, ledger, fx, logger),
		Deposits:    NewDepositService(r, ledger, fx, logger),
	}
}
