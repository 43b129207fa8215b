// Package notify holds the fire-and-forget collaborators the workflows call
// after a commit: in-app notifications, email and the audit trail.
package notify

import (
	"context"

	"github.com/richardliu001/celebrity-wallet/internal/model"
)

type Notifier interface {
	Create(ctx context.Context, userID, kind, title, message string) error
}

type Auditor interface {
	LogAudit(ctx context.Context, actor, action, resource, resourceID, description string) error
}

// Mailer sends one message per business event. Each call may fail on its own.
type Mailer interface {
	SendBookingCreated(ctx context.Context, u *model.User, b *model.Booking) error
	SendBookingStatus(ctx context.Context, u *model.User, b *model.Booking) error
	SendTicketPurchased(ctx context.Context, u *model.User, t *model.Ticket) error
	SendTicketStatus(ctx context.Context, u *model.User, t *model.Ticket) error
	SendMembershipPurchased(ctx context.Context, u *model.User, m *model.Membership) error
	SendMembershipStatus(ctx context.Context, u *model.User, m *model.Membership) error
	SendDepositReceived(ctx context.Context, u *model.User, d *model.Deposit) error
	SendDepositStatus(ctx context.Context, u *model.User, d *model.Deposit) error
}

// Notification kinds.
const (
	KindBooking    = "BOOKING"
	KindTicket     = "TICKET"
	KindMembership = "MEMBERSHIP"
	KindDeposit    = "DEPOSIT"
)
