package repo

import (
	"context"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Every method taking tx runs on the caller's unit of work; pass the
// *gorm.DB handed to the Transaction callback.

type UserStore interface {
	GetUser(ctx context.Context, tx *gorm.DB, id string) (*model.User, error)
	// DebitBalance decrements iff balance >= amount; false means no row matched.
	DebitBalance(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (bool, error)
	CreditBalance(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (bool, error)
	GetBalance(ctx context.Context, tx *gorm.DB, id string) (decimal.Decimal, error)
	// NextLedgerSeq bumps and returns the user's ledger position inside tx.
	NextLedgerSeq(ctx context.Context, tx *gorm.DB, id string) (int64, error)
	IncrementUserCounter(ctx context.Context, tx *gorm.DB, id string, counter UserCounter, delta int) error
	SetCurrentMembership(ctx context.Context, tx *gorm.DB, userID string, membershipID *string) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	// FindByReference returns nil, nil when no matching record exists.
	FindByReference(ctx context.Context, tx *gorm.DB, referenceID string, purpose model.Purpose) (*model.Transaction, error)
	ListTransactions(ctx context.Context, f model.TransactionFilter, p model.Pagination) ([]model.Transaction, int64, error)
	UserTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
}

type CatalogStore interface {
	GetCelebrity(ctx context.Context, tx *gorm.DB, id string) (*model.Celebrity, error)
	GetBookingType(ctx context.Context, tx *gorm.DB, celebrityID, id string) (*model.BookingType, error)
	GetEvent(ctx context.Context, tx *gorm.DB, id string) (*model.Event, error)
	GetTicketType(ctx context.Context, tx *gorm.DB, eventID, id string) (*model.TicketType, error)
	GetPlan(ctx context.Context, tx *gorm.DB, id string) (*model.Plan, error)
	IncrementCelebrityBookings(ctx context.Context, tx *gorm.DB, id string, delta int) error
	// ReserveTickets adds qty to sold iff sold+qty <= total.
	ReserveTickets(ctx context.Context, tx *gorm.DB, ticketTypeID string, qty int) (bool, error)
	ReleaseTickets(ctx context.Context, tx *gorm.DB, ticketTypeID string, qty int) error
	IncrementEventTicketsSold(ctx context.Context, tx *gorm.DB, eventID string, delta int) error
}

type BookingStore interface {
	CreateBooking(ctx context.Context, tx *gorm.DB, b *model.Booking) error
	GetBooking(ctx context.Context, tx *gorm.DB, id string) (*model.Booking, error)
	// GetBookingForUpdate holds a row lock until tx ends; status changes read through it.
	GetBookingForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, tx *gorm.DB, id string, status model.BookingStatus) error
	ListBookings(ctx context.Context, userID string, p model.Pagination) ([]model.Booking, int64, error)
}

type TicketStore interface {
	CreateTicket(ctx context.Context, tx *gorm.DB, t *model.Ticket) error
	GetTicket(ctx context.Context, tx *gorm.DB, id string) (*model.Ticket, error)
	GetTicketForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Ticket, error)
	UpdateTicketStatus(ctx context.Context, tx *gorm.DB, id string, status model.TicketStatus) error
	ListTickets(ctx context.Context, userID string, p model.Pagination) ([]model.Ticket, int64, error)
}

type MembershipStore interface {
	CreateMembership(ctx context.Context, tx *gorm.DB, m *model.Membership) error
	GetMembership(ctx context.Context, tx *gorm.DB, id string) (*model.Membership, error)
	GetMembershipForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Membership, error)
	SaveMembership(ctx context.Context, tx *gorm.DB, m *model.Membership) error
	// LatestActiveMembership returns nil, nil when the user has no other ACTIVE membership.
	LatestActiveMembership(ctx context.Context, tx *gorm.DB, userID, excludeID string) (*model.Membership, error)
	ListMemberships(ctx context.Context, userID string, p model.Pagination) ([]model.Membership, int64, error)
}

type DepositStore interface {
	CreateDeposit(ctx context.Context, tx *gorm.DB, d *model.Deposit) error
	GetDeposit(ctx context.Context, tx *gorm.DB, id string) (*model.Deposit, error)
	GetDepositForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Deposit, error)
	SaveDeposit(ctx context.Context, tx *gorm.DB, d *model.Deposit) error
	ListDeposits(ctx context.Context, userID string, p model.Pagination) ([]model.Deposit, int64, error)
}

type OutboxStore interface {
	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
}

type BalanceCache interface {
	CacheBalance(ctx context.Context, userID string, bal decimal.Decimal) error
	GetCachedBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

// RepositoryInterface is everything the services need from storage.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	UserStore
	TransactionStore
	CatalogStore
	BookingStore
	TicketStore
	MembershipStore
	DepositStore
	OutboxStore
	BalanceCache
}
