package model

import "strings"

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCanceled  BookingStatus = "CANCELED"
	BookingRejected  BookingStatus = "REJECTED"
)

func (s BookingStatus) String() string { return string(s) }

// Refunds reports whether entering s gives the buyer their money back.
func (s BookingStatus) Refunds() bool { return s == BookingCanceled || s == BookingRejected }

type TicketStatus string

const (
	TicketPending   TicketStatus = "PENDING"
	TicketConfirmed TicketStatus = "CONFIRMED"
	TicketUsed      TicketStatus = "USED"
	TicketCanceled  TicketStatus = "CANCELED"
	TicketRejected  TicketStatus = "REJECTED"
)

func (s TicketStatus) String() string { return string(s) }

func (s TicketStatus) Refunds() bool { return s == TicketCanceled || s == TicketRejected }

type MembershipStatus string

const (
	MembershipPending   MembershipStatus = "PENDING"
	MembershipActive    MembershipStatus = "ACTIVE"
	MembershipCanceled  MembershipStatus = "CANCELED"
	MembershipSuspended MembershipStatus = "SUSPENDED"
	MembershipExpired   MembershipStatus = "EXPIRED"
)

func (s MembershipStatus) String() string { return string(s) }

// Ends reports whether s takes the membership out of service.
func (s MembershipStatus) Ends() bool {
	return s == MembershipCanceled || s == MembershipSuspended || s == MembershipExpired
}

type DepositStatus string

const (
	DepositPending   DepositStatus = "PENDING"
	DepositCompleted DepositStatus = "COMPLETED"
	DepositFailed    DepositStatus = "FAILED"
)

func (s DepositStatus) String() string { return string(s) }

// Allowed (from -> to) pairs. Re-applying the current status is always legal
// so that retried admin requests succeed.
var (
	bookingTransitions = map[BookingStatus][]BookingStatus{
		BookingPending:   {BookingConfirmed, BookingCanceled, BookingRejected},
		BookingConfirmed: {BookingCompleted, BookingCanceled},
	}
	ticketTransitions = map[TicketStatus][]TicketStatus{
		TicketPending:   {TicketConfirmed, TicketCanceled, TicketRejected},
		TicketConfirmed: {TicketUsed, TicketCanceled},
	}
	membershipTransitions = map[MembershipStatus][]MembershipStatus{
		MembershipPending:   {MembershipActive, MembershipCanceled},
		MembershipActive:    {MembershipSuspended, MembershipCanceled, MembershipExpired},
		MembershipSuspended: {MembershipActive, MembershipCanceled, MembershipExpired},
	}
	depositTransitions = map[DepositStatus][]DepositStatus{
		DepositPending:   {DepositCompleted, DepositFailed},
		DepositFailed:    {DepositCompleted},
		DepositCompleted: {DepositFailed},
	}
)

func canMove[S comparable](table map[S][]S, from, to S) bool {
	if from == to {
		return true
	}
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s BookingStatus) CanMoveTo(to BookingStatus) bool { return canMove(bookingTransitions, s, to) }

func (s TicketStatus) CanMoveTo(to TicketStatus) bool { return canMove(ticketTransitions, s, to) }

func (s MembershipStatus) CanMoveTo(to MembershipStatus) bool {
	return canMove(membershipTransitions, s, to)
}

func (s DepositStatus) CanMoveTo(to DepositStatus) bool { return canMove(depositTransitions, s, to) }

// ParseBookingStatus normalises user input; ok is false for unknown values.
func ParseBookingStatus(v string) (BookingStatus, bool) {
	s := BookingStatus(strings.ToUpper(strings.TrimSpace(v)))
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCanceled, BookingRejected:
		return s, true
	}
	return "", false
}

func ParseTicketStatus(v string) (TicketStatus, bool) {
	s := TicketStatus(strings.ToUpper(strings.TrimSpace(v)))
	switch s {
	case TicketPending, TicketConfirmed, TicketUsed, TicketCanceled, TicketRejected:
		return s, true
	}
	return "", false
}

func ParseMembershipStatus(v string) (MembershipStatus, bool) {
	s := MembershipStatus(strings.ToUpper(strings.TrimSpace(v)))
	switch s {
	case MembershipPending, MembershipActive, MembershipCanceled, MembershipSuspended, MembershipExpired:
		return s, true
	}
	return "", false
}

func ParseDepositStatus(v string) (DepositStatus, bool) {
	s := DepositStatus(strings.ToUpper(strings.TrimSpace(v)))
	switch s {
	case DepositPending, DepositCompleted, DepositFailed:
		return s, true
	}
	return "", false
}
