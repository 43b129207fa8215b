package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/richardliu001/celebrity-wallet/internal/logger"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/richardliu001/celebrity-wallet/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSinkDown = errors.New("sink down")

// recorder implements every side-effect interface and can be told to fail.
type recorder struct {
	mu     sync.Mutex
	fail   bool
	notes  []string
	mails  int
	audits []string
}

func (r *recorder) Create(_ context.Context, userID, kind, title, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, kind+":"+title)
	if r.fail {
		return errSinkDown
	}
	return nil
}

func (r *recorder) LogAudit(_ context.Context, _, action, resource, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, action+":"+resource)
	if r.fail {
		return errSinkDown
	}
	return nil
}

func (r *recorder) mail() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mails++
	if r.fail {
		return errSinkDown
	}
	return nil
}

func (r *recorder) SendBookingCreated(context.Context, *model.User, *model.Booking) error { return r.mail() }
func (r *recorder) SendBookingStatus(context.Context, *model.User, *model.Booking) error { return r.mail() }
func (r *recorder) SendTicketPurchased(context.Context, *model.User, *model.Ticket) error { return r.mail() }
func (r *recorder) SendTicketStatus(context.Context, *model.User, *model.Ticket) error { return r.mail() }
func (r *recorder) SendMembershipPurchased(context.Context, *model.User, *model.Membership) error {
	return r.mail()
}
func (r *recorder) SendMembershipStatus(context.Context, *model.User, *model.Membership) error {
	return r.mail()
}
func (r *recorder) SendDepositReceived(context.Context, *model.User, *model.Deposit) error { return r.mail() }
func (r *recorder) SendDepositStatus(context.Context, *model.User, *model.Deposit) error { return r.mail() }

var (
	_ notify.Notifier = (*recorder)(nil)
	_ notify.Mailer   = (*recorder)(nil)
	_ notify.Auditor  = (*recorder)(nil)
)

func effectsOf(r *recorder) Effects { return Effects{Notifier: r, Mailer: r, Auditor: r} }

func TestEffects_FailuresDoNotRollBack(t *testing.T) {
	rec := &recorder{fail: true}
	env := newTestEnv(t, effectsOf(rec))
	u := env.seedUser(t, 100)
	celeb, bt := env.seedCelebrity(t, true, 30, true)

	b, err := env.svc.Bookings.Create(env.ctx, CreateBookingRequest{UserID: u.ID, CelebrityID: celeb.ID, BookingTypeID: bt.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "70", env.balance(t, u.ID))

	_, err = env.svc.Bookings.UpdateStatus(env.ctx, "admin-1", b.ID, model.BookingCanceled)
	require.NoError(t, err)
	assert.Equal(t, "100", env.balance(t, u.ID))

	assert.Len(t, rec.notes, 2)
	assert.Equal(t, 2, rec.mails)
	assert.Equal(t, []string{"CREATE:booking", "UPDATE_STATUS:booking"}, rec.audits)
}

func TestEffects_OnlyOnChange(t *testing.T) {
	rec := &recorder{}
	env := newTestEnv(t, effectsOf(rec))
	u := env.seedUser(t, 100)
	ev, tt := env.seedEvent(t, true, 10, 5)

	ticket, err := env.svc.Tickets.Purchase(env.ctx, PurchaseTicketRequest{UserID: u.ID, EventID: ev.ID, TicketTypeID: tt.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = env.svc.Tickets.UpdateStatus(env.ctx, "admin-1", ticket.ID, model.TicketConfirmed)
	require.NoError(t, err)
	_, err = env.svc.Tickets.UpdateStatus(env.ctx, "admin-1", ticket.ID, model.TicketConfirmed)
	require.NoError(t, err)

	assert.Equal(t, []string{notify.KindTicket + ":Ticket purchased", notify.KindTicket + ":Ticket CONFIRMED"}, rec.notes)
	assert.Len(t, rec.audits, 2)

	// failed business calls fire nothing
	_, err = env.svc.Tickets.Purchase(env.ctx, PurchaseTicketRequest{UserID: u.ID, EventID: ev.ID, TicketTypeID: tt.ID, Quantity: 10})
	assert.ErrorIs(t, err, model.ErrInsufficientInventory)
	assert.Len(t, rec.notes, 2)
}

func TestEffects_DBSinks(t *testing.T) {
	env := newTestEnv(t, Effects{})
	env.svc = NewServices(env.repo, Effects{
		Notifier: notify.NewDBNotifier(env.db),
		Auditor:  notify.NewDBAuditor(env.db),
		Mailer:   notify.NewLogMailer(logger.NewNop()),
	}, logger.NewNop())
	u := env.seedUser(t, 0)

	_, err := env.svc.Deposits.Create(env.ctx, CreateDepositRequest{UserID: u.ID, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)

	var notes []model.Notification
	require.NoError(t, env.db.Where("user_id = ?", u.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, notify.KindDeposit, notes[0].Type)
	assert.False(t, notes[0].Read)

	var audits []model.AuditLog
	require.NoError(t, env.db.Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, u.ID, audits[0].Actor)
	assert.Equal(t, "deposit", audits[0].Resource)
}
