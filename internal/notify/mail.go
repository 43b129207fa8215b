package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"go.uber.org/zap"
)

// EmailJob is what the mail worker pops off the queue.
type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// sender is the transport behind Mailer; the per-event methods only format.
type sender interface {
	send(ctx context.Context, job EmailJob) error
}

type mailer struct {
	s sender
}

func (m mailer) deliver(ctx context.Context, u *model.User, subject, body string) error {
	return m.s.send(ctx, EmailJob{To: u.Email, Name: u.Name, Subject: subject, Body: body, Created: time.Now()})
}

func (m mailer) SendBookingCreated(ctx context.Context, u *model.User, b *model.Booking) error {
	return m.deliver(ctx, u, "Booking received",
		fmt.Sprintf("Hi %s, your %s booking with %s (x%d) for %s is pending review.",
			u.Name, b.BookingTypeName, b.CelebrityName, b.Quantity, b.TotalAmount.StringFixed(2)))
}

func (m mailer) SendBookingStatus(ctx context.Context, u *model.User, b *model.Booking) error {
	return m.deliver(ctx, u, "Booking "+b.Status.String(),
		fmt.Sprintf("Hi %s, your booking with %s is now %s.", u.Name, b.CelebrityName, b.Status))
}

func (m mailer) SendTicketPurchased(ctx context.Context, u *model.User, t *model.Ticket) error {
	return m.deliver(ctx, u, "Ticket purchase received",
		fmt.Sprintf("Hi %s, you bought %d x %s for %s (%s).",
			u.Name, t.Quantity, t.TicketTypeName, t.EventName, t.TotalAmount.StringFixed(2)))
}

func (m mailer) SendTicketStatus(ctx context.Context, u *model.User, t *model.Ticket) error {
	return m.deliver(ctx, u, "Ticket "+t.Status.String(),
		fmt.Sprintf("Hi %s, your ticket for %s is now %s.", u.Name, t.EventName, t.Status))
}

func (m mailer) SendMembershipPurchased(ctx context.Context, u *model.User, ms *model.Membership) error {
	return m.deliver(ctx, u, "Membership purchased",
		fmt.Sprintf("Hi %s, your %s membership (%s) is awaiting activation.",
			u.Name, ms.PlanName, ms.Price.StringFixed(2)))
}

func (m mailer) SendMembershipStatus(ctx context.Context, u *model.User, ms *model.Membership) error {
	return m.deliver(ctx, u, "Membership "+ms.Status.String(),
		fmt.Sprintf("Hi %s, your %s membership is now %s.", u.Name, ms.PlanName, ms.Status))
}

func (m mailer) SendDepositReceived(ctx context.Context, u *model.User, d *model.Deposit) error {
	return m.deliver(ctx, u, "Deposit received",
		fmt.Sprintf("Hi %s, we received your deposit claim of %s. It will be reviewed shortly.",
			u.Name, d.Amount.StringFixed(2)))
}

func (m mailer) SendDepositStatus(ctx context.Context, u *model.User, d *model.Deposit) error {
	return m.deliver(ctx, u, "Deposit "+d.Status.String(),
		fmt.Sprintf("Hi %s, your deposit of %s is now %s.", u.Name, d.Amount.StringFixed(2), d.Status))
}

// QueueKey is the Redis list the mail worker consumes.
const QueueKey = "emails"

type redisSender struct {
	rdb *redis.Client
	log *zap.SugaredLogger
}

func (r redisSender) send(ctx context.Context, job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}
	if err := r.rdb.LPush(ctx, QueueKey, string(data)).Err(); err != nil {
		return fmt.Errorf("queue email to %s: %w", job.To, err)
	}
	r.log.Infow("email queued", "to", job.To, "subject", job.Subject)
	return nil
}

// NewRedisMailer queues jobs onto a Redis list for an out-of-process mail worker.
func NewRedisMailer(rdb *redis.Client, log *zap.SugaredLogger) Mailer {
	return mailer{s: redisSender{rdb: rdb, log: log}}
}

type logSender struct {
	log *zap.SugaredLogger
}

func (l logSender) send(_ context.Context, job EmailJob) error {
	l.log.Infow("email", "to", job.To, "subject", job.Subject, "body", job.Body)
	return nil
}

// NewLogMailer only logs; used when no mail queue is configured.
func NewLogMailer(log *zap.SugaredLogger) Mailer {
	return mailer{s: logSender{log: log}}
}
