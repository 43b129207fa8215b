package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/richardliu001/celebrity-wallet/internal/notify"
	"github.com/richardliu001/celebrity-wallet/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Effects are the collaborators called after a unit of work commits. A nil
// field disables that side effect.
type Effects struct {
	Notifier notify.Notifier
	Mailer   notify.Mailer
	Auditor  notify.Auditor
}

// sideEffects runs post-commit calls; failures are logged and swallowed.
type sideEffects struct {
	fx  Effects
	log *zap.SugaredLogger
}

func (s sideEffects) notify(ctx context.Context, userID, kind, title, message string) {
	if s.fx.Notifier == nil {
		return
	}
	if err := s.fx.Notifier.Create(ctx, userID, kind, title, message); err != nil {
		s.log.Warnw("notification failed", "user_id", userID, "kind", kind, "error", err)
	}
}

func (s sideEffects) mail(ctx context.Context, what string, send func(m notify.Mailer) error) {
	if s.fx.Mailer == nil {
		return
	}
	if err := send(s.fx.Mailer); err != nil {
		s.log.Warnw("email failed", "email", what, "error", err)
	}
}

func (s sideEffects) audit(ctx context.Context, actor, action, resource, resourceID, description string) {
	if s.fx.Auditor == nil {
		return
	}
	if err := s.fx.Auditor.LogAudit(ctx, actor, action, resource, resourceID, description); err != nil {
		s.log.Warnw("audit failed", "action", action, "resource", resource, "resource_id", resourceID, "error", err)
	}
}

// emit writes an outbox event inside the caller's transaction.
func emit(ctx context.Context, r repo.OutboxStore, tx *gorm.DB, aggregate, id, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	evt := &model.OutboxEvent{Aggregate: aggregate, AggregateID: id, EventType: eventType, Payload: string(data)}
	if err := r.CreateOutboxEvent(ctx, tx, evt); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	return nil
}

func toPage[T any](items []T, total int64, p model.Pagination) *model.Page[T] {
	p = p.Normalize()
	return &model.Page[T]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}
