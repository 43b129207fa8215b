package notify

import (
	"context"

	"github.com/richardliu001/celebrity-wallet/internal/model"
	"gorm.io/gorm"
)

// DBNotifier stores notifications for the user's inbox.
type DBNotifier struct {
	db *gorm.DB
}

func NewDBNotifier(db *gorm.DB) *DBNotifier { return &DBNotifier{db: db} }

func (n *DBNotifier) Create(ctx context.Context, userID, kind, title, message string) error {
	return n.db.WithContext(ctx).Create(&model.Notification{
		UserID: userID, Type: kind, Title: title, Message: message,
	}).Error
}

// DBAuditor appends to audit_log.
type DBAuditor struct {
	db *gorm.DB
}

func NewDBAuditor(db *gorm.DB) *DBAuditor { return &DBAuditor{db: db} }

func (a *DBAuditor) LogAudit(ctx context.Context, actor, action, resource, resourceID, description string) error {
	return a.db.WithContext(ctx).Create(&model.AuditLog{
		Actor: actor, Action: action, Resource: resource, ResourceID: resourceID, Description: description,
	}).Error
}
