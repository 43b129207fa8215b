package model

import "time"

// Notification is an in-app message shown to a user.
type Notification struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"userId"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Title     string    `gorm:"size:255" json:"title"`
	Message   string    `gorm:"size:1024" json:"message"`
	Read      bool      `gorm:"not null" json:"read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Notification) TableName() string { return "notification" }

// AuditLog is append-only; nothing in this service reads it back.
type AuditLog struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Actor       string    `gorm:"size:64;not null" json:"actor"`
	Action      string    `gorm:"size:64;not null" json:"action"`
	Resource    string    `gorm:"size:64;not null" json:"resource"`
	ResourceID  string    `gorm:"size:64" json:"resourceId"`
	Description string    `gorm:"size:1024" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_log" }
