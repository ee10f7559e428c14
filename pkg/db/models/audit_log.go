package models

import "time"

// AuditLog is the database sink for post-commit audit events.
type AuditLog struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Actor     string    `gorm:"column:actor;not null" json:"actor"`
	ActorRole string    `gorm:"column:actor_role;not null;default:''" json:"actor_role"`
	Action    string    `gorm:"column:action;not null" json:"action"`
	Detail    string    `gorm:"column:detail;not null;default:''" json:"detail"`
	Module    string    `gorm:"column:module;not null;index" json:"module"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
