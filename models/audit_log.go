package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionRolesReplaced AuditAction = "roles_replaced"
	AuditActionRolesDeleted  AuditAction = "roles_deleted"
)

// AuditLog represents an audit trail entry for a change to stored roles
type AuditLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Actor     string          `json:"actor" db:"actor"`
	Action    AuditAction     `json:"action" db:"action"`
	Subject   string          `json:"subject" db:"subject"`
	Details   json.RawMessage `json:"details,omitempty" db:"details"`
	RequestID string          `json:"request_id,omitempty" db:"request_id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(actor string, action AuditAction, subject string) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		Actor:     actor,
		Action:    action,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
	}
}

// SetDetails marshals details into the Details field
func (a *AuditLog) SetDetails(details interface{}) error {
	data, err := json.Marshal(details)
	if err != nil {
		return err
	}
	a.Details = data
	return nil
}
