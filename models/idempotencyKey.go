package models

import "time"

// IdempotencyKey makes the at-least-once outbox drain safe to retry: a
// handler that already SUCCEEDED for a message id is skipped.
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	HandlerName string            `gorm:"size:100;not null;uniqueIndex:idx_idem_handler_msg,priority:1" json:"handler_name"`
	MessageId   string            `gorm:"size:100;not null;uniqueIndex:idx_idem_handler_msg,priority:2" json:"message_id"`
	CenterId    string            `gorm:"size:64;index" json:"center_id"`
	Status      IdempotencyStatus `gorm:"type:enum('STARTED','SUCCEEDED','FAILED');not null;default:'STARTED'" json:"status"`
	LastError   *string           `gorm:"type:text" json:"last_error"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
