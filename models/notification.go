package models

import (
	"context"
	"os"
	"strings"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/utils"
	"gorm.io/gorm"
)

// Notification is the durable fire-and-forget message record. The engine only
// decides whether and what to send; rendering/delivery belongs to the Pub/Sub
// subscriber. Rows are never read back by the lifecycle.
type Notification struct {
	ID             int                 `gorm:"primary_key" json:"id"`
	RecipientEmail string              `gorm:"size:255;not null;index" json:"recipient_email"`
	Title          string              `gorm:"size:255;not null" json:"title"`
	Message        string              `gorm:"type:text" json:"message"`
	ReferenceType  NotificationRefType `gorm:"type:enum('inspection','review','assignment');not null" json:"reference_type"`
	ReferenceId    int                 `gorm:"index;not null" json:"reference_id"`
	SentAt         *time.Time          `json:"sent_at"`
	CorrelationId  string              `gorm:"size:64;index" json:"correlation_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MaintenanceDirectorEmail is the stakeholder for critical summaries.
func MaintenanceDirectorEmail() string {
	if v := strings.TrimSpace(os.Getenv("MAINTENANCE_DIRECTOR_EMAIL")); v != "" {
		return v
	}
	return "mantenimiento@gymfocus.es"
}

// CreateNotification inserts the durable row and, when Pub/Sub is configured,
// publishes the envelope best-effort. A publish failure is logged and the row
// stays unsent; the replayer can pick it up later.
func CreateNotification(ctx context.Context, tx *gorm.DB, n *Notification) error {
	if !config.NotificationsEnabled() {
		return nil
	}
	if n.CorrelationId == "" {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok {
			n.CorrelationId = v
		}
	}
	if err := tx.Create(n).Error; err != nil {
		return err
	}

	if !config.IsPubSubConfigured() {
		return nil
	}
	now := time.Now().UTC()
	_, err := config.PublishNotification(ctx, config.NotificationMessage{
		NotificationId: n.ID,
		RecipientEmail: n.RecipientEmail,
		Title:          n.Title,
		Message:        n.Message,
		ReferenceType:  string(n.ReferenceType),
		ReferenceId:    n.ReferenceId,
		SentAt:         now,
		CorrelationId:  n.CorrelationId,
	})
	if err != nil {
		config.LogError(config.GetLogger(), "notification.go", "CreateNotification", "publish", n.ID, err)
		return nil
	}
	n.SentAt = &now
	return tx.Model(&Notification{}).Where("id = ?", n.ID).Update("sent_at", now).Error
}
