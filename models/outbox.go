package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxMessageRecord implements the transactional outbox for completion
// fan-out: the record is written inside the caller's transaction; the
// side effects (alerts, checklist entries, notifications) run asynchronously
// in the drain worker after commit. At-least-once, guarded by idempotency
// keys, and never able to revert the primary state transition.
type OutboxMessageRecord struct {
	ID          int             `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	EventType   OutboxEventType `gorm:"type:enum('IC','AC');not null;index" json:"event_type"`
	ReferenceId int             `gorm:"index;not null" json:"reference_id"`
	CenterId    string          `gorm:"size:64;index" json:"center_id"`
	Payload     []byte          `gorm:"type:blob" json:"payload"`

	IsProcessed      bool                `gorm:"not null;default:false;index" json:"is_processed"`
	ProcessingStatus OutboxProcessStatus `gorm:"type:enum('PENDING','PROCESSING','SUCCEEDED','FAILED','DEAD');not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"processing_status"`
	ProcessAttempts  int                 `gorm:"not null;default:0" json:"process_attempts"`
	NextAttemptAt    *time.Time          `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time          `gorm:"index" json:"locked_at"`
	LockedBy         *string             `gorm:"size:100" json:"locked_by"`
	LastProcessError *string             `gorm:"type:text" json:"last_process_error"`
	ProcessedAt      *time.Time          `gorm:"index" json:"processed_at"`

	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// OutboxMessage is the in-memory form handed to the workflow dispatcher.
type OutboxMessage struct {
	ID            int             `json:"id"`
	EventType     OutboxEventType `json:"event_type"`
	ReferenceId   int             `json:"reference_id"`
	CenterId      string          `json:"center_id"`
	Payload       []byte          `json:"payload"`
	CorrelationId string          `json:"correlation_id"`
}

func ConvertToOutboxMessage(record OutboxMessageRecord) OutboxMessage {
	return OutboxMessage{
		ID:            record.ID,
		EventType:     record.EventType,
		ReferenceId:   record.ReferenceId,
		CenterId:      record.CenterId,
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}

// InspectionCompletedPayload is the snapshot carried by an IC record. The
// worker operates on the snapshot, not a re-read, so a later edit of the
// inspection can never change what the fan-out saw.
type InspectionCompletedPayload struct {
	Inspection Inspection       `json:"inspection"`
	Items      []InspectionItem `json:"items"`
}

// EnqueueInspectionCompleted writes the IC outbox record inside tx.
func EnqueueInspectionCompleted(ctx context.Context, tx *gorm.DB, inspection *Inspection) error {
	payload, err := json.Marshal(InspectionCompletedPayload{
		Inspection: *inspection,
		Items:      inspection.Items,
	})
	if err != nil {
		return err
	}
	record := OutboxMessageRecord{
		EventType:        OutboxEventInspectionCompleted,
		ReferenceId:      inspection.ID,
		CenterId:         inspection.CenterId,
		Payload:          payload,
		ProcessingStatus: OutboxProcessStatusPending,
		CorrelationId:    correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

// AssignmentCompletedPayload is the snapshot carried by an AC record.
type AssignmentCompletedPayload struct {
	Assignment Assignment `json:"assignment"`
}

// EnqueueAssignmentCompleted writes the AC outbox record inside tx.
func EnqueueAssignmentCompleted(ctx context.Context, tx *gorm.DB, assignment *Assignment) error {
	payload, err := json.Marshal(AssignmentCompletedPayload{Assignment: *assignment})
	if err != nil {
		return err
	}
	record := OutboxMessageRecord{
		EventType:        OutboxEventAssignmentCompleted,
		ReferenceId:      assignment.ID,
		CenterId:         assignment.CenterId,
		Payload:          payload,
		ProcessingStatus: OutboxProcessStatusPending,
		CorrelationId:    correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
