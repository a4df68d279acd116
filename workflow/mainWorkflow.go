package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func handlerNameFor(eventType models.OutboxEventType) string {
	switch eventType {
	case models.OutboxEventInspectionCompleted:
		return "inspection_completed"
	case models.OutboxEventAssignmentCompleted:
		return "assignment_completed"
	default:
		return string(eventType)
	}
}

func messageIdFor(m models.OutboxMessage) string {
	if m.ID > 0 {
		return fmt.Sprintf("outbox-%d", m.ID)
	}
	// Replayed or synthetic messages without an outbox row fall back to the
	// event's natural identity.
	return fmt.Sprintf("%s-%d", m.EventType, m.ReferenceId)
}

// ProcessMessage runs one outbox message through its fan-out handler inside a
// single transaction, guarded by an idempotency key on (handler, message).
// A handler error rolls the whole fan-out back and surfaces to the caller so
// the outbox retry/backoff machinery can reschedule the record.
func ProcessMessage(ctx context.Context, logger *logrus.Logger, m models.OutboxMessage) error {
	db := config.GetDB()
	handlerName := handlerNameFor(m.EventType)
	messageId := messageIdFor(m)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip, err := BeginIdempotency(tx, handlerName, messageId, m.CenterId)
		if err != nil {
			return err
		}
		if skip {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"field":      "MainWorkflow",
					"handler":    handlerName,
					"message_id": messageId,
					"center_id":  m.CenterId,
				}).Info("message already processed, skipping")
			}
			return markOutboxProcessed(tx, m)
		}

		switch m.EventType {
		case models.OutboxEventInspectionCompleted:
			err = processInspectionCompleted(ctx, tx, logger, m)
		case models.OutboxEventAssignmentCompleted:
			err = processAssignmentCompleted(ctx, tx, logger, m)
		default:
			err = fmt.Errorf("unknown outbox event type %q", m.EventType)
		}
		if err != nil {
			// The rollback drops the STARTED row with everything else; the
			// failure itself is recorded on the outbox record by the caller.
			return err
		}

		if err := MarkIdempotencySucceeded(tx, handlerName, messageId); err != nil {
			return err
		}
		return markOutboxProcessed(tx, m)
	})
}

// RecordTerminalFailure writes a FAILED idempotency key once a record goes
// DEAD, so the verdict survives for operators inspecting a stuck fan-out.
// Handler transactions roll their STARTED row back with everything else, so
// this upserts outside any transaction: insert the row when no attempt left
// one behind, flip it to FAILED when one did. Best-effort.
func RecordTerminalFailure(ctx context.Context, m models.OutboxMessage, cause error) {
	db := config.GetDB()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	key := models.IdempotencyKey{
		HandlerName: handlerNameFor(m.EventType),
		MessageId:   messageIdFor(m),
		CenterId:    m.CenterId,
		Status:      models.IdempotencyStatusFailed,
		LastError:   &msg,
	}
	_ = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "handler_name"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_error"}),
	}).Create(&key).Error
}

func markOutboxProcessed(tx *gorm.DB, m models.OutboxMessage) error {
	if m.ID <= 0 {
		return nil
	}
	now := time.Now().UTC()
	return tx.Model(&models.OutboxMessageRecord{}).
		Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			"is_processed": true,
			"processed_at": &now,
		}).Error
}
