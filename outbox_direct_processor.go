package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/models"
	"bitbucket.org/gymfocus/maintenance_backend/utils"
	"bitbucket.org/gymfocus/maintenance_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxDirectProcessor drains pending fan-out records straight against the
// database. It is the only consumer of the outbox: the completion side effects
// (alerts, checklist entries, notifications) happen here, after the primary
// transaction committed. At-least-once; the workflow's idempotency keys make
// replays safe.
type OutboxDirectProcessor struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	WorkerID string

	BatchSize int
	Interval  time.Duration
	LockTTL   time.Duration
}

func NewOutboxDirectProcessor(db *gorm.DB, logger *logrus.Logger) *OutboxDirectProcessor {
	return &OutboxDirectProcessor{
		DB:        db,
		Logger:    logger,
		WorkerID:  "direct-" + time.Now().Format("20060102-150405.000"),
		BatchSize: 50,
		Interval:  2 * time.Second,
		LockTTL:   30 * time.Second,
	}
}

func shouldRunDirectOutboxProcessor() bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv("OUTBOX_DIRECT_PROCESSING")))
	if val == "false" {
		return false
	}
	// Default on: without the drain, completed inspections would never grow
	// their alerts and checklist entries.
	return true
}

func (p *OutboxDirectProcessor) Run(ctx context.Context) {
	if p == nil || p.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *OutboxDirectProcessor) processOnce(ctx context.Context) {
	now := time.Now().UTC()
	staleBefore := now.Add(-p.LockTTL)

	var claimed []models.OutboxMessageRecord
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Eligible:
		// - PENDING / FAILED and past their backoff
		// - PROCESSING with a stale lock (worker crashed mid-batch)
		q := tx.
			Where("is_processed = 0").
			Where(`
				(
					processing_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				)
				OR
				(
					processing_status = ? AND locked_at IS NOT NULL AND locked_at <= ?
				)
			`, []models.OutboxProcessStatus{models.OutboxProcessStatusPending, models.OutboxProcessStatusFailed}, now,
				models.OutboxProcessStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(p.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		for i := range claimed {
			claimed[i].ProcessingStatus = models.OutboxProcessStatusProcessing
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &p.WorkerID
			if err := tx.Model(&models.OutboxMessageRecord{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"processing_status": models.OutboxProcessStatusProcessing,
					"locked_at":         claimed[i].LockedAt,
					"locked_by":         claimed[i].LockedBy,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || len(claimed) == 0 {
		return
	}

	for _, rec := range claimed {
		msg := models.ConvertToOutboxMessage(rec)
		procCtx := utils.SetCenterIdInContext(ctx, rec.CenterId)
		procCtx = utils.SetUserNameInContext(procCtx, "System")
		procCtx = utils.SetCorrelationIdInContext(procCtx, rec.CorrelationId)

		if err := workflow.ProcessMessage(procCtx, p.Logger, msg); err != nil {
			dead := markOutboxProcessFailure(ctx, p.Logger, msg, err)
			if dead && p.Logger != nil {
				p.Logger.WithFields(logrus.Fields{
					"field":        "OutboxDirectProcessor",
					"record_id":    rec.ID,
					"event_type":   rec.EventType,
					"reference_id": rec.ReferenceId,
				}).Error(fmt.Sprintf("outbox record moved to DEAD: %v", err))
			}
			continue
		}
		markOutboxProcessSuccess(ctx, p.Logger, msg)
	}
}
