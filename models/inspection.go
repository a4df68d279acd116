package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/utils"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

// Inspection is the monthly physical check of one center against the full
// zone×concept catalog. At most one row exists per (center_id, month); the
// unique index is the authority, the application-level find-or-create only
// narrows the race window (see StartInspection).
type Inspection struct {
	ID             int    `gorm:"primary_key" json:"id"`
	CenterId       string `gorm:"size:64;not null;uniqueIndex:idx_inspection_center_month,priority:1" json:"center_id"`
	CenterName     string `gorm:"size:255" json:"center_name"`
	InspectorName  string `gorm:"size:255" json:"inspector_name"`
	InspectorEmail string `gorm:"size:255" json:"inspector_email"`

	InspectionDate time.Time `gorm:"not null" json:"inspection_date"`
	// Month is "YYYY-MM"; the month the inspection belongs to.
	Month string `gorm:"size:7;not null;uniqueIndex:idx_inspection_center_month,priority:2" json:"month"`
	Year  int    `gorm:"not null" json:"year"`

	CurrentStatus InspectionStatus `gorm:"type:enum('in_progress','completed','reviewed');not null;default:'in_progress';index" json:"status"`

	TotalItems   int    `gorm:"not null;default:0" json:"total_items"`
	ItemsOk      int    `gorm:"not null;default:0" json:"items_ok"`
	ItemsRegular int    `gorm:"not null;default:0" json:"items_regular"`
	ItemsBad     int    `gorm:"not null;default:0" json:"items_bad"`
	OverallScore int    `gorm:"not null;default:0" json:"overall_score"`
	Notes        string `gorm:"type:text" json:"notes"`

	Items []InspectionItem `gorm:"foreignKey:InspectionId" json:"items"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i Inspection) GetId() int {
	return i.ID
}

// CurrentMonthKey returns "YYYY-MM" for now in UTC.
func CurrentMonthKey(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// NewInspectionStart is the StartInspection input.
type NewInspectionStart struct {
	CenterId       string `json:"center_id" binding:"required" validate:"required"`
	CenterName     string `json:"center_name" binding:"required" validate:"required"`
	InspectorName  string `json:"inspector_name" binding:"required" validate:"required"`
	InspectorEmail string `json:"inspector_email" validate:"omitempty,email"`
}

// StartInspection is find-or-create keyed on (centerId, current month):
//   - closed (completed/reviewed) inspection exists: return its id unchanged;
//   - open inspection exists: re-seed the item set if it is empty (rows created
//     before seeding existed), force in_progress, return its id;
//   - none exists: create and seed the full catalog cross product in one
//     transaction.
//
// A short redis lock narrows the check-then-act race between concurrent
// callers; correctness does not depend on it — the (center_id, month) unique
// index turns the losing insert into a duplicate-key error that is resolved by
// re-reading the winner's row.
func StartInspection(ctx context.Context, input *NewInspectionStart) (int, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	month := CurrentMonthKey(now)

	if locker := config.GetRedisLock(); locker != nil {
		lockKey := fmt.Sprintf("maintenance:start:%s:%s", input.CenterId, month)
		lock, err := locker.Obtain(config.GetRedisContext(), lockKey, 5*time.Second, nil)
		if err == nil {
			defer lock.Release(config.GetRedisContext())
		} else if err != redislock.ErrNotObtained {
			config.LogError(config.GetLogger(), "inspection.go", "StartInspection", "redis lock", lockKey, err)
		}
	}

	id, err := startInspectionOnce(ctx, input, now, month)
	if err != nil && IsDuplicateKeyError(err) {
		// Lost the race: the row exists now, take the exists-path.
		return startInspectionOnce(ctx, input, now, month)
	}
	return id, err
}

func startInspectionOnce(ctx context.Context, input *NewInspectionStart, now time.Time, month string) (int, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var existing Inspection
	err := db.WithContext(ctx).
		Where("center_id = ? AND month = ?", input.CenterId, month).
		First(&existing).Error
	if err == nil {
		if existing.CurrentStatus.Closed() {
			return existing.ID, nil
		}
		if err := ensureItemsSeeded(ctx, db, &existing); err != nil {
			config.LogError(logger, "inspection.go", "StartInspection", "ensure items seeded", existing.ID, err)
			return 0, err
		}
		if existing.CurrentStatus != InspectionStatusInProgress {
			if err := db.WithContext(ctx).Model(&Inspection{}).
				Where("id = ?", existing.ID).
				Update("current_status", InspectionStatusInProgress).Error; err != nil {
				return 0, err
			}
		}
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		config.LogError(logger, "inspection.go", "StartInspection", "lookup", input.CenterId, err)
		return 0, err
	}

	entries, err := CatalogCrossProduct(ctx)
	if err != nil {
		config.LogError(logger, "inspection.go", "StartInspection", "load catalog", nil, err)
		return 0, err
	}

	inspection := Inspection{
		CenterId:       input.CenterId,
		CenterName:     input.CenterName,
		InspectorName:  input.InspectorName,
		InspectorEmail: input.InspectorEmail,
		InspectionDate: now,
		Month:          month,
		Year:           now.Year(),
		CurrentStatus:  InspectionStatusInProgress,
		TotalItems:     len(entries),
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&inspection).Error; err != nil {
			return err
		}
		items := newItemsFromCatalog(inspection.ID, entries)
		if len(items) > 0 {
			if err := tx.CreateInBatches(items, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !IsDuplicateKeyError(err) {
			config.LogError(logger, "inspection.go", "StartInspection", "create+seed", input.CenterId, err)
		}
		return 0, err
	}
	return inspection.ID, nil
}

// ensureItemsSeeded inserts the catalog cross product when the item set is
// empty. Covers inspections created before seeding existed.
func ensureItemsSeeded(ctx context.Context, db *gorm.DB, inspection *Inspection) error {
	var count int64
	if err := db.WithContext(ctx).Model(&InspectionItem{}).
		Where("inspection_id = ?", inspection.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	entries, err := CatalogCrossProduct(ctx)
	if err != nil {
		return err
	}
	items := newItemsFromCatalog(inspection.ID, entries)
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(items, 100).Error; err != nil {
			return err
		}
		return tx.Model(&Inspection{}).
			Where("id = ?", inspection.ID).
			Update("total_items", len(items)).Error
	})
}

// NeedsInspection reports whether the center still has to run this month's
// inspection. "No row" means needs=true, and so does any other lookup error:
// fail toward requiring action, never toward silently skipping it.
func NeedsInspection(ctx context.Context, centerId string) bool {
	db := config.GetDB()
	month := CurrentMonthKey(time.Now())

	var count int64
	err := db.WithContext(ctx).Model(&Inspection{}).
		Where("center_id = ? AND month = ? AND current_status IN ?", centerId, month,
			[]InspectionStatus{InspectionStatusCompleted, InspectionStatusReviewed}).
		Count(&count).Error
	if err != nil {
		config.LogError(config.GetLogger(), "inspection.go", "NeedsInspection", "count", centerId, err)
		return true
	}
	return count == 0
}

// InspectionSummary carries the persisted completion roll-up.
type InspectionSummary struct {
	TotalItems   int    `json:"total_items" binding:"required"`
	ItemsOk      int    `json:"items_ok"`
	ItemsRegular int    `json:"items_regular"`
	ItemsBad     int    `json:"items_bad"`
	OverallScore int    `json:"overall_score"`
	Notes        string `json:"notes"`
}

// CompleteInspection moves one inspection to completed and persists the
// summary in a single update; the same transaction enqueues the side-effect
// fan-out (critical alerts, checklist entries, director notification) as a
// durable outbox record. The fan-out is at-least-once and best-effort: its
// later failure never reverts the completed transition.
func CompleteInspection(ctx context.Context, inspectionId int, summary *InspectionSummary) error {
	db := config.GetDB()
	logger := config.GetLogger()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inspection Inspection
		if err := tx.First(&inspection, inspectionId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("inspection not found")
			}
			return err
		}
		if inspection.CurrentStatus.Closed() {
			return errors.New("inspection already completed")
		}

		updates := map[string]interface{}{
			"current_status": InspectionStatusCompleted,
			"total_items":    summary.TotalItems,
			"items_ok":       summary.ItemsOk,
			"items_regular":  summary.ItemsRegular,
			"items_bad":      summary.ItemsBad,
			"overall_score":  summary.OverallScore,
			"notes":          summary.Notes,
		}
		if err := tx.Model(&Inspection{}).
			Where("id = ? AND current_status = ?", inspectionId, InspectionStatusInProgress).
			Updates(updates).Error; err != nil {
			config.LogError(logger, "inspection.go", "CompleteInspection", "update", inspectionId, err)
			return err
		}

		inspection.CurrentStatus = InspectionStatusCompleted
		inspection.TotalItems = summary.TotalItems
		inspection.ItemsOk = summary.ItemsOk
		inspection.ItemsRegular = summary.ItemsRegular
		inspection.ItemsBad = summary.ItemsBad
		inspection.OverallScore = summary.OverallScore
		inspection.Notes = summary.Notes

		if err := tx.Where("inspection_id = ?", inspectionId).Find(&inspection.Items).Error; err != nil {
			return err
		}

		return EnqueueInspectionCompleted(ctx, tx, &inspection)
	})
}

// NewInspectionBulk is the monolithic-wizard payload: the inspection row plus
// its full item set in one call.
type NewInspectionBulk struct {
	CenterId       string `json:"center_id" binding:"required" validate:"required"`
	CenterName     string `json:"center_name" binding:"required" validate:"required"`
	InspectorName  string `json:"inspector_name" binding:"required" validate:"required"`
	InspectorEmail string `json:"inspector_email" validate:"omitempty,email"`
	Notes          string `json:"notes"`

	Items []NewInspectionBulkItem `json:"items" binding:"required" validate:"required,dive"`
}

type NewInspectionBulkItem struct {
	ZoneId           int          `json:"zone_id" binding:"required" validate:"required"`
	ZoneName         string       `json:"zone_name"`
	ConceptId        int          `json:"concept_id" binding:"required" validate:"required"`
	ConceptName      string       `json:"concept_name"`
	Status           ItemStatus   `json:"status" binding:"required" validate:"required"`
	Observations     string       `json:"observations"`
	TaskToPerform    string       `json:"task_to_perform"`
	TaskPriority     TaskPriority `json:"task_priority"`
	TaskStatus       TaskStatus   `json:"task_status"`
	PhotosDeterioro  []string     `json:"photos_deterioro"`
	PhotosReparacion []string     `json:"photos_reparacion"`
}

// CreateInspection is the bulk path: inspection + all items + summary in one
// atomic transaction, then the same completion fan-out as CompleteInspection.
// The store supports real transactions, so the old compensating-delete is a
// rollback: a failed items insert leaves no orphan inspection behind.
func CreateInspection(ctx context.Context, input *NewInspectionBulk) (*Inspection, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	logger := config.GetLogger()

	statuses := make([]ItemStatus, 0, len(input.Items))
	for _, it := range input.Items {
		if !it.Status.Valid() {
			return nil, fmt.Errorf("invalid item status %q for concept %d", it.Status, it.ConceptId)
		}
		statuses = append(statuses, it.Status)
	}
	counts := CountItemStatuses(statuses)

	now := time.Now().UTC()
	inspection := Inspection{
		CenterId:       input.CenterId,
		CenterName:     input.CenterName,
		InspectorName:  input.InspectorName,
		InspectorEmail: input.InspectorEmail,
		InspectionDate: now,
		Month:          CurrentMonthKey(now),
		Year:           now.Year(),
		CurrentStatus:  InspectionStatusCompleted,
		TotalItems:     counts.Total,
		ItemsOk:        counts.Bien,
		ItemsRegular:   counts.Regular,
		ItemsBad:       counts.Mal,
		OverallScore:   counts.Score(),
		Notes:          input.Notes,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&inspection).Error; err != nil {
			return err
		}

		items := make([]InspectionItem, 0, len(input.Items))
		for _, it := range input.Items {
			taskPriority := it.TaskPriority
			if taskPriority == "" {
				taskPriority = TaskPriorityMedia
			}
			taskStatus := it.TaskStatus
			if taskStatus == "" {
				taskStatus = TaskStatusPendiente
			}
			item := InspectionItem{
				InspectionId:     inspection.ID,
				ZoneId:           it.ZoneId,
				ZoneName:         it.ZoneName,
				ConceptId:        it.ConceptId,
				ConceptName:      it.ConceptName,
				CurrentStatus:    it.Status,
				Observations:     it.Observations,
				TaskToPerform:    it.TaskToPerform,
				TaskPriority:     taskPriority,
				TaskStatus:       taskStatus,
				PhotosDeterioro:  StringArray(it.PhotosDeterioro),
				PhotosReparacion: StringArray(it.PhotosReparacion),
			}
			item.ApplyItemRules()
			items = append(items, item)
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(items, 100).Error; err != nil {
				return err
			}
		}
		inspection.Items = items

		return EnqueueInspectionCompleted(ctx, tx, &inspection)
	})
	if err != nil {
		config.LogError(logger, "inspection.go", "CreateInspection", "transaction", input.CenterId, err)
		return nil, err
	}
	return &inspection, nil
}

// ClearAllData is the destructive staging/test reset: children before parents.
// All-or-nothing is NOT guaranteed; the returned error names the step that
// failed and everything before it stays deleted.
func ClearAllData(ctx context.Context) error {
	db := config.GetDB()

	steps := []struct {
		name  string
		model interface{}
	}{
		{"alerts", &Alert{}},
		{"checklist_entries", &ChecklistEntry{}},
		{"inspection_items", &InspectionItem{}},
		{"inspections", &Inspection{}},
		{"quarterly_items", &QuarterlyItem{}},
		{"assignments", &Assignment{}},
		{"quarterly_reviews", &QuarterlyReview{}},
		{"notifications", &Notification{}},
		{"outbox_messages", &OutboxMessageRecord{}},
		{"idempotency_keys", &IdempotencyKey{}},
	}
	for _, step := range steps {
		if err := db.WithContext(ctx).Where("1 = 1").Delete(step.model).Error; err != nil {
			return fmt.Errorf("clear all data failed at step %q: %w", step.name, err)
		}
	}
	return nil
}
