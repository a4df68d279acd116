package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Assignment is one center's unit of work inside a quarterly review.
// The lifecycle persists pending -> in_progress -> completed; "overdue" is a
// derived/display state computed by the schedule projector, never stored.
type Assignment struct {
	ID         int    `gorm:"primary_key" json:"id"`
	ReviewId   int    `gorm:"not null;uniqueIndex:idx_assignment_review_center,priority:1" json:"review_id"`
	CenterId   string `gorm:"size:64;not null;uniqueIndex:idx_assignment_review_center,priority:2" json:"center_id"`
	CenterName string `gorm:"size:255" json:"center_name"`
	AssignedTo string `gorm:"size:255" json:"assigned_to"`

	CurrentStatus AssignmentStatus `gorm:"type:enum('pending','in_progress','completed');not null;default:'pending'" json:"status"`
	StartedAt     *time.Time       `json:"started_at"`
	CompletedAt   *time.Time       `json:"completed_at"`
	CompletedBy   string           `gorm:"size:255" json:"completed_by"`

	Items []QuarterlyItem `gorm:"foreignKey:AssignmentId" json:"items"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a Assignment) GetId() int {
	return a.ID
}

// QuarterlyItem mirrors InspectionItem for a review assignment. Unlike
// inspections, the item set is not pre-seeded: the upsert in SaveReviewItems
// builds it up as the manager works through zones.
type QuarterlyItem struct {
	ID           int        `gorm:"primary_key" json:"id"`
	AssignmentId int        `gorm:"not null;uniqueIndex:idx_qitem_natural,priority:1" json:"assignment_id"`
	ZoneId       int        `gorm:"not null;uniqueIndex:idx_qitem_natural,priority:2" json:"zone_id"`
	ZoneName     string     `gorm:"size:255" json:"zone_name"`
	ConceptId    int        `gorm:"not null;uniqueIndex:idx_qitem_natural,priority:3" json:"concept_id"`
	ConceptName  string     `gorm:"size:255" json:"concept_name"`
	CurrentStatus ItemStatus `gorm:"type:enum('bien','regular','mal');not null;default:'bien'" json:"status"`

	Observations  string       `gorm:"type:text" json:"observations"`
	TaskToPerform string       `gorm:"type:text" json:"task_to_perform"`
	TaskPriority  TaskPriority `gorm:"type:enum('baja','media','alta','critica');not null;default:'media'" json:"task_priority"`
	TaskStatus    TaskStatus   `gorm:"type:enum('pendiente','en_progreso','completada');not null;default:'pendiente'" json:"task_status"`
	TaskCompletedAt *time.Time `json:"task_completed_at"`

	PhotosDeterioro  StringArray `gorm:"type:json" json:"photos_deterioro"`
	PhotosReparacion StringArray `gorm:"type:json" json:"photos_reparacion"`

	PhotosRequired bool `gorm:"not null;default:false" json:"photos_required"`
	CanCloseTask   bool `gorm:"not null;default:false" json:"can_close_task"`
	// IsCritical mirrors status == mal, the review-side twin of
	// is_critical_for_checklist.
	IsCritical bool `gorm:"not null;default:false" json:"is_critical"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (item *QuarterlyItem) ApplyItemRules() {
	item.PhotosRequired = item.CurrentStatus != ItemStatusBien
	item.IsCritical = item.CurrentStatus == ItemStatusMal
	item.CanCloseTask = (item.CurrentStatus != ItemStatusBien && len(item.PhotosDeterioro) > 0) ||
		len(item.PhotosReparacion) > 0 ||
		item.TaskStatus == TaskStatusCompletada
}

// NewQuarterlyItem is one item row of the SaveReviewItems payload.
type NewQuarterlyItem struct {
	ZoneId           int          `json:"zone_id" binding:"required"`
	ZoneName         string       `json:"zone_name"`
	ConceptId        int          `json:"concept_id" binding:"required"`
	ConceptName      string       `json:"concept_name"`
	Status           ItemStatus   `json:"status" binding:"required"`
	Observations     string       `json:"observations"`
	TaskToPerform    string       `json:"task_to_perform"`
	TaskPriority     TaskPriority `json:"task_priority"`
	TaskStatus       TaskStatus   `json:"task_status"`
	PhotosDeterioro  []string     `json:"photos_deterioro"`
	PhotosReparacion []string     `json:"photos_reparacion"`
}

// SaveReviewItems upserts the full item set of one assignment by natural key
// (assignment_id, zone_id, concept_id). Safe to call repeatedly while a
// manager edits zones. The first save also moves a pending assignment to
// in_progress and stamps started_at.
func SaveReviewItems(ctx context.Context, assignmentId int, inputs []NewQuarterlyItem) ([]QuarterlyItem, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var assignment Assignment
	if err := db.WithContext(ctx).First(&assignment, assignmentId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("assignment not found")
		}
		return nil, err
	}
	if assignment.CurrentStatus == AssignmentStatusCompleted {
		return nil, errors.New("assignment is completed; items are immutable")
	}

	items := make([]QuarterlyItem, 0, len(inputs))
	for _, in := range inputs {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("invalid item status %q for concept %d", in.Status, in.ConceptId)
		}
		taskPriority := in.TaskPriority
		if taskPriority == "" {
			taskPriority = TaskPriorityMedia
		}
		taskStatus := in.TaskStatus
		if taskStatus == "" {
			taskStatus = TaskStatusPendiente
		}
		item := QuarterlyItem{
			AssignmentId:     assignmentId,
			ZoneId:           in.ZoneId,
			ZoneName:         in.ZoneName,
			ConceptId:        in.ConceptId,
			ConceptName:      in.ConceptName,
			CurrentStatus:    in.Status,
			Observations:     in.Observations,
			TaskToPerform:    in.TaskToPerform,
			TaskPriority:     taskPriority,
			TaskStatus:       taskStatus,
			PhotosDeterioro:  StringArray(in.PhotosDeterioro),
			PhotosReparacion: StringArray(in.PhotosReparacion),
		}
		item.ApplyItemRules()
		items = append(items, item)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(items) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "assignment_id"}, {Name: "zone_id"}, {Name: "concept_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"zone_name", "concept_name", "current_status", "observations",
					"task_to_perform", "task_priority", "task_status",
					"photos_deterioro", "photos_reparacion",
					"photos_required", "can_close_task", "is_critical",
				}),
			}).Create(&items).Error
			if err != nil {
				return err
			}
		}
		if assignment.CurrentStatus == AssignmentStatusPending {
			now := time.Now().UTC()
			return tx.Model(&Assignment{}).
				Where("id = ? AND current_status = ?", assignmentId, AssignmentStatusPending).
				Updates(map[string]interface{}{
					"current_status": AssignmentStatusInProgress,
					"started_at":     now,
				}).Error
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, "assignment.go", "SaveReviewItems", "upsert", assignmentId, err)
		return nil, err
	}

	var saved []QuarterlyItem
	if err := db.WithContext(ctx).
		Where("assignment_id = ?", assignmentId).
		Order("zone_id ASC, concept_id ASC").
		Find(&saved).Error; err != nil {
		return nil, err
	}
	return saved, nil
}

// CompleteAssignment closes one assignment and enqueues the director
// notification fan-out (critical variant with a 7-day remediation deadline
// when "mal" items exist, clean variant otherwise). The parent review's
// completed counter is NOT touched here: it is always derived from rows.
func CompleteAssignment(ctx context.Context, assignmentId int, completedBy string) (*Assignment, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var assignment Assignment
	if err := db.WithContext(ctx).First(&assignment, assignmentId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("assignment not found")
		}
		return nil, err
	}
	if assignment.CurrentStatus == AssignmentStatusCompleted {
		return &assignment, nil
	}

	now := time.Now().UTC()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Assignment{}).
			Where("id = ?", assignmentId).
			Updates(map[string]interface{}{
				"current_status": AssignmentStatusCompleted,
				"completed_at":   now,
				"completed_by":   completedBy,
			}).Error; err != nil {
			return err
		}
		assignment.CurrentStatus = AssignmentStatusCompleted
		assignment.CompletedAt = &now
		assignment.CompletedBy = completedBy
		return EnqueueAssignmentCompleted(ctx, tx, &assignment)
	})
	if err != nil {
		config.LogError(logger, "assignment.go", "CompleteAssignment", "transaction", assignmentId, err)
		return nil, err
	}
	return &assignment, nil
}

// CriticalItemsForAssignment returns the assignment's items with status mal.
func CriticalItemsForAssignment(tx *gorm.DB, assignmentId int) ([]QuarterlyItem, error) {
	var items []QuarterlyItem
	err := tx.Where("assignment_id = ? AND current_status = ?", assignmentId, ItemStatusMal).
		Find(&items).Error
	return items, err
}
