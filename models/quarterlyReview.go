package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/utils"
	"gorm.io/gorm"
)

// QuarterlyReview is the director's per-quarter deep-review campaign, tracked
// through per-center assignments. One review exists per (quarter, year);
// uniqueness is enforced by delete-then-recreate — re-creating a quarter is
// last-writer-wins and discards all prior progress for that quarter.
type QuarterlyReview struct {
	ID      int    `gorm:"primary_key" json:"id"`
	Quarter string `gorm:"size:2;not null;index:idx_review_quarter_year,priority:1" json:"quarter"`
	Year    int    `gorm:"not null;index:idx_review_quarter_year,priority:2" json:"year"`

	CurrentStatus ReviewStatus `gorm:"type:enum('draft','active','completed','cancelled');not null;default:'draft'" json:"status"`
	DeadlineDate  time.Time    `gorm:"not null" json:"deadline_date"`
	CreatedBy     string       `gorm:"size:255" json:"created_by"`

	TotalCenters int `gorm:"not null;default:0" json:"total_centers"`
	// CompletedCenters is intentionally not maintained by the lifecycle:
	// completion counts are always derived from assignment rows
	// (CountCompletedAssignments) to avoid cached-counter drift.
	CompletedCenters int `gorm:"not null;default:0" json:"completed_centers"`

	ActivatedAt *time.Time   `json:"activated_at"`
	Assignments []Assignment `gorm:"foreignKey:ReviewId" json:"assignments"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r QuarterlyReview) GetId() int {
	return r.ID
}

// NewQuarterlyReview is the CreateReview input.
type NewQuarterlyReview struct {
	Quarter      string      `json:"quarter" binding:"required" validate:"required,oneof=Q1 Q2 Q3 Q4"`
	Year         int         `json:"year" binding:"required" validate:"required,min=2020"`
	DeadlineDate time.Time   `json:"deadline_date" binding:"required" validate:"required"`
	CreatedBy    string      `json:"created_by" binding:"required" validate:"required"`
	Centers      []CenterRef `json:"centers" binding:"required" validate:"required,dive"`
}

// CreateReview enforces (quarter, year) uniqueness by deleting any existing
// review for the key first — items, then assignments, then the review row
// (children before parents) — and inserting a fresh draft.
func CreateReview(ctx context.Context, input *NewQuarterlyReview) (*QuarterlyReview, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	db := config.GetDB()
	logger := config.GetLogger()

	review := QuarterlyReview{
		Quarter:       input.Quarter,
		Year:          input.Year,
		CurrentStatus: ReviewStatusDraft,
		DeadlineDate:  input.DeadlineDate,
		CreatedBy:     input.CreatedBy,
		TotalCenters:  len(input.Centers),
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []QuarterlyReview
		if err := tx.Where("quarter = ? AND year = ?", input.Quarter, input.Year).Find(&existing).Error; err != nil {
			return err
		}
		for _, old := range existing {
			var assignmentIds []int
			if err := tx.Model(&Assignment{}).Where("review_id = ?", old.ID).Pluck("id", &assignmentIds).Error; err != nil {
				return err
			}
			if len(assignmentIds) > 0 {
				if err := tx.Where("assignment_id IN ?", assignmentIds).Delete(&QuarterlyItem{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", assignmentIds).Delete(&Assignment{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Delete(&QuarterlyReview{}, old.ID).Error; err != nil {
				return err
			}
		}
		return tx.Omit("Assignments").Create(&review).Error
	})
	if err != nil {
		config.LogError(logger, "quarterlyReview.go", "CreateReview", "recreate", input.Quarter, err)
		return nil, err
	}
	return &review, nil
}

// ActivateReview sets the review active and creates one pending assignment per
// center, notifying each assignee that has an email. Partial failure mid-loop
// is NOT rolled back: already-created assignments and sent notifications stay,
// and the error reports which step failed.
func ActivateReview(ctx context.Context, reviewId int, centers []CenterRef, assigneeByCenterId map[string]string) error {
	db := config.GetDB()
	logger := config.GetLogger()

	var review QuarterlyReview
	if err := db.WithContext(ctx).First(&review, reviewId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("review not found")
		}
		return err
	}

	now := time.Now().UTC()
	err := db.WithContext(ctx).Model(&QuarterlyReview{}).
		Where("id = ?", reviewId).
		Updates(map[string]interface{}{
			"current_status": ReviewStatusActive,
			"activated_at":   now,
		}).Error
	if err != nil {
		config.LogError(logger, "quarterlyReview.go", "ActivateReview", "set active", reviewId, err)
		return fmt.Errorf("activate review failed at step 0 (set active): %w", err)
	}

	for i, center := range utils.UniqueSlice(centers) {
		assignment := Assignment{
			ReviewId:      reviewId,
			CenterId:      center.Id,
			CenterName:    center.Name,
			AssignedTo:    assigneeByCenterId[center.Id],
			CurrentStatus: AssignmentStatusPending,
		}
		if err := db.WithContext(ctx).Create(&assignment).Error; err != nil {
			// One assignment per (review, center): a re-activation or a racing
			// duplicate resolves as already assigned, no second notification.
			if IsDuplicateKeyError(err) {
				continue
			}
			config.LogError(logger, "quarterlyReview.go", "ActivateReview", "create assignment", center.Id, err)
			return fmt.Errorf("activate review failed at step %d (center %s): %w", i+1, center.Id, err)
		}

		if assignment.AssignedTo == "" {
			continue
		}
		notification := Notification{
			RecipientEmail: assignment.AssignedTo,
			Title:          fmt.Sprintf("Revisión trimestral %s %d asignada", review.Quarter, review.Year),
			Message: fmt.Sprintf("Se te ha asignado la revisión trimestral del centro %s. Fecha límite: %s.",
				center.Name, review.DeadlineDate.Format("02/01/2006")),
			ReferenceType: NotificationRefAssignment,
			ReferenceId:   assignment.ID,
		}
		if err := CreateNotification(ctx, db.WithContext(ctx), &notification); err != nil {
			config.LogError(logger, "quarterlyReview.go", "ActivateReview", "notify assignee", assignment.AssignedTo, err)
			return fmt.Errorf("activate review failed at step %d (notify %s): %w", i+1, assignment.AssignedTo, err)
		}
	}
	return nil
}

// CountCompletedAssignments derives the review's completed-center count from
// assignment rows. There is deliberately no cached counter to drift.
func CountCompletedAssignments(ctx context.Context, reviewId int) (int64, error) {
	return utils.ResourceCountWhere[Assignment](ctx, "review_id = ? AND current_status = ?",
		reviewId, AssignmentStatusCompleted)
}

// GetQuarterlyReview loads a review with its assignments.
func GetQuarterlyReview(ctx context.Context, reviewId int) (*QuarterlyReview, error) {
	return utils.FetchSingleModel[QuarterlyReview](ctx, reviewId, "Assignments")
}
