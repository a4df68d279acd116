package models

import (
	"context"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
)

// CenterRef identifies one center of the chain. Centers are owned by an
// external system; the engine only carries references.
type CenterRef struct {
	Id   string `json:"id" binding:"required" validate:"required"`
	Name string `json:"name" binding:"required" validate:"required"`
}

// ScheduleRow is the derived per-center classification against the quarter
// deadline.
type ScheduleRow struct {
	CenterId     string         `json:"center_id"`
	CenterName   string         `json:"center_name"`
	Status       ScheduleStatus `json:"status"`
	InspectionId *int           `json:"inspection_id"`
	OverallScore *int           `json:"overall_score"`
	Deadline     time.Time      `json:"deadline"`
}

// ProjectSchedule classifies each center against the deadline. Pure:
//   - inspection completed/reviewed  -> completed
//   - inspection in_progress (or any other open status) -> in_progress
//   - no inspection, now past deadline -> overdue
//   - no inspection, deadline not reached -> pending
func ProjectSchedule(now time.Time, centers []CenterRef, deadline time.Time, inspections []Inspection) []ScheduleRow {
	byCenter := make(map[string]*Inspection, len(inspections))
	for i := range inspections {
		byCenter[inspections[i].CenterId] = &inspections[i]
	}

	rows := make([]ScheduleRow, 0, len(centers))
	for _, center := range centers {
		row := ScheduleRow{
			CenterId:   center.Id,
			CenterName: center.Name,
			Deadline:   deadline,
		}
		if inspection, ok := byCenter[center.Id]; ok {
			row.InspectionId = &inspection.ID
			switch inspection.CurrentStatus {
			case InspectionStatusCompleted, InspectionStatusReviewed:
				row.Status = ScheduleStatusCompleted
				score := inspection.OverallScore
				row.OverallScore = &score
			default:
				row.Status = ScheduleStatusInProgress
			}
		} else if now.After(deadline) {
			row.Status = ScheduleStatusOverdue
		} else {
			row.Status = ScheduleStatusPending
		}
		rows = append(rows, row)
	}
	return rows
}

// QuarterSchedule loads the current quarter's inspections and projects the
// schedule for the given centers. Read path: fails soft by classifying from
// whatever loaded ("no inspection" beats a crashed dashboard).
func QuarterSchedule(ctx context.Context, store DeadlineStore, centers []CenterRef, now time.Time) []ScheduleRow {
	quarter, year := QuarterOf(now)
	deadline := ResolveQuarterDeadline(ctx, store, quarter, year)

	start, end := QuarterWindow(quarter, year)
	db := config.GetDB()
	var inspections []Inspection
	err := db.WithContext(ctx).
		Where("inspection_date >= ? AND inspection_date < ?", start, end).
		Order("inspection_date DESC").
		Find(&inspections).Error
	if err != nil {
		config.LogError(config.GetLogger(), "schedule.go", "QuarterSchedule", "load inspections", nil, err)
		inspections = nil
	}

	// Keep only the latest inspection per center inside the window.
	seen := make(map[string]bool, len(inspections))
	latest := make([]Inspection, 0, len(inspections))
	for _, inspection := range inspections {
		if seen[inspection.CenterId] {
			continue
		}
		seen[inspection.CenterId] = true
		latest = append(latest, inspection)
	}

	return ProjectSchedule(now, centers, deadline, latest)
}
