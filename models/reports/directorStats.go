package reports

import (
	"context"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
	"github.com/shopspring/decimal"
)

// DirectorStatsResponse is the chain-wide rollup for the maintenance
// director: open tickets across both systems, mean resolution time of tasks
// closed this month, and this month's inspection count.
type DirectorStatsResponse struct {
	OpenMaintenanceTickets int             `json:"open_maintenance_tickets"`
	OpenChecklistTickets   int             `json:"open_checklist_tickets"`
	OpenTickets            int             `json:"open_tickets"`
	MeanResolutionDays     decimal.Decimal `json:"mean_resolution_days"`
	CurrentMonthInspections int            `json:"current_month_inspections"`
}

func GetDirectorStats(ctx context.Context, now time.Time) *DirectorStatsResponse {
	db := config.GetDB()
	logger := config.GetLogger()

	resp := &DirectorStatsResponse{MeanResolutionDays: decimal.Zero}

	var openMaintenance int64
	sql := `
SELECT COUNT(id)
FROM inspection_items
WHERE task_to_perform <> '' AND task_status <> 'completada';
`
	if err := db.WithContext(ctx).Raw(sql).Scan(&openMaintenance).Error; err != nil {
		config.LogError(logger, "directorStats.go", "GetDirectorStats", "open maintenance", nil, err)
		return resp
	}

	var openChecklist int64
	sql = `
SELECT COUNT(id)
FROM checklist_entries
WHERE current_status <> 'completada';
`
	if err := db.WithContext(ctx).Raw(sql).Scan(&openChecklist).Error; err != nil {
		config.LogError(logger, "directorStats.go", "GetDirectorStats", "open checklist", nil, err)
		return resp
	}

	resp.OpenMaintenanceTickets = int(openMaintenance)
	resp.OpenChecklistTickets = int(openChecklist)
	resp.OpenTickets = resp.OpenMaintenanceTickets + resp.OpenChecklistTickets

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	// Mean resolution over tasks completed this month, in days to 1 decimal.
	var resolution struct {
		AvgSeconds decimal.NullDecimal
	}
	sql = `
SELECT AVG(TIMESTAMPDIFF(SECOND, created_at, task_completed_at)) AS avg_seconds
FROM inspection_items
WHERE task_completed_at IS NOT NULL
  AND task_completed_at >= ? AND task_completed_at < ?;
`
	if err := db.WithContext(ctx).Raw(sql, monthStart, monthEnd).Scan(&resolution).Error; err != nil {
		config.LogError(logger, "directorStats.go", "GetDirectorStats", "resolution", nil, err)
		return resp
	}
	if resolution.AvgSeconds.Valid {
		resp.MeanResolutionDays = resolution.AvgSeconds.Decimal.
			Div(decimal.NewFromInt(86400)).
			Round(1)
	}

	month := models.CurrentMonthKey(now)
	var monthCount int64
	if err := db.WithContext(ctx).Model(&models.Inspection{}).
		Where("month = ?", month).
		Count(&monthCount).Error; err != nil {
		config.LogError(logger, "directorStats.go", "GetDirectorStats", "month count", month, err)
		return resp
	}
	resp.CurrentMonthInspections = int(monthCount)
	return resp
}
