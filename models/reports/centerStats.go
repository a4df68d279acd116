package reports

import (
	"context"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"github.com/shopspring/decimal"
)

// CenterStatsResponse is the per-center rollup shown on the encargado
// dashboard. Read path: fails soft to a zeroed struct.
type CenterStatsResponse struct {
	CenterId        string          `json:"center_id"`
	InspectionCount int             `json:"inspection_count"`
	AverageScore    decimal.Decimal `json:"average_score"`
	CriticalIssues  int             `json:"critical_issues"`
	OpenTasks       int             `json:"open_tasks"`
}

func GetCenterStats(ctx context.Context, centerId string) *CenterStatsResponse {
	db := config.GetDB()
	logger := config.GetLogger()

	resp := &CenterStatsResponse{CenterId: centerId, AverageScore: decimal.Zero}

	var base struct {
		InspectionCount int
		AvgScore        decimal.NullDecimal
		CriticalIssues  int
	}
	sql := `
SELECT
    COUNT(id) AS inspection_count,
    AVG(overall_score) AS avg_score,
    COALESCE(SUM(items_bad), 0) AS critical_issues
FROM inspections
WHERE center_id = ? AND current_status IN ('completed', 'reviewed');
`
	if err := db.WithContext(ctx).Raw(sql, centerId).Scan(&base).Error; err != nil {
		config.LogError(logger, "centerStats.go", "GetCenterStats", "base rollup", centerId, err)
		return resp
	}
	resp.InspectionCount = base.InspectionCount
	resp.CriticalIssues = base.CriticalIssues
	if base.AvgScore.Valid {
		resp.AverageScore = base.AvgScore.Decimal.Round(1)
	}

	var openTasks int64
	sql = `
SELECT COUNT(ii.id)
FROM inspection_items ii
JOIN inspections i ON i.id = ii.inspection_id
WHERE i.center_id = ?
  AND ii.task_to_perform <> ''
  AND ii.task_status <> 'completada';
`
	if err := db.WithContext(ctx).Raw(sql, centerId).Scan(&openTasks).Error; err != nil {
		config.LogError(logger, "centerStats.go", "GetCenterStats", "open tasks", centerId, err)
		return resp
	}
	resp.OpenTasks = int(openTasks)
	return resp
}
