package reports

import (
	"context"
	"fmt"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"github.com/shopspring/decimal"
)

// MonthlySeriesPoint is one month of the inspection history chart.
type MonthlySeriesPoint struct {
	Month           string          `json:"month"`
	InspectionCount int             `json:"inspection_count"`
	AverageScore    decimal.Decimal `json:"average_score"`
}

// GetMonthlySeries returns the last `months` months of inspection counts and
// mean scores, oldest first. Scoped to one center when centerId is non-empty.
func GetMonthlySeries(ctx context.Context, centerId string, months int) ([]MonthlySeriesPoint, error) {
	if months <= 0 {
		months = 12
	}

	cacheKey := fmt.Sprintf("report_monthly_series_%s_%d", centerId, months)
	if reportCacheEnabled() {
		var cached []MonthlySeriesPoint
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	db := config.GetDB()

	sql := `
SELECT
    month,
    COUNT(id) AS inspection_count,
    AVG(overall_score) AS average_score
FROM inspections
WHERE current_status IN ('completed', 'reviewed')
`
	args := []interface{}{}
	if centerId != "" {
		sql += "  AND center_id = ?\n"
		args = append(args, centerId)
	}
	sql += `GROUP BY month
ORDER BY month DESC
LIMIT ?;
`
	args = append(args, months)

	var points []MonthlySeriesPoint
	if err := db.WithContext(ctx).Raw(sql, args...).Scan(&points).Error; err != nil {
		return nil, err
	}

	// Query is newest-first for the LIMIT; the chart wants oldest-first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	for i := range points {
		points[i].AverageScore = points[i].AverageScore.Round(1)
	}

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, points, reportCacheTTL())
	}
	return points, nil
}
