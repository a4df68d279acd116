package reports

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
	"github.com/xuri/excelize/v2"
)

type directorExportRow struct {
	CenterId      string
	Month         string
	Status        string
	OverallScore  int
	ItemsOk       int
	ItemsRegular  int
	ItemsBad      int
	InspectorName string
}

func getDirectorExportRows(ctx context.Context, months int) ([]directorExportRow, error) {
	if months <= 0 {
		months = 12
	}
	sql := `
SELECT
    center_id,
    month,
    current_status AS status,
    overall_score,
    items_ok,
    items_regular,
    items_bad,
    inspector_name
FROM inspections
ORDER BY month DESC, center_id ASC
LIMIT ?;
`
	var rows []directorExportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, months*64).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ExportDirectorExcel streams the director workbook: one sheet of recent
// inspections, one sheet of the chain-wide rollup.
func ExportDirectorExcel(ctx context.Context, w http.ResponseWriter, months int) {
	f := excelize.NewFile()
	sheetName := "Inspecciones"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := getDirectorExportRows(ctx, months)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "Centro")
	f.SetCellValue(sheetName, "B1", "Mes")
	f.SetCellValue(sheetName, "C1", "Estado")
	f.SetCellValue(sheetName, "D1", "Puntuacion")
	f.SetCellValue(sheetName, "E1", "Bien")
	f.SetCellValue(sheetName, "F1", "Regular")
	f.SetCellValue(sheetName, "G1", "Mal")
	f.SetCellValue(sheetName, "H1", "Inspector")

	// Add data
	for i, d := range data {
		f.SetCellValue(sheetName, "A"+fmt.Sprint(i+2), d.CenterId)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(i+2), d.Month)
		f.SetCellValue(sheetName, "C"+fmt.Sprint(i+2), d.Status)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(i+2), d.OverallScore)
		f.SetCellValue(sheetName, "E"+fmt.Sprint(i+2), d.ItemsOk)
		f.SetCellValue(sheetName, "F"+fmt.Sprint(i+2), d.ItemsRegular)
		f.SetCellValue(sheetName, "G"+fmt.Sprint(i+2), d.ItemsBad)
		f.SetCellValue(sheetName, "H"+fmt.Sprint(i+2), d.InspectorName)
	}

	summarySheet := "Resumen"
	if _, err := f.NewSheet(summarySheet); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats := GetDirectorStats(ctx, time.Now().UTC())
	f.SetCellValue(summarySheet, "A1", "Tickets abiertos (mantenimiento)")
	f.SetCellValue(summarySheet, "B1", stats.OpenMaintenanceTickets)
	f.SetCellValue(summarySheet, "A2", "Tickets abiertos (checklist)")
	f.SetCellValue(summarySheet, "B2", stats.OpenChecklistTickets)
	f.SetCellValue(summarySheet, "A3", "Dias medios de resolucion")
	f.SetCellValue(summarySheet, "B3", stats.MeanResolutionDays.InexactFloat64())
	f.SetCellValue(summarySheet, "A4", "Inspecciones del mes "+models.CurrentMonthKey(time.Now().UTC()))
	f.SetCellValue(summarySheet, "B4", stats.CurrentMonthInspections)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=mantenimiento.xlsx")
	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write file", http.StatusInternalServerError)
	}
}
