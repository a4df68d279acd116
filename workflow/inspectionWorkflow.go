package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// processInspectionCompleted runs the completion fan-out for one inspection
// from the snapshot carried by the IC record:
//   - one alert per "mal" item
//   - one checklist entry per item flagged for the operations checklist
//   - one director summary notification when criticals exist
//
// Each step is idempotent per inspection, so at-least-once delivery is safe.
// Fan-out failures never touch the inspection row itself.
func processInspectionCompleted(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, m models.OutboxMessage) error {
	var payload models.InspectionCompletedPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		config.LogError(logger, "inspectionWorkflow.go", "processInspectionCompleted", "unmarshal payload", m.ID, err)
		return err
	}
	inspection := payload.Inspection
	if inspection.ID == 0 {
		return fmt.Errorf("inspection completed payload without inspection id (outbox record %d)", m.ID)
	}

	alertCount, err := models.CreateCriticalAlerts(tx, &inspection, payload.Items)
	if err != nil {
		config.LogError(logger, "inspectionWorkflow.go", "processInspectionCompleted", "create alerts", inspection.ID, err)
		return err
	}

	checklistCount := 0
	if config.ChecklistIntegrationEnabled() {
		checklistCount, err = models.IntegrateWithChecklist(tx, &inspection, payload.Items)
		if err != nil {
			config.LogError(logger, "inspectionWorkflow.go", "processInspectionCompleted", "checklist integration", inspection.ID, err)
			return err
		}
	}

	criticals := 0
	for _, item := range payload.Items {
		if item.CurrentStatus == models.ItemStatusMal {
			criticals++
		}
	}
	if criticals > 0 {
		notification := models.Notification{
			RecipientEmail: models.MaintenanceDirectorEmail(),
			Title: fmt.Sprintf("Inspección %s: %d incidencias críticas", inspection.Month, criticals),
			Message: fmt.Sprintf("El centro %s ha completado la inspección de %s (inspector: %s, fecha: %s) con %d elementos en estado crítico. Puntuación: %d.",
				inspection.CenterName, inspection.Month, inspection.InspectorName,
				inspection.InspectionDate.Format("02/01/2006"), criticals, inspection.OverallScore),
			ReferenceType: models.NotificationRefInspection,
			ReferenceId:   inspection.ID,
			CorrelationId: m.CorrelationId,
		}
		if err := models.CreateNotification(ctx, tx, &notification); err != nil {
			config.LogError(logger, "inspectionWorkflow.go", "processInspectionCompleted", "director notification", inspection.ID, err)
			return err
		}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":           "InspectionWorkflow",
			"center_id":       inspection.CenterId,
			"inspection_id":   inspection.ID,
			"alerts":          alertCount,
			"checklist_rows":  checklistCount,
			"critical_items":  criticals,
			"correlation_id":  m.CorrelationId,
		}).Info("inspection completion fan-out done")
	}
	return nil
}
