package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Critical findings of a quarterly assignment give the center 7 days to fix.
const remediationDays = 7

// processAssignmentCompleted sends exactly one director notification per
// completed assignment. The item read-back happens here, not from the
// snapshot: the items may have been upserted after the completion call and
// the notification should describe what is actually persisted.
func processAssignmentCompleted(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, m models.OutboxMessage) error {
	var payload models.AssignmentCompletedPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		config.LogError(logger, "reviewWorkflow.go", "processAssignmentCompleted", "unmarshal payload", m.ID, err)
		return err
	}
	assignment := payload.Assignment
	if assignment.ID == 0 {
		return fmt.Errorf("assignment completed payload without assignment id (outbox record %d)", m.ID)
	}

	criticals, err := models.CriticalItemsForAssignment(tx, assignment.ID)
	if err != nil {
		config.LogError(logger, "reviewWorkflow.go", "processAssignmentCompleted", "load critical items", assignment.ID, err)
		return err
	}

	notification := models.Notification{
		RecipientEmail: models.MaintenanceDirectorEmail(),
		ReferenceType:  models.NotificationRefAssignment,
		ReferenceId:    assignment.ID,
		CorrelationId:  m.CorrelationId,
	}
	if len(criticals) > 0 {
		deadline := time.Now().UTC().AddDate(0, 0, remediationDays)
		lines := make([]string, 0, len(criticals))
		for _, item := range criticals {
			lines = append(lines, fmt.Sprintf("- %s / %s: %s", item.ZoneName, item.ConceptName, item.TaskToPerform))
		}
		notification.Title = fmt.Sprintf("Revisión trimestral %s: %d elementos críticos", assignment.CenterName, len(criticals))
		notification.Message = fmt.Sprintf(
			"El centro %s ha cerrado su revisión con %d elementos críticos. Plazo de reparación: %s.\n%s",
			assignment.CenterName, len(criticals), deadline.Format("2006-01-02"), strings.Join(lines, "\n"))
	} else {
		notification.Title = fmt.Sprintf("Revisión trimestral %s completada sin incidencias", assignment.CenterName)
		notification.Message = fmt.Sprintf("El centro %s ha cerrado su revisión trimestral sin elementos críticos.", assignment.CenterName)
	}

	if err := models.CreateNotification(ctx, tx, &notification); err != nil {
		config.LogError(logger, "reviewWorkflow.go", "processAssignmentCompleted", "director notification", assignment.ID, err)
		return err
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":          "ReviewWorkflow",
			"center_id":      assignment.CenterId,
			"assignment_id":  assignment.ID,
			"critical_items": len(criticals),
			"correlation_id": m.CorrelationId,
		}).Info("assignment completion fan-out done")
	}
	return nil
}
