package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"gorm.io/gorm"
)

// Alert is created for every item found "mal" when an inspection completes.
// Acknowledge-only after creation.
type Alert struct {
	ID               int    `gorm:"primary_key" json:"id"`
	InspectionId     int    `gorm:"index;not null" json:"inspection_id"`
	InspectionItemId int    `gorm:"index;not null" json:"inspection_item_id"`
	CenterId         string `gorm:"size:64;index;not null" json:"center_id"`
	CenterName       string `gorm:"size:255" json:"center_name"`
	ZoneName         string `gorm:"size:255" json:"zone_name"`
	ConceptName      string `gorm:"size:255" json:"concept_name"`
	Message          string `gorm:"type:text" json:"message"`

	AcknowledgedAt *time.Time `json:"acknowledged_at"`
	AcknowledgedBy string     `gorm:"size:255" json:"acknowledged_by"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreateCriticalAlerts inserts one alert per "mal" item of a completed
// inspection. Re-running for the same inspection is a no-op (the fan-out is
// at-least-once, so the processor may retry).
func CreateCriticalAlerts(tx *gorm.DB, inspection *Inspection, items []InspectionItem) (int, error) {
	var existing int64
	if err := tx.Model(&Alert{}).Where("inspection_id = ?", inspection.ID).Count(&existing).Error; err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	alerts := make([]Alert, 0)
	for _, item := range items {
		if item.CurrentStatus != ItemStatusMal {
			continue
		}
		alerts = append(alerts, Alert{
			InspectionId:     inspection.ID,
			InspectionItemId: item.ID,
			CenterId:         inspection.CenterId,
			CenterName:       inspection.CenterName,
			ZoneName:         item.ZoneName,
			ConceptName:      item.ConceptName,
			Message: fmt.Sprintf("Estado crítico en %s / %s (inspección %s)",
				item.ZoneName, item.ConceptName, inspection.Month),
		})
	}
	if len(alerts) == 0 {
		return 0, nil
	}
	if err := tx.Create(&alerts).Error; err != nil {
		return 0, err
	}
	return len(alerts), nil
}

// AcknowledgeAlert is the only mutation an alert supports.
func AcknowledgeAlert(ctx context.Context, alertId int, acknowledgedBy string) (*Alert, error) {
	db := config.GetDB()

	var alert Alert
	if err := db.WithContext(ctx).First(&alert, alertId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("alert not found")
		}
		return nil, err
	}
	if alert.AcknowledgedAt != nil {
		return &alert, nil
	}

	now := time.Now().UTC()
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = acknowledgedBy
	if err := db.WithContext(ctx).Save(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}
