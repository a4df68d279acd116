package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ChecklistEntry is the cross-system ticket pushed to the operations checklist
// so staff outside the maintenance module see critical findings. Always
// created with priority "alta" and a mandatory photo.
type ChecklistEntry struct {
	ID               int    `gorm:"primary_key" json:"id"`
	SourceType       string `gorm:"size:32;not null;default:'maintenance'" json:"source_type"`
	InspectionId     int    `gorm:"index;not null" json:"inspection_id"`
	InspectionItemId int    `gorm:"index;not null" json:"inspection_item_id"`
	CenterId         string `gorm:"size:64;index;not null" json:"center_id"`

	Title         string       `gorm:"size:255;not null" json:"title"`
	Description   string       `gorm:"type:text" json:"description"`
	Priority      TaskPriority `gorm:"type:enum('baja','media','alta','critica');not null;default:'alta'" json:"priority"`
	PhotoRequired bool         `gorm:"not null;default:true" json:"photo_required"`

	CurrentStatus TaskStatus `gorm:"type:enum('pendiente','en_progreso','completada');not null;default:'pendiente'" json:"status"`
	CompletedDate *time.Time `json:"completed_date"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IntegrateWithChecklist creates one checklist entry per item flagged
// is_critical_for_checklist. Idempotent per inspection for safe retries.
func IntegrateWithChecklist(tx *gorm.DB, inspection *Inspection, items []InspectionItem) (int, error) {
	var existing int64
	if err := tx.Model(&ChecklistEntry{}).Where("inspection_id = ?", inspection.ID).Count(&existing).Error; err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	entries := make([]ChecklistEntry, 0)
	for _, item := range items {
		if !item.IsCriticalForChecklist {
			continue
		}
		entries = append(entries, ChecklistEntry{
			SourceType:       "maintenance",
			InspectionId:     inspection.ID,
			InspectionItemId: item.ID,
			CenterId:         inspection.CenterId,
			Title:            fmt.Sprintf("Reparación urgente: %s / %s", item.ZoneName, item.ConceptName),
			Description:      item.TaskToPerform,
			Priority:         TaskPriorityAlta,
			PhotoRequired:    true,
			CurrentStatus:    TaskStatusPendiente,
		})
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := tx.Create(&entries).Error; err != nil {
		return 0, err
	}
	return len(entries), nil
}
