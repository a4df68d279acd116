package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"gorm.io/gorm"
)

// StringArray stores a photo URL list as a JSON column.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported type for StringArray: %T", value)
	}
}

// InspectionItem is one zone×concept cell of an inspection. The natural key
// (inspection_id, zone_id, concept_id) is unique: the item set is exactly the
// catalog cross product, never more, never fewer.
type InspectionItem struct {
	ID           int        `gorm:"primary_key" json:"id"`
	InspectionId int        `gorm:"not null;uniqueIndex:idx_item_natural,priority:1" json:"inspection_id"`
	ZoneId       int        `gorm:"not null;uniqueIndex:idx_item_natural,priority:2" json:"zone_id"`
	ZoneName     string     `gorm:"size:255" json:"zone_name"`
	ConceptId    int        `gorm:"not null;uniqueIndex:idx_item_natural,priority:3" json:"concept_id"`
	ConceptName  string     `gorm:"size:255" json:"concept_name"`
	CurrentStatus ItemStatus `gorm:"type:enum('bien','regular','mal');not null;default:'bien'" json:"status"`

	Observations  string       `gorm:"type:text" json:"observations"`
	TaskToPerform string       `gorm:"type:text" json:"task_to_perform"`
	TaskPriority  TaskPriority `gorm:"type:enum('baja','media','alta','critica');not null;default:'media'" json:"task_priority"`
	TaskStatus    TaskStatus   `gorm:"type:enum('pendiente','en_progreso','completada');not null;default:'pendiente'" json:"task_status"`
	TaskCompletedAt *time.Time `json:"task_completed_at"`

	PhotosDeterioro  StringArray `gorm:"type:json" json:"photos_deterioro"`
	PhotosReparacion StringArray `gorm:"type:json" json:"photos_reparacion"`

	// Derived flags, recomputed on every status/photo/task change.
	PhotosRequired         bool `gorm:"not null;default:false" json:"photos_required"`
	CanCloseTask           bool `gorm:"not null;default:false" json:"can_close_task"`
	IsCriticalForChecklist bool `gorm:"not null;default:false" json:"is_critical_for_checklist"`

	BeniNotified bool `gorm:"not null;default:false" json:"beni_notified"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ApplyItemRules recomputes the derived flags from the primary fields:
//   - photos_required          <=> status != bien
//   - is_critical_for_checklist <=> status == mal
//   - can_close_task: a deterioration photo exists for a non-bien item, or a
//     repair photo exists, or the task is already completada.
func (item *InspectionItem) ApplyItemRules() {
	item.PhotosRequired = item.CurrentStatus != ItemStatusBien
	item.IsCriticalForChecklist = item.CurrentStatus == ItemStatusMal
	item.CanCloseTask = (item.CurrentStatus != ItemStatusBien && len(item.PhotosDeterioro) > 0) ||
		len(item.PhotosReparacion) > 0 ||
		item.TaskStatus == TaskStatusCompletada
}

// newItemsFromCatalog builds the seed item set for one inspection.
// Fresh items start as bien with no task.
func newItemsFromCatalog(inspectionId int, entries []CatalogEntry) []InspectionItem {
	items := make([]InspectionItem, 0, len(entries))
	for _, e := range entries {
		item := InspectionItem{
			InspectionId:     inspectionId,
			ZoneId:           e.ZoneId,
			ZoneName:         e.ZoneName,
			ConceptId:        e.ConceptId,
			ConceptName:      e.ConceptName,
			CurrentStatus:    ItemStatusBien,
			TaskPriority:     TaskPriorityMedia,
			TaskStatus:       TaskStatusPendiente,
			PhotosDeterioro:  StringArray{},
			PhotosReparacion: StringArray{},
		}
		item.ApplyItemRules()
		items = append(items, item)
	}
	return items
}

// ItemProgressInput is the fine-grained autosave payload. Nil pointer means
// "leave untouched".
type ItemProgressInput struct {
	Status           *ItemStatus   `json:"status"`
	Observations     *string       `json:"observations"`
	TaskToPerform    *string       `json:"task_to_perform"`
	TaskPriority     *TaskPriority `json:"task_priority"`
	TaskStatus       *TaskStatus   `json:"task_status"`
	PhotosDeterioro  *[]string     `json:"photos_deterioro"`
	PhotosReparacion *[]string     `json:"photos_reparacion"`
}

// UpdateInspectionItemProgress is the autosave path used while a manager works
// through zones: a direct field-level update of one item plus the derived-flag
// recompute. Closed inspections reject updates.
func UpdateInspectionItemProgress(ctx context.Context, itemId int, input *ItemProgressInput) (*InspectionItem, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	var item InspectionItem
	if err := db.WithContext(ctx).First(&item, itemId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("inspection item not found")
		}
		config.LogError(logger, "inspectionItem.go", "UpdateInspectionItemProgress", "fetch item", itemId, err)
		return nil, err
	}

	var inspection Inspection
	if err := db.WithContext(ctx).First(&inspection, item.InspectionId).Error; err != nil {
		config.LogError(logger, "inspectionItem.go", "UpdateInspectionItemProgress", "fetch inspection", item.InspectionId, err)
		return nil, err
	}
	if inspection.CurrentStatus.Closed() {
		return nil, errors.New("inspection is completed; items are immutable")
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, fmt.Errorf("invalid item status %q", *input.Status)
		}
		item.CurrentStatus = *input.Status
	}
	if input.Observations != nil {
		item.Observations = *input.Observations
	}
	if input.TaskToPerform != nil {
		item.TaskToPerform = *input.TaskToPerform
	}
	if input.TaskPriority != nil {
		if !input.TaskPriority.Valid() {
			return nil, fmt.Errorf("invalid task priority %q", *input.TaskPriority)
		}
		item.TaskPriority = *input.TaskPriority
	}
	if input.TaskStatus != nil {
		if !input.TaskStatus.Valid() {
			return nil, fmt.Errorf("invalid task status %q", *input.TaskStatus)
		}
		if *input.TaskStatus == TaskStatusCompletada && item.TaskStatus != TaskStatusCompletada {
			now := time.Now().UTC()
			item.TaskCompletedAt = &now
		}
		item.TaskStatus = *input.TaskStatus
	}
	if input.PhotosDeterioro != nil {
		item.PhotosDeterioro = StringArray(*input.PhotosDeterioro)
	}
	if input.PhotosReparacion != nil {
		item.PhotosReparacion = StringArray(*input.PhotosReparacion)
	}

	item.ApplyItemRules()

	if err := db.WithContext(ctx).Save(&item).Error; err != nil {
		config.LogError(logger, "inspectionItem.go", "UpdateInspectionItemProgress", "save item", item.ID, err)
		return nil, err
	}
	return &item, nil
}

// AppendItemPhoto attaches one uploaded photo URL and recomputes the
// close-task flag. Used by the upload endpoint after the blob write succeeds.
func AppendItemPhoto(ctx context.Context, itemId int, kind PhotoKind, url string) (*InspectionItem, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid photo kind %q", kind)
	}
	db := config.GetDB()

	var item InspectionItem
	if err := db.WithContext(ctx).First(&item, itemId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("inspection item not found")
		}
		return nil, err
	}

	if kind == PhotoKindDeterioro {
		item.PhotosDeterioro = append(item.PhotosDeterioro, url)
	} else {
		item.PhotosReparacion = append(item.PhotosReparacion, url)
	}
	item.ApplyItemRules()

	if err := db.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}
