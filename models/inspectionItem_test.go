package models_test

import (
	"testing"

	"bitbucket.org/gymfocus/maintenance_backend/models"
)

func TestApplyItemRules(t *testing.T) {
	cases := []struct {
		name                   string
		item                   models.InspectionItem
		photosRequired         bool
		canCloseTask           bool
		isCriticalForChecklist bool
	}{
		{
			name:           "bien needs nothing",
			item:           models.InspectionItem{CurrentStatus: models.ItemStatusBien, TaskStatus: models.TaskStatusPendiente},
			photosRequired: false,
			canCloseTask:   false,
		},
		{
			name:           "regular without photos cannot close",
			item:           models.InspectionItem{CurrentStatus: models.ItemStatusRegular, TaskStatus: models.TaskStatusPendiente},
			photosRequired: true,
			canCloseTask:   false,
		},
		{
			name: "regular with deterioration photo can close",
			item: models.InspectionItem{
				CurrentStatus:   models.ItemStatusRegular,
				TaskStatus:      models.TaskStatusPendiente,
				PhotosDeterioro: models.StringArray{"https://storage/photo1.jpg"},
			},
			photosRequired: true,
			canCloseTask:   true,
		},
		{
			name: "mal is critical for checklist",
			item: models.InspectionItem{
				CurrentStatus:   models.ItemStatusMal,
				TaskStatus:      models.TaskStatusEnProgreso,
				PhotosDeterioro: models.StringArray{"https://storage/photo1.jpg"},
			},
			photosRequired:         true,
			canCloseTask:           true,
			isCriticalForChecklist: true,
		},
		{
			name: "repair photo closes even a bien item",
			item: models.InspectionItem{
				CurrentStatus:    models.ItemStatusBien,
				TaskStatus:       models.TaskStatusPendiente,
				PhotosReparacion: models.StringArray{"https://storage/fixed.jpg"},
			},
			photosRequired: false,
			canCloseTask:   true,
		},
		{
			name:           "completed task stays closable",
			item:           models.InspectionItem{CurrentStatus: models.ItemStatusRegular, TaskStatus: models.TaskStatusCompletada},
			photosRequired: true,
			canCloseTask:   true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := tc.item
			item.ApplyItemRules()
			if item.PhotosRequired != tc.photosRequired {
				t.Errorf("PhotosRequired = %v, expected %v", item.PhotosRequired, tc.photosRequired)
			}
			if item.CanCloseTask != tc.canCloseTask {
				t.Errorf("CanCloseTask = %v, expected %v", item.CanCloseTask, tc.canCloseTask)
			}
			if item.IsCriticalForChecklist != tc.isCriticalForChecklist {
				t.Errorf("IsCriticalForChecklist = %v, expected %v", item.IsCriticalForChecklist, tc.isCriticalForChecklist)
			}
		})
	}
}

func TestStringArrayRoundTrip(t *testing.T) {
	var a models.StringArray
	v, err := a.Value()
	if err != nil {
		t.Fatalf("Value on nil: %v", err)
	}
	if v != "[]" {
		t.Fatalf("nil array must serialize as [], got %v", v)
	}

	var out models.StringArray
	if err := out.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(out) != 2 || out[0] != "a" || out[1] != "b" {
		t.Fatalf("unexpected scan result: %v", out)
	}
}
