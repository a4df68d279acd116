package models_test

import (
	"testing"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/models"
)

func TestProjectSchedule(t *testing.T) {
	deadline := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	centers := []models.CenterRef{
		{Id: "c-done", Name: "Centro Norte"},
		{Id: "c-open", Name: "Centro Sur"},
		{Id: "c-missing", Name: "Centro Este"},
	}
	inspections := []models.Inspection{
		{ID: 11, CenterId: "c-done", CurrentStatus: models.InspectionStatusCompleted, OverallScore: 82},
		{ID: 12, CenterId: "c-open", CurrentStatus: models.InspectionStatusInProgress},
	}

	t.Run("before deadline", func(t *testing.T) {
		now := deadline.AddDate(0, 0, -10)
		rows := models.ProjectSchedule(now, centers, deadline, inspections)
		if len(rows) != len(centers) {
			t.Fatalf("expected one row per center, got %d", len(rows))
		}
		byCenter := map[string]models.ScheduleRow{}
		for _, r := range rows {
			byCenter[r.CenterId] = r
		}
		if got := byCenter["c-done"]; got.Status != models.ScheduleStatusCompleted {
			t.Fatalf("c-done status = %s", got.Status)
		}
		if got := byCenter["c-done"]; got.OverallScore == nil || *got.OverallScore != 82 {
			t.Fatalf("c-done must carry its score, got %+v", got.OverallScore)
		}
		if got := byCenter["c-open"]; got.Status != models.ScheduleStatusInProgress {
			t.Fatalf("c-open status = %s", got.Status)
		}
		if got := byCenter["c-open"]; got.OverallScore != nil {
			t.Fatalf("open inspection must not expose a score")
		}
		if got := byCenter["c-missing"]; got.Status != models.ScheduleStatusPending {
			t.Fatalf("c-missing status = %s before deadline", got.Status)
		}
	})

	t.Run("after deadline", func(t *testing.T) {
		now := deadline.AddDate(0, 0, 1)
		rows := models.ProjectSchedule(now, centers, deadline, inspections)
		byCenter := map[string]models.ScheduleRow{}
		for _, r := range rows {
			byCenter[r.CenterId] = r
		}
		// Existing inspections keep their classification; only centers with no
		// inspection flip to overdue.
		if got := byCenter["c-done"]; got.Status != models.ScheduleStatusCompleted {
			t.Fatalf("c-done status = %s after deadline", got.Status)
		}
		if got := byCenter["c-open"]; got.Status != models.ScheduleStatusInProgress {
			t.Fatalf("c-open status = %s after deadline", got.Status)
		}
		if got := byCenter["c-missing"]; got.Status != models.ScheduleStatusOverdue {
			t.Fatalf("c-missing status = %s after deadline", got.Status)
		}
	})

	t.Run("reviewed counts as completed", func(t *testing.T) {
		rows := models.ProjectSchedule(deadline, []models.CenterRef{{Id: "c", Name: "C"}}, deadline,
			[]models.Inspection{{ID: 1, CenterId: "c", CurrentStatus: models.InspectionStatusReviewed, OverallScore: 90}})
		if rows[0].Status != models.ScheduleStatusCompleted {
			t.Fatalf("reviewed inspection classified as %s", rows[0].Status)
		}
	})
}

func TestProjectScheduleEmptyCenters(t *testing.T) {
	rows := models.ProjectSchedule(time.Now(), nil, time.Now(), nil)
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}
