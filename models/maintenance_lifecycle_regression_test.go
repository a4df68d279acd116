package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
	"bitbucket.org/gymfocus/maintenance_backend/utils"
	"bitbucket.org/gymfocus/maintenance_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func TestInspectionLifecycleEndToEnd(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	db := config.GetDB()
	logger := logrus.New()

	const centerId = "center-norte"
	ctx = utils.SetCenterIdInContext(ctx, centerId)

	if !models.NeedsInspection(ctx, centerId) {
		t.Fatalf("fresh center must need an inspection")
	}

	// Start is find-or-create on (center, month): a double tap from two tablets
	// must return the same inspection.
	start := &models.NewInspectionStart{
		CenterId:      centerId,
		CenterName:    "Centro Norte",
		InspectorName: "Ana",
	}
	id1, err := models.StartInspection(ctx, start)
	if err != nil {
		t.Fatalf("StartInspection: %v", err)
	}
	id2, err := models.StartInspection(ctx, start)
	if err != nil {
		t.Fatalf("StartInspection (second): %v", err)
	}
	if id1 != id2 {
		t.Fatalf("start is not idempotent: got ids %d and %d", id1, id2)
	}

	// The item set is seeded as the full catalog cross product.
	wantItems := len(models.CrossProductFromZones(models.DefaultCatalogZones()))
	var items []models.InspectionItem
	if err := db.WithContext(ctx).Where("inspection_id = ?", id1).Order("zone_id, concept_id").Find(&items).Error; err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(items) != wantItems {
		t.Fatalf("seeded %d items, expected %d", len(items), wantItems)
	}

	// Flag two items: one mal (critical), one regular.
	mal := models.ItemStatusMal
	regular := models.ItemStatusRegular
	task := "Sustituir pieza"
	photos := []string{"https://storage/deterioro1.jpg"}
	if _, err := models.UpdateInspectionItemProgress(ctx, items[0].ID, &models.ItemProgressInput{
		Status:          &mal,
		TaskToPerform:   &task,
		PhotosDeterioro: &photos,
	}); err != nil {
		t.Fatalf("update item to mal: %v", err)
	}
	if _, err := models.UpdateInspectionItemProgress(ctx, items[1].ID, &models.ItemProgressInput{
		Status: &regular,
	}); err != nil {
		t.Fatalf("update item to regular: %v", err)
	}

	summary := &models.InspectionSummary{
		TotalItems:   wantItems,
		ItemsOk:      wantItems - 2,
		ItemsRegular: 1,
		ItemsBad:     1,
		OverallScore: models.Score(wantItems-2, 1, 1),
	}
	if err := models.CompleteInspection(ctx, id1, summary); err != nil {
		t.Fatalf("CompleteInspection: %v", err)
	}
	if err := models.CompleteInspection(ctx, id1, summary); err == nil {
		t.Fatalf("completing twice must fail")
	}
	if models.NeedsInspection(ctx, centerId) {
		t.Fatalf("completed center must not need an inspection this month")
	}

	// Closed inspections reject item edits.
	if _, err := models.UpdateInspectionItemProgress(ctx, items[2].ID, &models.ItemProgressInput{Status: &regular}); err == nil {
		t.Fatalf("item update after completion must fail")
	}

	// Start after completion returns the closed inspection unchanged.
	id3, err := models.StartInspection(ctx, start)
	if err != nil {
		t.Fatalf("StartInspection after completion: %v", err)
	}
	if id3 != id1 {
		t.Fatalf("start after completion created a new inspection: %d", id3)
	}

	// The fan-out happens only when the outbox drains.
	assertCount(t, db.Model(&models.Alert{}).Where("inspection_id = ?", id1), 0, "alerts before drain")
	drainOutbox(t, ctx, logger)

	assertCount(t, db.Model(&models.Alert{}).Where("inspection_id = ?", id1), 1, "alerts")
	assertCount(t, db.Model(&models.ChecklistEntry{}).Where("inspection_id = ?", id1), 1, "checklist entries")
	assertCount(t, db.Model(&models.Notification{}).
		Where("reference_type = ? AND reference_id = ?", models.NotificationRefInspection, id1), 1, "director notifications")

	// The director summary names the center and who inspected it.
	var directorNote models.Notification
	if err := db.Where("reference_type = ? AND reference_id = ?",
		models.NotificationRefInspection, id1).First(&directorNote).Error; err != nil {
		t.Fatalf("load director notification: %v", err)
	}
	if !strings.Contains(directorNote.Message, "Centro Norte") ||
		!strings.Contains(directorNote.Message, "Ana") {
		t.Fatalf("director summary must name center and inspector: %s", directorNote.Message)
	}

	var entry models.ChecklistEntry
	if err := db.Where("inspection_id = ?", id1).First(&entry).Error; err != nil {
		t.Fatalf("load checklist entry: %v", err)
	}
	if entry.Priority != models.TaskPriorityAlta || !entry.PhotoRequired {
		t.Fatalf("checklist entry must be alta with photo required, got %+v", entry)
	}

	// Replaying the drained records must not duplicate anything.
	replayOutbox(t, ctx, logger)
	assertCount(t, db.Model(&models.Alert{}).Where("inspection_id = ?", id1), 1, "alerts after replay")
	assertCount(t, db.Model(&models.ChecklistEntry{}).Where("inspection_id = ?", id1), 1, "checklist entries after replay")
	assertCount(t, db.Model(&models.Notification{}).
		Where("reference_type = ? AND reference_id = ?", models.NotificationRefInspection, id1), 1, "notifications after replay")

	// Acknowledge the alert; the second ack is a no-op.
	var alert models.Alert
	if err := db.Where("inspection_id = ?", id1).First(&alert).Error; err != nil {
		t.Fatalf("load alert: %v", err)
	}
	acked, err := models.AcknowledgeAlert(ctx, alert.ID, "Ana")
	if err != nil {
		t.Fatalf("AcknowledgeAlert: %v", err)
	}
	if acked.AcknowledgedAt == nil || acked.AcknowledgedBy != "Ana" {
		t.Fatalf("alert not acknowledged: %+v", acked)
	}
	again, err := models.AcknowledgeAlert(ctx, alert.ID, "Otro")
	if err != nil {
		t.Fatalf("AcknowledgeAlert (second): %v", err)
	}
	if again.AcknowledgedBy != "Ana" {
		t.Fatalf("second ack must not overwrite the first, got %q", again.AcknowledgedBy)
	}
}

func TestBulkCreateInspectionScoreAndFanOut(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	db := config.GetDB()
	logger := logrus.New()

	inspection, err := models.CreateInspection(ctx, &models.NewInspectionBulk{
		CenterId:      "center-sur",
		CenterName:    "Centro Sur",
		InspectorName: "Luis",
		Items: []models.NewInspectionBulkItem{
			{ZoneId: 1, ZoneName: "Vestuarios", ConceptId: 101, ConceptName: "Duchas", Status: models.ItemStatusBien},
			{ZoneId: 1, ZoneName: "Vestuarios", ConceptId: 102, ConceptName: "Bancos", Status: models.ItemStatusBien},
			{ZoneId: 2, ZoneName: "Musculación", ConceptId: 201, ConceptName: "Poleas", Status: models.ItemStatusRegular},
			{ZoneId: 2, ZoneName: "Musculación", ConceptId: 202, ConceptName: "Tapizados", Status: models.ItemStatusMal,
				TaskToPerform: "Cambiar tapizado"},
		},
	})
	if err != nil {
		t.Fatalf("CreateInspection: %v", err)
	}
	if inspection.OverallScore != 70 {
		t.Fatalf("2 bien + 1 regular + 1 mal must score 70, got %d", inspection.OverallScore)
	}
	if inspection.CurrentStatus != models.InspectionStatusCompleted {
		t.Fatalf("bulk create must land completed, got %s", inspection.CurrentStatus)
	}

	drainOutbox(t, ctx, logger)
	assertCount(t, db.Model(&models.Alert{}).Where("inspection_id = ?", inspection.ID), 1, "alerts")
	assertCount(t, db.Model(&models.ChecklistEntry{}).Where("inspection_id = ?", inspection.ID), 1, "checklist entries")

	// A failed items insert rolls the whole create back: the duplicated natural
	// key violates the item unique index and no inspection row survives.
	before := countRows(t, db.Model(&models.Inspection{}))
	_, err = models.CreateInspection(ctx, &models.NewInspectionBulk{
		CenterId:      "center-este",
		CenterName:    "Centro Este",
		InspectorName: "Eva",
		Items: []models.NewInspectionBulkItem{
			{ZoneId: 1, ConceptId: 101, Status: models.ItemStatusBien},
			{ZoneId: 1, ConceptId: 101, Status: models.ItemStatusMal},
		},
	})
	if err == nil {
		t.Fatalf("duplicate natural key must fail the bulk create")
	}
	assertCount(t, db.Model(&models.Inspection{}), before, "inspections after rolled-back create")
	assertCount(t, db.Model(&models.Inspection{}).Where("center_id = ?", "center-este"), 0, "orphan inspections")
}

func countRows(t *testing.T, q *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestQuarterlyReviewLifecycle(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	db := config.GetDB()
	logger := logrus.New()

	centers := []models.CenterRef{
		{Id: "center-a", Name: "Centro A"},
		{Id: "center-b", Name: "Centro B"},
	}
	review, err := models.CreateReview(ctx, &models.NewQuarterlyReview{
		Quarter:      "Q3",
		Year:         2026,
		DeadlineDate: time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		CreatedBy:    "Directora",
		Centers:      centers,
	})
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}

	if err := models.ActivateReview(ctx, review.ID, centers, map[string]string{
		"center-a": "encargado.a@gymfocus.es",
	}); err != nil {
		t.Fatalf("ActivateReview: %v", err)
	}

	loaded, err := models.GetQuarterlyReview(ctx, review.ID)
	if err != nil {
		t.Fatalf("GetQuarterlyReview: %v", err)
	}
	if loaded.CurrentStatus != models.ReviewStatusActive || len(loaded.Assignments) != 2 {
		t.Fatalf("expected active review with 2 assignments, got %s with %d", loaded.CurrentStatus, len(loaded.Assignments))
	}
	// Only the center with an assignee got the assignment notification.
	assertCount(t, db.Model(&models.Notification{}).
		Where("reference_type = ?", models.NotificationRefAssignment), 1, "assignee notifications")

	// Re-activating resolves existing assignments as already assigned: no
	// duplicate rows, no second notification.
	if err := models.ActivateReview(ctx, review.ID, append(centers, centers[0]), map[string]string{
		"center-a": "encargado.a@gymfocus.es",
	}); err != nil {
		t.Fatalf("ActivateReview (second): %v", err)
	}
	assertCount(t, db.Model(&models.Assignment{}).Where("review_id = ?", review.ID), 2, "assignments after re-activation")
	assertCount(t, db.Model(&models.Notification{}).
		Where("reference_type = ?", models.NotificationRefAssignment), 1, "assignee notifications after re-activation")

	var withCritical, clean models.Assignment
	for _, a := range loaded.Assignments {
		switch a.CenterId {
		case "center-a":
			withCritical = a
		case "center-b":
			clean = a
		}
	}

	// Center A reports one critical item, center B closes clean.
	if _, err := models.SaveReviewItems(ctx, withCritical.ID, []models.NewQuarterlyItem{
		{ZoneId: 4, ZoneName: "Piscina", ConceptId: 401, ConceptName: "Rejillas",
			Status: models.ItemStatusMal, TaskToPerform: "Sustituir rejilla rota"},
		{ZoneId: 4, ZoneName: "Piscina", ConceptId: 402, ConceptName: "Escaleras",
			Status: models.ItemStatusBien},
	}); err != nil {
		t.Fatalf("SaveReviewItems: %v", err)
	}
	// Saving again with an upgraded status upserts by natural key, no duplicates.
	if _, err := models.SaveReviewItems(ctx, withCritical.ID, []models.NewQuarterlyItem{
		{ZoneId: 4, ZoneName: "Piscina", ConceptId: 402, ConceptName: "Escaleras",
			Status: models.ItemStatusRegular},
	}); err != nil {
		t.Fatalf("SaveReviewItems (upsert): %v", err)
	}
	assertCount(t, db.Model(&models.QuarterlyItem{}).Where("assignment_id = ?", withCritical.ID), 2, "quarterly items")

	if _, err := models.CompleteAssignment(ctx, withCritical.ID, "Encargado A"); err != nil {
		t.Fatalf("CompleteAssignment (critical): %v", err)
	}
	if _, err := models.CompleteAssignment(ctx, clean.ID, "Encargado B"); err != nil {
		t.Fatalf("CompleteAssignment (clean): %v", err)
	}

	completed, err := models.CountCompletedAssignments(ctx, review.ID)
	if err != nil {
		t.Fatalf("CountCompletedAssignments: %v", err)
	}
	if completed != 2 {
		t.Fatalf("completed count = %d, expected 2", completed)
	}

	drainOutbox(t, ctx, logger)

	var criticalNote models.Notification
	if err := db.Where("reference_type = ? AND reference_id = ?",
		models.NotificationRefAssignment, withCritical.ID).First(&criticalNote).Error; err != nil {
		t.Fatalf("load critical notification: %v", err)
	}
	if !strings.Contains(criticalNote.Title, "críticos") || !strings.Contains(criticalNote.Message, "Rejillas") {
		t.Fatalf("critical variant missing findings: %+v", criticalNote)
	}
	if !strings.Contains(criticalNote.Message, "Plazo de reparación") {
		t.Fatalf("critical variant missing remediation deadline: %s", criticalNote.Message)
	}

	var cleanNote models.Notification
	if err := db.Where("reference_type = ? AND reference_id = ?",
		models.NotificationRefAssignment, clean.ID).First(&cleanNote).Error; err != nil {
		t.Fatalf("load clean notification: %v", err)
	}
	if !strings.Contains(cleanNote.Title, "sin incidencias") {
		t.Fatalf("clean variant has wrong title: %s", cleanNote.Title)
	}

	// Recreating the quarter discards the old campaign entirely.
	recreated, err := models.CreateReview(ctx, &models.NewQuarterlyReview{
		Quarter:      "Q3",
		Year:         2026,
		DeadlineDate: time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
		CreatedBy:    "Directora",
		Centers:      centers[:1],
	})
	if err != nil {
		t.Fatalf("CreateReview (recreate): %v", err)
	}
	if recreated.ID == review.ID {
		t.Fatalf("recreate must produce a fresh row")
	}
	assertCount(t, db.Model(&models.QuarterlyReview{}).Where("quarter = ? AND year = ?", "Q3", 2026), 1, "reviews per quarter")
	assertCount(t, db.Model(&models.Assignment{}).Where("review_id = ?", review.ID), 0, "old assignments")
	assertCount(t, db.Model(&models.QuarterlyItem{}).Where("assignment_id = ?", withCritical.ID), 0, "old quarterly items")
}

func TestTerminalFailureLeavesFailedVerdict(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	db := config.GetDB()

	// Every attempt of a failing handler rolls its STARTED key back, so the
	// terminal verdict must land even when no key row survived.
	m := models.OutboxMessage{
		EventType:   models.OutboxEventInspectionCompleted,
		ReferenceId: 999,
		CenterId:    "center-dead",
	}
	workflow.RecordTerminalFailure(ctx, m, fmt.Errorf("fan-out kept failing"))

	var key models.IdempotencyKey
	if err := db.Where("handler_name = ? AND message_id = ?",
		"inspection_completed", "IC-999").First(&key).Error; err != nil {
		t.Fatalf("load idempotency key: %v", err)
	}
	if key.Status != models.IdempotencyStatusFailed {
		t.Fatalf("key status = %s, expected FAILED", key.Status)
	}
	if key.LastError == nil || !strings.Contains(*key.LastError, "fan-out kept failing") {
		t.Fatalf("key must carry the cause, got %+v", key.LastError)
	}
	if key.CenterId != "center-dead" {
		t.Fatalf("key center = %q", key.CenterId)
	}

	// A second verdict upserts onto the same row.
	workflow.RecordTerminalFailure(ctx, m, fmt.Errorf("still failing"))
	assertCount(t, db.Model(&models.IdempotencyKey{}).
		Where("handler_name = ? AND message_id = ?", "inspection_completed", "IC-999"), 1, "failed keys")
}

// drainOutbox processes every unprocessed record the way the background worker
// does, failing the test on any handler error.
func drainOutbox(t *testing.T, ctx context.Context, logger *logrus.Logger) {
	t.Helper()
	db := config.GetDB()
	var records []models.OutboxMessageRecord
	if err := db.WithContext(ctx).Where("is_processed = 0").Order("id ASC").Find(&records).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(records) == 0 {
		t.Fatalf("expected pending outbox records")
	}
	for _, rec := range records {
		if err := workflow.ProcessMessage(ctx, logger, models.ConvertToOutboxMessage(rec)); err != nil {
			t.Fatalf("ProcessMessage(record %d): %v", rec.ID, err)
		}
	}
}

// replayOutbox re-runs every record, processed or not; idempotency keys must
// absorb the duplicates.
func replayOutbox(t *testing.T, ctx context.Context, logger *logrus.Logger) {
	t.Helper()
	db := config.GetDB()
	var records []models.OutboxMessageRecord
	if err := db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	for _, rec := range records {
		if err := workflow.ProcessMessage(ctx, logger, models.ConvertToOutboxMessage(rec)); err != nil {
			t.Fatalf("ProcessMessage replay(record %d): %v", rec.ID, err)
		}
	}
}

func assertCount(t *testing.T, q *gorm.DB, want int64, what string) {
	t.Helper()
	var got int64
	if err := q.Count(&got).Error; err != nil {
		t.Fatalf("count %s: %v", what, err)
	}
	if got != want {
		t.Fatalf("%s = %d, expected %d", what, got, want)
	}
}

// setupIntegrationEnv spins up throwaway MySQL and Redis containers, connects
// the config singletons, migrates and seeds. Skipped unless INTEGRATION_TESTS
// is set.
func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "maintenance_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
	if err := models.SeedCatalog(config.GetDB()); err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
	models.InvalidateCatalogCache()

	ctx := context.Background()
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUserEmailInContext(ctx, "test@local")
	ctx = utils.SetCorrelationIdInContext(ctx, "test-correlation")
	return ctx
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("maintenance-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("maintenance-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=maintenance_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
