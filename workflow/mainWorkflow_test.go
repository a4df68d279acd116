package workflow

import (
	"testing"

	"bitbucket.org/gymfocus/maintenance_backend/models"
)

func TestHandlerNameFor(t *testing.T) {
	if got := handlerNameFor(models.OutboxEventInspectionCompleted); got != "inspection_completed" {
		t.Fatalf("IC handler = %q", got)
	}
	if got := handlerNameFor(models.OutboxEventAssignmentCompleted); got != "assignment_completed" {
		t.Fatalf("AC handler = %q", got)
	}
	// Unknown types pass through so the key stays unique instead of colliding
	// on a shared fallback name.
	if got := handlerNameFor(models.OutboxEventType("XX")); got != "XX" {
		t.Fatalf("unknown handler = %q", got)
	}
}

func TestMessageIdFor(t *testing.T) {
	withRow := models.OutboxMessage{ID: 42, EventType: models.OutboxEventInspectionCompleted, ReferenceId: 7}
	if got := messageIdFor(withRow); got != "outbox-42" {
		t.Fatalf("messageIdFor with row = %q", got)
	}
	synthetic := models.OutboxMessage{EventType: models.OutboxEventAssignmentCompleted, ReferenceId: 7}
	if got := messageIdFor(synthetic); got != "AC-7" {
		t.Fatalf("messageIdFor synthetic = %q", got)
	}
	// Same reference under different event types must never share a key.
	other := models.OutboxMessage{EventType: models.OutboxEventInspectionCompleted, ReferenceId: 7}
	if messageIdFor(synthetic) == messageIdFor(other) {
		t.Fatalf("event types collide on message id")
	}
}
