package models

// ItemStatus is the result of checking one concept during an inspection.
// Wire values stay in Spanish to match the forms the encargados fill in.
type ItemStatus string

const (
	ItemStatusBien    ItemStatus = "bien"
	ItemStatusRegular ItemStatus = "regular"
	ItemStatusMal     ItemStatus = "mal"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusBien, ItemStatusRegular, ItemStatusMal:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityBaja    TaskPriority = "baja"
	TaskPriorityMedia   TaskPriority = "media"
	TaskPriorityAlta    TaskPriority = "alta"
	TaskPriorityCritica TaskPriority = "critica"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityBaja, TaskPriorityMedia, TaskPriorityAlta, TaskPriorityCritica:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskStatusPendiente  TaskStatus = "pendiente"
	TaskStatusEnProgreso TaskStatus = "en_progreso"
	TaskStatusCompletada TaskStatus = "completada"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPendiente, TaskStatusEnProgreso, TaskStatusCompletada:
		return true
	}
	return false
}

type InspectionStatus string

const (
	InspectionStatusInProgress InspectionStatus = "in_progress"
	InspectionStatusCompleted  InspectionStatus = "completed"
	// Reviewed is set by the director's review flow outside this engine;
	// the lifecycle here never transitions into it.
	InspectionStatusReviewed InspectionStatus = "reviewed"
)

// Closed reports whether the inspection is immutable for the engine.
func (s InspectionStatus) Closed() bool {
	return s == InspectionStatusCompleted || s == InspectionStatusReviewed
}

type ReviewStatus string

const (
	ReviewStatusDraft     ReviewStatus = "draft"
	ReviewStatusActive    ReviewStatus = "active"
	ReviewStatusCompleted ReviewStatus = "completed"
	ReviewStatusCancelled ReviewStatus = "cancelled"
)

type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
)

// ScheduleStatus is the derived per-center classification produced by the
// schedule projector. "overdue" is display-only and never persisted.
type ScheduleStatus string

const (
	ScheduleStatusPending    ScheduleStatus = "pending"
	ScheduleStatusInProgress ScheduleStatus = "in_progress"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusOverdue    ScheduleStatus = "overdue"
)

type PhotoKind string

const (
	PhotoKindDeterioro  PhotoKind = "deterioro"
	PhotoKindReparacion PhotoKind = "reparacion"
)

func (k PhotoKind) Valid() bool {
	return k == PhotoKindDeterioro || k == PhotoKindReparacion
}

// OutboxEventType identifies which fan-out a record drives.
type OutboxEventType string

const (
	// Completed inspection: critical alerts + checklist entries + director summary.
	OutboxEventInspectionCompleted OutboxEventType = "IC"
	// Completed review assignment: one director notification (critical or clean variant).
	OutboxEventAssignmentCompleted OutboxEventType = "AC"
)

type OutboxProcessStatus string

const (
	OutboxProcessStatusPending    OutboxProcessStatus = "PENDING"
	OutboxProcessStatusProcessing OutboxProcessStatus = "PROCESSING"
	OutboxProcessStatusSucceeded  OutboxProcessStatus = "SUCCEEDED"
	OutboxProcessStatusFailed     OutboxProcessStatus = "FAILED"
	OutboxProcessStatusDead       OutboxProcessStatus = "DEAD"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

type NotificationRefType string

const (
	NotificationRefInspection NotificationRefType = "inspection"
	NotificationRefReview     NotificationRefType = "review"
	NotificationRefAssignment NotificationRefType = "assignment"
)
