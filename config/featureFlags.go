package config

import (
	"os"
	"strings"
)

// ChecklistIntegrationEnabled controls whether completed inspections push
// critical items into the cross-system operations checklist.
//
// Set via env:
// - MAINTENANCE_CHECKLIST_INTEGRATION=false to disable
func ChecklistIntegrationEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("MAINTENANCE_CHECKLIST_INTEGRATION")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// NotificationsEnabled controls stakeholder notification creation. Rows are
// still the durable record; this only gates whether new ones are created.
//
// Set via env:
// - MAINTENANCE_NOTIFICATIONS=false to disable
func NotificationsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("MAINTENANCE_NOTIFICATIONS")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// CanonicalPreviewScoring switches the live-preview score to the canonical
// regular-weight (60) instead of the legacy preview weight (50) that the old
// frontend shipped with. The persisted/completion path always uses 60.
//
// Set via env:
// - SCORE_PREVIEW_CANONICAL=true
func CanonicalPreviewScoring() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SCORE_PREVIEW_CANONICAL")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
