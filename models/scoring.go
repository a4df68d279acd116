package models

import (
	"math"

	"bitbucket.org/gymfocus/maintenance_backend/config"
)

// Health-score weights per item status. 60 is the canonical regular-weight:
// it is the value persisted on inspections and reported in stats.
const (
	scoreWeightBien    = 100
	scoreWeightRegular = 60
	scoreWeightMal     = 20

	// The old frontend previewed with 50 while persisting with 60. Flagged to
	// product as a likely bug; kept behind PreviewScore until they decide.
	legacyPreviewWeightRegular = 50
)

// Score computes the 0-100 health score for an item multiset.
// Total; returns 0 for an empty set.
func Score(countBien, countRegular, countMal int) int {
	total := countBien + countRegular + countMal
	if total <= 0 {
		return 0
	}
	sum := scoreWeightBien*countBien + scoreWeightRegular*countRegular + scoreWeightMal*countMal
	return int(math.Round(float64(sum) / float64(total)))
}

// PreviewScore is the live-preview variant shown while a manager is still
// working through zones. It keeps the legacy regular-weight (50) unless
// SCORE_PREVIEW_CANONICAL is set; the persisted path always uses Score.
func PreviewScore(countBien, countRegular, countMal int) int {
	if config.CanonicalPreviewScoring() {
		return Score(countBien, countRegular, countMal)
	}
	total := countBien + countRegular + countMal
	if total <= 0 {
		return 0
	}
	sum := scoreWeightBien*countBien + legacyPreviewWeightRegular*countRegular + scoreWeightMal*countMal
	return int(math.Round(float64(sum) / float64(total)))
}

// ItemStatusCounts is the per-status breakdown persisted on an inspection.
type ItemStatusCounts struct {
	Total   int `json:"total"`
	Bien    int `json:"bien"`
	Regular int `json:"regular"`
	Mal     int `json:"mal"`
}

func CountItemStatuses(statuses []ItemStatus) ItemStatusCounts {
	var c ItemStatusCounts
	for _, s := range statuses {
		c.Total++
		switch s {
		case ItemStatusRegular:
			c.Regular++
		case ItemStatusMal:
			c.Mal++
		default:
			c.Bien++
		}
	}
	return c
}

func (c ItemStatusCounts) Score() int {
	return Score(c.Bien, c.Regular, c.Mal)
}
