package models_test

import (
	"testing"

	"bitbucket.org/gymfocus/maintenance_backend/models"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name     string
		bien     int
		regular  int
		mal      int
		expected int
	}{
		{"empty set", 0, 0, 0, 0},
		{"all bien", 5, 0, 0, 100},
		{"all regular", 0, 3, 0, 60},
		{"all mal", 0, 0, 7, 20},
		{"mixed 2/1/1", 2, 1, 1, 70},
		{"single mal dominated", 9, 0, 1, 92},
		{"rounds to nearest", 1, 0, 2, 47},
	}
	for _, tc := range cases {
		if got := models.Score(tc.bien, tc.regular, tc.mal); got != tc.expected {
			t.Errorf("%s: Score(%d,%d,%d) = %d, expected %d",
				tc.name, tc.bien, tc.regular, tc.mal, got, tc.expected)
		}
	}
}

func TestScoreStaysInBounds(t *testing.T) {
	for bien := 0; bien <= 10; bien++ {
		for regular := 0; regular <= 10; regular++ {
			for mal := 0; mal <= 10; mal++ {
				got := models.Score(bien, regular, mal)
				if got < 0 || got > 100 {
					t.Fatalf("Score(%d,%d,%d) = %d out of [0,100]", bien, regular, mal, got)
				}
				if bien+regular+mal > 0 && got < 20 {
					t.Fatalf("Score(%d,%d,%d) = %d below the all-mal floor", bien, regular, mal, got)
				}
			}
		}
	}
}

func TestPreviewScoreUsesLegacyRegularWeight(t *testing.T) {
	t.Setenv("SCORE_PREVIEW_CANONICAL", "")
	// 0/2/0: legacy preview weighs regular at 50, persisted score at 60.
	if got := models.PreviewScore(0, 2, 0); got != 50 {
		t.Fatalf("PreviewScore(0,2,0) = %d, expected 50", got)
	}
	if got := models.Score(0, 2, 0); got != 60 {
		t.Fatalf("Score(0,2,0) = %d, expected 60", got)
	}
}

func TestPreviewScoreCanonicalFlag(t *testing.T) {
	t.Setenv("SCORE_PREVIEW_CANONICAL", "true")
	if got, want := models.PreviewScore(0, 2, 0), models.Score(0, 2, 0); got != want {
		t.Fatalf("canonical PreviewScore(0,2,0) = %d, expected %d", got, want)
	}
}

func TestCountItemStatusesIsTotal(t *testing.T) {
	statuses := []models.ItemStatus{
		models.ItemStatusBien,
		models.ItemStatusRegular,
		models.ItemStatusMal,
		models.ItemStatusBien,
		models.ItemStatus("garbage"), // unknown values count as bien, never dropped
	}
	c := models.CountItemStatuses(statuses)
	if c.Total != len(statuses) {
		t.Fatalf("Total = %d, expected %d", c.Total, len(statuses))
	}
	if c.Bien+c.Regular+c.Mal != c.Total {
		t.Fatalf("buckets %d+%d+%d do not add up to total %d", c.Bien, c.Regular, c.Mal, c.Total)
	}
	if c.Regular != 1 || c.Mal != 1 {
		t.Fatalf("unexpected breakdown: %+v", c)
	}
	if got := c.Score(); got != models.Score(c.Bien, c.Regular, c.Mal) {
		t.Fatalf("ItemStatusCounts.Score mismatch: %d", got)
	}
}
