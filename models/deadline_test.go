package models_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/models"
)

// fakeDeadlineStore is an in-memory DeadlineStore for projection tests.
type fakeDeadlineStore struct {
	overrides map[string]time.Time
	err       error
}

func (s *fakeDeadlineStore) Get(ctx context.Context, quarter string, year int) (time.Time, bool, error) {
	if s.err != nil {
		return time.Time{}, false, s.err
	}
	d, ok := s.overrides[fmt.Sprintf("%s-%d", quarter, year)]
	return d, ok, nil
}

func (s *fakeDeadlineStore) Set(ctx context.Context, quarter string, year int, deadline time.Time) error {
	if s.overrides == nil {
		s.overrides = map[string]time.Time{}
	}
	s.overrides[fmt.Sprintf("%s-%d", quarter, year)] = deadline
	return nil
}

func TestQuarterOf(t *testing.T) {
	cases := []struct {
		t       time.Time
		quarter string
		year    int
	}{
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "Q1", 2026},
		{time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC), "Q1", 2026},
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "Q2", 2026},
		{time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC), "Q2", 2026},
		{time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), "Q3", 2026},
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "Q4", 2026},
	}
	for _, tc := range cases {
		q, y := models.QuarterOf(tc.t)
		if q != tc.quarter || y != tc.year {
			t.Errorf("QuarterOf(%s) = (%s,%d), expected (%s,%d)", tc.t, q, y, tc.quarter, tc.year)
		}
	}
}

func TestDefaultQuarterDeadlineIs15thOfLastMonth(t *testing.T) {
	cases := []struct {
		quarter  string
		year     int
		expected time.Time
	}{
		{"Q1", 2026, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"Q2", 2026, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"Q3", 2026, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)},
		{"Q4", 2026, time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := models.DefaultQuarterDeadline(tc.quarter, tc.year); !got.Equal(tc.expected) {
			t.Errorf("DefaultQuarterDeadline(%s,%d) = %s, expected %s", tc.quarter, tc.year, got, tc.expected)
		}
	}
}

func TestQuarterWindowCoversWholeYear(t *testing.T) {
	var prevEnd time.Time
	for i, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
		start, end := models.QuarterWindow(q, 2026)
		if !end.Equal(start.AddDate(0, 3, 0)) {
			t.Fatalf("%s: window is not three months: [%s, %s)", q, start, end)
		}
		if i > 0 && !start.Equal(prevEnd) {
			t.Fatalf("%s: gap between quarters: prev end %s, start %s", q, prevEnd, start)
		}
		prevEnd = end
	}
}

func TestResolveQuarterDeadline(t *testing.T) {
	ctx := context.Background()
	override := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	store := &fakeDeadlineStore{}
	if err := store.Set(ctx, "Q1", 2026, override); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if got := models.ResolveQuarterDeadline(ctx, store, "Q1", 2026); !got.Equal(override) {
		t.Fatalf("override not honored: got %s", got)
	}
	if got := models.ResolveQuarterDeadline(ctx, store, "Q2", 2026); !got.Equal(models.DefaultQuarterDeadline("Q2", 2026)) {
		t.Fatalf("absent override must fall back to default, got %s", got)
	}

	// A broken store degrades to the default instead of failing the view.
	broken := &fakeDeadlineStore{err: errors.New("redis down")}
	if got := models.ResolveQuarterDeadline(ctx, broken, "Q1", 2026); !got.Equal(models.DefaultQuarterDeadline("Q1", 2026)) {
		t.Fatalf("store error must fall back to default, got %s", got)
	}
	if got := models.ResolveQuarterDeadline(ctx, nil, "Q1", 2026); !got.Equal(models.DefaultQuarterDeadline("Q1", 2026)) {
		t.Fatalf("nil store must fall back to default, got %s", got)
	}
}
