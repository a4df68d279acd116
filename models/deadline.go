package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
)

// DeadlineStore holds per-quarter deadline overrides. Injected into the
// schedule projector instead of an ambient global lookup: init is "empty",
// override is an explicit Set, and absent means "use the computed default".
type DeadlineStore interface {
	Get(ctx context.Context, quarter string, year int) (time.Time, bool, error)
	Set(ctx context.Context, quarter string, year int, deadline time.Time) error
}

// RedisDeadlineStore keeps overrides in the shared Redis under
// maintenance_deadline_Q{n}_{year}. Degrades to "no override" without Redis.
type RedisDeadlineStore struct{}

func deadlineKey(quarter string, year int) string {
	return fmt.Sprintf("maintenance_deadline_%s_%d", quarter, year)
}

func (RedisDeadlineStore) Get(ctx context.Context, quarter string, year int) (time.Time, bool, error) {
	val, ok, err := config.GetRedisValue(deadlineKey(quarter, year))
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, perr := time.Parse("2006-01-02", val)
	if perr != nil {
		return time.Time{}, false, perr
	}
	return t, true, nil
}

func (RedisDeadlineStore) Set(ctx context.Context, quarter string, year int, deadline time.Time) error {
	// Overrides live one year: long enough for any quarter, short enough to
	// self-clean.
	return config.SetRedisValue(deadlineKey(quarter, year), deadline.Format("2006-01-02"), 365*24*time.Hour)
}

// QuarterOf returns ("Q1".."Q4", year) for t.
func QuarterOf(t time.Time) (string, int) {
	q := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("Q%d", q), t.Year()
}

// QuarterWindow returns the [start, end) date window of a quarter.
func QuarterWindow(quarter string, year int) (time.Time, time.Time) {
	var startMonth time.Month
	switch quarter {
	case "Q1":
		startMonth = time.January
	case "Q2":
		startMonth = time.April
	case "Q3":
		startMonth = time.July
	default:
		startMonth = time.October
	}
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 3, 0)
}

// DefaultQuarterDeadline is the 15th of the quarter's last month.
func DefaultQuarterDeadline(quarter string, year int) time.Time {
	start, _ := QuarterWindow(quarter, year)
	return start.AddDate(0, 2, 14)
}

// ResolveQuarterDeadline returns the override when present, the computed
// default otherwise. Store errors fall back to the default (fail soft: a
// broken cache must not break the schedule view).
func ResolveQuarterDeadline(ctx context.Context, store DeadlineStore, quarter string, year int) time.Time {
	if store != nil {
		if deadline, ok, err := store.Get(ctx, quarter, year); err == nil && ok {
			return deadline
		} else if err != nil {
			config.LogError(config.GetLogger(), "deadline.go", "ResolveQuarterDeadline", "store get", deadlineKey(quarter, year), err)
		}
	}
	return DefaultQuarterDeadline(quarter, year)
}
