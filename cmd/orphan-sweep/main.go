// orphan-sweep removes inspections that have no inspection items. These rows
// come from start requests that crashed between the header insert and the item
// seeding before seeding became transactional; new code cannot produce them,
// but old databases still carry a few.
//
// Dry-run (default): list candidates only
//   go run ./cmd/orphan-sweep
//
// Execute:
//   go run ./cmd/orphan-sweep -dry-run=false -confirm=DELETE
//
// Only rows older than -min-age-hours (default 24) are touched, so an
// in-flight start that has not yet seeded its items is never swept.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "List only (no writes)")
	confirm := flag.String("confirm", "", "Type DELETE to proceed when dry-run=false")
	minAgeHours := flag.Int("min-age-hours", 24, "Only sweep inspections older than this")
	flag.Parse()

	if !*dryRun && strings.TrimSpace(*confirm) != "DELETE" {
		fmt.Fprintln(os.Stderr, "set --confirm=DELETE to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	cutoff := time.Now().UTC().Add(-time.Duration(*minAgeHours) * time.Hour)

	type orphan struct {
		ID        int       `gorm:"column:id"`
		CenterId  string    `gorm:"column:center_id"`
		Month     string    `gorm:"column:month"`
		Status    string    `gorm:"column:current_status"`
		CreatedAt time.Time `gorm:"column:created_at"`
	}
	var orphans []orphan
	if err := db.Raw(`
		SELECT i.id, i.center_id, i.month, i.current_status, i.created_at
		FROM inspections i
		LEFT JOIN inspection_items it ON it.inspection_id = i.id
		WHERE it.id IS NULL
		  AND i.created_at < ?
		ORDER BY i.id
	`, cutoff).Scan(&orphans).Error; err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}

	if len(orphans) == 0 {
		fmt.Println("No orphan inspections found")
		return
	}

	for _, o := range orphans {
		fmt.Printf("orphan inspection id=%d center=%s month=%s status=%s created_at=%s\n",
			o.ID, o.CenterId, o.Month, o.Status, o.CreatedAt.Format(time.RFC3339))
	}
	if *dryRun {
		fmt.Printf("dry-run: %d orphan inspections would be deleted\n", len(orphans))
		return
	}

	deleted := 0
	for _, o := range orphans {
		if err := db.Where("id = ?", o.ID).Delete(&models.Inspection{}).Error; err != nil {
			fmt.Fprintf(os.Stderr, "delete failed for inspection %d: %v\n", o.ID, err)
			continue
		}
		deleted++
	}
	fmt.Printf("Deleted %d of %d orphan inspections\n", deleted, len(orphans))
}
