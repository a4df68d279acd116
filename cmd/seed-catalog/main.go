// seed-catalog inserts the zone/element catalog rows when they are missing.
// Existing rows are left untouched, so the tool is safe to re-run.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-catalog
package main

import (
	"fmt"
	"os"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()
	if err := models.SeedCatalog(db); err != nil {
		fmt.Fprintf(os.Stderr, "catalog seed failed: %v\n", err)
		os.Exit(1)
	}

	var zones, concepts int64
	_ = db.Model(&models.Zone{}).Count(&zones).Error
	_ = db.Model(&models.Concept{}).Count(&concepts).Error
	fmt.Printf("Catalog ready: %d zones, %d concepts\n", zones, concepts)
}
