// clear-data truncates every operational table (inspections, items, alerts,
// reviews, assignments, notifications, outbox, idempotency keys). The catalog
// survives. Meant for staging resets only.
//
// Usage:
//   go run ./cmd/clear-data -confirm=DELETE
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
	"bitbucket.org/gymfocus/maintenance_backend/utils"
)

func main() {
	confirm := flag.String("confirm", "", "Type DELETE to proceed")
	flag.Parse()

	if strings.TrimSpace(*confirm) != "DELETE" {
		fmt.Fprintln(os.Stderr, "set --confirm=DELETE to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := utils.SetUserNameInContext(context.Background(), "clear-data")
	if err := models.ClearAllData(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("All operational data cleared")
}
