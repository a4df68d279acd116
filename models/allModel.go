package models

import (
	"errors"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
)

// MigrateTable runs AutoMigrate for every model, parents before children.
func MigrateTable() {
	db := config.GetDB()
	utils.ErrorPanic(db.AutoMigrate(
		&Zone{},
		&Concept{},
		&Inspection{},
		&InspectionItem{},
		&QuarterlyReview{},
		&Assignment{},
		&QuarterlyItem{},
		&Alert{},
		&ChecklistEntry{},
		&Notification{},
		&OutboxMessageRecord{},
		&IdempotencyKey{},
	))
}

// IsDuplicateKeyError reports a MySQL 1062 unique-constraint violation.
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
