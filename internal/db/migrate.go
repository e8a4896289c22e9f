package db

import (
	"fmt"

	"github.com/caseflow-dev/caseflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Flow{},
		&models.Case{},
		&models.Task{},
		&models.TaskDependency{},
		&models.CaseClosureRequest{},
		&models.CaseWorkflowHistory{},
		&models.SyncJob{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedUser upserts a user row by username. Used by `cf db seed` to bootstrap
// the department heads the closure workflow assigns requests to.
func SeedUser(db *gorm.DB, username, department, role string, head bool) error {
	user := models.User{
		Username:         username,
		Department:       department,
		Role:             role,
		IsDepartmentHead: head,
		Active:           true,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"department", "role", "is_department_head", "active"}),
	}).Create(&user)
	if result.Error != nil {
		return fmt.Errorf("db: seed user %q: %w", username, result.Error)
	}
	return nil
}
