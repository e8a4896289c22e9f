package workflow

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caseflow-dev/caseflow/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Flow{},
		&models.Case{},
		&models.Task{},
		&models.TaskDependency{},
		&models.CaseClosureRequest{},
		&models.CaseWorkflowHistory{},
		&models.SyncJob{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func mkUser(t *testing.T, db *gorm.DB, username, department, role string, head bool) *models.User {
	t.Helper()
	u := models.User{Username: username, Department: department, Role: role, IsDepartmentHead: head, Active: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &u
}

func mkCase(t *testing.T, db *gorm.DB, subject string, mut func(*models.Case)) *models.Case {
	t.Helper()
	c := models.Case{
		Subject:        subject,
		Status:         models.CaseStatusPending,
		WorkflowStatus: models.WorkflowPending,
		ClosureStatus:  models.ClosureOpen,
	}
	if mut != nil {
		mut(&c)
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create case: %v", err)
	}
	return &c
}

func getCase(t *testing.T, db *gorm.DB, id uint) models.Case {
	t.Helper()
	var c models.Case
	if err := db.First(&c, id).Error; err != nil {
		t.Fatalf("get case %d: %v", id, err)
	}
	return c
}

func historyRows(t *testing.T, db *gorm.DB, caseID uint) []models.CaseWorkflowHistory {
	t.Helper()
	var rows []models.CaseWorkflowHistory
	if err := db.Where("case_id = ?", caseID).Order("id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("history rows: %v", err)
	}
	return rows
}

func syncJobCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.SyncJob{}).Count(&n).Error; err != nil {
		t.Fatalf("count sync jobs: %v", err)
	}
	return n
}
