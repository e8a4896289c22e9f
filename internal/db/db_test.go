package db

import (
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caseflow-dev/caseflow/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		database string
		want     string
	}{
		{
			name:     "default local",
			host:     "127.0.0.1",
			port:     3306,
			database: "caseflow",
			want:     "root@tcp(127.0.0.1:3306)/caseflow?parseTime=true",
		},
		{
			name:     "custom host and port",
			host:     "10.0.0.5",
			port:     3307,
			database: "caseflow_staging",
			want:     "root@tcp(10.0.0.5:3307)/caseflow_staging?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.host, tt.port, tt.database)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDSN_ParseTimeFlag(t *testing.T) {
	dsn := DSN("localhost", 3306, "test")
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN missing parseTime=true: %s", dsn)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return gdb
}

func TestAutoMigrate(t *testing.T) {
	gdb := openTestDB(t)
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate() error: %v", err)
	}

	for _, table := range []string{"users", "flows", "cases", "tasks", "task_dependencies", "case_closure_requests", "case_workflow_histories", "sync_jobs"} {
		if !gdb.Migrator().HasTable(table) {
			t.Errorf("missing table %q after migrate", table)
		}
	}
}

func TestSeedUser_Upsert(t *testing.T) {
	gdb := openTestDB(t)
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate() error: %v", err)
	}

	if err := SeedUser(gdb, "sac_head", models.DeptSAC, models.RoleAdmin, true); err != nil {
		t.Fatalf("SeedUser() error: %v", err)
	}
	// Seeding again with changed fields must update, not duplicate.
	if err := SeedUser(gdb, "sac_head", models.DeptSAC, models.RoleUser, false); err != nil {
		t.Fatalf("SeedUser() second error: %v", err)
	}

	var count int64
	if err := gdb.Model(&models.User{}).Where("username = ?", "sac_head").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}

	var u models.User
	if err := gdb.Where("username = ?", "sac_head").First(&u).Error; err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Role != models.RoleUser || u.IsDepartmentHead {
		t.Errorf("seed did not update: role=%q head=%v", u.Role, u.IsDepartmentHead)
	}
}
