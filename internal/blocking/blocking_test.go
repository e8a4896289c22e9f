package blocking

import (
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caseflow-dev/caseflow/internal/depgraph"
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
	if err := db.AutoMigrate(&models.Task{}, &models.TaskDependency{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func mkTask(t *testing.T, db *gorm.DB, id, status string, milestone bool) {
	t.Helper()
	task := models.Task{ID: id, Title: "task " + id, Status: status, IsMilestone: milestone}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("create task %s: %v", id, err)
	}
}

func getTask(t *testing.T, db *gorm.DB, id string) models.Task {
	t.Helper()
	var task models.Task
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		t.Fatalf("get task %s: %v", id, err)
	}
	return task
}

func TestResolve_NoPredecessors(t *testing.T) {
	db := openTestDB(t)
	mkTask(t, db, "task-aaa01", models.TaskPending, false)

	task := getTask(t, db, "task-aaa01")
	blocked, pred, err := Resolve(db, &task)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if blocked || pred != nil {
		t.Errorf("blocked = %v, pred = %v; want unblocked", blocked, pred)
	}
}

func TestResolve_IncompletePredecessor(t *testing.T) {
	db := openTestDB(t)
	mkTask(t, db, "task-aaa01", models.TaskPending, false)
	mkTask(t, db, "task-bbb02", models.TaskInProgress, false)
	if err := depgraph.AddEdge(db, "task-aaa01", "task-bbb02", ""); err != nil {
		t.Fatal(err)
	}

	task := getTask(t, db, "task-aaa01")
	blocked, pred, err := Resolve(db, &task)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !blocked {
		t.Fatal("want blocked")
	}
	if pred.ID != "task-bbb02" {
		t.Errorf("pred.ID = %q, want task-bbb02", pred.ID)
	}
}

func TestResolve_AllOfSemantics(t *testing.T) {
	db := openTestDB(t)
	mkTask(t, db, "task-aaa01", models.TaskPending, false)
	mkTask(t, db, "task-bbb02", models.TaskCompleted, false)
	mkTask(t, db, "task-ccc03", models.TaskPending, false)
	if err := depgraph.AddEdge(db, "task-aaa01", "task-bbb02", ""); err != nil {
		t.Fatal(err)
	}
	if err := depgraph.AddEdge(db, "task-aaa01", "task-ccc03", ""); err != nil {
		t.Fatal(err)
	}

	// One completed predecessor is not enough: all must complete.
	task := getTask(t, db, "task-aaa01")
	blocked, pred, err := Resolve(db, &task)
	if err != nil {
		t.Fatal(err)
	}
	if !blocked || pred.ID != "task-ccc03" {
		t.Errorf("blocked = %v pred = %+v, want blocked by task-ccc03", blocked, pred)
	}

	if err := db.Model(&models.Task{}).Where("id = ?", "task-ccc03").Update("status", models.TaskCompleted).Error; err != nil {
		t.Fatal(err)
	}
	task = getTask(t, db, "task-aaa01")
	blocked, _, err = Resolve(db, &task)
	if err != nil {
		t.Fatal(err)
	}
	if blocked {
		t.Error("want unblocked after all predecessors complete")
	}
}

func TestResolve_TerminalOverride(t *testing.T) {
	db := openTestDB(t)
	mkTask(t, db, "task-aaa01", models.TaskCompleted, false)
	mkTask(t, db, "task-bbb02", models.TaskPending, false)
	if err := depgraph.AddEdge(db, "task-aaa01", "task-bbb02", ""); err != nil {
		t.Fatal(err)
	}

	task := getTask(t, db, "task-aaa01")
	blocked, _, err := Resolve(db, &task)
	if err != nil {
		t.Fatal(err)
	}
	if blocked {
		t.Error("completed task must never be blocked")
	}
}

func TestRecompute_PersistsBlockedState(t *testing.T) {
	db := openTestDB(t)
	mkTask(t, db, "task-aaa01", models.TaskPending, false)
	mkTask(t, db, "task-mst01", models.TaskInProgress, true)
	if err := depgraph.AddEdge(db, "task-aaa01", "task-mst01", ""); err != nil {
		t.Fatal(err)
	}

	if err := Recompute(db, "task-aaa01"); err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}

	task := getTask(t, db, "task-aaa01")
	if !task.IsBlocked {
		t.Error("IsBlocked = false, want true")
	}
	if task.Status != models.TaskBlocked {
		t.Errorf("Status = %q, want blocked", task.Status)
	}
	if !strings.Contains(task.BlockedReason, "milestone task-mst01") {
		t.Errorf("BlockedReason = %q, want to name the milestone", task.BlockedReason)
	}
}

func TestRecompute_Unblocks(t *testing.T) {
	db := openTestDB(t)
	mkTask(t, db, "task-aaa01", models.TaskPending, false)
	mkTask(t, db, "task-bbb02", models.TaskPending, false)
	if err := depgraph.AddEdge(db, "task-aaa01", "task-bbb02", ""); err != nil {
		t.Fatal(err)
	}
	if err := Recompute(db, "task-aaa01"); err != nil {
		t.Fatal(err)
	}

	if err := db.Model(&models.Task{}).Where("id = ?", "task-bbb02").Update("status", models.TaskCompleted).Error; err != nil {
		t.Fatal(err)
	}
	if err := Recompute(db, "task-aaa01"); err != nil {
		t.Fatal(err)
	}

	task := getTask(t, db, "task-aaa01")
	if task.IsBlocked {
		t.Error("IsBlocked = true, want false")
	}
	if task.Status != models.TaskPending {
		t.Errorf("Status = %q, want pending", task.Status)
	}
	if task.BlockedReason != "" {
		t.Errorf("BlockedReason = %q, want empty", task.BlockedReason)
	}
}

func TestRecomputeDependents(t *testing.T) {
	db := openTestDB(t)
	mkTask(t, db, "task-aaa01", models.TaskPending, false)
	mkTask(t, db, "task-bbb02", models.TaskBlocked, false)
	mkTask(t, db, "task-ccc03", models.TaskBlocked, false)
	if err := depgraph.AddEdge(db, "task-bbb02", "task-aaa01", ""); err != nil {
		t.Fatal(err)
	}
	if err := depgraph.AddEdge(db, "task-ccc03", "task-aaa01", ""); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"task-bbb02", "task-ccc03"} {
		if err := db.Model(&models.Task{}).Where("id = ?", id).Update("is_blocked", true).Error; err != nil {
			t.Fatal(err)
		}
	}

	if err := db.Model(&models.Task{}).Where("id = ?", "task-aaa01").Update("status", models.TaskCompleted).Error; err != nil {
		t.Fatal(err)
	}
	if err := RecomputeDependents(db, "task-aaa01"); err != nil {
		t.Fatalf("RecomputeDependents() error: %v", err)
	}

	for _, id := range []string{"task-bbb02", "task-ccc03"} {
		task := getTask(t, db, id)
		if task.IsBlocked {
			t.Errorf("%s still blocked after predecessor completed", id)
		}
		if task.Status != models.TaskPending {
			t.Errorf("%s status = %q, want pending", id, task.Status)
		}
	}
}

func TestSweep(t *testing.T) {
	db := openTestDB(t)
	mkTask(t, db, "task-aaa01", models.TaskPending, false)
	mkTask(t, db, "task-bbb02", models.TaskPending, false)
	mkTask(t, db, "task-ddd04", models.TaskCompleted, false)
	if err := depgraph.AddEdge(db, "task-aaa01", "task-bbb02", ""); err != nil {
		t.Fatal(err)
	}

	n, err := Sweep(db)
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if n != 2 {
		t.Errorf("swept %d tasks, want 2 (terminal statuses skipped)", n)
	}
	task := getTask(t, db, "task-aaa01")
	if !task.IsBlocked {
		t.Error("sweep did not mark task-aaa01 blocked")
	}
}
