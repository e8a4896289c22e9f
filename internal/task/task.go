// Package task provides task lifecycle operations: creation, lookup, and
// listing. Status transitions live in internal/workflow, where the blocking
// guard is enforced.
package task

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/caseflow-dev/caseflow/internal/models"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating a new task.
type CreateOpts struct {
	Title       string
	Description string
	Priority    int // 0=critical → 4=backlog
	IsMilestone bool
	Assignee    string
	FlowID      *uint
	CaseID      *uint
	ParentID    string
	Status      string // defaults to pending
}

// ListFilters holds optional filters for listing tasks.
type ListFilters struct {
	Status   string
	Assignee string
	ParentID string
	FlowID   *uint
	CaseID   *uint
	Blocked  *bool
}

// StatusCount holds a status and its count for children summaries.
type StatusCount struct {
	Status string
	Count  int
}

// GenerateID creates a unique task ID in task-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("task: generate ID: %w", err)
	}
	return "task-" + hex.EncodeToString(b)[:5], nil
}

// Create creates a new task with an auto-generated ID.
func Create(db *gorm.DB, opts CreateOpts) (*models.Task, error) {
	if opts.Title == "" {
		return nil, fmt.Errorf("task: title is required")
	}

	if opts.ParentID != "" {
		var parent models.Task
		if err := db.Where("id = ?", opts.ParentID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("task: parent not found: %s", opts.ParentID)
			}
			return nil, fmt.Errorf("task: check parent %s: %w", opts.ParentID, err)
		}
		// Children inherit the parent's flow and case unless set explicitly.
		if opts.FlowID == nil {
			opts.FlowID = parent.FlowID
		}
		if opts.CaseID == nil {
			opts.CaseID = parent.CaseID
		}
	}

	if opts.Status == "" {
		opts.Status = models.TaskPending
	}

	id, err := generateUniqueID(db)
	if err != nil {
		return nil, err
	}

	t := models.Task{
		ID:               id,
		Title:            opts.Title,
		Description:      opts.Description,
		Status:           opts.Status,
		Priority:         opts.Priority,
		IsMilestone:      opts.IsMilestone,
		Assignee:         opts.Assignee,
		DelegationStatus: models.DelegationPending,
		FlowID:           opts.FlowID,
		CaseID:           opts.CaseID,
	}
	if opts.ParentID != "" {
		t.ParentID = &opts.ParentID
	}

	if err := db.Create(&t).Error; err != nil {
		return nil, fmt.Errorf("task: create: %w", err)
	}
	return &t, nil
}

// Get retrieves a task by ID, preloading its dependency edges.
func Get(db *gorm.DB, id string) (*models.Task, error) {
	var t models.Task
	if err := db.Preload("Deps").Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task: not found: %s", id)
		}
		return nil, fmt.Errorf("task: get %s: %w", id, err)
	}
	return &t, nil
}

// List returns tasks matching the given filters, ordered by priority then
// creation time.
func List(db *gorm.DB, filters ListFilters) ([]models.Task, error) {
	q := db.Model(&models.Task{})

	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Assignee != "" {
		q = q.Where("assignee = ?", filters.Assignee)
	}
	if filters.ParentID != "" {
		q = q.Where("parent_id = ?", filters.ParentID)
	}
	if filters.FlowID != nil {
		q = q.Where("flow_id = ?", *filters.FlowID)
	}
	if filters.CaseID != nil {
		q = q.Where("case_id = ?", *filters.CaseID)
	}
	if filters.Blocked != nil {
		q = q.Where("is_blocked = ?", *filters.Blocked)
	}

	var tasks []models.Task
	if err := q.Order("priority ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task: list: %w", err)
	}
	return tasks, nil
}

// GetChildren returns all children of a parent task, ordered by priority then
// creation time.
func GetChildren(db *gorm.DB, parentID string) ([]models.Task, error) {
	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", parentID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("task: check parent %s: %w", parentID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("task: parent not found: %s", parentID)
	}

	var children []models.Task
	if err := db.Where("parent_id = ?", parentID).Order("priority ASC, created_at ASC").Find(&children).Error; err != nil {
		return nil, fmt.Errorf("task: get children of %s: %w", parentID, err)
	}
	return children, nil
}

// ChildrenSummary returns status counts for all children of a parent task.
func ChildrenSummary(db *gorm.DB, parentID string) ([]StatusCount, error) {
	var results []StatusCount
	if err := db.Model(&models.Task{}).
		Select("status, COUNT(*) as count").
		Where("parent_id = ?", parentID).
		Group("status").
		Order("status ASC").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("task: children summary of %s: %w", parentID, err)
	}
	return results, nil
}

// generateUniqueID generates an ID and retries once on collision.
func generateUniqueID(db *gorm.DB) (string, error) {
	for i := 0; i < 2; i++ {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		var count int64
		if err := db.Model(&models.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("task: check ID uniqueness: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("task: failed to generate unique ID after retries")
}
