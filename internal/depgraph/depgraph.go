// Package depgraph maintains the directed dependency graph over tasks and
// milestones. Edges point from a task to its predecessor; the edge set is
// kept acyclic by rejecting any addition that would close a cycle.
package depgraph

import (
	"errors"
	"fmt"

	"github.com/caseflow-dev/caseflow/internal/models"
	"gorm.io/gorm"
)

// ErrSelfReference is returned when a task is added as its own predecessor.
var ErrSelfReference = errors.New("depgraph: task cannot depend on itself")

// ErrCircularDependency is returned when an edge addition would create a cycle.
var ErrCircularDependency = errors.New("depgraph: dependency would create a cycle")

// Predecessor is a resolved predecessor reference: the node a task depends on,
// tagged with whether it is a plain task or a milestone.
type Predecessor struct {
	ID     string
	Kind   string // models.TargetTask or models.TargetMilestone
	Title  string
	Status string
}

// AddEdge records that taskID depends on dependsOnID. Both nodes must exist;
// self-references and cycles are rejected before anything is written, so a
// rejected edge leaves the graph unchanged.
func AddEdge(db *gorm.DB, taskID, dependsOnID, depType string) error {
	if taskID == dependsOnID {
		return fmt.Errorf("%w: %s", ErrSelfReference, taskID)
	}
	if depType == "" {
		depType = "finish_to_start"
	}

	var target models.Task
	if err := db.Where("id = ?", dependsOnID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("depgraph: predecessor not found: %s", dependsOnID)
		}
		return fmt.Errorf("depgraph: check predecessor %s: %w", dependsOnID, err)
	}
	var count int64
	if err := db.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return fmt.Errorf("depgraph: check task %s: %w", taskID, err)
	}
	if count == 0 {
		return fmt.Errorf("depgraph: task not found: %s", taskID)
	}

	// Walk upward from the new predecessor: if taskID is already among its
	// ancestors, the new edge would close a cycle.
	reachable, err := canReach(db, dependsOnID, taskID, make(map[string]bool))
	if err != nil {
		return err
	}
	if reachable {
		return fmt.Errorf("%w: %s -> %s", ErrCircularDependency, taskID, dependsOnID)
	}

	kind := models.TargetTask
	if target.IsMilestone {
		kind = models.TargetMilestone
	}

	edge := models.TaskDependency{
		TaskID:      taskID,
		DependsOnID: dependsOnID,
		TargetKind:  kind,
		DepType:     depType,
	}
	if err := db.Create(&edge).Error; err != nil {
		return fmt.Errorf("depgraph: create edge %s -> %s: %w", taskID, dependsOnID, err)
	}
	return nil
}

// RemoveEdge deletes the dependency of taskID on dependsOnID.
func RemoveEdge(db *gorm.DB, taskID, dependsOnID string) error {
	result := db.Where("task_id = ? AND depends_on_id = ?", taskID, dependsOnID).Delete(&models.TaskDependency{})
	if result.Error != nil {
		return fmt.Errorf("depgraph: remove edge %s -> %s: %w", taskID, dependsOnID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("depgraph: edge %s -> %s not found", taskID, dependsOnID)
	}
	return nil
}

// Predecessors returns the direct predecessors of a task with their current
// statuses, for blocking resolution and error messages.
func Predecessors(db *gorm.DB, taskID string) ([]Predecessor, error) {
	var edges []models.TaskDependency
	if err := db.Where("task_id = ?", taskID).Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("depgraph: predecessors of %s: %w", taskID, err)
	}

	preds := make([]Predecessor, 0, len(edges))
	for _, e := range edges {
		var node models.Task
		if err := db.Where("id = ?", e.DependsOnID).First(&node).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Predecessor soft-deleted out from under the edge; skip it.
				continue
			}
			return nil, fmt.Errorf("depgraph: load predecessor %s: %w", e.DependsOnID, err)
		}
		preds = append(preds, Predecessor{
			ID:     node.ID,
			Kind:   e.TargetKind,
			Title:  node.Title,
			Status: node.Status,
		})
	}
	return preds, nil
}

// Dependents returns the IDs of tasks that directly depend on taskID.
func Dependents(db *gorm.DB, taskID string) ([]string, error) {
	var edges []models.TaskDependency
	if err := db.Where("depends_on_id = ?", taskID).Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("depgraph: dependents of %s: %w", taskID, err)
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.TaskID)
	}
	return ids, nil
}

// Ancestors returns every node reachable from taskID by walking predecessor
// edges upward. The visited set bounds the walk even if the acyclicity
// invariant has been violated out-of-band.
func Ancestors(db *gorm.DB, taskID string) ([]string, error) {
	visited := make(map[string]bool)
	var order []string

	var walk func(id string) error
	walk = func(id string) error {
		var edges []models.TaskDependency
		if err := db.Where("task_id = ?", id).Find(&edges).Error; err != nil {
			return fmt.Errorf("depgraph: ancestors of %s: %w", taskID, err)
		}
		for _, e := range edges {
			if visited[e.DependsOnID] {
				continue
			}
			visited[e.DependsOnID] = true
			order = append(order, e.DependsOnID)
			if err := walk(e.DependsOnID); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(taskID); err != nil {
		return nil, err
	}
	return order, nil
}

// canReach performs a DFS from 'current' following predecessor edges to
// determine whether 'target' is reachable.
func canReach(db *gorm.DB, current, target string, visited map[string]bool) (bool, error) {
	if current == target {
		return true, nil
	}
	if visited[current] {
		return false, nil
	}
	visited[current] = true

	var edges []models.TaskDependency
	if err := db.Where("task_id = ?", current).Find(&edges).Error; err != nil {
		return false, fmt.Errorf("depgraph: walk %s: %w", current, err)
	}
	for _, e := range edges {
		ok, err := canReach(db, e.DependsOnID, target, visited)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
