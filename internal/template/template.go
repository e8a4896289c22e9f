// Package template materializes a task/milestone tree plus dependency edges
// from a declarative YAML template. Creation and reference resolution run as
// separate passes so a task may depend on one declared after it.
package template

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/caseflow-dev/caseflow/internal/blocking"
	"github.com/caseflow-dev/caseflow/internal/depgraph"
	"github.com/caseflow-dev/caseflow/internal/models"
	"github.com/caseflow-dev/caseflow/internal/task"
)

// TaskSpec is one node in a template. Subtasks nest arbitrarily deep; refs
// point at temp_ref_id values anywhere in the template, declared before or
// after this node.
type TaskSpec struct {
	Title            string     `yaml:"title"`
	Description      string     `yaml:"description"`
	Priority         int        `yaml:"priority"`
	IsMilestone      bool       `yaml:"is_milestone"`
	Assignee         string     `yaml:"assignee"`
	TempRefID        string     `yaml:"temp_ref_id"`
	DependsOnTaskRef string     `yaml:"depends_on_task_ref"`
	Dependencies     []string   `yaml:"dependencies"`
	Subtasks         []TaskSpec `yaml:"subtasks"`
}

// Template is a named set of top-level task specs.
type Template struct {
	Name  string     `yaml:"name"`
	Tasks []TaskSpec `yaml:"tasks"`
}

// InstantiateOpts anchors the created tree to a flow or case and supplies a
// default assignee for specs that name none.
type InstantiateOpts struct {
	FlowID          *uint
	CaseID          *uint
	DefaultAssignee string
}

// pendingDep is a dependency declaration collected during the creation pass,
// resolved once every node exists.
type pendingDep struct {
	taskID string
	ref    string
}

// Parse decodes and validates a template. Nothing touches the database until
// Instantiate, so a malformed template creates no rows.
func Parse(data []byte) (*Template, error) {
	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("template: parse: %w", err)
	}
	if len(tpl.Tasks) == 0 {
		return nil, fmt.Errorf("template: no tasks defined")
	}
	if err := validateSpecs(tpl.Tasks); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Load reads and parses a template file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: read %s: %w", path, err)
	}
	return Parse(data)
}

func validateSpecs(specs []TaskSpec) error {
	for _, spec := range specs {
		if spec.Title == "" {
			return fmt.Errorf("template: every task needs a title")
		}
		if err := validateSpecs(spec.Subtasks); err != nil {
			return err
		}
	}
	return nil
}

// Instantiate creates the template's tasks and dependency edges in a single
// transaction and returns the created rows in creation order.
//
// Pass 1 creates nodes depth-first. Subtasks under one parent are chained:
// the first starts in_progress, each later sibling picks up a synthetic
// dependency on its immediate predecessor. Every temp_ref_id is mapped to the
// real row id; dependency declarations are only collected here.
//
// Pass 2 resolves collected refs through the map and persists edges through
// the graph store. A ref that maps to nothing is skipped: templates may
// reference optional branches that were not included.
//
// Pass 3 recomputes blocking for every created node so chained and
// cross-referenced tasks come out of instantiation already marked blocked.
func Instantiate(db *gorm.DB, tpl *Template, opts InstantiateOpts) ([]models.Task, error) {
	st := &state{
		refs: make(map[string]string),
		opts: opts,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for i := range tpl.Tasks {
			if err := st.createNode(tx, &tpl.Tasks[i], ""); err != nil {
				return err
			}
		}

		for _, dep := range st.pending {
			targetID, ok := st.refs[dep.ref]
			if !ok {
				continue
			}
			if err := depgraph.AddEdge(tx, dep.taskID, targetID, ""); err != nil {
				return err
			}
		}

		for _, id := range st.created {
			if err := blocking.Recompute(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := db.Where("id IN ?", st.created).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("template: reload created tasks: %w", err)
	}
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	ordered := make([]models.Task, 0, len(st.created))
	for _, id := range st.created {
		ordered = append(ordered, byID[id])
	}
	return ordered, nil
}

type state struct {
	refs    map[string]string
	pending []pendingDep
	created []string
	opts    InstantiateOpts
}

// createNode creates one spec and recurses into its subtasks, chaining each
// subtask to the sibling before it.
func (st *state) createNode(tx *gorm.DB, spec *TaskSpec, parentID string) error {
	assignee := spec.Assignee
	if assignee == "" {
		assignee = st.opts.DefaultAssignee
	}

	created, err := task.Create(tx, task.CreateOpts{
		Title:       spec.Title,
		Description: spec.Description,
		Priority:    spec.Priority,
		IsMilestone: spec.IsMilestone,
		Assignee:    assignee,
		FlowID:      st.opts.FlowID,
		CaseID:      st.opts.CaseID,
		ParentID:    parentID,
	})
	if err != nil {
		return err
	}
	st.created = append(st.created, created.ID)

	if spec.TempRefID != "" {
		st.refs[spec.TempRefID] = created.ID
	}
	if spec.DependsOnTaskRef != "" {
		st.pending = append(st.pending, pendingDep{taskID: created.ID, ref: spec.DependsOnTaskRef})
	}
	for _, ref := range spec.Dependencies {
		st.pending = append(st.pending, pendingDep{taskID: created.ID, ref: ref})
	}

	prev := ""
	for i := range spec.Subtasks {
		child, err := st.createSubtask(tx, &spec.Subtasks[i], created.ID, prev, i == 0)
		if err != nil {
			return err
		}
		prev = child
	}
	return nil
}

// createSubtask creates one child in a sibling chain. The first child starts
// in_progress; each later one records a synthetic dependency ref on its
// immediate predecessor.
func (st *state) createSubtask(tx *gorm.DB, spec *TaskSpec, parentID, prevID string, first bool) (string, error) {
	status := models.TaskPending
	if first {
		status = models.TaskInProgress
	}

	assignee := spec.Assignee
	if assignee == "" {
		assignee = st.opts.DefaultAssignee
	}

	created, err := task.Create(tx, task.CreateOpts{
		Title:       spec.Title,
		Description: spec.Description,
		Priority:    spec.Priority,
		IsMilestone: spec.IsMilestone,
		Assignee:    assignee,
		ParentID:    parentID,
		Status:      status,
	})
	if err != nil {
		return "", err
	}
	st.created = append(st.created, created.ID)

	if spec.TempRefID != "" {
		st.refs[spec.TempRefID] = created.ID
	}
	if !first {
		key := "prev_subtask_" + prevID
		st.refs[key] = prevID
		st.pending = append(st.pending, pendingDep{taskID: created.ID, ref: key})
	}
	if spec.DependsOnTaskRef != "" {
		st.pending = append(st.pending, pendingDep{taskID: created.ID, ref: spec.DependsOnTaskRef})
	}
	for _, ref := range spec.Dependencies {
		st.pending = append(st.pending, pendingDep{taskID: created.ID, ref: ref})
	}

	prev := ""
	for i := range spec.Subtasks {
		child, err := st.createSubtask(tx, &spec.Subtasks[i], created.ID, prev, i == 0)
		if err != nil {
			return "", err
		}
		prev = child
	}
	return created.ID, nil
}
