package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caseflow-dev/caseflow/internal/delegation"
	"github.com/caseflow-dev/caseflow/internal/models"
	"github.com/caseflow-dev/caseflow/internal/task"
	"github.com/caseflow-dev/caseflow/internal/workflow"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task management commands",
	}

	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskStatusCmd())
	cmd.AddCommand(newTaskCompleteCmd())
	cmd.AddCommand(newTaskDelegateCmd())
	return cmd
}

func newTaskCreateCmd() *cobra.Command {
	var (
		configPath  string
		title       string
		description string
		priority    int
		milestone   bool
		assignee    string
		parentID    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new task",
		Long:  "Creates a new task or milestone with an auto-generated ID.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			created, err := task.Create(gormDB, task.CreateOpts{
				Title:       title,
				Description: description,
				Priority:    priority,
				IsMilestone: milestone,
				Assignee:    assignee,
				ParentID:    parentID,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created task %s\n", created.ID)
			if created.ParentID != nil {
				fmt.Fprintf(out, "Parent: %s\n", *created.ParentID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&title, "title", "", "task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "detailed description")
	cmd.Flags().IntVar(&priority, "priority", 2, "priority (0=critical → 4=backlog)")
	cmd.Flags().BoolVar(&milestone, "milestone", false, "create as a milestone")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assigned username")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent task ID")
	cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var (
		configPath string
		status     string
		assignee   string
		blocked    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			filters := task.ListFilters{Status: status, Assignee: assignee}
			if blocked {
				b := true
				filters.Blocked = &b
			}
			tasks, err := task.List(gormDB, filters)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPRI\tASSIGNEE\tBLOCKED\tTITLE")
			for _, t := range tasks {
				blockedMark := ""
				if t.IsBlocked {
					blockedMark = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					t.ID, t.Status, t.Priority, t.Assignee, blockedMark, t.Title)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&assignee, "assignee", "", "filter by assignee")
	cmd.Flags().BoolVar(&blocked, "blocked", false, "only blocked tasks")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			t, err := task.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			kind := "task"
			if t.IsMilestone {
				kind = "milestone"
			}
			fmt.Fprintf(out, "%s %s: %s\n", kind, t.ID, t.Title)
			fmt.Fprintf(out, "Status: %s (progress %d%%)\n", t.Status, t.Progress)
			if t.Assignee != "" {
				fmt.Fprintf(out, "Assignee: %s\n", t.Assignee)
			}
			if t.DelegationStatus != models.DelegationPending {
				fmt.Fprintf(out, "Delegation: %s (originally %s)\n", t.DelegationStatus, t.OriginalSalesUser)
			}
			if t.IsBlocked {
				fmt.Fprintf(out, "Blocked: %s\n", t.BlockedReason)
			}
			for _, d := range t.Deps {
				fmt.Fprintf(out, "Depends on: %s (%s)\n", d.DependsOnID, d.TargetKind)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	return cmd
}

func newTaskStatusCmd() *cobra.Command {
	var (
		configPath string
		actor      string
	)

	cmd := &cobra.Command{
		Use:   "status <task-id> <new-status>",
		Short: "Move a task to a new status",
		Long:  "Moves a task through the status machine. Starting or completing a blocked task is rejected with the blocking dependency named.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			user, err := loadUser(gormDB, actor)
			if err != nil {
				return err
			}
			res := workflow.ChangeTaskStatus(gormDB, args[0], args[1], user, sinkFromConfig(cfg))
			if !res.Success {
				return fmt.Errorf("%s", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&actor, "actor", "", "acting username (required)")
	cmd.MarkFlagRequired("actor")
	return cmd
}

func newTaskCompleteCmd() *cobra.Command {
	var (
		configPath string
		actor      string
		delegated  bool
	)

	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Complete a task",
		Long:  "Marks a task completed, recomputing parent progress and unblocking dependents. With --delegated, also closes out the delegation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			user, err := loadUser(gormDB, actor)
			if err != nil {
				return err
			}
			sink := sinkFromConfig(cfg)
			var res workflow.Result
			if delegated {
				res = delegation.CompleteDelegated(gormDB, args[0], user, sink)
			} else {
				res = workflow.ChangeTaskStatus(gormDB, args[0], models.TaskCompleted, user, sink)
			}
			if !res.Success {
				return fmt.Errorf("%s", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&actor, "actor", "", "acting username (required)")
	cmd.Flags().BoolVar(&delegated, "delegated", false, "complete as a delegated task")
	cmd.MarkFlagRequired("actor")
	return cmd
}

func newTaskDelegateCmd() *cobra.Command {
	var (
		configPath string
		actor      string
		target     string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "delegate <task-id>",
		Short: "Delegate a task to an Operations user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			user, err := loadUser(gormDB, actor)
			if err != nil {
				return err
			}
			res := delegation.DelegateToOperations(gormDB, args[0], target, user, reason, sinkFromConfig(cfg))
			if !res.Success {
				return fmt.Errorf("%s", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
		Args: cobra.ExactArgs(1),
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&actor, "actor", "", "delegating username (required)")
	cmd.Flags().StringVar(&target, "to", "", "target Operations username (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "delegation reason")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("to")
	return cmd
}
