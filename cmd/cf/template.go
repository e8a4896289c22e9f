package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseflow-dev/caseflow/internal/template"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Task template commands",
	}

	cmd.AddCommand(newTemplateApplyCmd())
	return cmd
}

func newTemplateApplyCmd() *cobra.Command {
	var (
		configPath string
		flowID     uint
		caseID     uint
		assignee   string
	)

	cmd := &cobra.Command{
		Use:   "apply <template.yaml>",
		Short: "Instantiate a task template",
		Long:  "Creates the template's tasks and dependency edges, chaining subtasks in order and marking downstream tasks blocked.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := template.Load(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			opts := template.InstantiateOpts{DefaultAssignee: assignee}
			if flowID != 0 {
				opts.FlowID = &flowID
			}
			if caseID != 0 {
				opts.CaseID = &caseID
			}

			tasks, err := template.Instantiate(gormDB, tpl, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Instantiated %q: %d tasks\n", tpl.Name, len(tasks))
			for _, t := range tasks {
				marker := ""
				if t.IsBlocked {
					marker = " [blocked]"
				}
				fmt.Fprintf(out, "  %s %s (%s)%s\n", t.ID, t.Title, t.Status, marker)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().UintVar(&flowID, "flow", 0, "attach created tasks to this flow")
	cmd.Flags().UintVar(&caseID, "case", 0, "attach created tasks to this case")
	cmd.Flags().StringVar(&assignee, "assignee", "", "default assignee for tasks without one")
	return cmd
}
