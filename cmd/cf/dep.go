package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseflow-dev/caseflow/internal/blocking"
	"github.com/caseflow-dev/caseflow/internal/depgraph"
)

func newDepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage task dependencies",
	}

	cmd.AddCommand(newDepAddCmd())
	cmd.AddCommand(newDepRemoveCmd())
	cmd.AddCommand(newDepListCmd())
	return cmd
}

func newDepAddCmd() *cobra.Command {
	var (
		configPath string
		depType    string
	)

	cmd := &cobra.Command{
		Use:   "add <task-id> <depends-on-id>",
		Short: "Add a dependency edge",
		Long:  "Records that the first task depends on the second. Self-references and edges that would close a cycle are rejected.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := depgraph.AddEdge(gormDB, args[0], args[1], depType); err != nil {
				return err
			}
			// Persist the dependent's blocking state right away.
			if err := blocking.Recompute(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now depends on %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&depType, "type", "finish_to_start", "dependency type")
	return cmd
}

func newDepRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rm <task-id> <depends-on-id>",
		Short: "Remove a dependency edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := depgraph.RemoveEdge(gormDB, args[0], args[1]); err != nil {
				return err
			}
			if err := blocking.Recompute(gormDB, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s no longer depends on %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	return cmd
}

func newDepListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ls <task-id>",
		Short: "List a task's predecessors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			preds, err := depgraph.Predecessors(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(preds) == 0 {
				fmt.Fprintf(out, "%s has no predecessors\n", args[0])
				return nil
			}
			for _, p := range preds {
				fmt.Fprintf(out, "%s %s (%s): %s\n", p.Kind, p.ID, p.Title, p.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	return cmd
}
