package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/caseflow-dev/caseflow/internal/workflow"
)

func newCaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Case workflow commands",
	}

	cmd.AddCommand(newCaseHandoverCmd())
	cmd.AddCommand(newCaseApproveCmd())
	cmd.AddCommand(newCaseRejectCmd())
	cmd.AddCommand(newCaseClosureCmd())
	return cmd
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint(id), nil
}

func newCaseHandoverCmd() *cobra.Command {
	var (
		configPath string
		actor      string
	)

	cmd := &cobra.Command{
		Use:   "handover <case-id>",
		Short: "Hand a case over to Operations for validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			user, err := loadUser(gormDB, actor)
			if err != nil {
				return err
			}
			res := workflow.HandoverToValidation(gormDB, id, user)
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

func newCaseApproveCmd() *cobra.Command {
	var (
		configPath string
		actor      string
	)

	cmd := &cobra.Command{
		Use:   "approve <case-id>",
		Short: "Approve a case under validation (Operations only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			user, err := loadUser(gormDB, actor)
			if err != nil {
				return err
			}
			res := workflow.ApproveValidation(gormDB, id, user)
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

func newCaseRejectCmd() *cobra.Command {
	var (
		configPath string
		actor      string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "reject <case-id>",
		Short: "Reject a case under validation (Operations only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			user, err := loadUser(gormDB, actor)
			if err != nil {
				return err
			}
			res := workflow.RejectValidation(gormDB, id, user, reason)
			if !res.Success {
				return fmt.Errorf("%s", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&actor, "actor", "", "acting username (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("reason")
	return cmd
}

func newCaseClosureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "closure",
		Short: "Case closure workflow (SAC approval gate)",
	}

	cmd.AddCommand(newClosureRequestCmd())
	cmd.AddCommand(newClosureApproveCmd())
	cmd.AddCommand(newClosureRejectCmd())
	return cmd
}

func newClosureRequestCmd() *cobra.Command {
	var (
		configPath string
		actor      string
		pct        int
	)

	cmd := &cobra.Command{
		Use:   "request <case-id>",
		Short: "Request closure of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			user, err := loadUser(gormDB, actor)
			if err != nil {
				return err
			}
			res := workflow.RequestClosure(gormDB, id, user, pct)
			if !res.Success {
				return fmt.Errorf("%s", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&actor, "actor", "", "requesting username (required)")
	cmd.Flags().IntVar(&pct, "completion", 0, "completion percentage to report")
	cmd.MarkFlagRequired("actor")
	return cmd
}

func newClosureApproveCmd() *cobra.Command {
	var (
		configPath string
		actor      string
	)

	cmd := &cobra.Command{
		Use:   "approve <request-id>",
		Short: "Approve a pending closure request (SAC only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			user, err := loadUser(gormDB, actor)
			if err != nil {
				return err
			}
			res := workflow.ApproveClosure(gormDB, id, user)
			if !res.Success {
				return fmt.Errorf("%s", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&actor, "actor", "", "reviewing username (required)")
	cmd.MarkFlagRequired("actor")
	return cmd
}

func newClosureRejectCmd() *cobra.Command {
	var (
		configPath string
		actor      string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "reject <request-id>",
		Short: "Reject a pending closure request (SAC only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			user, err := loadUser(gormDB, actor)
			if err != nil {
				return err
			}
			res := workflow.RejectClosure(gormDB, id, user, reason)
			if !res.Success {
				return fmt.Errorf("%s", res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&actor, "actor", "", "reviewing username (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason (required)")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("reason")
	return cmd
}
