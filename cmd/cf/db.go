package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseflow-dev/caseflow/internal/db"
	"github.com/caseflow-dev/caseflow/internal/models"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBSeedUserCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all caseflow tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables in %s\n", len(db.AllModels()), cfg.DB.Database)
	return nil
}

func newDBSeedUserCmd() *cobra.Command {
	var (
		configPath string
		username   string
		department string
		role       string
		head       bool
	)

	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create or update a user record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if department != models.DeptSales && department != models.DeptOperations && department != models.DeptSAC {
				return fmt.Errorf("unknown department %q (want %s, %s, or %s)",
					department, models.DeptSales, models.DeptOperations, models.DeptSAC)
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.SeedUser(gormDB, username, department, role, head); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded user %s (%s, %s)\n", username, department, role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	cmd.Flags().StringVar(&department, "department", "", "department: Ventas, Operaciones, or SAC")
	cmd.Flags().StringVar(&role, "role", models.RoleUser, "role: user or admin")
	cmd.Flags().BoolVar(&head, "head", false, "mark as department head")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("department")
	return cmd
}
