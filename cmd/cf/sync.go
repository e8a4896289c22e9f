package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/caseflow-dev/caseflow/internal/config"
	"github.com/caseflow-dev/caseflow/internal/crm"
	"github.com/caseflow-dev/caseflow/internal/syncjob"
	"gorm.io/gorm"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "CRM sync worker commands",
	}

	cmd.AddCommand(newSyncWorkerCmd())
	cmd.AddCommand(newSyncOnceCmd())
	return cmd
}

// buildWorker assembles the sync worker from config: HTTP client, session
// cache, retry policy.
func buildWorker(cfg *config.Config, gormDB *gorm.DB) *syncjob.Worker {
	client := crm.NewHTTPClient(cfg.CRM.BaseURL,
		time.Duration(cfg.CRM.ValidateTimeoutSec)*time.Second,
		time.Duration(cfg.CRM.CallTimeoutSec)*time.Second)
	sessions := crm.NewSessionCache(client, cfg.CRM.Username, cfg.CRM.Password,
		time.Duration(cfg.CRM.SessionTTLSec)*time.Second)
	return syncjob.NewWorker(gormDB, client, sessions,
		cfg.Sync.MaxAttempts, time.Duration(cfg.Sync.RetryDelaySec)*time.Second)
}

func newSyncWorkerCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the CRM sync worker",
		Long:  "Polls the sync job queue on the configured cron schedule and pushes due jobs to the CRM. Also runs the nightly blocking sweep. Blocks until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Sync worker polling on %q (sweep %q)\n",
				cfg.Sync.PollSpec, cfg.Sync.SweepSpec)
			return buildWorker(cfg, gormDB).Run(ctx, cfg.Sync.PollSpec, cfg.Sync.SweepSpec)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	return cmd
}

func newSyncOnceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Process due sync jobs once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			n, err := buildWorker(cfg, gormDB).ProcessDue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d sync jobs\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	return cmd
}
