package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/caseflow-dev/caseflow/internal/config"
	"github.com/caseflow-dev/caseflow/internal/db"
	"github.com/caseflow-dev/caseflow/internal/models"
	"github.com/caseflow-dev/caseflow/internal/notify"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cf",
		Short: "Caseflow — task dependency and case workflow engine",
		Long:  "Caseflow tracks task dependency graphs, blocking state, and the Sales/Operations/SAC case workflows, syncing transitions to the external CRM.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newDepCmd())
	cmd.AddCommand(newCaseCmd())
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCRMCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cf %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// connectFromConfig loads config and returns a GORM DB connection.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}

	return cfg, gormDB, nil
}

// sinkFromConfig assembles the notification fan-out from config. An empty
// notify section yields a discard sink.
func sinkFromConfig(cfg *config.Config) notify.Sink {
	var sinks notify.Multi
	if cfg.Notify.Command != "" {
		sinks = append(sinks, &notify.CommandSink{Command: cfg.Notify.Command})
	}
	if cfg.Notify.SlackToken != "" && cfg.Notify.SlackChannel != "" {
		sinks = append(sinks, notify.NewSlackSink(cfg.Notify.SlackToken, cfg.Notify.SlackChannel))
	}
	if cfg.Notify.DiscordToken != "" && cfg.Notify.DiscordChannel != "" {
		if d, err := notify.NewDiscordSink(cfg.Notify.DiscordToken, cfg.Notify.DiscordChannel); err == nil {
			sinks = append(sinks, d)
		}
	}
	if len(sinks) == 0 {
		return notify.Discard{}
	}
	return sinks
}

// loadUser resolves a username to a user row for workflow operations.
func loadUser(gormDB *gorm.DB, username string) (*models.User, error) {
	var u models.User
	if err := gormDB.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unknown user: %s", username)
		}
		return nil, fmt.Errorf("look up user %s: %w", username, err)
	}
	return &u, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
