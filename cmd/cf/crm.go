package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/caseflow-dev/caseflow/internal/config"
	"github.com/caseflow-dev/caseflow/internal/crm"
)

func newCRMCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crm",
		Short: "CRM connection commands",
	}

	cmd.AddCommand(newCRMLoginCmd())
	return cmd
}

func newCRMLoginCmd() *cobra.Command {
	var (
		configPath string
		username   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify CRM credentials interactively",
		Long:  "Prompts for a password, authenticates against the configured CRM, and reports whether the session is valid. Useful for checking credentials before the sync worker uses them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if username == "" {
				username = cfg.CRM.Username
			}

			password, err := readPassword(cmd, fmt.Sprintf("Password for %s: ", username))
			if err != nil {
				return err
			}

			client := crm.NewHTTPClient(cfg.CRM.BaseURL,
				time.Duration(cfg.CRM.ValidateTimeoutSec)*time.Second,
				time.Duration(cfg.CRM.CallTimeoutSec)*time.Second)

			session, err := client.Authenticate(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("authenticate: %w", err)
			}

			valid, err := client.ValidateSession(cmd.Context(), session)
			if err != nil {
				return fmt.Errorf("validate session: %w", err)
			}
			if !valid {
				return fmt.Errorf("CRM returned a session that does not validate")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated against %s as %s\n", cfg.CRM.BaseURL, username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "caseflow.yaml", "path to caseflow config file")
	cmd.Flags().StringVar(&username, "username", "", "CRM username (default from config)")
	return cmd
}

// readPassword prompts without echo when attached to a terminal, falling back
// to a plain line read when stdin is piped.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
