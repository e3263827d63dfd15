package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/readtrack/readtrack/internal/auth"
	"github.com/readtrack/readtrack/internal/config"
	"github.com/readtrack/readtrack/internal/model"
)

var (
	subject string
	role    string
)

var rootCmd = &cobra.Command{
	Use:   "token",
	Short: "Access token tool for ReadTrack",
}

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a signed access token using security.tokens from the config",
	RunE:  runIssue,
}

func init() {
	issueCmd.Flags().StringVar(&subject, "subject", "", "token subject (user id)")
	issueCmd.Flags().StringVar(&role, "role", string(model.RoleUser), "role claim: USER, MODERATOR or ADMIN")
	_ = issueCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(issueCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runIssue(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token, err := auth.NewTokenService(cfg.Security.Tokens).GenerateAccessToken(subject, role)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
