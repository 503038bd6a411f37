package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/chronolog/internal/vault"
	"github.com/hrygo/chronolog/server/middleware"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage per-user tracker tokens",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a user's tracker token (read from stdin when --token is omitted)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		platform, _ := cmd.Flags().GetString("platform")
		token, _ := cmd.Flags().GetString("token")

		if token == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.Wrap(err, "failed to read token from stdin")
			}
			token = strings.TrimSpace(line)
		}
		if token == "" {
			return errors.New("token is empty")
		}

		p, err := loadProfile()
		if err != nil {
			return err
		}
		s, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer s.Close()

		v, err := vault.New(p.VaultSecret, s)
		if err != nil {
			return err
		}
		if err := v.SetToken(cmd.Context(), user, platform, token); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored tracker token for %s on %s\n", user, platform)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for calling the webhook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		p, err := loadProfile()
		if err != nil {
			return err
		}
		if p.WebhookSecret == "" {
			return errors.New("CHRONOLOG_WEBHOOK_SECRET is not set, webhook auth is disabled")
		}

		token, err := middleware.IssueToken(p.WebhookSecret, subject, ttl)
		if err != nil {
			return errors.Wrap(err, "failed to sign token")
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	flags := credentialsSetCmd.Flags()
	flags.String("user", "", "chat user id")
	flags.String("platform", "slack", "chat platform")
	flags.String("token", "", "tracker access token")
	_ = credentialsSetCmd.MarkFlagRequired("user")

	credentialsCmd.AddCommand(credentialsSetCmd)
	rootCmd.AddCommand(credentialsCmd)

	tokenCmd.Flags().String("subject", "chat-gateway", "token subject")
	tokenCmd.Flags().Duration("ttl", 365*24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
