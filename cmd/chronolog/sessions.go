package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hrygo/chronolog/server/runner/sweeper"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
}

var sessionsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired sessions now",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		s, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer s.Close()

		deleted, err := sweeper.New(s, 0, nil).RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired session(s)\n", deleted)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsSweepCmd)
	rootCmd.AddCommand(sessionsCmd)
}
