package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/chronolog/plugin/ai/aitime"
	"github.com/hrygo/chronolog/plugin/ai/intent"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <phrase>",
	Short: "Resolve a date phrase the way the bot would",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, now, err := resolverFromFlags(cmd)
		if err != nil {
			return err
		}

		resolved := resolver.Resolve(strings.Join(args, " "), now)
		out, err := json.MarshalIndent(resolved, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <message>",
	Short: "Show how a chat message is understood",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, _, err := resolverFromFlags(cmd)
		if err != nil {
			return err
		}
		p, err := loadProfile()
		if err != nil {
			return err
		}

		parser := intent.NewParser(intent.LLMConfig{
			APIKey:  p.LLMAPIKey,
			BaseURL: p.LLMBaseURL,
			Model:   p.LLMModel,
		}, intent.NewRuleParser(resolver))

		result, err := parser.Parse(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func resolverFromFlags(cmd *cobra.Command) (*aitime.Resolver, time.Time, error) {
	tz := viper.GetString("timezone")
	loc := time.Local
	if tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, time.Time{}, errors.Wrapf(err, "invalid timezone %q", tz)
		}
	}

	now := time.Now().In(loc)
	if raw, _ := cmd.Flags().GetString("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, time.Time{}, errors.Wrap(err, "--now must be RFC 3339")
		}
		now = parsed.In(loc)
	}
	return aitime.NewResolver(loc), now, nil
}

func init() {
	for _, c := range []*cobra.Command{resolveCmd, parseCmd} {
		c.Flags().String("now", "", "reference time (RFC 3339), defaults to the current time")
		rootCmd.AddCommand(c)
	}
}
