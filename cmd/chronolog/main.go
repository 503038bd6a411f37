package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/chronolog/internal/profile"
	"github.com/hrygo/chronolog/store"
	"github.com/hrygo/chronolog/store/db"
)

// Set by ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "chronolog",
	Short: "Conversational work logging for ticket trackers",
	Long: `chronolog turns chat messages like "3h on ABC-123 yesterday" into
tracker work logs, asking follow-up questions when details are missing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite or postgres)")
	flags.String("dsn", "", "database source name")
	flags.String("timezone", "", "IANA timezone dates are resolved in")
	flags.Duration("session-ttl", 0, "how long an unanswered question stays open")

	for _, key := range []string{"mode", "data", "driver", "dsn", "timezone", "session-ttl"} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read config %s: %v\n", cfgFile, err)
			os.Exit(1)
		}
	}

	viper.SetEnvPrefix("CHRONOLOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadProfile layers flags and config file values over the environment.
func loadProfile() (*profile.Profile, error) {
	p := profile.Default()
	p.Version = version
	p.FromEnv()

	setString := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}
	setString("mode", &p.Mode)
	setString("addr", &p.Addr)
	setString("data", &p.Data)
	setString("timezone", &p.Timezone)
	setString("vault-secret", &p.VaultSecret)
	setString("webhook-secret", &p.WebhookSecret)
	setString("tracker-base-url", &p.TrackerBaseURL)
	setString("llm-api-key", &p.LLMAPIKey)
	setString("llm-base-url", &p.LLMBaseURL)
	setString("llm-model", &p.LLMModel)
	setString("otel-endpoint", &p.OTELEndpoint)
	if viper.IsSet("database-url") {
		p.Driver, p.DSN = "postgres", viper.GetString("database-url")
	} else {
		setString("driver", &p.Driver)
		setString("dsn", &p.DSN)
	}
	if viper.IsSet("port") {
		p.Port = viper.GetInt("port")
	}
	if viper.IsSet("session-ttl") && viper.GetDuration("session-ttl") > 0 {
		p.SessionTTL = viper.GetDuration("session-ttl")
	}
	if viper.IsSet("sweep-interval") {
		p.SweepInterval = viper.GetDuration("sweep-interval")
	}
	if viper.IsSet("require-confirmation") {
		p.RequireConfirmation = viper.GetBool("require-confirmation")
	}
	if viper.IsSet("otel-enabled") {
		p.OTELEnabled = viper.GetBool("otel-enabled")
	}

	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	setupLogger(p)
	return p, nil
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, options)
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, options)
	}
	slog.SetDefault(slog.New(handler))
}

// openStore opens and migrates the configured database.
func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}

	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return s, nil
}
