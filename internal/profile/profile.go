package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where chronolog stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Timezone is the IANA zone dates are resolved in (default: Local)
	Timezone string

	// Conversation sessions
	SessionTTL          time.Duration // CHRONOLOG_SESSION_TTL (default: 30m)
	RequireConfirmation bool          // CHRONOLOG_REQUIRE_CONFIRMATION (see Default)
	SweepInterval       time.Duration // CHRONOLOG_SWEEP_INTERVAL (default: 0, disabled)

	// Secrets
	VaultSecret   string // CHRONOLOG_VAULT_SECRET
	WebhookSecret string // CHRONOLOG_WEBHOOK_SECRET (empty disables webhook auth)

	// Ticket tracker
	TrackerBaseURL string // CHRONOLOG_TRACKER_BASE_URL

	// Intent classification (OpenAI-compatible endpoint)
	LLMAPIKey  string // CHRONOLOG_LLM_API_KEY
	LLMBaseURL string // CHRONOLOG_LLM_BASE_URL (default: https://api.openai.com/v1)
	LLMModel   string // CHRONOLOG_LLM_MODEL (default: gpt-4o-mini)

	// Metrics export
	OTELEnabled  bool   // CHRONOLOG_OTEL_ENABLED
	OTELEndpoint string // CHRONOLOG_OTEL_ENDPOINT (default: localhost:4317)
	OTELInsecure bool   // CHRONOLOG_OTEL_INSECURE
}

const (
	defaultSessionTTL = 30 * time.Minute
	defaultLLMBaseURL = "https://api.openai.com/v1"
	defaultLLMModel   = "gpt-4o-mini"
	defaultOTELTarget = "localhost:4317"
)

// Default returns a profile carrying the defaults FromEnv builds on.
func Default() *Profile {
	return &Profile{
		Mode:                "dev",
		Addr:                "",
		Port:                8081,
		SessionTTL:          defaultSessionTTL,
		RequireConfirmation: true,
		LLMBaseURL:          defaultLLMBaseURL,
		LLMModel:            defaultLLMModel,
		OTELEndpoint:        defaultOTELTarget,
	}
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if an LLM API key is configured.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != ""
}

// Location returns the configured timezone, falling back to time.Local.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using local", slog.String("timezone", p.Timezone))
		return time.Local
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("invalid boolean env value", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return b
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration env value", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return d
}

// FromEnv loads configuration from CHRONOLOG_* environment variables.
// Values already set on the profile act as defaults.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("CHRONOLOG_MODE", p.Mode)
	p.Addr = getEnvOrDefault("CHRONOLOG_ADDR", p.Addr)
	if port, err := strconv.Atoi(os.Getenv("CHRONOLOG_PORT")); err == nil {
		p.Port = port
	}
	p.Data = getEnvOrDefault("CHRONOLOG_DATA", p.Data)
	p.Timezone = getEnvOrDefault("CHRONOLOG_TIMEZONE", p.Timezone)

	// A managed database URL selects the networked backend.
	if url := os.Getenv("CHRONOLOG_DATABASE_URL"); url != "" {
		p.Driver = "postgres"
		p.DSN = url
	} else if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" {
		p.DSN = getEnvOrDefault("CHRONOLOG_DSN", p.DSN)
	}

	if p.SessionTTL == 0 {
		p.SessionTTL = defaultSessionTTL
	}
	p.SessionTTL = getDurationEnvOrDefault("CHRONOLOG_SESSION_TTL", p.SessionTTL)
	p.RequireConfirmation = getBoolEnvOrDefault("CHRONOLOG_REQUIRE_CONFIRMATION", p.RequireConfirmation)
	p.SweepInterval = getDurationEnvOrDefault("CHRONOLOG_SWEEP_INTERVAL", p.SweepInterval)

	p.VaultSecret = getEnvOrDefault("CHRONOLOG_VAULT_SECRET", p.VaultSecret)
	p.WebhookSecret = getEnvOrDefault("CHRONOLOG_WEBHOOK_SECRET", p.WebhookSecret)
	p.TrackerBaseURL = getEnvOrDefault("CHRONOLOG_TRACKER_BASE_URL", p.TrackerBaseURL)

	p.LLMAPIKey = getEnvOrDefault("CHRONOLOG_LLM_API_KEY", p.LLMAPIKey)
	p.LLMBaseURL = getEnvOrDefault("CHRONOLOG_LLM_BASE_URL", p.LLMBaseURL)
	if p.LLMBaseURL == "" {
		p.LLMBaseURL = defaultLLMBaseURL
	}
	p.LLMModel = getEnvOrDefault("CHRONOLOG_LLM_MODEL", p.LLMModel)
	if p.LLMModel == "" {
		p.LLMModel = defaultLLMModel
	}

	p.OTELEnabled = getBoolEnvOrDefault("CHRONOLOG_OTEL_ENABLED", p.OTELEnabled)
	p.OTELEndpoint = getEnvOrDefault("CHRONOLOG_OTEL_ENDPOINT", p.OTELEndpoint)
	if p.OTELEndpoint == "" {
		p.OTELEndpoint = defaultOTELTarget
	}
	p.OTELInsecure = getBoolEnvOrDefault("CHRONOLOG_OTEL_INSECURE", p.OTELInsecure)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a database URL")
	}
	if p.SessionTTL <= 0 {
		return errors.Errorf("session ttl must be positive, got %s", p.SessionTTL)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
		}
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "chronolog")
		} else {
			p.Data = "/var/opt/chronolog"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}
	if p.Driver == "sqlite" {
		if err := os.MkdirAll(p.Data, 0o770); err != nil {
			slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("chronolog_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
