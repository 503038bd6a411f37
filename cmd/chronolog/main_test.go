package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/chronolog/plugin/ai/aitime"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	out, err := execute(t, "resolve", "--timezone", "UTC", "--now", "2026-10-15T10:30:00Z", "last", "friday")
	require.NoError(t, err)

	var resolved aitime.ResolvedDate
	require.NoError(t, json.Unmarshal([]byte(out), &resolved))
	assert.True(t, resolved.IsValid)
	assert.Equal(t, "2026-10-09", resolved.Date.Format("2006-01-02"))
}

func TestResolveCommandRejectsBadNow(t *testing.T) {
	_, err := execute(t, "resolve", "--now", "yesterday", "today")
	assert.ErrorContains(t, err, "RFC 3339")
}

func TestLoadProfileFromEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHRONOLOG_DATA", dir)
	t.Setenv("CHRONOLOG_SWEEP_INTERVAL", "5m")
	t.Setenv("CHRONOLOG_VAULT_SECRET", "from-env")
	initConfig()
	viper.Set("require-confirmation", false)
	t.Cleanup(func() { viper.Set("require-confirmation", true) })

	p, err := loadProfile()
	require.NoError(t, err)
	assert.Equal(t, dir, p.Data)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, "from-env", p.VaultSecret)
	assert.Equal(t, "5m0s", p.SweepInterval.String())
	assert.False(t, p.RequireConfirmation)
}
