// File: internal/config/config_test.go
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "vatm", cfg.Logger.ServiceName)
	assert.Equal(t, 25, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.Dispatch.Timeout)
	assert.Equal(t, time.Second, cfg.Keypad.KeyInterval)
	assert.Equal(t, "n", cfg.Keypad.DigitPrefix)
	assert.Equal(t, "Enter", cfg.Keypad.EnterKey)
	assert.Equal(t, 5*time.Minute, cfg.Terminal.StartupTimeout)
	assert.Equal(t, 15*time.Second, cfg.Terminal.StartupRefresh)
	assert.Equal(t, "api/vm", cfg.API.VirtualMachine)
	assert.True(t, cfg.Preferences.Screenshots)
	assert.Equal(t, 1, cfg.Preferences.ButtonEditDistance)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate(), "A valid config should not produce a validation error")

		badDispatch := *cfg
		badDispatch.Dispatch.MaxAttempts = 0
		err := badDispatch.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_attempts must be greater than 0")

		badTimeout := *cfg
		badTimeout.Dispatch.Timeout = 0
		err = badTimeout.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dispatch configuration invalid")

		badKeypad := *cfg
		badKeypad.Keypad.EnterKey = ""
		err = badKeypad.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enter_key and cancel_key are required")

		badNetwork := *cfg
		badNetwork.Network.Timeout = -time.Second
		err = badNetwork.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "network configuration invalid")

		badDistance := *cfg
		badDistance.Preferences.ButtonEditDistance = -1
		assert.ErrorContains(t, badDistance.Validate(), "button_edit_distance")
	})

	t.Run("Session Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Terminal.Host = "https://sim.example.com"
		cfg.Credentials.Username = "tester"
		cfg.Credentials.Password = "secret"
		assert.NoError(t, cfg.ValidateSession())

		noHost := *cfg
		noHost.Terminal.Host = ""
		assert.ErrorContains(t, noHost.ValidateSession(), "terminal.host is a required")

		relative := *cfg
		relative.Terminal.Host = "sim.example.com"
		assert.ErrorContains(t, relative.ValidateSession(), "must be an absolute URL")

		noPassword := *cfg
		noPassword.Credentials.Password = ""
		assert.ErrorContains(t, noPassword.ValidateSession(), "VATM_CREDENTIALS_PASSWORD")
	})
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
terminal:
  host: "https://sim.local"
  hw_profile: "NCR-6622"
  startup_apps: ["atm.exe", "monitor.exe"]
  startup_delay: 2s
dispatch:
  max_attempts: 7
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "https://sim.local", cfg.Terminal.Host)
		assert.Equal(t, "NCR-6622", cfg.Terminal.HwProfile)
		assert.Equal(t, []string{"atm.exe", "monitor.exe"}, cfg.Terminal.StartupApps)
		assert.Equal(t, 2*time.Second, cfg.Terminal.StartupDelay)
		assert.Equal(t, 7, cfg.Dispatch.MaxAttempts)
		// Defaults survive.
		assert.Equal(t, "info", cfg.Logger.Level)
		assert.NotContains(t, cfg.Preferences.DownloadPath, "~", "download path should be expanded")
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("dispatch.max_attempts", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "max_attempts must be greater than 0")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		yamlConfig := []byte(`
credentials:
  username: tester
  password: from-file
database:
  url: "postgres://configfile/db"
`)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		t.Setenv("VATM_CREDENTIALS_PASSWORD", "from-env")
		t.Setenv("VATM_DATABASE_URL", "postgres://envvar/db")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "tester", cfg.Credentials.Username)
		assert.Equal(t, "from-env", cfg.Credentials.Password)
		assert.Equal(t, "postgres://envvar/db", cfg.Database.URL)
	})

	t.Run("Session Settings From Environment Only", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		t.Setenv("VATM_TERMINAL_HOST", "https://sim.env:8443")
		t.Setenv("VATM_CREDENTIALS_USERNAME", "env-user")
		t.Setenv("VATM_CREDENTIALS_PASSWORD", "env-secret")
		t.Setenv("VATM_CREDENTIALS_GROUP_ID", "7")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "https://sim.env:8443", cfg.Terminal.Host)
		assert.Equal(t, "env-user", cfg.Credentials.Username)
		assert.Equal(t, "7", cfg.Credentials.GroupID)
		assert.NoError(t, cfg.ValidateSession())
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/vatm.log
network:
  timeout: 5s
screens:
  - name: Welcome
    phrases:
      - text: "please insert your card"
        match_confidence: 0.75
        edit_distance: 1
      - text: "welcome"
        match_confidence: 1
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "/var/log/vatm.log", cfg.Logger.LogFile)
	assert.Equal(t, 5*time.Second, cfg.Network.Timeout)
	require.Len(t, cfg.Screens, 1)
	assert.Equal(t, "Welcome", cfg.Screens[0].Name)
	assert.Equal(t, screen.Phrase{Text: "please insert your card", MatchConfidence: 0.75, EditDistance: 1}, cfg.Screens[0].Phrases[0])
}

func TestLoadScreens(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "screens.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
screens:
  - name: pin
    phrases:
      - text: "enter your pin"
        match_confidence: 0.66
`), 0o600))

	t.Run("inline and file are merged", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Screens = []screen.Definition{{Name: "welcome", Phrases: []screen.Phrase{{Text: "welcome", MatchConfidence: 1}}}}
		cfg.ScreensFile = "screens.yaml"

		reg, err := LoadScreens(cfg, dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"welcome", "pin"}, reg.Names())
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := LoadScreens(NewDefaultConfig(), dir)
		assert.ErrorContains(t, err, "no screen definitions configured")
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.ScreensFile = filepath.Join(dir, "absent.yaml")
		_, err := LoadScreens(cfg, "")
		assert.ErrorContains(t, err, "error reading screens file")
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Screens = []screen.Definition{{Name: "PIN", Phrases: []screen.Phrase{{Text: "pin", MatchConfidence: 1}}}}
		cfg.ScreensFile = file
		_, err := LoadScreens(cfg, "")
		assert.ErrorContains(t, err, "invalid screen definitions")
	})
}
