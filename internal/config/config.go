// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Terminal    TerminalConfig    `mapstructure:"terminal" yaml:"terminal"`
	API         APIConfig         `mapstructure:"api" yaml:"api"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Network     NetworkConfig     `mapstructure:"network" yaml:"network"`
	Dispatch    DispatchConfig    `mapstructure:"dispatch" yaml:"dispatch"`
	Keypad      KeypadConfig      `mapstructure:"keypad" yaml:"keypad"`
	Preferences PreferencesConfig `mapstructure:"preferences" yaml:"preferences"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	// ScreensFile points at a separate YAML or JSON file of screen definitions.
	ScreensFile string `mapstructure:"screens_file" yaml:"screens_file"`
	// Screens holds definitions declared inline. Entries from ScreensFile
	// are appended after them.
	Screens []screen.Definition `mapstructure:"screens" yaml:"screens"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color settings for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// TerminalConfig describes the simulated ATM being driven.
type TerminalConfig struct {
	Host          string        `mapstructure:"host" yaml:"host"`
	HwProfile     string        `mapstructure:"hw_profile" yaml:"hw_profile"`
	StartupApps   []string      `mapstructure:"startup_apps" yaml:"startup_apps"`
	StartupDelay  time.Duration `mapstructure:"startup_delay" yaml:"startup_delay"`
	StandardDelay time.Duration `mapstructure:"standard_delay" yaml:"standard_delay"`
	// How long to wait for the welcome screen once the ATM application
	// has been started, and how often to look.
	StartupTimeout time.Duration `mapstructure:"startup_timeout" yaml:"startup_timeout"`
	StartupRefresh time.Duration `mapstructure:"startup_refresh" yaml:"startup_refresh"`
}

// APIConfig holds the path prefixes of the simulator APIs.
type APIConfig struct {
	Agent          string `mapstructure:"agent" yaml:"agent"`
	VirtualMachine string `mapstructure:"virtual_machine" yaml:"virtual_machine"`
	ATM            string `mapstructure:"atm" yaml:"atm"`
	Connection     string `mapstructure:"connection" yaml:"connection"`
}

// CredentialsConfig identifies the simulator user. The password should
// come from VATM_CREDENTIALS_PASSWORD rather than the config file.
type CredentialsConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	GroupID  string `mapstructure:"group_id" yaml:"group_id"`
}

// NetworkConfig tunes the HTTP client used against the simulator.
type NetworkConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ProxyURL        string        `mapstructure:"proxy_url" yaml:"proxy_url"`
	ForceHTTP2      bool          `mapstructure:"force_http2" yaml:"force_http2"`
	// TraceBodies logs request and response bodies at debug level.
	TraceBodies bool `mapstructure:"trace_bodies" yaml:"trace_bodies"`
}

// DispatchConfig bounds the recovery loop.
type DispatchConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// KeypadConfig describes how characters map onto pinpad keys.
type KeypadConfig struct {
	KeyInterval time.Duration `mapstructure:"key_interval" yaml:"key_interval"`
	DigitPrefix string        `mapstructure:"digit_prefix" yaml:"digit_prefix"`
	EnterKey    string        `mapstructure:"enter_key" yaml:"enter_key"`
	CancelKey   string        `mapstructure:"cancel_key" yaml:"cancel_key"`
}

// PreferencesConfig holds local paths.
type PreferencesConfig struct {
	DownloadPath     string `mapstructure:"download_path" yaml:"download_path"`
	TransactionsPath string `mapstructure:"transactions_path" yaml:"transactions_path"`
	PlaylistsPath    string `mapstructure:"playlists_path" yaml:"playlists_path"`
	Screenshots      bool   `mapstructure:"screenshots" yaml:"screenshots"`
	// ButtonEditDistance is the per-word edit distance allowed when a
	// button step looks for its label.
	ButtonEditDistance int `mapstructure:"button_edit_distance" yaml:"button_edit_distance"`
}

// DatabaseConfig enables the run journal when URL is set.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vatm")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Terminal --
	v.SetDefault("terminal.startup_delay", "30s")
	v.SetDefault("terminal.standard_delay", "5s")
	v.SetDefault("terminal.startup_timeout", "5m")
	v.SetDefault("terminal.startup_refresh", "15s")

	// -- API --
	v.SetDefault("api.agent", "api/agent")
	v.SetDefault("api.virtual_machine", "api/vm")
	v.SetDefault("api.atm", "api/atm")
	v.SetDefault("api.connection", "api/connection")

	// -- Network --
	v.SetDefault("network.timeout", "60s")
	v.SetDefault("network.ignore_tls_errors", false)
	v.SetDefault("network.force_http2", false)
	v.SetDefault("network.trace_bodies", false)

	// -- Dispatch --
	v.SetDefault("dispatch.max_attempts", 25)
	v.SetDefault("dispatch.timeout", "10m")

	// -- Keypad --
	v.SetDefault("keypad.key_interval", "1s")
	v.SetDefault("keypad.digit_prefix", "n")
	v.SetDefault("keypad.enter_key", "Enter")
	v.SetDefault("keypad.cancel_key", "Cancel")

	// -- Preferences --
	v.SetDefault("preferences.download_path", "~/vatm/downloads")
	v.SetDefault("preferences.transactions_path", "transactions")
	v.SetDefault("preferences.playlists_path", "playlists")
	v.SetDefault("preferences.screenshots", true)
	v.SetDefault("preferences.button_edit_distance", 1)
}

// envBindings maps keys that have no default to their environment
// variables.
var envBindings = map[string]string{
	"terminal.host":        "VATM_TERMINAL_HOST",
	"terminal.hw_profile":  "VATM_TERMINAL_HW_PROFILE",
	"credentials.username": "VATM_CREDENTIALS_USERNAME",
	"credentials.password": "VATM_CREDENTIALS_PASSWORD",
	"credentials.group_id": "VATM_CREDENTIALS_GROUP_ID",
	"database.url":         "VATM_DATABASE_URL",
	"network.proxy_url":    "VATM_NETWORK_PROXY_URL",
}

// NewConfigFromViper creates a new configuration instance from a viper object.
// Screen definitions are not loaded here; see LoadScreens.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Keys without a default are invisible to Unmarshal unless bound.
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s env: %w", key, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	download, err := homedir.Expand(cfg.Preferences.DownloadPath)
	if err != nil {
		return nil, fmt.Errorf("invalid preferences.download_path: %w", err)
	}
	cfg.Preferences.DownloadPath = download

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// Terminal and credential checks live in ValidateSession because commands
// that only read files do not need them.
func (c *Config) Validate() error {
	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch configuration invalid: %w", err)
	}
	if err := c.Keypad.Validate(); err != nil {
		return fmt.Errorf("keypad configuration invalid: %w", err)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network configuration invalid: %w", err)
	}
	if c.Terminal.StandardDelay < 0 {
		return errors.New("terminal.standard_delay must not be negative")
	}
	if c.Preferences.ButtonEditDistance < 0 {
		return errors.New("preferences.button_edit_distance must not be negative")
	}
	return nil
}

// ValidateSession checks what is needed to talk to a live terminal.
func (c *Config) ValidateSession() error {
	if strings.TrimSpace(c.Terminal.Host) == "" {
		return errors.New("terminal.host is a required configuration field")
	}
	u, err := url.Parse(c.Terminal.Host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("terminal.host %q must be an absolute URL", c.Terminal.Host)
	}
	if c.Credentials.Username == "" {
		return errors.New("credentials.username is a required configuration field")
	}
	if c.Credentials.Password == "" {
		return errors.New("credentials.password is required but not found. Ensure VATM_CREDENTIALS_PASSWORD is set")
	}
	return nil
}

// Validate checks the dispatch bounds.
func (d *DispatchConfig) Validate() error {
	if d.MaxAttempts <= 0 {
		return errors.New("max_attempts must be greater than 0")
	}
	if d.Timeout <= 0 {
		return errors.New("timeout must be a positive duration")
	}
	return nil
}

// Validate checks the keypad mapping.
func (k *KeypadConfig) Validate() error {
	if k.EnterKey == "" || k.CancelKey == "" {
		return errors.New("enter_key and cancel_key are required")
	}
	if k.KeyInterval < 0 {
		return errors.New("key_interval must not be negative")
	}
	return nil
}

// Validate checks the network settings.
func (n *NetworkConfig) Validate() error {
	if n.Timeout <= 0 {
		return errors.New("timeout must be a positive duration")
	}
	if n.ProxyURL != "" {
		if _, err := url.Parse(n.ProxyURL); err != nil {
			return fmt.Errorf("proxy_url is invalid: %w", err)
		}
	}
	return nil
}
