package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for factrelay.
type Config struct {
	General     GeneralConfig     `json:"general" yaml:"general"`
	Server      ServerConfig      `json:"server" yaml:"server"`
	Agent       AgentConfig       `json:"agent" yaml:"agent"`
	Channels    ChannelsConfig    `json:"channels" yaml:"channels"`
	Idempotency IdempotencyConfig `json:"idempotency" yaml:"idempotency"`
	Journal     JournalConfig     `json:"journal" yaml:"journal"`
	Metrics     MetricsConfig     `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// AgentConfig points at the remote verification agent. The agent is slow;
// timeouts are measured in minutes, not seconds.
type AgentConfig struct {
	BaseURL        string `json:"baseUrl" yaml:"baseUrl"`
	AppName        string `json:"appName" yaml:"appName"`
	Token          string `json:"token,omitempty" yaml:"token,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	MaxAttempts    int    `json:"maxAttempts" yaml:"maxAttempts"`
	BaseDelayMS    int    `json:"baseDelayMs" yaml:"baseDelayMs"`
}

type ChannelsConfig struct {
	Extension ExtensionConfig `json:"extension" yaml:"extension"`
	WhatsApp  WhatsAppConfig  `json:"whatsapp" yaml:"whatsapp"`
	Telegram  TelegramConfig  `json:"telegram" yaml:"telegram"`
}

type ExtensionConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

type WhatsAppConfig struct {
	Enabled       bool    `json:"enabled" yaml:"enabled"`
	AccessToken   string  `json:"accessToken,omitempty" yaml:"accessToken,omitempty"`
	VerifyToken   string  `json:"verifyToken,omitempty" yaml:"verifyToken,omitempty"`
	AppSecret     string  `json:"appSecret,omitempty" yaml:"appSecret,omitempty"`
	PhoneNumberID string  `json:"phoneNumberId,omitempty" yaml:"phoneNumberId,omitempty"`
	APIBase       string  `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	RatePerSecond float64 `json:"ratePerSecond,omitempty" yaml:"ratePerSecond,omitempty"`
}

type TelegramConfig struct {
	Enabled       bool    `json:"enabled" yaml:"enabled"`
	BotToken      string  `json:"botToken,omitempty" yaml:"botToken,omitempty"`
	APIBase       string  `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	RatePerSecond float64 `json:"ratePerSecond,omitempty" yaml:"ratePerSecond,omitempty"`
}

// IdempotencyConfig bounds the duplicate-suppression window. Both WhatsApp
// and Telegram may redeliver a webhook for tens of minutes, so the window
// defaults to a full hour.
type IdempotencyConfig struct {
	WindowMinutes int `json:"windowMinutes" yaml:"windowMinutes"`
	SweepMinutes  int `json:"sweepMinutes" yaml:"sweepMinutes"`
}

type JournalConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	DBPath        string `json:"dbPath" yaml:"dbPath"`
	RetentionDays int    `json:"retentionDays" yaml:"retentionDays"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.factrelay).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".factrelay"
	}
	return filepath.Join(home, ".factrelay")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a JSON or YAML config file, expands ${VAR} references,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Journal.DBPath = expandPath(cfg.Journal.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if cfg.Agent.BaseURL == "" {
		errs = append(errs, "agent.baseUrl is required")
	}
	if cfg.Agent.TimeoutSeconds < 1 {
		errs = append(errs, "agent.timeoutSeconds must be >= 1")
	}
	if cfg.Agent.MaxAttempts < 1 || cfg.Agent.MaxAttempts > 10 {
		errs = append(errs, "agent.maxAttempts must be between 1 and 10")
	}
	if cfg.Idempotency.WindowMinutes < 1 {
		errs = append(errs, "idempotency.windowMinutes must be >= 1")
	}
	if cfg.Channels.WhatsApp.Enabled {
		if cfg.Channels.WhatsApp.AccessToken == "" {
			errs = append(errs, "channels.whatsapp.accessToken is required when whatsapp is enabled")
		}
		if cfg.Channels.WhatsApp.VerifyToken == "" {
			errs = append(errs, "channels.whatsapp.verifyToken is required when whatsapp is enabled")
		}
		if cfg.Channels.WhatsApp.PhoneNumberID == "" {
			errs = append(errs, "channels.whatsapp.phoneNumberId is required when whatsapp is enabled")
		}
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.BotToken == "" {
		errs = append(errs, "channels.telegram.botToken is required when telegram is enabled")
	}
	if cfg.Journal.Enabled && cfg.Journal.RetentionDays < 1 {
		errs = append(errs, "journal.retentionDays must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
