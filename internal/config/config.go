package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kesslerio/dialpad-openclaw-skill/pkg/phone"
)

// Config holds all configuration settings. It is built once at process
// start and treated as read-only afterwards.
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Webhook struct {
		// Secret enables HMAC/JWT verification on the main webhook when
		// non-empty. Empty means auth is disabled (bootstrap mode).
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`
	Dialpad struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"dialpad"`
	Telegram struct {
		BotToken string `yaml:"botToken"`
		ChatID   string `yaml:"chatId"`
	} `yaml:"telegram"`
	Hooks struct {
		GatewayURL string `yaml:"gatewayUrl"`
		Path       string `yaml:"path"`
		Token      string `yaml:"token"`
		Name       string `yaml:"name"`
		Channel    string `yaml:"channel"`
		To         string `yaml:"to"`
		AgentID    string `yaml:"agentId"`
	} `yaml:"hooks"`
	// LineNames maps receiving line numbers to friendly display names.
	// Keys are normalized before use; env overrides merge over these.
	LineNames map[string]string `yaml:"lineNames"`
	Classifier struct {
		MissedCallStates  []string `yaml:"missedCallStates"`
		MissedCallHints   []string `yaml:"missedCallHints"`
		CallContextFields []string `yaml:"callContextFields"`
	} `yaml:"classifier"`
	Filter struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"filter"`
	Poller struct {
		LookbackHours float64 `yaml:"lookbackHours"`
		LedgerPath    string  `yaml:"ledgerPath"`
	} `yaml:"poller"`
	Logging struct {
		Level string `yaml:"level"`
		Path  string `yaml:"path"`
	} `yaml:"logging"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.Port = 8081
	config.Server.Host = "0.0.0.0"
	config.Database.DSN = "file:dialpad_sms.db?cache=shared&mode=rwc"
	config.Dialpad.BaseURL = "https://dialpad.com/api/v2"
	config.Hooks.GatewayURL = "http://127.0.0.1:8080"
	config.Hooks.Path = "/hooks/agent"
	config.Hooks.Name = "Dialpad SMS"
	config.LineNames = map[string]string{
		"+14155201316": "Sales",
		"+14153602954": "Work",
		"+14159917155": "Support",
	}
	config.Classifier.MissedCallStates = []string{"missed", "no_answer", "unanswered"}
	config.Classifier.MissedCallHints = []string{"missed_call", "call.missed", "call_missed", "call missed"}
	config.Classifier.CallContextFields = []string{
		"call_id", "call_missed", "call_state", "call_direction", "call_duration", "duration",
	}
	config.Filter.Enabled = true
	config.Poller.LookbackHours = 2
	config.Poller.LedgerPath = "voicemails_seen.db"
	config.Logging.Level = "info"
	config.Logging.Path = "server.log"
	return config
}

// LoadConfig loads configuration from a YAML file merged over defaults.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config file error: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("config path is not a regular file")
	}

	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("config parse error: %w", err)
	}

	return config, nil
}

// LoadFromEnv loads configuration with environment variable overrides. A
// .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars in deployment. path may be empty, in which
// case defaults plus env overrides are used.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg *Config
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = DefaultConfig()
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid PORT value %q", v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("DIALPAD_WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("DIALPAD_API_KEY"); v != "" {
		cfg.Dialpad.APIKey = v
	}
	if v := os.Getenv("DIALPAD_API_BASE_URL"); v != "" {
		cfg.Dialpad.BaseURL = v
	}
	if v := os.Getenv("DIALPAD_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("DIALPAD_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("OPENCLAW_GATEWAY_URL"); v != "" {
		cfg.Hooks.GatewayURL = v
	}
	if v := os.Getenv("OPENCLAW_HOOKS_PATH"); v != "" {
		cfg.Hooks.Path = v
	}
	if v := os.Getenv("OPENCLAW_HOOKS_TOKEN"); v != "" {
		cfg.Hooks.Token = v
	}
	if v := os.Getenv("OPENCLAW_HOOKS_NAME"); v != "" {
		cfg.Hooks.Name = v
	}
	if v := os.Getenv("OPENCLAW_HOOKS_CHANNEL"); v != "" {
		cfg.Hooks.Channel = v
	}
	if v := os.Getenv("OPENCLAW_HOOKS_TO"); v != "" {
		cfg.Hooks.To = v
	}
	if v := os.Getenv("OPENCLAW_HOOKS_AGENT_ID"); v != "" {
		cfg.Hooks.AgentID = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("POLL_LOOKBACK_HOURS"); v != "" {
		if hours, err := strconv.ParseFloat(v, 64); err == nil && hours > 0 {
			cfg.Poller.LookbackHours = hours
		}
	}
	if v := os.Getenv("VOICEMAIL_DB_PATH"); v != "" {
		cfg.Poller.LedgerPath = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		cfg.Logging.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	applyLineNameOverrides(cfg)

	return cfg, nil
}

// applyLineNameOverrides merges DIALPAD_LINE_NAMES (a JSON object of
// number -> name) over the configured mapping. Invalid JSON keeps the
// existing mapping.
func applyLineNameOverrides(cfg *Config) {
	raw := os.Getenv("DIALPAD_LINE_NAMES")
	if raw == "" {
		return
	}

	var mapping map[string]string
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return
	}
	if cfg.LineNames == nil {
		cfg.LineNames = map[string]string{}
	}
	for number, name := range mapping {
		if number != "" && name != "" {
			cfg.LineNames[number] = name
		}
	}
}

// NormalizedLineNames returns the line-name mapping keyed by normalized
// phone number. Entries that carry no digits are dropped.
func (c *Config) NormalizedLineNames() map[string]string {
	normalized := make(map[string]string, len(c.LineNames))
	for number, name := range c.LineNames {
		key := phone.Normalize(number)
		if key != "" && name != "" {
			normalized[key] = name
		}
	}
	return normalized
}
