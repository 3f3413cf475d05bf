package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for agrobot.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Database   DatabaseConfig   `json:"database"`
	Provider   ProviderConfig   `json:"provider"`
	Embeddings EmbeddingsConfig `json:"embeddings"`
	Whisper    WhisperConfig    `json:"whisper"`
	Classifier ClassifierConfig `json:"classifier"`
	WhatsApp   WhatsAppConfig   `json:"whatsapp"`
	Audio      AudioConfig      `json:"audio"`
}

type GeneralConfig struct {
	LogLevel   string `json:"logLevel"`
	ListenAddr string `json:"listenAddr"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

// ProviderConfig points at an OpenAI-compatible chat completions API.
type ProviderConfig struct {
	APIBase     string  `json:"apiBase"`
	APIKey      string  `json:"apiKey,omitempty"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type EmbeddingsConfig struct {
	APIBase string `json:"apiBase"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model"`
}

type WhisperConfig struct {
	APIBase string `json:"apiBase"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model"`
}

// ClassifierConfig gates messages on embedding similarity before any
// chat completion is spent on them.
type ClassifierConfig struct {
	Enabled      bool    `json:"enabled"`
	Threshold    float64 `json:"threshold"`
	ExamplesPath string  `json:"examplesPath,omitempty"` // YAML intent->phrases override
}

type WhatsAppConfig struct {
	AppSecret     string `json:"appSecret,omitempty"`
	AccessToken   string `json:"accessToken,omitempty"`
	VerifyToken   string `json:"verifyToken,omitempty"`
	PhoneNumberID string `json:"phoneNumberId,omitempty"`
	WebhookPath   string `json:"webhookPath,omitempty"`
}

type AudioConfig struct {
	Dir string `json:"dir,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.agrobot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agrobot"
	}
	return filepath.Join(home, ".agrobot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Defaults returns a config that works against the public OpenAI API once
// the key is set.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:   "info",
			ListenAddr: ":8080",
		},
		Database: DatabaseConfig{
			Path: filepath.Join(DefaultConfigDir(), "agrobot.db"),
		},
		Provider: ProviderConfig{
			APIBase:     "https://api.openai.com/v1",
			APIKey:      "${OPENAI_API_KEY}",
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.3,
		},
		Embeddings: EmbeddingsConfig{
			APIBase: "https://api.openai.com/v1",
			APIKey:  "${OPENAI_API_KEY}",
			Model:   "text-embedding-3-small",
		},
		Whisper: WhisperConfig{
			APIBase: "https://api.openai.com/v1",
			APIKey:  "${OPENAI_API_KEY}",
			Model:   "whisper-1",
		},
		Classifier: ClassifierConfig{
			Enabled:   true,
			Threshold: 0.5,
		},
		WhatsApp: WhatsAppConfig{
			WebhookPath: "/webhook/whatsapp",
		},
	}
}

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
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Audio.Dir = expandPath(cfg.Audio.Dir)
	cfg.Classifier.ExamplesPath = expandPath(cfg.Classifier.ExamplesPath)

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
			return match // keep the original if no env var and no default
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

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if cfg.Provider.APIBase == "" {
		errs = append(errs, "provider.apiBase is required")
	}
	if cfg.Provider.Model == "" {
		errs = append(errs, "provider.model is required")
	}
	if cfg.Provider.MaxTokens < 1 {
		errs = append(errs, "provider.maxTokens must be >= 1")
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		errs = append(errs, "provider.temperature must be between 0 and 2")
	}
	if cfg.Classifier.Enabled {
		if cfg.Embeddings.APIBase == "" || cfg.Embeddings.Model == "" {
			errs = append(errs, "classifier is enabled but embeddings.apiBase/model are not set")
		}
		if cfg.Classifier.Threshold <= 0 || cfg.Classifier.Threshold >= 1 {
			errs = append(errs, "classifier.threshold must be between 0 and 1 exclusive")
		}
	}
	if cfg.WhatsApp.WebhookPath != "" && !strings.HasPrefix(cfg.WhatsApp.WebhookPath, "/") {
		errs = append(errs, "whatsapp.webhookPath must start with /")
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
