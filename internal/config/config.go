package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"terminal-ai-chat/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent completion requests
}

type StorageConfig struct {
	Backend       string `yaml:"backend"` // file | redis | memory
	Path          string `yaml:"path"`    // file backend: snapshot location
	EncryptionKey string `yaml:"encryption_key"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // 0 keeps snapshots forever
}

type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type Config struct {
	Log     LogConfig        `yaml:"log"`
	AI      AIConfig         `yaml:"ai"`
	Chat    model.ChatConfig `yaml:"chat"`
	Storage StorageConfig    `yaml:"storage"`
	Redis   RedisConfig      `yaml:"redis"`
	Web     WebConfig        `yaml:"web"`

	// SystemPrompt, when set, is prepended as the very first message of
	// every outbound context.
	SystemPrompt string `yaml:"system_prompt"`

	// AutosaveInterval controls the background snapshot flush.
	AutosaveInterval time.Duration `yaml:"autosave_interval"`

	Runtime RuntimeConfig `yaml:"-"`
}

// DefaultConfigPath is used when the -config flag is left at its default
// and the file does not exist: the app then runs on built-in defaults.
const DefaultConfigPath = "config.yaml"

// LoadConfig reads and validates the YAML config. A missing file at the
// default path is not an error; any other read failure is.
func LoadConfig(path string, dev bool) (*Config, error) {
	cfg := defaults()

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err) && path == DefaultConfigPath:
		// run on defaults
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Log:              LogConfig{Level: "info", Format: "console"},
		Chat:             model.DefaultChatConfig(),
		Storage:          StorageConfig{Backend: "file"},
		Web:              WebConfig{Port: 9090},
		AutosaveInterval: 30 * time.Second,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 4
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStatePath()
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 9090
	}
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = 30 * time.Second
	}
	cfg.Chat.Normalize()
}

func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "file", "memory":
	case "redis":
		if cfg.Redis.URL == "" {
			return errors.New("storage.backend is redis but redis.url is empty")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", cfg.Storage.Backend)
	}
	if k := cfg.Storage.EncryptionKey; k != "" {
		if n := len(k); n != 16 && n != 24 && n != 32 {
			return fmt.Errorf("storage.encryption_key must be 16, 24, or 32 bytes; got %d", n)
		}
	}
	return nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "state.json"
	}
	return filepath.Join(home, ".terminal-ai-chat", "state.json")
}
