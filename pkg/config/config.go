// Package config loads the application configuration from
// ~/.retailgate/config.yaml and the environment. Environment variables
// take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/retailgate/pkg/capability"
	"github.com/zen-systems/retailgate/pkg/sqlexec"
)

// Defaults applied when neither file nor environment sets a value.
const (
	DefaultStoreFile  = "retail.db"
	DefaultPolicyFile = "policies.md"
	DefaultTraceFile  = "trace.jsonl"
	DefaultListenAddr = ":8080"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	DeepSeekAPIKey  string

	StorePath     string
	PolicyDocPath string
	TracePath     string
	ListenAddr    string
	MaxAttempts   int

	Routes    capability.Routes
	ConfigDir string
}

// FileConfig represents the structure of ~/.retailgate/config.yaml.
type FileConfig struct {
	APIKeys APIKeysConfig     `yaml:"api_keys"`
	Paths   PathsConfig       `yaml:"paths"`
	Server  ServerConfig      `yaml:"server"`
	SQL     SQLConfig         `yaml:"sql"`
	Routes  capability.Routes `yaml:"routes"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
	DeepSeek  string `yaml:"deepseek"`
}

// PathsConfig holds the data file locations.
type PathsConfig struct {
	Store     string `yaml:"store"`
	PolicyDoc string `yaml:"policy_doc"`
	Trace     string `yaml:"trace"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// SQLConfig holds the self-correction settings.
type SQLConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// Load reads configuration from the config file and environment
// variables. Environment variables take precedence over file values.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return load(configDir, filepath.Join(configDir, "config.yaml"))
}

// LoadFromPath loads configuration from an explicit config file.
func LoadFromPath(path string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return load(configDir, path)
}

func load(configDir, filePath string) (*Config, error) {
	fileConfig := loadFileConfig(filePath)

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		DeepSeekAPIKey:  getEnvOrDefault("DEEPSEEK_API_KEY", fileConfig.APIKeys.DeepSeek),

		StorePath:     getEnvOrDefault("RETAILGATE_STORE_PATH", fileConfig.Paths.Store),
		PolicyDocPath: getEnvOrDefault("RETAILGATE_POLICY_DOC", fileConfig.Paths.PolicyDoc),
		TracePath:     getEnvOrDefault("RETAILGATE_TRACE_PATH", fileConfig.Paths.Trace),
		ListenAddr:    getEnvOrDefault("RETAILGATE_LISTEN_ADDR", fileConfig.Server.ListenAddr),
		MaxAttempts:   fileConfig.SQL.MaxAttempts,

		Routes:    fileConfig.Routes,
		ConfigDir: configDir,
	}

	if raw := os.Getenv("RETAILGATE_MAX_ATTEMPTS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid RETAILGATE_MAX_ATTEMPTS %q", raw)
		}
		cfg.MaxAttempts = n
	}

	applyDefaults(cfg, configDir)
	return cfg, nil
}

func applyDefaults(cfg *Config, configDir string) {
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(configDir, DefaultStoreFile)
	}
	if cfg.PolicyDocPath == "" {
		cfg.PolicyDocPath = filepath.Join(configDir, DefaultPolicyFile)
	}
	if cfg.TracePath == "" {
		cfg.TracePath = filepath.Join(configDir, DefaultTraceFile)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = sqlexec.DefaultMaxAttempts
	}
}

// HasAdapter returns true if the API key for the given adapter is
// configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not
// found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, cfg)
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".retailgate")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
