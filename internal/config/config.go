// Package config loads civid's runtime configuration from an optional YAML
// file, an optional .env file, and the process environment, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingSigningKey = errors.New("missing required SIGNING_KEY")
	ErrMissingSecretKey  = errors.New("missing required SECRET_KEY")
	ErrInvalidValue      = errors.New("invalid config value")
)

// Config aggregates runtime configuration for the server.
type Config struct {
	SigningKey string `yaml:"signing_key"`
	SecretKey  string `yaml:"secret_key"`

	ListenAddr   string `yaml:"listen_addr"`
	BaseURL      string `yaml:"base_url"`
	DBPath       string `yaml:"db_path"`
	TemplatesDir string `yaml:"templates_dir"`
	BotName      string `yaml:"bot_name"`

	Logger    LoggerConfig    `yaml:"logger"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	SecureCookies bool `yaml:"secure_cookies"`

	// TrustedProxies may report the client address in forwarding headers.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// RateLimitConfig sets the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Defaults returns a Config with every optional value filled in.
func Defaults() Config {
	return Config{
		ListenAddr: ":8080",
		BaseURL:    "http://localhost:8080",
		DBPath:     "civid.sqlite",
		BotName:    "edsgar",
		Logger: LoggerConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RPS:   1,
			Burst: 5,
		},
	}
}

// Load builds the configuration. yamlPath may be empty. A .env file in the
// working directory is loaded if present; variables already set in the
// environment win over it.
func Load(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if yamlPath != "" {
		if err := loadYAML(yamlPath, &cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing required keys and nonsensical values.
func (c *Config) Validate() error {
	if c.SigningKey == "" {
		return ErrMissingSigningKey
	}
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidValue)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

func loadYAML(path string, cfg *Config) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return fmt.Errorf("failed to parse yaml of '%s': %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.SigningKey, "SIGNING_KEY")
	setString(&cfg.SecretKey, "SECRET_KEY")
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.BaseURL, "BASE_URL")
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.TemplatesDir, "TEMPLATES_DIR")
	setString(&cfg.BotName, "BOT_NAME")
	setString(&cfg.Logger.Level, "LOG_LEVEL")

	if v, ok := os.LookupEnv("RATE_LIMIT_RPS"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: RATE_LIMIT_RPS (\"%v\")", ErrInvalidValue, v)
		}
		cfg.RateLimit.RPS = rps
	}
	if v, ok := os.LookupEnv("RATE_LIMIT_BURST"); ok {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RATE_LIMIT_BURST (\"%v\")", ErrInvalidValue, v)
		}
		cfg.RateLimit.Burst = burst
	}
	if v, ok := os.LookupEnv("TRUSTED_PROXIES"); ok && v != "" {
		cfg.TrustedProxies = nil
		for _, entry := range strings.Split(v, ",") {
			if entry = strings.TrimSpace(entry); entry != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, entry)
			}
		}
	}
	if v, ok := os.LookupEnv("SECURE_COOKIES"); ok {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: SECURE_COOKIES (\"%v\")", ErrInvalidValue, v)
		}
		cfg.SecureCookies = secure
	}
	return nil
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}
