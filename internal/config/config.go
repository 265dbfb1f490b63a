// Package config assembles server settings from defaults, an optional YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all server settings.
type Config struct {
	Addr       string   `yaml:"addr" validate:"required"`
	DB         string   `yaml:"db" validate:"required"`
	Log        string   `yaml:"log"`
	LogLevel   string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	AdminEmail string   `yaml:"admin_email" validate:"required,email"`
	AI         AIConfig `yaml:"ai"`
}

// AIConfig configures the model behind the AI endpoints.
type AIConfig struct {
	APIKey             string        `yaml:"api_key"`
	Model              string        `yaml:"model" validate:"required"`
	Timeout            time.Duration `yaml:"timeout" validate:"gt=0"`
	RequestsPerMinute  int           `yaml:"requests_per_minute" validate:"gt=0"`
	MaxInventoryImages int           `yaml:"max_inventory_images" validate:"gte=0"`
}

// Enabled reports whether an API key is configured.
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Addr:       ":8080",
		DB:         "omara.sqlite3",
		LogLevel:   "info",
		AdminEmail: "admin@omara.local",
		AI: AIConfig{
			Model:              "gemini-2.5-flash",
			Timeout:            30 * time.Second,
			RequestsPerMinute:  10,
			MaxInventoryImages: 12,
		},
	}
}

// Load builds the configuration. path may be empty; a missing file at an
// explicit path is an error. envFile names a dotenv file that is loaded if
// present; variables already set in the environment win over it.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	for name, dst := range map[string]*string{
		"OMARA_ADDR":        &c.Addr,
		"OMARA_DB":          &c.DB,
		"OMARA_LOG":         &c.Log,
		"OMARA_LOG_LEVEL":   &c.LogLevel,
		"OMARA_ADMIN_EMAIL": &c.AdminEmail,
		"GEMINI_API_KEY":    &c.AI.APIKey,
		"OMARA_AI_MODEL":    &c.AI.Model,
	} {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("OMARA_AI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("OMARA_AI_TIMEOUT: %w", err)
		}
		c.AI.Timeout = d
	}
	if v := os.Getenv("OMARA_AI_RPM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OMARA_AI_RPM: %w", err)
		}
		c.AI.RequestsPerMinute = n
	}
	return nil
}

// Validate checks the final settings, after flags have been applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
