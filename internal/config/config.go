// Package config loads guard configuration from an optional YAML file with
// environment-variable overrides. Every knob has a working default so the
// binary runs with no config at all.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// #region config

// Config is the full runtime configuration of the guard pipeline.
type Config struct {
	DBPath string `yaml:"db_path"`

	LLM struct {
		BaseURL         string  `yaml:"base_url"`
		APIKey          string  `yaml:"-"` // env only, never from file
		GenModel        string  `yaml:"gen_model"`
		ValidationModel string  `yaml:"validation_model"`
		Temperature     float64 `yaml:"temperature"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
	} `yaml:"llm"`

	Validator struct {
		DeclineUnsafe      float64 `yaml:"decline_unsafe"`
		DeclineOutOfDomain float64 `yaml:"decline_out_of_domain"`
		HardRules          bool    `yaml:"hard_rules"`
		CorpusSeed         int64   `yaml:"corpus_seed"`
	} `yaml:"validator"`

	Generation struct {
		MaxAttempts int  `yaml:"max_attempts"`
		Verbose     bool `yaml:"verbose"`
	} `yaml:"generation"`
}

// #endregion config

// #region defaults

// Default returns the configuration used when no file and no env overrides
// are present.
func Default() Config {
	var c Config
	c.DBPath = "queryguard.db"
	c.LLM.BaseURL = "http://localhost:8000/v1"
	c.LLM.GenModel = "gpt-4o"
	c.LLM.ValidationModel = "gpt-4o-mini"
	c.LLM.Temperature = 0.1
	c.LLM.TimeoutSeconds = 30
	c.Validator.DeclineUnsafe = 0.85
	c.Validator.DeclineOutOfDomain = 0.92
	c.Validator.HardRules = true
	c.Validator.CorpusSeed = 123
	c.Generation.MaxAttempts = 3
	return c
}

// #endregion defaults

// #region load

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides on top.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&c)
	return c, nil
}

// applyEnv overlays QUERYGUARD_* environment variables.
func applyEnv(c *Config) {
	c.DBPath = envOr("QUERYGUARD_DB", c.DBPath)
	c.LLM.BaseURL = envOr("QUERYGUARD_LLM_URL", c.LLM.BaseURL)
	c.LLM.APIKey = envOr("QUERYGUARD_LLM_KEY", c.LLM.APIKey)
	c.LLM.GenModel = envOr("QUERYGUARD_GEN_MODEL", c.LLM.GenModel)
	c.LLM.ValidationModel = envOr("QUERYGUARD_VALIDATION_MODEL", c.LLM.ValidationModel)

	if v := os.Getenv("QUERYGUARD_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Generation.MaxAttempts = n
		}
	}
	if v := os.Getenv("QUERYGUARD_HARD_RULES"); v != "" {
		c.Validator.HardRules = v != "false"
	}
	if v := os.Getenv("QUERYGUARD_CORPUS_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Validator.CorpusSeed = n
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load
