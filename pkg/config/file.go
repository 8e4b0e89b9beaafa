package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tuningFile is the optional YAML file named by CONFIG_FILE. It carries the
// knobs operators adjust per deployment; an environment variable still wins
// over the file for the same setting.
type tuningFile struct {
	RateLimit struct {
		WindowSeconds     *int `yaml:"window_seconds"`
		DefaultLimit      *int `yaml:"default_limit"`
		ReportSubmissions *int `yaml:"report_submissions"`
	} `yaml:"rate_limit"`
	Fraud struct {
		AutoSuspend           *bool `yaml:"auto_suspend"`
		StatusCacheTTLSeconds *int  `yaml:"status_cache_ttl_seconds"`
	} `yaml:"fraud"`
	AI struct {
		Enabled        *bool   `yaml:"enabled"`
		Model          *string `yaml:"model"`
		TimeoutSeconds *int    `yaml:"timeout_seconds"`
	} `yaml:"ai"`
	Server struct {
		CORSOrigins *string `yaml:"cors_origins"`
	} `yaml:"server"`
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f tuningFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	overlay(&cfg.RateLimit.WindowSeconds, f.RateLimit.WindowSeconds, "RATE_LIMIT_WINDOW_SECONDS")
	overlay(&cfg.RateLimit.DefaultLimit, f.RateLimit.DefaultLimit, "RATE_LIMIT_DEFAULT")
	overlay(&cfg.RateLimit.ReportSubmissions, f.RateLimit.ReportSubmissions, "RATE_LIMIT_REPORTS")
	overlay(&cfg.Fraud.AutoSuspend, f.Fraud.AutoSuspend, "FRAUD_AUTO_SUSPEND")
	overlay(&cfg.Fraud.StatusCacheTTLSeconds, f.Fraud.StatusCacheTTLSeconds, "FRAUD_STATUS_CACHE_TTL")
	overlay(&cfg.AI.Enabled, f.AI.Enabled, "AI_ENABLED")
	overlay(&cfg.AI.Model, f.AI.Model, "AI_MODEL")
	overlay(&cfg.AI.TimeoutSeconds, f.AI.TimeoutSeconds, "AI_TIMEOUT_SECONDS")
	overlay(&cfg.Server.CORSOrigins, f.Server.CORSOrigins, "CORS_ORIGINS")
	return nil
}

func overlay[T any](dst *T, v *T, envKey string) {
	if v == nil {
		return
	}
	if _, set := os.LookupEnv(envKey); set {
		return
	}
	*dst = *v
}
