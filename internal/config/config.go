package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token         string `yaml:"token"`
	Mode          string `yaml:"mode"` // polling | noop
	Workers       int    `yaml:"workers"`
	ProviderToken string `yaml:"provider_token"` // payment provider token for invoices
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"` // health + metrics
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // empty -> in-memory records (dev only)
}

type RedisConfig struct {
	URL      string `yaml:"url"` // empty -> in-process locking, no rate limiter
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuditConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"` // empty -> noop sink (dev only)
	Sheet           string `yaml:"sheet"`
	CredentialsFile string `yaml:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json"`
}

type GateConfig struct {
	FreeDailyLimit  int    `yaml:"free_daily_limit"`
	TrialEnd        string `yaml:"trial_end"` // RFC3339
	PaidWindowHours int    `yaml:"paid_window_hours"`
	Currency        string `yaml:"currency"`
	UnlockAmount    int    `yaml:"unlock_amount"` // smallest currency unit

	TrialEndAt time.Time `yaml:"-"`
}

func (g GateConfig) PaidWindow() time.Duration {
	return time.Duration(g.PaidWindowHours) * time.Hour
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Audit    AuditConfig    `yaml:"audit"`
	Gate     GateConfig     `yaml:"gate"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes, defaults and validates a raw YAML config.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8081
	}
	if cfg.Audit.Sheet == "" {
		cfg.Audit.Sheet = "Sheet1"
	}
	if cfg.Gate.FreeDailyLimit <= 0 {
		cfg.Gate.FreeDailyLimit = 5
	}
	if cfg.Gate.TrialEnd == "" {
		cfg.Gate.TrialEnd = "2025-09-25T23:59:59Z"
	}
	if cfg.Gate.PaidWindowHours <= 0 {
		cfg.Gate.PaidWindowHours = 24
	}
	if cfg.Gate.Currency == "" {
		cfg.Gate.Currency = "INR"
	}
	if cfg.Gate.UnlockAmount <= 0 {
		cfg.Gate.UnlockAmount = 100
	}

	trialEnd, err := time.Parse(time.RFC3339, cfg.Gate.TrialEnd)
	if err != nil {
		return nil, fmt.Errorf("gate.trial_end: %w", err)
	}
	cfg.Gate.TrialEndAt = trialEnd

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Audit.CredentialsFile != "" && cfg.Audit.CredentialsJSON != "" {
		return nil, errors.New("audit: set credentials_file or credentials_json, not both")
	}
	return &cfg, nil
}

// ServiceAccountCredentials is the subset of a Google service-account key
// this service depends on. Parsed strictly instead of evaluated.
type ServiceAccountCredentials struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// ResolveAuditCredentials returns the raw service-account JSON after
// validating its shape.
func (a AuditConfig) ResolveAuditCredentials() ([]byte, error) {
	var raw []byte
	switch {
	case a.CredentialsJSON != "":
		raw = []byte(a.CredentialsJSON)
	case a.CredentialsFile != "":
		b, err := os.ReadFile(a.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read audit credentials: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("audit credentials not configured")
	}
	if _, err := ParseServiceAccount(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ParseServiceAccount validates a service-account key payload.
func ParseServiceAccount(raw []byte) (*ServiceAccountCredentials, error) {
	var sa ServiceAccountCredentials
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if sa.Type != "service_account" {
		return nil, fmt.Errorf("service account: unexpected type %q", sa.Type)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("service account: client_email and private_key are required")
	}
	return &sa, nil
}
