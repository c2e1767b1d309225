// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"glory-ledger/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"` // apply embedded schema at startup
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// PricingConfig keeps prices as strings so YAML floats never round them.
type PricingConfig struct {
	Basic    string `yaml:"basic"`
	Premium  string `yaml:"premium"`
	Currency string `yaml:"currency"`
	PayID    string `yaml:"pay_id"`
}

type SchedulerConfig struct {
	PendingScanInterval time.Duration `yaml:"pending_scan_interval"`
	StaleAfter          time.Duration `yaml:"stale_after"`
}

type LimitsConfig struct {
	SubmitPerWindow int           `yaml:"submit_per_window"`
	SubmitWindow    time.Duration `yaml:"submit_window"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Limits    LimitsConfig    `yaml:"limits"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (optional in dev mode), applies
// environment overrides and defaults, then validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && dev:
		// dev mode runs on defaults alone
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg.Runtime.Dev = dev

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		cfg.HTTP.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 15 * time.Second
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "glory-ledger"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	def := model.DefaultPriceTable()
	if strings.TrimSpace(cfg.Pricing.Basic) == "" {
		cfg.Pricing.Basic = def.Basic.StringFixed(2)
	}
	if strings.TrimSpace(cfg.Pricing.Premium) == "" {
		cfg.Pricing.Premium = def.Premium.StringFixed(2)
	}
	if cfg.Pricing.Currency == "" {
		cfg.Pricing.Currency = def.Currency
	}
	if cfg.Scheduler.PendingScanInterval <= 0 {
		cfg.Scheduler.PendingScanInterval = time.Minute
	}
	if cfg.Scheduler.StaleAfter <= 0 {
		cfg.Scheduler.StaleAfter = 24 * time.Hour
	}
	if cfg.Limits.SubmitWindow <= 0 {
		cfg.Limits.SubmitWindow = time.Minute
	}
	if cfg.Limits.SubmitPerWindow <= 0 {
		cfg.Limits.SubmitPerWindow = 5
	}
}

// Validate performs the minimal checks needed to start serving.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" && !c.Runtime.Dev {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Database.URL == "" && !c.Runtime.Dev {
		return errors.New("database.url is required")
	}
	if _, err := c.PriceTable(); err != nil {
		return err
	}
	return nil
}

// UseMemoryStore reports whether the in-memory ledger store should back the app.
func (c *Config) UseMemoryStore() bool {
	return c.Runtime.Dev && c.Database.URL == ""
}

// PriceTable parses the configured pricing into decimals.
func (c *Config) PriceTable() (model.PriceTable, error) {
	basic, err := decimal.NewFromString(strings.TrimSpace(c.Pricing.Basic))
	if err != nil {
		return model.PriceTable{}, fmt.Errorf("pricing.basic: %w", err)
	}
	premium, err := decimal.NewFromString(strings.TrimSpace(c.Pricing.Premium))
	if err != nil {
		return model.PriceTable{}, fmt.Errorf("pricing.premium: %w", err)
	}
	p := model.PriceTable{Basic: basic, Premium: premium, Currency: c.Pricing.Currency, PayID: c.Pricing.PayID}
	if err := p.Validate(); err != nil {
		return model.PriceTable{}, err
	}
	return p, nil
}
