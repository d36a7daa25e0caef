// Package config содержит логику чтения конфигурации клиента goldy.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

// Значения по умолчанию.
const (
	DefaultAPIURL          = "http://localhost:3000"
	DefaultTimeout         = 30 * time.Second
	DefaultFeeRate         = 0.035
	DefaultFeeMinimumCents = 50
	DefaultSyncInterval    = 15 * time.Second
)

// ErrMissingPublishableKey возвращается, если не задан ключ платёжного провайдера.
var ErrMissingPublishableKey = errors.New("payment provider publishable key is not set")

// Config содержит параметры конфигурации клиента goldy.
type Config struct {
	APIURL          string        `env:"GOLDY_API_URL" validate:"required,url"`
	PublishableKey  string        `env:"GOLDY_PUBLISHABLE_KEY"`
	Prefs           string        `env:"GOLDY_PREFS" validate:"required"`
	Timeout         time.Duration `env:"GOLDY_TIMEOUT" validate:"min=1s,max=60s"`
	SyncInterval    time.Duration `env:"GOLDY_SYNC_INTERVAL" validate:"min=1s"`
	FeeRate         float64       `env:"GOLDY_FEE_RATE" validate:"gte=0,lt=1"`
	FeeMinimumCents int64         `env:"GOLDY_FEE_MINIMUM_CENTS" validate:"gte=0"`
	LogLevel        string        `env:"GOLDY_LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// DefaultPrefs возвращает путь к файлу настроек по умолчанию.
func DefaultPrefs() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "file://.goldy/prefs.yaml"
	}
	return "file://" + filepath.Join(home, ".goldy", "prefs.yaml")
}

// BindFlags регистрирует флаги с значениями по умолчанию.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.APIURL, "api-url", "a", DefaultAPIURL, "escrow backend base URL")
	fs.StringVarP(&c.PublishableKey, "publishable-key", "k", "", "payment provider publishable key")
	fs.StringVarP(&c.Prefs, "prefs", "p", DefaultPrefs(), "prefs store DSN (file://, sqlite://, postgres://, redis://, memory://)")
	fs.DurationVarP(&c.Timeout, "timeout", "t", DefaultTimeout, "network request timeout")
	fs.DurationVar(&c.SyncInterval, "sync-interval", DefaultSyncInterval, "escrow refresh interval for watch")
	fs.Float64Var(&c.FeeRate, "fee-rate", DefaultFeeRate, "displayed fee rate")
	fs.Int64Var(&c.FeeMinimumCents, "fee-minimum-cents", DefaultFeeMinimumCents, "displayed minimum fee in cents")
	fs.StringVar(&c.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// ApplyEnv перекрывает значения флагов заданными переменными окружения.
func (c *Config) ApplyEnv() error {
	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if fromEnv.APIURL != "" {
		c.APIURL = fromEnv.APIURL
	}
	if fromEnv.PublishableKey != "" {
		c.PublishableKey = fromEnv.PublishableKey
	}
	if fromEnv.Prefs != "" {
		c.Prefs = fromEnv.Prefs
	}
	if fromEnv.Timeout != 0 {
		c.Timeout = fromEnv.Timeout
	}
	if fromEnv.SyncInterval != 0 {
		c.SyncInterval = fromEnv.SyncInterval
	}
	if _, ok := os.LookupEnv("GOLDY_FEE_RATE"); ok {
		c.FeeRate = fromEnv.FeeRate
	}
	if _, ok := os.LookupEnv("GOLDY_FEE_MINIMUM_CENTS"); ok {
		c.FeeMinimumCents = fromEnv.FeeMinimumCents
	}
	if fromEnv.LogLevel != "" {
		c.LogLevel = fromEnv.LogLevel
	}
	return nil
}

// Validate проверяет значения конфигурации.
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q check", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// RequirePublishableKey проверяет обязательное при запуске условие: ключ платёжного провайдера задан.
func (c *Config) RequirePublishableKey() error {
	if strings.TrimSpace(c.PublishableKey) == "" {
		return ErrMissingPublishableKey
	}
	return nil
}

// Load применяет переменные окружения к уже разобранным флагам и проверяет результат.
func (c *Config) Load() error {
	if err := c.ApplyEnv(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return c.RequirePublishableKey()
}
