// Package config loads the daemon configuration from config.json5 (and its
// local override), a .env file and the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"waterbill/internal/components/chrono"
	"waterbill/internal/poller"
	"waterbill/internal/scrapers/waterfee"
	"waterbill/lib/configutil"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	EnvAccountNumber = "WATERBILL_ACCOUNT_NUMBER"
	EnvScanInterval  = "WATERBILL_SCAN_INTERVAL"
	EnvListen        = "WATERBILL_LISTEN"
)

const DefaultListen = ":8000"

// File is the on-disk shape of the config, durations are strings like "8h".
type File struct {
	AccountNumber     string  `json:"account_number"`
	ScanInterval      string  `json:"scan_interval"`
	Timeout           string  `json:"timeout"`
	Endpoint          string  `json:"endpoint"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Listen            string  `json:"listen"`
	Timezone          string  `json:"timezone"`
}

type Config struct {
	AccountNumber string        `json:"account_number" validate:"required"`
	ScanInterval  time.Duration `json:"scan_interval" validate:"gte=1m"`
	Timeout       time.Duration `json:"timeout" validate:"gt=0"`
	Endpoint      string        `json:"endpoint" validate:"required,url"`
	// RequestsPerSecond paces requests to the site, negative disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second"`
	Listen            string  `json:"listen" validate:"required"`
	Timezone          string  `json:"timezone" validate:"required,timezone"`
}

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return duration, nil
}

// Resolve applies environment overrides and defaults to a File and validates
// the result.
func Resolve(file File) (Config, error) {
	if value, ok := os.LookupEnv(EnvAccountNumber); ok {
		file.AccountNumber = value
	}
	if value, ok := os.LookupEnv(EnvScanInterval); ok {
		file.ScanInterval = value
	}
	if value, ok := os.LookupEnv(EnvListen); ok {
		file.Listen = value
	}

	scanInterval, err := parseDuration("scan_interval", file.ScanInterval, poller.DefaultInterval)
	if err != nil {
		return Config{}, err
	}
	timeout, err := parseDuration("timeout", file.Timeout, poller.DefaultTimeout)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AccountNumber:     strings.TrimSpace(file.AccountNumber),
		ScanInterval:      scanInterval,
		Timeout:           timeout,
		Endpoint:          file.Endpoint,
		RequestsPerSecond: file.RequestsPerSecond,
		Listen:            file.Listen,
		Timezone:          file.Timezone,
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = waterfee.DefaultEndpoint
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = waterfee.DefaultRequestsPerSecond
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.Timezone == "" {
		cfg.Timezone = chrono.DefaultLocation
	}

	err = Validate(cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads `path` with configutil.ReadConfig, a missing file is not an
// error as long as the environment fills in the required fields.
func Load(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	file, err := configutil.ReadConfig[File](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Resolve(file)
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "url":
		return fmt.Sprintf("%s must be an absolute url", e.Field())
	case "timezone":
		return fmt.Sprintf("%s must be a known timezone, got %q", e.Field(), e.Value())
	case "gte", "gt":
		return fmt.Sprintf("%s must be %s %s, got %v", e.Field(), e.Tag(), e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed %s", e.Field(), e.Tag())
	}
}

func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	messages := make([]string, len(fieldErrs))
	for i, e := range fieldErrs {
		messages[i] = formatFieldError(e)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
}

// String is used when logging the config on startup.
func (c Config) String() string {
	return fmt.Sprintf(
		"account=%s scan_interval=%s timeout=%s endpoint=%s requests_per_second=%s listen=%s timezone=%s",
		c.AccountNumber,
		c.ScanInterval,
		c.Timeout,
		c.Endpoint,
		strconv.FormatFloat(c.RequestsPerSecond, 'f', -1, 64),
		c.Listen,
		c.Timezone,
	)
}
