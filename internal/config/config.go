package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"invoicedesk/internal/logger"
)

const (
	DefaultAPIURL = "http://localhost:5000/api"

	NavigateDetail = "detail"
	NavigateList   = "list"
)

// ErrInvalidConfig is wrapped by every validation failure from Load.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// Invoice backend
	APIURL      string
	HTTPTimeout time.Duration

	// Editing behaviour
	AmountPrecision int32
	SaveNavigate    string
	ConfirmDelay    time.Duration

	// Google Sheets export (optional)
	GoogleSheetURL          string
	GoogleSheetWorksheet    string
	GoogleServiceAccountKey string
	GoogleCredentialsJSON   string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
	LogNoColor    bool
}

func Load() (*Config, error) {
	config := &Config{
		APIURL:                  getEnv("INVOICE_API_URL", DefaultAPIURL),
		HTTPTimeout:             time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
		AmountPrecision:         int32(getEnvInt("AMOUNT_PRECISION", 2)),
		SaveNavigate:            strings.ToLower(getEnv("SAVE_NAVIGATE", NavigateDetail)),
		ConfirmDelay:            time.Duration(getEnvInt("CONFIRM_DELAY_MS", 1500)) * time.Millisecond,
		GoogleSheetURL:          getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:    getEnv("GOOGLE_SHEET_WORKSHEET", "Invoices"),
		GoogleServiceAccountKey: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCredentialsJSON:   getEnv("GOOGLE_CREDENTIALS", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:           getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:               getEnv("LOG_OUTPUT", "stderr"),
		LogNoColor:              getEnv("LOG_NO_COLOR", "") == "true",
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if err := ValidateAPIURL(c.APIURL); err != nil {
		return err
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: HTTP_TIMEOUT_SECONDS must be positive", ErrInvalidConfig)
	}
	if c.AmountPrecision < 0 || c.AmountPrecision > 8 {
		return fmt.Errorf("%w: AMOUNT_PRECISION must be between 0 and 8", ErrInvalidConfig)
	}
	if c.SaveNavigate != NavigateDetail && c.SaveNavigate != NavigateList {
		return fmt.Errorf("%w: SAVE_NAVIGATE must be %q or %q", ErrInvalidConfig, NavigateDetail, NavigateList)
	}
	if c.ConfirmDelay < 0 {
		return fmt.Errorf("%w: CONFIRM_DELAY_MS must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ValidateAPIURL checks a backend base endpoint. A missing scheme is
// allowed; the transport client assumes http:// for it.
func ValidateAPIURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: INVOICE_API_URL is required", ErrInvalidConfig)
	}
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return fmt.Errorf("%w: INVOICE_API_URL: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: INVOICE_API_URL scheme must be http or https", ErrInvalidConfig)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: INVOICE_API_URL has no host", ErrInvalidConfig)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
		NoColor:    c.LogNoColor,
	}
}

// Default returns the configuration used when the environment is invalid.
func Default() *Config {
	return &Config{
		APIURL:               DefaultAPIURL,
		HTTPTimeout:          60 * time.Second,
		AmountPrecision:      2,
		SaveNavigate:         NavigateDetail,
		ConfirmDelay:         1500 * time.Millisecond,
		GoogleSheetWorksheet: "Invoices",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
