package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INVOICE_API_URL", "")
	t.Setenv("SAVE_NAVIGATE", "")
	t.Setenv("AMOUNT_PRECISION", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, int32(2), cfg.AmountPrecision)
	assert.Equal(t, NavigateDetail, cfg.SaveNavigate)
	assert.Equal(t, 1500*time.Millisecond, cfg.ConfirmDelay)
	assert.Equal(t, "Invoices", cfg.GoogleSheetWorksheet)
	assert.Equal(t, "stderr", cfg.LogOutput)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INVOICE_API_URL", "https://localhost:5001/api")
	t.Setenv("SAVE_NAVIGATE", "LIST")
	t.Setenv("AMOUNT_PRECISION", "3")
	t.Setenv("CONFIRM_DELAY_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://localhost:5001/api", cfg.APIURL)
	assert.Equal(t, NavigateList, cfg.SaveNavigate)
	assert.Equal(t, int32(3), cfg.AmountPrecision)
	assert.Equal(t, 250*time.Millisecond, cfg.ConfirmDelay)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown navigation target", "SAVE_NAVIGATE", "home"},
		{"precision out of range", "AMOUNT_PRECISION", "12"},
		{"unsupported scheme", "INVOICE_API_URL", "ftp://localhost/api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidateAPIURL_AcceptsMissingScheme(t *testing.T) {
	assert.NoError(t, ValidateAPIURL("localhost:5000/api"))
	assert.Error(t, ValidateAPIURL("   "))
}
