package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicedesk/internal/config"
	"invoicedesk/internal/logger"
)

var version = "1.0.0"

// Output formats for --output
const (
	outputText = "text"
	outputJSON = "json"
)

var (
	appConfig *config.Config
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "invoicedesk",
	Short: "invoicedesk - upload, review and manage invoices",
	Long: `invoicedesk is a command-line client for the invoice OCR backend.

Upload a PDF or image to have it extracted, review and correct the extracted
fields, and save the result. Stored invoices can be listed, searched by
customer, shown with their line items, edited and exported to Google Sheets.

The backend endpoint is read from INVOICE_API_URL (default
http://localhost:5000/api) or given with --api-url.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output != outputText && output != outputJSON {
			return fmt.Errorf("invalid --output %q: must be %q or %q", output, outputText, outputJSON)
		}
		return nil
	},
}

// Execute runs the CLI. cfg is nil when the environment configuration is
// invalid; commands that need it then fail with cfgErr.
func Execute(cfg *config.Config, cfgErr error) {
	log := logger.WithComponent("cmd")

	appConfig = cfg
	configErr = cfgErr

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("api-url", "", "Invoice backend base endpoint (overrides INVOICE_API_URL)")
	rootCmd.PersistentFlags().StringP("output", "o", outputText, "Output format: text or json")
}

// loadConfig returns the environment configuration with command-line
// overrides applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if appConfig == nil {
		if configErr != nil {
			return nil, configErr
		}
		appConfig = config.Default()
	}

	cfg := *appConfig
	if apiURL, _ := cmd.Flags().GetString("api-url"); apiURL != "" {
		if err := config.ValidateAPIURL(apiURL); err != nil {
			return nil, err
		}
		cfg.APIURL = apiURL
	}
	return &cfg, nil
}
