package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/sheets"
	"invoicedesk/internal/workflow"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export invoices to a Google Sheet",
	Long: `Append the current invoice listing (optionally filtered by customer) to a
worksheet of a Google Sheet. The worksheet and its header row are created
when missing.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Target spreadsheet (or --sheet-url)`,
	Example: `  invoicedesk export --sheet-url https://docs.google.com/spreadsheets/d/abc123/edit
  invoicedesk export --customer ACME --worksheet ACME`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("customer", "", "Only export invoices of this customer")
	exportCmd.Flags().String("sheet-url", "", "Google Sheets URL (overrides GOOGLE_SHEET_URL)")
	exportCmd.Flags().String("worksheet", "", "Worksheet name (overrides GOOGLE_SHEET_WORKSHEET)")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	customer, _ := cmd.Flags().GetString("customer")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	if sheetURL == "" {
		sheetURL = cfg.GoogleSheetURL
	}
	if worksheet == "" {
		worksheet = cfg.GoogleSheetWorksheet
	}
	if sheetURL == "" {
		return fmt.Errorf("no spreadsheet given: set GOOGLE_SHEET_URL or --sheet-url")
	}

	ctx, cancel := commandContext(log)
	defer cancel()

	listing := workflow.NewListing(newClient(cfg))
	if customer != "" {
		err = listing.Search(ctx, customer)
	} else {
		err = listing.Enter(ctx)
	}
	view := listing.View()
	if err != nil {
		return fmt.Errorf("%s", view.Message)
	}
	if len(view.Invoices) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No invoices to export.")
		return nil
	}

	exporter, err := sheets.NewSheetsService(ctx, sheetURL, sheets.Credentials{
		KeyFile: cfg.GoogleServiceAccountKey,
		JSON:    cfg.GoogleCredentialsJSON,
	})
	if err != nil {
		if errors.Is(err, sheets.ErrMissingCredentials) {
			return fmt.Errorf("google credentials not configured: %w", sheets.ErrMissingCredentials)
		}
		return fmt.Errorf("failed to connect to Google Sheets: %w", err)
	}

	if err := exporter.WriteInvoices(ctx, view.Invoices, worksheet); err != nil {
		log.Error().Err(err).Str("worksheet", worksheet).Msg("Export failed")
		return fmt.Errorf("failed to export invoices: %w", err)
	}

	log.Info().
		Int("invoices", len(view.Invoices)).
		Str("worksheet", worksheet).
		Msg("Invoices exported")
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d invoice(s) to worksheet %q.\n", len(view.Invoices), worksheet)
	return nil
}
