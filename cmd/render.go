package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"invoicedesk/internal/api"
	"invoicedesk/internal/invoice"
	"invoicedesk/internal/workflow"
	"invoicedesk/pkg/models"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// listOutput is the JSON form of a listing.
type listOutput struct {
	Query    string           `json:"query,omitempty"`
	Status   string           `json:"status"`
	Message  string           `json:"message,omitempty"`
	Invoices []models.Invoice `json:"invoices"`
}

func renderListing(cmd *cobra.Command, view workflow.ListView) error {
	out := cmd.OutOrStdout()
	if outputFormat(cmd) == outputJSON {
		invoices := view.Invoices
		if invoices == nil {
			invoices = []models.Invoice{}
		}
		return writeJSON(out, listOutput{
			Query:    view.Query,
			Status:   view.Status.String(),
			Message:  view.Message,
			Invoices: invoices,
		})
	}

	if view.Message != "" {
		fmt.Fprintln(out, view.Message)
	}
	if len(view.Invoices) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tDATE\tVENDOR\tCUSTOMER\tTOTAL")
	for _, inv := range view.Invoices {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			inv.ID,
			inv.InvoiceNumber,
			invoice.DateOnly(inv.Date),
			inv.VendorName,
			inv.CustomerName,
			inv.TotalAmount.StringFixed(invoice.DefaultPrecision))
	}
	return tw.Flush()
}

func renderInvoice(cmd *cobra.Command, inv models.Invoice) error {
	out := cmd.OutOrStdout()
	if outputFormat(cmd) == outputJSON {
		return writeJSON(out, inv)
	}
	return writeInvoiceText(out, inv)
}

func writeInvoiceText(out io.Writer, inv models.Invoice) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if !inv.IsNew() {
		fmt.Fprintf(tw, "ID:\t%d\n", inv.ID)
	}
	fmt.Fprintf(tw, "Invoice number:\t%s\n", inv.InvoiceNumber)
	fmt.Fprintf(tw, "Date:\t%s\n", invoice.DateOnly(inv.Date))
	fmt.Fprintf(tw, "Vendor:\t%s\n", inv.VendorName)
	fmt.Fprintf(tw, "Vendor address:\t%s\n", indentLines(inv.VendorAddress))
	fmt.Fprintf(tw, "Customer:\t%s\n", inv.CustomerName)
	fmt.Fprintf(tw, "Customer address:\t%s\n", indentLines(inv.CustomerAddress))
	fmt.Fprintf(tw, "Subtotal:\t%s\n", inv.Subtotal.StringFixed(invoice.DefaultPrecision))
	fmt.Fprintf(tw, "VAT:\t%s\n", inv.VATAmount.StringFixed(invoice.DefaultPrecision))
	fmt.Fprintf(tw, "Total:\t%s\n", inv.TotalAmount.StringFixed(invoice.DefaultPrecision))
	if inv.CreatedAt != "" {
		fmt.Fprintf(tw, "Created:\t%s\n", inv.CreatedAt)
	}
	if inv.UpdatedAt != "" {
		fmt.Fprintf(tw, "Updated:\t%s\n", inv.UpdatedAt)
	}
	return tw.Flush()
}

// indentLines keeps continuation lines of multi-line addresses aligned
// under the value column.
func indentLines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	return strings.ReplaceAll(s, "\n", "\n\t")
}

func renderDetails(cmd *cobra.Command, details *models.InvoiceDetails) error {
	out := cmd.OutOrStdout()
	if outputFormat(cmd) == outputJSON {
		return writeJSON(out, details)
	}

	if err := writeInvoiceText(out, details.Invoice); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if len(details.LineItems) == 0 {
		fmt.Fprintln(out, "No line items.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DESCRIPTION\tQTY\tUNIT PRICE\tTOTAL")
	for _, item := range details.LineItems {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			item.Description,
			item.Quantity.String(),
			item.UnitPrice.StringFixed(invoice.DefaultPrecision),
			item.TotalPrice.StringFixed(invoice.DefaultPrecision))
	}
	return tw.Flush()
}

// showInvoice loads and renders one invoice with its line items.
func showInvoice(ctx context.Context, cmd *cobra.Command, svc api.InvoiceService, rawID string) error {
	view := workflow.NewDetailView(svc)
	details, err := view.Load(ctx, rawID)
	if err != nil {
		return fmt.Errorf("%s", view.Message())
	}
	return renderDetails(cmd, details)
}
