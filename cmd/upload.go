package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"invoicedesk/internal/invoice"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/workflow"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload an invoice document for extraction, review and save it",
	Long: `Upload a PDF, JPG or PNG invoice (at most 10MB) to the backend, which
extracts the invoice fields. The extracted record can be corrected with --set
or reviewed field by field with --interactive before it is saved.

The total is computed from subtotal and VAT as soon as either is edited.
After saving, the saved invoice is shown (or the list, with
SAVE_NAVIGATE=list).`,
	Example: `  # Upload and save the extracted invoice
  invoicedesk upload invoice.pdf

  # Correct the customer before saving
  invoicedesk upload scan.png --set customerName="ACME Ltd"

  # Review every field interactively
  invoicedesk upload invoice.pdf -i

  # Only show what was extracted
  invoicedesk upload invoice.pdf --dry-run -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	addEditFlags(uploadCmd)
	uploadCmd.Flags().Bool("dry-run", false, "Show the extracted invoice without saving it")
	uploadCmd.Flags().Bool("no-progress", false, "Do not show upload progress")
}

// progressPrinter redraws a single progress line.
type progressPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last int
}

func (p *progressPrinter) update(value int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if value == p.last {
		return
	}
	p.last = value
	fmt.Fprintf(p.out, "\rUploading... %3d%%", value)
	if value == 100 || value == 0 {
		fmt.Fprintln(p.out)
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("upload")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	doc, err := invoice.OpenDocument(args[0])
	if err != nil {
		return handleAPIError(err, log)
	}

	log.Info().
		Str("file", doc.Name).
		Str("size", invoice.FormatFileSize(doc.Size)).
		Bool("dry_run", dryRun).
		Msg("Starting invoice upload")

	ctx, cancel := commandContext(log)
	defer cancel()

	svc := newClient(cfg)
	nav := &navigator{}
	opts := []workflow.IngestionOption{
		workflow.WithNavigator(nav),
		workflow.WithNotifier(consoleNotifier{out: cmd.ErrOrStderr()}),
		workflow.WithPrecision(cfg.AmountPrecision),
		workflow.WithConfirmDelay(cfg.ConfirmDelay),
		workflow.WithNavigateTo(cfg.SaveNavigate),
	}
	if !noProgress {
		printer := &progressPrinter{out: cmd.ErrOrStderr()}
		opts = append(opts, workflow.WithProgressListener(printer.update))
	}
	ingestion := workflow.NewIngestion(svc, opts...)

	if err := ingestion.SelectFile(doc); err != nil {
		return handleAPIError(err, log)
	}

	if err := ingestion.Upload(ctx); err != nil {
		log.Debug().Err(err).Msg("Upload failed")
		return fmt.Errorf("%s", ingestion.Message())
	}

	if err := editFlags(cmd, ingestion); err != nil {
		return handleAPIError(err, log)
	}

	if dryRun {
		inv, _ := ingestion.Invoice()
		return renderInvoice(cmd, inv)
	}

	return saveIngestion(ctx, cmd, ingestion, nav, svc)
}
