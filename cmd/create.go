package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"invoicedesk/internal/api"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/workflow"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an invoice by entering its fields",
	Long: `Create an invoice without uploading a document. The draft is dated today;
fill it with --set or answer the prompts with --interactive. Invoice number,
date, vendor and customer are required.`,
	Example: `  invoicedesk create --set invoiceNumber=INV-42 --set vendorName="Vendor GmbH" \
    --set customerName=ACME --set subtotal=100 --set vatAmount=19

  invoicedesk create -i`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)

	addEditFlags(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("create")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(log)
	defer cancel()

	svc := newClient(cfg)
	nav := &navigator{}
	ingestion := workflow.NewIngestion(svc,
		workflow.WithNavigator(nav),
		workflow.WithNotifier(consoleNotifier{out: cmd.ErrOrStderr()}),
		workflow.WithPrecision(cfg.AmountPrecision),
		workflow.WithConfirmDelay(cfg.ConfirmDelay),
		workflow.WithNavigateTo(cfg.SaveNavigate),
	)

	if err := ingestion.StartDraft(); err != nil {
		return err
	}
	if err := editFlags(cmd, ingestion); err != nil {
		return handleAPIError(err, log)
	}

	return saveIngestion(ctx, cmd, ingestion, nav, svc)
}

// saveIngestion saves the reviewed record and shows where the workflow
// navigated. A failed save is retried once when the failure was a transport
// error, since the client may just have switched scheme.
func saveIngestion(ctx context.Context, cmd *cobra.Command, ingestion *workflow.Ingestion, nav *navigator, svc api.InvoiceService) error {
	log := logger.WithComponent("save")

	err := ingestion.Save(ctx)
	if err != nil && api.IsKind(err, api.KindTransport) && ctx.Err() == nil {
		log.Warn().Err(err).Msg("Save failed, retrying")
		err = ingestion.Retry(ctx)
	}
	if err != nil {
		if msg := ingestion.Message(); msg != "" && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s", msg)
		}
		return handleAPIError(err, log)
	}

	if saved := ingestion.Saved(); saved != nil {
		log.Info().Int64("invoice_id", saved.ID).Msg("Invoice saved")
	}
	return nav.render(ctx, cmd, svc)
}
