package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoicedesk/internal/logger"
	"invoicedesk/internal/workflow"
)

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a stored invoice",
	Long: `Load a stored invoice, apply --set edits or prompt for each field with
--interactive, and save it. Subtotal and VAT edits recompute the total. The
updated invoice is shown afterwards.`,
	Example: `  invoicedesk edit 42 --set vatAmount=19.00
  invoicedesk edit 42 -i`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	addEditFlags(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("edit")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(log)
	defer cancel()

	svc := newClient(cfg)
	nav := &navigator{}
	editor := workflow.NewEditor(svc, nav, cfg.AmountPrecision)

	if err := editor.Load(ctx, args[0]); err != nil {
		log.Debug().Err(err).Str("id", args[0]).Msg("Failed to load invoice for editing")
		return fmt.Errorf("%s", editor.Message())
	}
	if err := editFlags(cmd, editor); err != nil {
		return handleAPIError(err, log)
	}
	if err := editor.Save(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to save invoice")
		return fmt.Errorf("%s", editor.Message())
	}

	return nav.render(ctx, cmd, svc)
}
