package cmd

import (
	"github.com/spf13/cobra"

	"invoicedesk/internal/logger"
)

var showCmd = &cobra.Command{
	Use:     "show [id]",
	Short:   "Show one invoice with its line items",
	Example: `  invoicedesk show 42`,
	Args:    cobra.ExactArgs(1),
	RunE:    runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("show")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(log)
	defer cancel()

	return showInvoice(ctx, cmd, newClient(cfg), args[0])
}
