package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicedesk/internal/api"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/workflow"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices, optionally filtered by customer",
	Long: `List all stored invoices, or the invoices of one customer with --customer.

With --interactive every line you type becomes the customer filter; the
search runs once you stop typing for half a second. Commands:
  :all        clear the filter and show every invoice
  :show <id>  show one invoice with its line items
  :quit       leave (also "quit", "exit" or end of input)`,
	Example: `  invoicedesk list
  invoicedesk list --customer "ACME / Sons" -o json
  invoicedesk list -i`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("customer", "", "Only list invoices of this customer")
	listCmd.Flags().BoolP("interactive", "i", false, "Filter the list interactively")
}

func runList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("list")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	customer, _ := cmd.Flags().GetString("customer")
	interactive, _ := cmd.Flags().GetBool("interactive")

	ctx, cancel := commandContext(log)
	defer cancel()

	svc := newClient(cfg)

	if interactive {
		return runListREPL(ctx, cmd, svc, log)
	}

	listing := workflow.NewListing(svc)
	if customer != "" {
		err = listing.Search(ctx, customer)
	} else {
		err = listing.Enter(ctx)
	}
	view := listing.View()
	if err != nil {
		log.Debug().Err(err).Msg("Listing failed")
		return fmt.Errorf("%s", view.Message)
	}
	return renderListing(cmd, view)
}

// runListREPL reads filter input line by line until quit or end of input.
func runListREPL(ctx context.Context, cmd *cobra.Command, svc api.InvoiceService, log zerolog.Logger) error {
	var outMu sync.Mutex
	show := func(view workflow.ListView) {
		outMu.Lock()
		defer outMu.Unlock()
		if err := renderListing(cmd, view); err != nil {
			log.Warn().Err(err).Msg("Failed to render listing")
		}
		fmt.Fprint(cmd.ErrOrStderr(), "> ")
	}

	listing := workflow.NewListing(svc, workflow.WithListener(show))
	defer listing.Close()

	if err := listing.Enter(ctx); err != nil {
		log.Debug().Err(err).Msg("Initial listing failed")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		input := strings.TrimRight(line, "\r\n")

		switch trimmed := strings.TrimSpace(input); {
		case trimmed == ":quit" || trimmed == "quit" || trimmed == "exit":
			return nil
		case trimmed == ":all":
			_ = listing.ShowAll(ctx)
		case strings.HasPrefix(trimmed, ":show"):
			id := strings.TrimSpace(strings.TrimPrefix(trimmed, ":show"))
			outMu.Lock()
			if showErr := showInvoice(ctx, cmd, svc, id); showErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), showErr)
			}
			fmt.Fprint(cmd.ErrOrStderr(), "> ")
			outMu.Unlock()
		case err == io.EOF:
			// nothing left to debounce against
			if input != "" {
				_ = listing.Search(ctx, input)
			}
		default:
			listing.Type(input)
		}

		if err == io.EOF || ctx.Err() != nil {
			return nil
		}
	}
}
