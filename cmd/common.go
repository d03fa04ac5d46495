package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicedesk/internal/api"
	"invoicedesk/internal/config"
	"invoicedesk/internal/invoice"
	"invoicedesk/internal/workflow"
)

// fieldEdit is one --set field=value pair.
type fieldEdit struct {
	Field string
	Value string
}

// parseSetFlags parses repeated --set field=value flags. Values may contain
// '=' and "\n" escapes for multi-line addresses.
func parseSetFlags(raw []string) ([]fieldEdit, error) {
	edits := make([]fieldEdit, 0, len(raw))
	for _, item := range raw {
		field, value, ok := strings.Cut(item, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --set %q: expected field=value", item)
		}
		edits = append(edits, fieldEdit{Field: field, Value: strings.ReplaceAll(value, `\n`, "\n")})
	}
	return edits, nil
}

// fieldEditor is the editing surface shared by Ingestion and Editor.
type fieldEditor interface {
	Set(field, value string) error
	Field(field string) (string, error)
}

func applyEdits(editor fieldEditor, edits []fieldEdit) error {
	for _, e := range edits {
		if err := editor.Set(e.Field, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// promptFields walks every editable field, showing the current value.
// An empty answer keeps the value; "-" clears it. Invalid input is
// reported and asked again.
func promptFields(in io.Reader, out io.Writer, editor fieldEditor) error {
	reader := bufio.NewReader(in)

	for _, field := range invoice.Fields {
		if field == invoice.FieldTotalAmount {
			continue
		}
		for {
			current, err := editor.Field(field)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s [%s]: ", field, strings.ReplaceAll(current, "\n", `\n`))

			input, err := reader.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			input = strings.TrimSpace(input)
			eof := errors.Is(err, io.EOF)

			if input == "" {
				if eof {
					fmt.Fprintln(out)
					return nil
				}
				break
			}
			if input == "-" {
				input = ""
			}
			if setErr := editor.Set(field, strings.ReplaceAll(input, `\n`, "\n")); setErr != nil {
				fmt.Fprintf(out, "  %v\n", setErr)
				if eof {
					return setErr
				}
				continue
			}
			if eof {
				return nil
			}
			break
		}
	}

	total, err := editor.Field(invoice.FieldTotalAmount)
	if err == nil {
		fmt.Fprintf(out, "%s: %s\n", invoice.FieldTotalAmount, total)
	}
	return nil
}

// editFlags reads --set and --interactive and applies them to editor.
func editFlags(cmd *cobra.Command, editor fieldEditor) error {
	raw, _ := cmd.Flags().GetStringArray("set")
	edits, err := parseSetFlags(raw)
	if err != nil {
		return err
	}
	if err := applyEdits(editor, edits); err != nil {
		return err
	}
	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		return promptFields(cmd.InOrStdin(), cmd.ErrOrStderr(), editor)
	}
	return nil
}

func addEditFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("set", nil, "Set a field, e.g. --set vendorName=ACME (repeatable)")
	cmd.Flags().BoolP("interactive", "i", false, "Prompt for every field")
}

// navigator remembers where a workflow sent the user after saving.
type navigator struct {
	target string
	id     int64
}

func (n *navigator) ToDetail(id int64) {
	n.target = workflow.NavigateDetail
	n.id = id
}

func (n *navigator) ToList() {
	n.target = workflow.NavigateList
}

// render shows the view the navigator points at.
func (n *navigator) render(ctx context.Context, cmd *cobra.Command, svc api.InvoiceService) error {
	switch n.target {
	case workflow.NavigateDetail:
		return showInvoice(ctx, cmd, svc, fmt.Sprint(n.id))
	case workflow.NavigateList:
		listing := workflow.NewListing(svc)
		if err := listing.Enter(ctx); err != nil {
			return err
		}
		return renderListing(cmd, listing.View())
	}
	return nil
}

// consoleNotifier prints transient messages to stderr so stdout stays
// machine-readable.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Notify(message string) {
	fmt.Fprintln(n.out, message)
}

func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.APIURL, api.WithTimeout(cfg.HTTPTimeout))
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling request")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func outputFormat(cmd *cobra.Command) string {
	output, _ := cmd.Flags().GetString("output")
	return output
}

// handleAPIError provides user-friendly messages for backend and validation
// failures.
func handleAPIError(err error, log zerolog.Logger) error {
	var validationErr *invoice.ValidationError
	var apiErr *api.APIError

	switch {
	case errors.As(err, &validationErr):
		log.Warn().Err(err).Str("field", validationErr.Field).Msg("Validation failed")
		return errors.New(validationErr.Error())
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("request was canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("request timed out. Try increasing HTTP_TIMEOUT_SECONDS")
	case errors.Is(err, workflow.ErrBusy):
		return fmt.Errorf("another request is still in progress")
	case errors.As(err, &apiErr):
		log.Debug().Err(err).Str("kind", string(apiErr.Kind)).Msg("Backend call failed")
		if apiErr.Kind == api.KindTransport {
			return fmt.Errorf("%s.\nSet INVOICE_API_URL or --api-url if the backend runs elsewhere", apiErr.Message)
		}
		return errors.New(apiErr.Error())
	default:
		return err
	}
}
