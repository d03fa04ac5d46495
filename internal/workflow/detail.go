package workflow

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"invoicedesk/internal/api"
	"invoicedesk/internal/invoice"
	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

const (
	MsgInvalidID     = "Invalid invoice ID"
	MsgDetailsFailed = "Failed to load invoice details"
	MsgLoadFailed    = "Failed to load invoice"
)

// DetailView loads one invoice with its line items.
type DetailView struct {
	svc api.InvoiceService
	log zerolog.Logger

	mu      sync.Mutex
	details *models.InvoiceDetails
	message string
}

func NewDetailView(svc api.InvoiceService) *DetailView {
	return &DetailView{svc: svc, log: logger.WithComponent("detail")}
}

// Load fetches the invoice identified by rawID. An invalid id fails locally
// without a backend call.
func (v *DetailView) Load(ctx context.Context, rawID string) (*models.InvoiceDetails, error) {
	id, err := invoice.ParseID(rawID)
	if err != nil {
		v.setMessage(MsgInvalidID)
		return nil, err
	}

	details, err := v.svc.GetDetails(ctx, id)
	if err != nil {
		msg := api.Message(err, MsgDetailsFailed)
		v.setMessage(msg)
		v.log.Error().Err(err).Int64("invoice_id", id).Msg("Failed to load invoice details")
		return nil, err
	}

	details.Date = invoice.DateOnly(details.Date)

	v.mu.Lock()
	v.details = details
	v.message = ""
	v.mu.Unlock()
	return details, nil
}

func (v *DetailView) setMessage(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.details = nil
	v.message = msg
}

// Details returns the loaded invoice, or nil.
func (v *DetailView) Details() *models.InvoiceDetails {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.details
}

// Message returns the last failure message.
func (v *DetailView) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

// EditState is the position of an Editor in its lifecycle.
type EditState int

const (
	EditIdle EditState = iota
	EditLoading
	EditReady
	EditSaving
	EditSaved
	EditFailed
)

func (s EditState) String() string {
	switch s {
	case EditIdle:
		return "idle"
	case EditLoading:
		return "loading"
	case EditReady:
		return "ready"
	case EditSaving:
		return "saving"
	case EditSaved:
		return "saved"
	case EditFailed:
		return "failed"
	}
	return "unknown"
}

// Editor edits a stored invoice. Saving always updates and then navigates to
// the invoice's detail view.
type Editor struct {
	svc       api.InvoiceService
	nav       Navigator
	precision int32
	log       zerolog.Logger

	mu      sync.Mutex
	id      int64
	state   EditState
	form    *invoice.Form
	message string
	busy    bool
}

func NewEditor(svc api.InvoiceService, nav Navigator, precision int32) *Editor {
	if nav == nil {
		nav = nopNavigator{}
	}
	return &Editor{
		svc:       svc,
		nav:       nav,
		precision: precision,
		log:       logger.WithComponent("editor"),
	}
}

// Load fetches the invoice to edit. The date is truncated to its date-only
// form before it is bound to the form.
func (e *Editor) Load(ctx context.Context, rawID string) error {
	id, err := invoice.ParseID(rawID)
	if err != nil {
		e.fail(MsgInvalidID)
		return err
	}

	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}
	e.state = EditLoading
	e.mu.Unlock()

	inv, err := e.svc.GetByID(ctx, id)
	if err != nil {
		e.fail(api.Message(err, MsgLoadFailed))
		return err
	}

	if inv.ID == 0 {
		inv.ID = id
	}

	e.mu.Lock()
	e.id = id
	e.form = invoice.NewForm(*inv, e.precision)
	e.state = EditReady
	e.message = ""
	e.mu.Unlock()
	return nil
}

// Set edits one field.
func (e *Editor) Set(field, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.form == nil || e.busy {
		return transitionError("Set", e.state)
	}
	return e.form.Set(field, value)
}

// Save updates the invoice and navigates to its detail view.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return ErrBusy
	}
	if e.form == nil {
		state := e.state
		e.mu.Unlock()
		return transitionError("Save", state)
	}
	record := e.form.Invoice()
	if err := invoice.ValidateForSave(&record); err != nil {
		e.state = EditFailed
		e.message = err.Error()
		e.mu.Unlock()
		return err
	}
	id := e.id
	e.busy = true
	e.state = EditSaving
	e.mu.Unlock()

	saved, err := e.svc.Update(ctx, &record)

	e.mu.Lock()
	e.busy = false
	if err != nil {
		e.state = EditFailed
		e.message = api.Message(err, MsgSaveFailed)
		e.mu.Unlock()
		return err
	}
	updated := *saved
	if updated.ID == 0 {
		updated.ID = id
	}
	e.form = invoice.NewForm(updated, e.precision)
	e.state = EditSaved
	e.message = ""
	e.mu.Unlock()

	e.log.Info().Int64("invoice_id", id).Msg("Invoice updated")
	e.nav.ToDetail(id)
	return nil
}

func (e *Editor) fail(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = EditFailed
	e.message = msg
}

// State returns the current state.
func (e *Editor) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Message returns the last failure message.
func (e *Editor) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.message
}

// Invoice returns the record as currently edited.
func (e *Editor) Invoice() (models.Invoice, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.form == nil {
		return models.Invoice{}, false
	}
	return e.form.Invoice(), true
}

// Field returns the display value of one field.
func (e *Editor) Field(field string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.form == nil {
		return "", transitionError("Field", e.state)
	}
	return e.form.Get(field)
}
