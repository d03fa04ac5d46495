package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"invoicedesk/internal/api"
	"invoicedesk/internal/invoice"
	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// State is the position of an Ingestion in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateFileSelected
	StateUploading
	StateExtracted
	StateSaving
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFileSelected:
		return "file-selected"
	case StateUploading:
		return "uploading"
	case StateExtracted:
		return "extracted"
	case StateSaving:
		return "saving"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

const (
	DefaultConfirmDelay = 1500 * time.Millisecond

	MsgUploadRetry   = "Upload failed. Please try again."
	MsgFetchFailed   = "Failed to load extracted invoice"
	MsgCreateFailed  = "Failed to create invoice"
	MsgSaveFailed    = "Failed to save invoice"
	MsgSaveSucceeded = "Invoice saved successfully"
)

type step int

const (
	stepNone step = iota
	stepUpload
	stepSave
)

// Ingestion drives one "select file, upload, review, save" session, or a
// manual create session started with StartDraft.
type Ingestion struct {
	svc          api.InvoiceService
	clock        Clock
	nav          Navigator
	notifier     Notifier
	precision    int32
	confirmDelay time.Duration
	navigateTo   string
	onProgress   func(int)
	log          zerolog.Logger

	mu       sync.Mutex
	state    State
	doc      *models.Document
	form     *invoice.Form
	saved    *models.Invoice
	message  string
	warnings []string
	failed   step
	busy     bool
	gen      uint64
	progress *Progress

	// cancel aborts the outstanding mutating call, if any.
	cancel context.CancelFunc
}

// IngestionOption configures an Ingestion.
type IngestionOption func(*Ingestion)

func WithClock(c Clock) IngestionOption {
	return func(w *Ingestion) { w.clock = c }
}

func WithNavigator(n Navigator) IngestionOption {
	return func(w *Ingestion) { w.nav = n }
}

func WithNotifier(n Notifier) IngestionOption {
	return func(w *Ingestion) { w.notifier = n }
}

// WithPrecision sets the number of decimal places totals are rounded to.
func WithPrecision(p int32) IngestionOption {
	return func(w *Ingestion) { w.precision = p }
}

// WithConfirmDelay sets how long the save confirmation stays visible before
// navigating away.
func WithConfirmDelay(d time.Duration) IngestionOption {
	return func(w *Ingestion) { w.confirmDelay = d }
}

// WithNavigateTo selects the view shown after a save: NavigateDetail or
// NavigateList.
func WithNavigateTo(target string) IngestionOption {
	return func(w *Ingestion) { w.navigateTo = target }
}

// WithProgressListener receives every value of the upload indicator.
func WithProgressListener(f func(int)) IngestionOption {
	return func(w *Ingestion) { w.onProgress = f }
}

// NewIngestion creates an idle ingestion workflow.
func NewIngestion(svc api.InvoiceService, opts ...IngestionOption) *Ingestion {
	w := &Ingestion{
		svc:          svc,
		clock:        RealClock{},
		nav:          nopNavigator{},
		notifier:     nopNotifier{},
		precision:    invoice.DefaultPrecision,
		confirmDelay: DefaultConfirmDelay,
		navigateTo:   NavigateDetail,
		log:          logger.WithComponent("ingestion"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.progress = NewProgress(w.clock, w.onProgress)
	return w
}

// SelectFile validates doc and makes it the upload candidate. An invalid
// document leaves the state unchanged and records the validation message.
func (w *Ingestion) SelectFile(doc *models.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busy {
		return ErrBusy
	}
	switch w.state {
	case StateIdle, StateFileSelected, StateFailed:
	default:
		return transitionError("SelectFile", w.state)
	}

	if err := invoice.ValidateDocument(doc); err != nil {
		w.message = err.Error()
		w.log.Warn().Err(err).Msg("Document rejected")
		return err
	}

	w.doc = doc
	w.form = nil
	w.message = ""
	w.failed = stepNone
	w.state = StateFileSelected

	w.log.Info().
		Str("file", doc.Name).
		Str("media_type", doc.MediaType).
		Int64("size", doc.Size).
		Msg("Document selected")
	return nil
}

// StartDraft begins a manual create session with an empty invoice dated
// today.
func (w *Ingestion) StartDraft() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busy {
		return ErrBusy
	}
	if w.state != StateIdle {
		return transitionError("StartDraft", w.state)
	}

	w.form = invoice.NewForm(invoice.NewDraft(w.clock.Now()), w.precision)
	w.state = StateExtracted
	return nil
}

// Upload sends the selected document and resolves the extracted record,
// fetching it by id when the backend returned only an identifier.
func (w *Ingestion) Upload(ctx context.Context) error {
	const op = "Upload"

	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return ErrBusy
	}
	if w.state != StateFileSelected {
		state := w.state
		w.mu.Unlock()
		return transitionError(op, state)
	}
	doc := w.doc
	gen := w.gen
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.cancel = cancel
	w.busy = true
	w.state = StateUploading
	w.message = ""
	w.mu.Unlock()

	w.progress.Start()

	extracted, err := w.extract(ctx, doc)

	w.mu.Lock()
	w.busy = false
	if gen != w.gen {
		w.mu.Unlock()
		return ErrDiscarded
	}

	if err != nil {
		w.progress.Fail()
		w.failLocked(stepUpload, err, MsgUploadRetry)
		w.mu.Unlock()
		return err
	}

	w.progress.Complete()
	w.form = invoice.NewForm(*extracted, w.precision)
	warnings := invoice.CheckAmounts(extracted, w.precision)
	w.warnings = warnings
	w.state = StateExtracted
	w.mu.Unlock()

	w.log.Info().
		Str("file", doc.Name).
		Int64("invoice_id", extracted.ID).
		Int("warnings", len(warnings)).
		Msg("Extraction ready for review")

	for _, warning := range warnings {
		w.notifier.Notify(warning)
	}
	return nil
}

func (w *Ingestion) extract(ctx context.Context, doc *models.Document) (*models.Invoice, error) {
	result, err := w.svc.Upload(ctx, doc)
	if err != nil {
		return nil, err
	}
	if result.Invoice != nil {
		return result.Invoice, nil
	}
	if !result.NeedsFetch() {
		return nil, &api.APIError{Op: "Upload", Kind: api.KindRejected, Message: api.MsgUploadFailed, Err: api.ErrRejected}
	}

	w.log.Debug().Int64("invoice_id", result.InvoiceID).Msg("Upload returned an identifier, fetching record")

	inv, err := w.svc.GetByID(ctx, result.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &api.APIError{Op: "GetByID", Kind: api.KindRejected, Message: MsgFetchFailed, Err: api.ErrRejected}
	}
	return inv, nil
}

// Set edits one field of the record under review. Amount edits recompute
// the total immediately. Editing after a failed save returns the workflow
// to review.
func (w *Ingestion) Set(field, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.form == nil || (w.state != StateExtracted && w.state != StateFailed) {
		return transitionError("Set", w.state)
	}
	if err := w.form.Set(field, value); err != nil {
		return err
	}
	if w.state == StateFailed {
		w.state = StateExtracted
		w.message = ""
		w.failed = stepNone
	}
	return nil
}

// Save persists the record under review. A record without id is created,
// one with an id is updated; nothing else decides. On success the
// confirmation is shown for the configured delay before navigating.
func (w *Ingestion) Save(ctx context.Context) error {
	const op = "Save"

	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return ErrBusy
	}
	if w.state != StateExtracted || w.form == nil {
		state := w.state
		w.mu.Unlock()
		return transitionError(op, state)
	}

	record := w.form.Invoice()
	if err := invoice.ValidateForSave(&record); err != nil {
		w.failLocked(stepSave, err, MsgSaveFailed)
		w.mu.Unlock()
		return err
	}

	gen := w.gen
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.cancel = cancel
	w.busy = true
	w.state = StateSaving
	w.message = ""
	w.mu.Unlock()

	var (
		saved    *models.Invoice
		err      error
		fallback string
	)
	if record.IsNew() {
		fallback = MsgCreateFailed
		saved, err = w.svc.Create(ctx, &record)
	} else {
		fallback = MsgSaveFailed
		saved, err = w.svc.Update(ctx, &record)
	}

	w.mu.Lock()
	w.busy = false
	if gen != w.gen {
		w.mu.Unlock()
		return ErrDiscarded
	}
	if err != nil {
		w.failLocked(stepSave, err, fallback)
		w.mu.Unlock()
		return err
	}

	w.saved = saved
	w.form = invoice.NewForm(*saved, w.precision)
	w.state = StateDone
	w.message = MsgSaveSucceeded
	target := w.navigateTo
	w.mu.Unlock()

	w.log.Info().
		Int64("invoice_id", saved.ID).
		Bool("created", record.IsNew()).
		Str("navigate", target).
		Msg("Invoice saved")

	w.notifier.Notify(MsgSaveSucceeded)
	if err := w.clock.Sleep(ctx, w.confirmDelay); err != nil {
		return nil
	}

	w.mu.Lock()
	stale := gen != w.gen
	w.mu.Unlock()
	if stale {
		return nil
	}

	if target == NavigateList {
		w.nav.ToList()
	} else {
		w.nav.ToDetail(saved.ID)
	}
	return nil
}

// Retry repeats the transition that failed, keeping the selected document
// and the edited record.
func (w *Ingestion) Retry(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateFailed {
		state := w.state
		w.mu.Unlock()
		return transitionError("Retry", state)
	}
	failed := w.failed
	switch failed {
	case stepUpload:
		w.state = StateFileSelected
	case stepSave:
		w.state = StateExtracted
	}
	w.mu.Unlock()

	switch failed {
	case stepUpload:
		return w.Upload(ctx)
	case stepSave:
		return w.Save(ctx)
	}
	return transitionError("Retry", StateFailed)
}

// Reset returns to Idle from any state, discarding the document, the
// record and any in-flight result. An outstanding upload or save is
// cancelled; the workflow stays busy until that call has returned.
func (w *Ingestion) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.progress.Fail()
	w.state = StateIdle
	w.doc = nil
	w.form = nil
	w.saved = nil
	w.message = ""
	w.warnings = nil
	w.failed = stepNone
}

func (w *Ingestion) failLocked(s step, err error, fallback string) {
	w.state = StateFailed
	w.failed = s
	w.message = failureMessage(err, fallback)
}

func failureMessage(err error, fallback string) string {
	var validationErr *invoice.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	return api.Message(err, fallback)
}

// State returns the current state.
func (w *Ingestion) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Message returns the last failure or confirmation message.
func (w *Ingestion) Message() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}

// Warnings returns the amount warnings raised for the current extraction.
func (w *Ingestion) Warnings() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.warnings...)
}

// Invoice returns the record under review. ok is false before a record
// exists.
func (w *Ingestion) Invoice() (inv models.Invoice, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.form == nil {
		return models.Invoice{}, false
	}
	return w.form.Invoice(), true
}

// Field returns the display value of one field of the record under review.
func (w *Ingestion) Field(field string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.form == nil {
		return "", transitionError("Field", w.state)
	}
	return w.form.Get(field)
}

// Saved returns the persisted invoice after a successful save.
func (w *Ingestion) Saved() *models.Invoice {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saved
}

// Document returns the selected document, if any.
func (w *Ingestion) Document() *models.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc
}

// Progress returns the upload indicator value.
func (w *Ingestion) Progress() int {
	return w.progress.Value()
}

// ProgressRunning reports whether the upload indicator is still ticking.
func (w *Ingestion) ProgressRunning() bool {
	return w.progress.Running()
}
