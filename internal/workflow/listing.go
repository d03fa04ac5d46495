package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"invoicedesk/internal/api"
	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// DebounceDelay is how long the customer filter waits after the last
// keystroke before searching.
const DebounceDelay = 500 * time.Millisecond

const (
	MsgListFailed   = "Failed to load invoices"
	MsgSearchFailed = "Search failed"
	MsgNoResults    = "No invoices found for this customer"
)

// ListStatus describes what the listing currently shows.
type ListStatus int

const (
	ListIdle ListStatus = iota
	ListLoading
	ListLoaded
	ListNoResults
	ListFailed
)

func (s ListStatus) String() string {
	switch s {
	case ListIdle:
		return "idle"
	case ListLoading:
		return "loading"
	case ListLoaded:
		return "loaded"
	case ListNoResults:
		return "no-results"
	case ListFailed:
		return "failed"
	}
	return "unknown"
}

// ListView is a snapshot of the listing.
type ListView struct {
	Query    string
	Status   ListStatus
	Invoices []models.Invoice
	Message  string
}

// Listing drives the invoice list with its debounced customer filter.
// Responses are applied in issue order: a response to anything but the most
// recently issued request is dropped.
type Listing struct {
	svc      api.InvoiceService
	clock    Clock
	onChange func(ListView)
	log      zerolog.Logger

	mu       sync.Mutex
	ctx      context.Context
	view     ListView
	debounce Timer
	seq      uint64
}

// ListingOption configures a Listing.
type ListingOption func(*Listing)

func WithListingClock(c Clock) ListingOption {
	return func(l *Listing) { l.clock = c }
}

// WithListener receives a snapshot after every applied response.
func WithListener(f func(ListView)) ListingOption {
	return func(l *Listing) { l.onChange = f }
}

func NewListing(svc api.InvoiceService, opts ...ListingOption) *Listing {
	l := &Listing{
		svc:   svc,
		clock: RealClock{},
		ctx:   context.Background(),
		log:   logger.WithComponent("listing"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enter loads the full listing. ctx also bounds searches triggered later by
// the debounce timer.
func (l *Listing) Enter(ctx context.Context) error {
	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()
	return l.load(ctx, "")
}

// Type updates the customer filter. The search runs DebounceDelay after the
// last call; an empty filter reloads the full listing.
func (l *Listing) Type(query string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.view.Query = query
	l.stopDebounceLocked()
	l.debounce = l.clock.AfterFunc(DebounceDelay, l.fire)
}

func (l *Listing) fire() {
	l.mu.Lock()
	l.debounce = nil
	ctx := l.ctx
	query := strings.TrimSpace(l.view.Query)
	l.mu.Unlock()

	_ = l.load(ctx, query)
}

// Search runs a customer search immediately, cancelling a pending debounce.
func (l *Listing) Search(ctx context.Context, customer string) error {
	l.mu.Lock()
	l.stopDebounceLocked()
	l.view.Query = customer
	l.mu.Unlock()
	return l.load(ctx, strings.TrimSpace(customer))
}

// ShowAll clears the filter, cancels a pending debounce and reloads the full
// listing immediately.
func (l *Listing) ShowAll(ctx context.Context) error {
	l.mu.Lock()
	l.stopDebounceLocked()
	l.view.Query = ""
	l.mu.Unlock()
	return l.load(ctx, "")
}

// Close cancels a pending debounce.
func (l *Listing) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopDebounceLocked()
}

func (l *Listing) stopDebounceLocked() {
	if l.debounce != nil {
		l.debounce.Stop()
		l.debounce = nil
	}
}

func (l *Listing) load(ctx context.Context, customer string) error {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.view.Status = ListLoading
	l.view.Message = ""
	l.mu.Unlock()

	var (
		invoices []models.Invoice
		err      error
	)
	if customer == "" {
		invoices, err = l.svc.GetAll(ctx)
	} else {
		invoices, err = l.svc.GetByCustomer(ctx, customer)
	}

	l.mu.Lock()
	if seq != l.seq {
		l.mu.Unlock()
		l.log.Debug().Str("customer", customer).Msg("Dropping superseded listing response")
		return nil
	}
	status, message, result := classifyList(customer, invoices, err)
	l.view.Invoices = result
	l.view.Status = status
	l.view.Message = message
	view := l.snapshotLocked()
	l.mu.Unlock()

	l.log.Debug().
		Str("customer", customer).
		Str("status", status.String()).
		Int("count", len(view.Invoices)).
		Msg("Listing updated")

	if l.onChange != nil {
		l.onChange(view)
	}
	if status == ListFailed {
		return err
	}
	return nil
}

// classifyList separates "the search found nothing" from "the call failed".
// A customer search that returns an empty or absent data set is a
// no-results outcome even when the backend reports it as a logical failure;
// the backend's own message is shown when it sent one.
func classifyList(customer string, invoices []models.Invoice, err error) (ListStatus, string, []models.Invoice) {
	if customer == "" {
		if err != nil {
			return ListFailed, api.Message(err, MsgListFailed), nil
		}
		return ListLoaded, "", invoices
	}

	switch {
	case err == nil && len(invoices) == 0:
		return ListNoResults, MsgNoResults, nil
	case err == nil:
		return ListLoaded, "", invoices
	case api.IsKind(err, api.KindRejected):
		if msg := api.ServerMessage(err); msg != "" {
			return ListNoResults, msg, nil
		}
		return ListNoResults, MsgNoResults, nil
	default:
		return ListFailed, api.Message(err, MsgSearchFailed), nil
	}
}

// View returns the current listing.
func (l *Listing) View() ListView {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Listing) snapshotLocked() ListView {
	view := l.view
	view.Invoices = append([]models.Invoice(nil), l.view.Invoices...)
	return view
}
