// Package api is the client side of the invoice backend's HTTP JSON API.
//
// The backend performs OCR extraction on uploaded documents and stores the
// resulting invoices. Its response shapes changed across revisions, so every
// payload passes through one normalization step (see Normalize) before it
// reaches callers; envelopes never leak out of this package.
//
// Endpoints, relative to the configured base endpoint:
//   - POST /Upload                     multipart document → extraction result
//   - POST /Invoice, PUT /Invoice      JSON invoice → enveloped invoice
//   - GET  /Invoice/{id}               enveloped or bare invoice
//   - GET  /Invoice/details/{id}       enveloped invoice with line items
//   - GET  /Invoice/customer/{name}    enveloped or bare invoice list
//   - GET  /Invoice                    enveloped or bare invoice list
//
// Failures are classified into transport failures (no response), error
// statuses, and logical rejections; see APIError.
package api

import (
	"context"

	"invoicedesk/pkg/models"
)

// InvoiceService is the set of backend operations the workflows depend on.
type InvoiceService interface {
	// Upload sends a source document for OCR extraction.
	Upload(ctx context.Context, doc *models.Document) (*UploadResult, error)

	// Create persists a new invoice and returns it with its assigned ID.
	Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)

	// Update replaces an existing invoice.
	Update(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)

	GetByID(ctx context.Context, id int64) (*models.Invoice, error)
	GetDetails(ctx context.Context, id int64) (*models.InvoiceDetails, error)
	GetAll(ctx context.Context) ([]models.Invoice, error)
	GetByCustomer(ctx context.Context, customerName string) ([]models.Invoice, error)
}

// UploadResult is the normalized answer to an upload.
//
// Backends either embed the extracted invoice (Invoice set) or return only
// the identifier of the stored extraction (InvoiceID set, Invoice nil), in
// which case the record must be fetched separately.
type UploadResult struct {
	Message   string
	Invoice   *models.Invoice
	InvoiceID int64
}

// NeedsFetch reports whether the extracted record has to be loaded with a
// follow-up GetByID call.
func (r *UploadResult) NeedsFetch() bool {
	return r.Invoice == nil && r.InvoiceID != 0
}
