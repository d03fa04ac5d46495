package models

import "github.com/shopspring/decimal"

// The invoice store reads and writes amounts as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Invoice is a billing document as stored by the invoice backend.
type Invoice struct {
	// ID is assigned by the backend on first save. Zero means the record
	// has never been persisted.
	ID            int64  `json:"id,omitempty"`
	InvoiceNumber string `json:"invoiceNumber"`

	// Date is an ISO calendar date (YYYY-MM-DD). Backends may return a
	// full timestamp here; editors truncate it before binding.
	Date string `json:"date"`

	// Parties
	VendorName      string `json:"vendorName"`
	VendorAddress   string `json:"vendorAddress"`
	CustomerName    string `json:"customerName"`
	CustomerAddress string `json:"customerAddress"`

	// Amounts. TotalAmount is always Subtotal + VATAmount once a record has
	// been edited on the client.
	Subtotal    decimal.Decimal `json:"subtotal"`
	VATAmount   decimal.Decimal `json:"vatAmount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`

	// Server-assigned timestamps, display only
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// IsNew reports whether the invoice has not been persisted yet.
func (i *Invoice) IsNew() bool {
	return i.ID == 0
}

// InvoiceLineItem is a single billed position. It belongs to exactly one
// invoice and has no lifecycle of its own.
type InvoiceLineItem struct {
	ID          int64           `json:"id,omitempty"`
	InvoiceID   int64           `json:"invoiceId"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// InvoiceDetails is an invoice together with its line items, in the order
// the backend returned them.
type InvoiceDetails struct {
	Invoice
	LineItems []InvoiceLineItem `json:"lineItems"`
}
