package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// DateLayout is the date-only form used by editors and the backend.
const DateLayout = "2006-01-02"

// DefaultPrecision is the number of decimal places amounts are rounded to.
const DefaultPrecision int32 = 2

// Editable field names, as they appear in the JSON body.
const (
	FieldInvoiceNumber   = "invoiceNumber"
	FieldDate            = "date"
	FieldVendorName      = "vendorName"
	FieldVendorAddress   = "vendorAddress"
	FieldCustomerName    = "customerName"
	FieldCustomerAddress = "customerAddress"
	FieldSubtotal        = "subtotal"
	FieldVATAmount       = "vatAmount"
	FieldTotalAmount     = "totalAmount"
)

// Fields lists the editable fields in display order.
var Fields = []string{
	FieldInvoiceNumber,
	FieldDate,
	FieldVendorName,
	FieldVendorAddress,
	FieldCustomerName,
	FieldCustomerAddress,
	FieldSubtotal,
	FieldVATAmount,
	FieldTotalAmount,
}

// NewDraft returns an empty invoice dated today.
func NewDraft(now time.Time) models.Invoice {
	return models.Invoice{Date: now.Format(DateLayout)}
}

// DateOnly truncates a timestamp such as "2024-03-01T00:00:00Z" to its
// date prefix. Values without a time part are returned unchanged.
func DateOnly(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.IndexAny(value, "T "); i >= 0 {
		return value[:i]
	}
	return value
}

// ParseID validates an invoice identifier given as text.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewValidationError("id", raw, ErrInvalidID, "Invalid invoice ID")
	}
	return id, nil
}

// RecalculateTotal sets TotalAmount to Subtotal + VATAmount rounded to
// precision.
func RecalculateTotal(inv *models.Invoice, precision int32) {
	inv.TotalAmount = inv.Subtotal.Add(inv.VATAmount).Round(precision)
}

// ValidateForSave checks the fields the backend requires.
func ValidateForSave(inv *models.Invoice) error {
	required := []struct {
		field, value, label string
	}{
		{FieldInvoiceNumber, inv.InvoiceNumber, "Invoice number"},
		{FieldDate, inv.Date, "Date"},
		{FieldVendorName, inv.VendorName, "Vendor name"},
		{FieldCustomerName, inv.CustomerName, "Customer name"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewValidationError(r.field, r.value, ErrMissingRequiredField, r.label+" is required")
		}
	}

	if _, err := time.Parse(DateLayout, DateOnly(inv.Date)); err != nil {
		return NewValidationError(FieldDate, inv.Date, ErrInvalidDate, "Date must be in YYYY-MM-DD format")
	}

	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{FieldSubtotal, inv.Subtotal},
		{FieldVATAmount, inv.VATAmount},
		{FieldTotalAmount, inv.TotalAmount},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return NewValidationError(a.field, a.value.String(), ErrNegativeAmount, a.field+" must not be negative")
		}
	}
	return nil
}

// CheckAmounts cross-validates extracted amounts and returns a warning for
// every inconsistency. The invoice is not modified.
func CheckAmounts(inv *models.Invoice, precision int32) []string {
	log := logger.WithComponent("amount-validation")
	var warnings []string

	calculated := inv.Subtotal.Add(inv.VATAmount).Round(precision)
	if !inv.TotalAmount.Round(precision).Equal(calculated) {
		warnings = append(warnings, fmt.Sprintf(
			"Amount calculation error: Subtotal(%s) + VAT(%s) = %s, but Total=%s",
			inv.Subtotal.StringFixed(precision),
			inv.VATAmount.StringFixed(precision),
			calculated.StringFixed(precision),
			inv.TotalAmount.StringFixed(precision)))

		log.Warn().
			Str("subtotal", inv.Subtotal.String()).
			Str("vat", inv.VATAmount.String()).
			Str("total", inv.TotalAmount.String()).
			Str("calculated", calculated.String()).
			Msg("Amount calculation discrepancy detected")
	}

	for _, a := range []struct {
		name  string
		value decimal.Decimal
	}{{"Subtotal", inv.Subtotal}, {"VAT", inv.VATAmount}, {"Total", inv.TotalAmount}} {
		if a.value.IsNegative() {
			warnings = append(warnings, fmt.Sprintf("%s amount is negative (%s)", a.name, a.value.String()))
		}
	}

	return warnings
}

// Form is an invoice being edited. It keeps TotalAmount equal to Subtotal +
// VATAmount after every amount edit.
type Form struct {
	invoice   models.Invoice
	precision int32

	log zerolog.Logger
}

// NewForm starts editing inv. The incoming total, extracted or stored, is
// kept until an addend is edited.
func NewForm(inv models.Invoice, precision int32) *Form {
	inv.Date = DateOnly(inv.Date)
	return &Form{
		invoice:   inv,
		precision: precision,
		log:       logger.WithComponent("invoice-form"),
	}
}

// Invoice returns a copy of the record as currently edited.
func (f *Form) Invoice() models.Invoice {
	return f.invoice
}

// Set assigns value to the named field. Editing subtotal or vatAmount
// recomputes the total immediately.
func (f *Form) Set(field, value string) error {
	switch field {
	case FieldInvoiceNumber:
		f.invoice.InvoiceNumber = value
	case FieldVendorName:
		f.invoice.VendorName = value
	case FieldVendorAddress:
		f.invoice.VendorAddress = value
	case FieldCustomerName:
		f.invoice.CustomerName = value
	case FieldCustomerAddress:
		f.invoice.CustomerAddress = value
	case FieldDate:
		date := DateOnly(value)
		if _, err := time.Parse(DateLayout, date); err != nil {
			return NewValidationError(field, value, ErrInvalidDate, "Date must be in YYYY-MM-DD format")
		}
		f.invoice.Date = date
	case FieldSubtotal, FieldVATAmount:
		amount, err := parseAmount(field, value)
		if err != nil {
			return err
		}
		if field == FieldSubtotal {
			f.invoice.Subtotal = amount
		} else {
			f.invoice.VATAmount = amount
		}
		RecalculateTotal(&f.invoice, f.precision)
	case FieldTotalAmount:
		return NewValidationError(field, value, ErrTotalNotEditable, "Total amount is calculated from subtotal and VAT")
	default:
		return NewValidationError(field, value, ErrUnknownField, fmt.Sprintf("Unknown field %q", field))
	}

	f.log.Debug().Str("field", field).Msg("Field updated")
	return nil
}

// Get returns the display value of the named field.
func (f *Form) Get(field string) (string, error) {
	inv := &f.invoice
	switch field {
	case FieldInvoiceNumber:
		return inv.InvoiceNumber, nil
	case FieldDate:
		return inv.Date, nil
	case FieldVendorName:
		return inv.VendorName, nil
	case FieldVendorAddress:
		return inv.VendorAddress, nil
	case FieldCustomerName:
		return inv.CustomerName, nil
	case FieldCustomerAddress:
		return inv.CustomerAddress, nil
	case FieldSubtotal:
		return inv.Subtotal.StringFixed(f.precision), nil
	case FieldVATAmount:
		return inv.VATAmount.StringFixed(f.precision), nil
	case FieldTotalAmount:
		return inv.TotalAmount.StringFixed(f.precision), nil
	}
	return "", NewValidationError(field, nil, ErrUnknownField, fmt.Sprintf("Unknown field %q", field))
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, NewValidationError(field, value, ErrInvalidAmount, field+" must be a number")
	}
	if amount.IsNegative() {
		return decimal.Zero, NewValidationError(field, value, ErrNegativeAmount, field+" must not be negative")
	}
	return amount, nil
}
