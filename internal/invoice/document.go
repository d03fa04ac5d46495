// Package invoice holds the client-side rules for invoices: which documents
// may be uploaded, how fields are edited, and how amounts stay consistent.
package invoice

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"invoicedesk/pkg/models"
)

// MaxDocumentSize is the largest document accepted for upload (10 MiB).
const MaxDocumentSize int64 = 10 * 1024 * 1024

const (
	MsgUnsupportedFormat = "Please select a valid file type (PDF, JPG, PNG)"
	MsgDocumentTooLarge  = "File size must be less than 10MB"
)

// acceptedTypes are the media types the backend extracts from.
var acceptedTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// IsAcceptedType reports whether mediaType may be uploaded. Parameters such
// as "; charset=..." are ignored.
func IsAcceptedType(mediaType string) bool {
	base, _, _ := strings.Cut(mediaType, ";")
	return acceptedTypes[strings.ToLower(strings.TrimSpace(base))]
}

// ValidateDocument checks the declared media type and size of doc.
func ValidateDocument(doc *models.Document) error {
	if doc == nil {
		return NewValidationError("file", nil, ErrUnsupportedFormat, MsgUnsupportedFormat)
	}
	if !IsAcceptedType(doc.MediaType) {
		return NewValidationError("file", doc.MediaType, ErrUnsupportedFormat, MsgUnsupportedFormat)
	}
	if doc.Size > MaxDocumentSize {
		return NewValidationError("file", doc.Size, ErrDocumentTooLarge, MsgDocumentTooLarge)
	}
	return nil
}

// DetectMediaType determines the declared type of a local file from its
// content, falling back to the file extension when the content is
// inconclusive.
func DetectMediaType(name string, content []byte) string {
	detected := mimetype.Detect(content)
	if detected.Is("application/octet-stream") || len(content) == 0 {
		if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
			return t
		}
	}
	mediaType, _, _ := strings.Cut(detected.String(), ";")
	return mediaType
}

// OpenDocument reads a local file and returns it as an upload candidate.
// The size check happens before the content is read.
func OpenDocument(path string) (*models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to open document: %s is a directory", path)
	}
	if info.Size() > MaxDocumentSize {
		return nil, NewValidationError("file", info.Size(), ErrDocumentTooLarge, MsgDocumentTooLarge)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	name := filepath.Base(path)
	return &models.Document{
		Name:      name,
		MediaType: DetectMediaType(name, content),
		Size:      int64(len(content)),
		Content:   content,
	}, nil
}

// FormatFileSize renders a byte count for display, e.g. "1.5 MB".
func FormatFileSize(size int64) string {
	if size <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	value := float64(size)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	return strconv.FormatFloat(roundTo(value, 2), 'f', -1, 64) + " " + units[i]
}

func roundTo(v float64, places int) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	return f
}
