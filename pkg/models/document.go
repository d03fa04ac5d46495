package models

// Document is a source file selected for OCR extraction.
type Document struct {
	Name string

	// MediaType is the declared type of the file, e.g. "application/pdf".
	MediaType string

	Size    int64
	Content []byte
}
