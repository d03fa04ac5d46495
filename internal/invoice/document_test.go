package invoice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/pkg/models"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *models.Document
		wantErr error
		wantMsg string
	}{
		{name: "pdf", doc: &models.Document{MediaType: "application/pdf", Size: 1024}},
		{name: "jpeg", doc: &models.Document{MediaType: "image/jpeg", Size: 1024}},
		{name: "jpg alias", doc: &models.Document{MediaType: "image/jpg", Size: 1024}},
		{name: "png with parameters", doc: &models.Document{MediaType: "image/png; q=1", Size: 1024}},
		{name: "exactly 10 MiB", doc: &models.Document{MediaType: "application/pdf", Size: MaxDocumentSize}},
		{
			name:    "plain text",
			doc:     &models.Document{MediaType: "text/plain", Size: 10},
			wantErr: ErrUnsupportedFormat,
			wantMsg: MsgUnsupportedFormat,
		},
		{
			name:    "11 MiB",
			doc:     &models.Document{MediaType: "application/pdf", Size: 11 * 1024 * 1024},
			wantErr: ErrDocumentTooLarge,
			wantMsg: MsgDocumentTooLarge,
		},
		{
			name:    "no document",
			wantErr: ErrUnsupportedFormat,
			wantMsg: MsgUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, IsValidation(err))
		})
	}
}

func TestDetectMediaType(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectMediaType("scan.bin", []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n")))
	assert.Equal(t, "image/png", DetectMediaType("scan", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")))

	// Inconclusive content falls back to the extension.
	assert.Equal(t, "application/pdf", DetectMediaType("scan.PDF", []byte{0x00, 0x01, 0x02, 0x03}))
	assert.Equal(t, "image/jpeg", DetectMediaType("photo.jpg", nil))

	// Content wins over a misleading extension.
	assert.Equal(t, "text/plain", DetectMediaType("notes.pdf", []byte("just some notes")))
}

func TestOpenDocument(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads content and type", func(t *testing.T) {
		path := filepath.Join(dir, "invoice.pdf")
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n1 0 obj\n"), 0o600))

		doc, err := OpenDocument(path)
		require.NoError(t, err)
		assert.Equal(t, "invoice.pdf", doc.Name)
		assert.Equal(t, "application/pdf", doc.MediaType)
		assert.Equal(t, int64(len(doc.Content)), doc.Size)
		assert.NoError(t, ValidateDocument(doc))
	})

	t.Run("rejects oversized file before reading", func(t *testing.T) {
		path := filepath.Join(dir, "huge.pdf")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, f.Truncate(11*1024*1024))
		require.NoError(t, f.Close())

		_, err = OpenDocument(path)
		assert.ErrorIs(t, err, ErrDocumentTooLarge)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := OpenDocument(filepath.Join(dir, "nope.pdf"))
		assert.Error(t, err)
		assert.False(t, IsValidation(err))
	})
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 Bytes", FormatFileSize(0))
	assert.Equal(t, "500 Bytes", FormatFileSize(500))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "10 MB", FormatFileSize(MaxDocumentSize))
	assert.Equal(t, "1.23 MB", FormatFileSize(1289748))
	assert.Equal(t, "2 GB", FormatFileSize(2*1024*1024*1024))
}
