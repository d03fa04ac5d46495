package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/pkg/models"
)

func TestNormalize_ListShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantOK  bool
		wantIDs []int64
		wantMsg string
	}{
		{
			name:    "envelope with data",
			body:    `{"success":true,"data":[{"id":1,"invoiceNumber":"A"},{"id":2,"invoiceNumber":"B"}]}`,
			wantOK:  true,
			wantIDs: []int64{1, 2},
		},
		{
			name:    "bare array",
			body:    `[{"id":1,"invoiceNumber":"A"}]`,
			wantOK:  true,
			wantIDs: []int64{1},
		},
		{
			name:    "empty bare array",
			body:    `[]`,
			wantOK:  true,
			wantIDs: []int64{},
		},
		{
			name:    "failed envelope",
			body:    `{"success":false,"message":"x"}`,
			wantMsg: "x",
		},
		{
			name:    "failed envelope without message",
			body:    `{"success":false}`,
			wantMsg: "Failed to load invoices",
		},
		{
			name:    "success without data",
			body:    `{"success":true,"data":null}`,
			wantMsg: "Failed to load invoices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize[[]models.Invoice]([]byte(tt.body), "Failed to load invoices")

			assert.Equal(t, tt.wantOK, res.OK)
			if !tt.wantOK {
				assert.Equal(t, tt.wantMsg, res.Message)
				return
			}
			ids := make([]int64, 0, len(res.Value))
			for _, inv := range res.Value {
				ids = append(ids, inv.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestNormalize_SingleRecordShapes(t *testing.T) {
	t.Run("bare object with id", func(t *testing.T) {
		res := Normalize[models.Invoice]([]byte(`{"id":7,"invoiceNumber":"INV-7","subtotal":10,"vatAmount":2,"totalAmount":12}`), "")

		require.True(t, res.OK)
		assert.Equal(t, int64(7), res.Value.ID)
		assert.Equal(t, "INV-7", res.Value.InvoiceNumber)
		assert.Equal(t, "12", res.Value.TotalAmount.String())
	})

	t.Run("enveloped object", func(t *testing.T) {
		res := Normalize[models.Invoice]([]byte(`{"success":true,"data":{"id":8}}`), "")

		require.True(t, res.OK)
		assert.Equal(t, int64(8), res.Value.ID)
		assert.True(t, res.Acknowledged)
	})

	t.Run("falsy id is not a record", func(t *testing.T) {
		for _, body := range []string{`{"id":0}`, `{"id":null}`, `{"id":""}`, `{"invoiceNumber":"A"}`} {
			res := Normalize[models.Invoice]([]byte(body), "")
			assert.False(t, res.OK, body)
			assert.Equal(t, MsgLoadFailed, res.Message, body)
		}
	})

	t.Run("pascal case envelope", func(t *testing.T) {
		res := Normalize[models.Invoice]([]byte(`{"Success":true,"Data":{"Id":3,"InvoiceNumber":"P"}}`), "")

		require.True(t, res.OK)
		assert.Equal(t, int64(3), res.Value.ID)
		assert.Equal(t, "P", res.Value.InvoiceNumber)
	})
}

func TestNormalize_EnvelopeTakesPrecedenceOverBareObject(t *testing.T) {
	// An envelope that also carries an id is still read as an envelope.
	res := Normalize[models.Invoice]([]byte(`{"success":true,"id":99,"data":{"id":5}}`), "")

	require.True(t, res.OK)
	assert.Equal(t, int64(5), res.Value.ID)
}

func TestNormalize_FailedEnvelopeKeepsErrors(t *testing.T) {
	res := Normalize[models.Invoice]([]byte(`{"success":false,"message":"Validation failed","errors":["date is required"]}`), "")

	assert.False(t, res.OK)
	assert.Equal(t, "Validation failed", res.Message)
	assert.Equal(t, []string{"date is required"}, res.Errors)
}

func TestNormalize_MalformedPayload(t *testing.T) {
	for _, body := range []string{``, `not json`, `"text"`, `{"success":`} {
		res, err := normalize[models.Invoice]([]byte(body), "fallback")
		assert.False(t, res.OK, body)
		assert.Equal(t, "fallback", res.Message, body)
		assert.ErrorIs(t, err, ErrMalformedResponse, body)
	}
}

func TestNormalizeUpload_Variants(t *testing.T) {
	t.Run("embedded invoice", func(t *testing.T) {
		res := NormalizeUpload([]byte(`{"success":true,"message":"Processed","invoice":{"id":4,"invoiceNumber":"X"}}`))

		require.True(t, res.OK)
		require.NotNil(t, res.Value.Invoice)
		assert.Equal(t, int64(4), res.Value.Invoice.ID)
		assert.False(t, res.Value.NeedsFetch())
		assert.Equal(t, "Processed", res.Value.Message)
	})

	t.Run("identifier only", func(t *testing.T) {
		res := NormalizeUpload([]byte(`{"invoiceId":42}`))

		require.True(t, res.OK)
		assert.Nil(t, res.Value.Invoice)
		assert.Equal(t, int64(42), res.Value.InvoiceID)
		assert.True(t, res.Value.NeedsFetch())
	})

	t.Run("identifier as string", func(t *testing.T) {
		res := NormalizeUpload([]byte(`{"success":true,"invoiceId":"42"}`))

		require.True(t, res.OK)
		assert.Equal(t, int64(42), res.Value.InvoiceID)
	})

	t.Run("enveloped extraction", func(t *testing.T) {
		res := NormalizeUpload([]byte(`{"success":true,"data":{"id":9,"invoiceNumber":"D"}}`))

		require.True(t, res.OK)
		require.NotNil(t, res.Value.Invoice)
		assert.Equal(t, int64(9), res.Value.Invoice.ID)
	})

	t.Run("explicit failure", func(t *testing.T) {
		res := NormalizeUpload([]byte(`{"success":false,"message":"OCR failed","invoiceId":3}`))

		assert.False(t, res.OK)
		assert.Equal(t, "OCR failed", res.Message)
	})

	t.Run("no record and no message", func(t *testing.T) {
		res := NormalizeUpload([]byte(`{"success":true}`))

		assert.False(t, res.OK)
		assert.Equal(t, MsgUploadFailed, res.Message)
	})
}
