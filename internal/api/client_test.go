package api

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/api"), srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClient_GetByID_BareAndEnveloped(t *testing.T) {
	var calls []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/Invoice/7":
			writeJSON(w, http.StatusOK, `{"id":7,"invoiceNumber":"INV-7"}`)
		case "/api/Invoice/8":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":8,"invoiceNumber":"INV-8"}}`)
		default:
			writeJSON(w, http.StatusNotFound, `{}`)
		}
	})

	inv, err := client.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "INV-7", inv.InvoiceNumber)

	inv, err = client.GetByID(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, "INV-8", inv.InvoiceNumber)

	assert.Equal(t, []string{"GET /api/Invoice/7", "GET /api/Invoice/8"}, calls)
}

func TestClient_GetByCustomer_EscapesName(t *testing.T) {
	var rawPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, `[{"id":1,"customerName":"ACME / Sons"}]`)
	})

	list, err := client.GetByCustomer(context.Background(), "ACME / Sons")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "/api/Invoice/customer/ACME%20%2F%20Sons", rawPath)
}

func TestClient_GetDetails_PreservesLineItemOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/Invoice/details/3", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":3,"lineItems":[
			{"invoiceId":3,"description":"zeta","quantity":1,"unitPrice":5,"totalPrice":5},
			{"invoiceId":3,"description":"alpha","quantity":2,"unitPrice":1.5,"totalPrice":3}]}}`)
	})

	details, err := client.GetDetails(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, details.LineItems, 2)
	assert.Equal(t, "zeta", details.LineItems[0].Description)
	assert.Equal(t, "alpha", details.LineItems[1].Description)
	assert.True(t, details.LineItems[1].UnitPrice.Equal(decimal.RequireFromString("1.5")))
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   ErrorKind
		wantErr    error
		wantMsg    string
		wantStatus int
	}{
		{
			name:       "status with server message",
			status:     http.StatusBadRequest,
			body:       `{"message":"Invoice number already exists"}`,
			wantKind:   KindStatus,
			wantErr:    ErrStatus,
			wantMsg:    "Invoice number already exists",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "status without message",
			status:     http.StatusInternalServerError,
			body:       `<html>oops</html>`,
			wantKind:   KindStatus,
			wantErr:    ErrStatus,
			wantMsg:    "Server Error: 500",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "logical failure behind 200",
			status:     http.StatusOK,
			body:       `{"success":false,"message":"Invoice not found"}`,
			wantKind:   KindRejected,
			wantErr:    ErrRejected,
			wantMsg:    "Invoice not found",
			wantStatus: http.StatusOK,
		},
		{
			name:       "logical failure without message",
			status:     http.StatusOK,
			body:       `{"success":false}`,
			wantKind:   KindRejected,
			wantErr:    ErrRejected,
			wantMsg:    "Failed to load invoice",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := client.GetByID(context.Background(), 1)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, srv.URL+"/api/Invoice/1", apiErr.URL)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL + "/api"
	srv.Close()

	client := NewClient(base)
	_, err := client.GetAll(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, IsKind(err, KindTransport))
	assert.Contains(t, err.Error(), "Cannot connect to server")
	assert.Contains(t, err.Error(), base)
	assert.Contains(t, err.Error(), "CORS")
	assert.False(t, client.FellBack())
}

func TestClient_StickyHTTPFallback(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `[]`)
	}))
	t.Cleanup(srv.Close)

	// The test server only speaks plain HTTP, so the TLS handshake fails
	// before any response is received.
	httpsBase := strings.Replace(srv.URL, "http://", "https://", 1) + "/api"
	client := NewClient(httpsBase)

	_, err := client.GetAll(context.Background())
	require.NoError(t, err)
	assert.True(t, client.FellBack())
	assert.Equal(t, srv.URL+"/api", client.BaseURL())

	_, err = client.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, srv.URL+"/api", client.BaseURL())
}

func TestClient_NoFallbackOnHTTPStatus(t *testing.T) {
	tlsSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	}))
	t.Cleanup(tlsSrv.Close)

	client := NewClient(tlsSrv.URL+"/api", WithHTTPClient(tlsSrv.Client()))
	_, err := client.GetAll(context.Background())

	assert.ErrorIs(t, err, ErrStatus)
	assert.False(t, client.FellBack())
	assert.Equal(t, tlsSrv.URL+"/api", client.BaseURL())
}

func TestClient_Upload_MultipartFraming(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/Upload", r.URL.Path)

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)
		require.NotEmpty(t, params["boundary"])

		reader := multipart.NewReader(r.Body, params["boundary"])
		part, err := reader.NextPart()
		require.NoError(t, err)
		assert.Equal(t, UploadFieldName, part.FormName())
		assert.Equal(t, "scan.pdf", part.FileName())
		assert.Equal(t, "application/pdf", part.Header.Get("Content-Type"))
		content, _ := io.ReadAll(part)
		assert.Equal(t, "%PDF-1.4 body", string(content))

		writeJSON(w, http.StatusOK, `{"success":true,"message":"ok","invoice":{"id":11,"invoiceNumber":"E-11"}}`)
	})

	res, err := client.Upload(context.Background(), &models.Document{
		Name:      "scan.pdf",
		MediaType: "application/pdf",
		Size:      13,
		Content:   []byte("%PDF-1.4 body"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Invoice)
	assert.Equal(t, int64(11), res.Invoice.ID)
}

func TestClient_Upload_RejectedWithMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false,"message":"Unreadable document"}`)
	})

	_, err := client.Upload(context.Background(), &models.Document{Name: "a.png", MediaType: "image/png", Content: []byte{1}})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "Unreadable document", err.Error())
}

func TestClient_GetByCustomer_RejectedKeepsServerMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/Silent") {
			writeJSON(w, http.StatusOK, `{"success":false}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":false,"message":"Customer has no invoices"}`)
	})

	_, err := client.GetByCustomer(context.Background(), "Nobody")
	assert.True(t, IsKind(err, KindRejected))
	assert.Equal(t, "Customer has no invoices", ServerMessage(err))

	_, err = client.GetByCustomer(context.Background(), "Silent")
	assert.True(t, IsKind(err, KindRejected))
	assert.Empty(t, ServerMessage(err))
}

func TestClient_CreateAndUpdate(t *testing.T) {
	var received []models.Invoice
	var methods []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/Invoice", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		methods = append(methods, r.Method)

		var inv models.Invoice
		require.NoError(t, json.NewDecoder(r.Body).Decode(&inv))
		received = append(received, inv)

		switch r.Method {
		case http.MethodPost:
			inv.ID = 21
			out, _ := json.Marshal(map[string]any{"success": true, "data": inv})
			writeJSON(w, http.StatusOK, string(out))
		case http.MethodPut:
			writeJSON(w, http.StatusOK, `{"success":true,"message":"Updated"}`)
		}
	})

	draft := &models.Invoice{
		InvoiceNumber: "INV-21",
		Date:          "2024-03-01",
		Subtotal:      decimal.RequireFromString("100.00"),
		VATAmount:     decimal.RequireFromString("19.00"),
		TotalAmount:   decimal.RequireFromString("119.00"),
	}

	created, err := client.Create(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, int64(21), created.ID)

	created.VendorName = "Vendor"
	updated, err := client.Update(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, int64(21), updated.ID)
	assert.Equal(t, "Vendor", updated.VendorName)

	assert.Equal(t, []string{http.MethodPost, http.MethodPut}, methods)
	require.Len(t, received, 2)
	assert.Zero(t, received[0].ID)
	assert.True(t, received[0].TotalAmount.Equal(decimal.RequireFromString("119")))
}

func TestClient_Create_WithoutIDIsRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"message":"Created"}`)
	})

	_, err := client.Create(context.Background(), &models.Invoice{InvoiceNumber: "X"})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "Failed to create invoice", err.Error())
}

func TestClient_WritesAmountsAsNumbers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "12.5", string(raw["subtotal"]))
		_, hasID := raw["id"]
		assert.False(t, hasID)
		writeJSON(w, http.StatusOK, `{"id":1}`)
	})

	_, err := client.Create(context.Background(), &models.Invoice{Subtotal: decimal.RequireFromString("12.5")})
	require.NoError(t, err)
}
