package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

const (
	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 60 * time.Second

	// UploadFieldName is the multipart form field carrying the document.
	UploadFieldName = "file"

	msgCreateFailed  = "Failed to create invoice"
	msgUpdateFailed  = "Failed to save invoice"
	msgInvoiceFailed = "Failed to load invoice"
	msgDetailsFailed = "Failed to load invoice details"
	msgListFailed    = "Failed to load invoices"
	msgSearchFailed  = "Search failed"
)

// Client talks to the invoice backend over HTTP.
//
// If the base endpoint is https:// and a request fails before any response
// is received, the request is retried once against the http:// equivalent
// and the client keeps using http:// for the rest of its lifetime.
type Client struct {
	httpClient *http.Client
	log        zerolog.Logger

	mu       sync.Mutex
	baseURL  string
	fellBack bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a client for the given base endpoint, e.g.
// "http://localhost:5000/api". An endpoint without scheme is treated as
// http://.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logger.WithComponent("api-client"),
		baseURL:    normalizeBaseURL(baseURL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return base
}

// BaseURL returns the endpoint currently in use.
func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

// FellBack reports whether the client downgraded from https to http.
func (c *Client) FellBack() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fellBack
}

// request describes one backend call.
type request struct {
	op          string
	method      string
	path        string
	body        []byte
	contentType string
}

// response is a received 2xx answer.
type response struct {
	body      []byte
	status    int
	url       string
	requestID string
}

// Upload sends the document as a multipart body. The Content-Type header is
// the one generated by the multipart writer, so the boundary always matches
// the body framing.
func (c *Client) Upload(ctx context.Context, doc *models.Document) (*UploadResult, error) {
	const op = "Upload"

	body, contentType, err := encodeMultipart(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode document: %w", op, err)
	}

	resp, err := c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/Upload",
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return nil, err
	}

	res, cause := normalizeUpload(resp.body)
	if !res.OK {
		return nil, c.rejected(op, resp, res.Message, cause)
	}

	c.log.Info().
		Str("request_id", resp.requestID).
		Str("file", doc.Name).
		Bool("embedded", res.Value.Invoice != nil).
		Int64("invoice_id", res.Value.InvoiceID).
		Msg("Document uploaded")

	return &res.Value, nil
}

func encodeMultipart(doc *models.Document) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		UploadFieldName, quoteEscaper.Replace(doc.Name)))
	if doc.MediaType != "" {
		h.Set("Content-Type", doc.MediaType)
	}

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(doc.Content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Create persists a new invoice. The backend must return the stored record
// with its ID.
func (c *Client) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	const op = "Create"

	created, err := c.write(ctx, op, http.MethodPost, invoice, msgCreateFailed)
	if err != nil {
		return nil, err
	}
	if created.IsNew() {
		return nil, &APIError{Op: op, Kind: KindRejected, Status: http.StatusOK,
			URL: c.endpoint("/Invoice"), Message: msgCreateFailed, Err: errors.New("created invoice has no id")}
	}
	return created, nil
}

// Update replaces an existing invoice. Backends that acknowledge without
// echoing the record yield the submitted invoice.
func (c *Client) Update(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	const op = "Update"

	updated, err := c.write(ctx, op, http.MethodPut, invoice, msgUpdateFailed)
	if err != nil {
		return nil, err
	}
	if updated.IsNew() {
		updated.ID = invoice.ID
	}
	return updated, nil
}

func (c *Client) write(ctx context.Context, op, method string, invoice *models.Invoice, fallback string) (*models.Invoice, error) {
	payload, err := json.Marshal(invoice)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode invoice: %w", op, err)
	}

	resp, err := c.do(ctx, request{
		op:          op,
		method:      method,
		path:        "/Invoice",
		body:        payload,
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(resp.body)) == 0 && method == http.MethodPut {
		echo := *invoice
		return &echo, nil
	}

	res, cause := normalize[models.Invoice](resp.body, fallback)
	if res.OK {
		return &res.Value, nil
	}
	if res.Acknowledged {
		if method == http.MethodPut {
			echo := *invoice
			return &echo, nil
		}
		// success without the stored record
		return nil, c.rejected(op, resp, fallback, cause)
	}
	return nil, c.rejected(op, resp, res.Message, cause)
}

// GetByID loads a single invoice.
func (c *Client) GetByID(ctx context.Context, id int64) (*models.Invoice, error) {
	inv, err := fetch[models.Invoice](ctx, c, "GetByID", fmt.Sprintf("/Invoice/%d", id), msgInvoiceFailed)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetDetails loads an invoice with its line items.
func (c *Client) GetDetails(ctx context.Context, id int64) (*models.InvoiceDetails, error) {
	details, err := fetch[models.InvoiceDetails](ctx, c, "GetDetails", fmt.Sprintf("/Invoice/details/%d", id), msgDetailsFailed)
	if err != nil {
		return nil, err
	}
	return &details, nil
}

// GetAll lists every stored invoice in server order.
func (c *Client) GetAll(ctx context.Context) ([]models.Invoice, error) {
	return fetch[[]models.Invoice](ctx, c, "GetAll", "/Invoice", msgListFailed)
}

// GetByCustomer lists the invoices of one customer in server order.
func (c *Client) GetByCustomer(ctx context.Context, customerName string) ([]models.Invoice, error) {
	return fetch[[]models.Invoice](ctx, c, "GetByCustomer",
		"/Invoice/customer/"+url.PathEscape(customerName), msgSearchFailed)
}

func fetch[T any](ctx context.Context, c *Client, op, path, fallback string) (T, error) {
	var zero T

	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: path})
	if err != nil {
		return zero, err
	}

	res, cause := normalize[T](resp.body, fallback)
	if !res.OK {
		return zero, c.rejected(op, resp, res.Message, cause)
	}
	return res.Value, nil
}

// do executes a request, applying the sticky https→http fallback, and
// classifies every non-2xx outcome.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	requestID := uuid.NewString()
	log := logger.WithRequestID(c.log, requestID)

	base := c.BaseURL()
	resp, err := c.attempt(ctx, base, req)

	if err != nil && ctx.Err() == nil && strings.HasPrefix(base, "https://") {
		next := c.fallBack(base)
		log.Warn().
			Err(err).
			Str("op", req.op).
			Str("from", base).
			Str("to", next).
			Msg("HTTPS request failed before a response was received, retrying over HTTP")
		base = next
		resp, err = c.attempt(ctx, base, req)
	}

	target := base + req.path
	if err != nil {
		apiErr := &APIError{
			Op:      req.op,
			Kind:    KindTransport,
			URL:     target,
			Message: transportMessage(base),
			Err:     err,
		}
		if ctx.Err() != nil {
			apiErr.Message = "Request was canceled"
			apiErr.Err = ctx.Err()
		}
		c.logFailure(log, apiErr)
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := &APIError{
			Op:      req.op,
			Kind:    KindTransport,
			Status:  resp.StatusCode,
			URL:     target,
			Message: transportMessage(base),
			Err:     fmt.Errorf("reading response body: %w", err),
		}
		c.logFailure(log, apiErr)
		return nil, apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Op:      req.op,
			Kind:    KindStatus,
			Status:  resp.StatusCode,
			URL:     target,
			Message: statusMessage(resp.StatusCode, serverMessage(body)),
			Err:     fmt.Errorf("%s %s: %s", req.method, target, resp.Status),
		}
		c.logFailure(log, apiErr)
		return nil, apiErr
	}

	log.Debug().
		Str("op", req.op).
		Str("url", target).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("Backend call succeeded")

	return &response{body: body, status: resp.StatusCode, url: target, requestID: requestID}, nil
}

func (c *Client) attempt(ctx context.Context, base string, req request) (*http.Response, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, base+req.path, body)
	if err != nil {
		return nil, err
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	return c.httpClient.Do(httpReq)
}

// fallBack switches the session to the http:// form of from and returns the
// endpoint to retry against. Only the first caller switches; later callers
// get the endpoint already in use.
func (c *Client) fallBack(from string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.baseURL == from && strings.HasPrefix(from, "https://") {
		c.baseURL = "http://" + strings.TrimPrefix(from, "https://")
		c.fellBack = true
	}
	return c.baseURL
}

func (c *Client) endpoint(path string) string {
	return c.BaseURL() + path
}

func (c *Client) rejected(op string, resp *response, message string, cause error) error {
	if cause == nil {
		cause = ErrRejected
	}
	apiErr := &APIError{
		Op:            op,
		Kind:          KindRejected,
		Status:        resp.status,
		URL:           resp.url,
		Message:       message,
		ServerMessage: serverMessage(resp.body),
		Err:           cause,
	}
	c.logFailure(logger.WithRequestID(c.log, resp.requestID), apiErr)
	return apiErr
}

func (c *Client) logFailure(log zerolog.Logger, apiErr *APIError) {
	log.Error().
		Err(apiErr.Err).
		Str("op", apiErr.Op).
		Str("kind", string(apiErr.Kind)).
		Int("status", apiErr.Status).
		Str("url", apiErr.URL).
		Str("message", apiErr.Message).
		Msg("Invoice backend call failed")
}

// serverMessage extracts the "message" field of an error body, if any.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
