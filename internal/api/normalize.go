package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"invoicedesk/pkg/models"
)

const (
	MsgLoadFailed   = "Failed to load"
	MsgUploadFailed = "Upload failed"
)

// Result is the canonical outcome of normalizing a backend payload: either
// OK with Value, or a failure with Message.
type Result[T any] struct {
	OK      bool
	Value   T
	Message string

	// Errors holds the envelope's error list, if any.
	Errors []string

	// Acknowledged is set when the payload was an envelope with
	// success:true, even if it carried no data.
	Acknowledged bool
}

// envelope is the subset of keys the normalizer inspects. Field matching is
// case-insensitive, so PascalCase payloads decode the same way.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message *string         `json:"message"`
	Errors  []string        `json:"errors"`
	ID      json.RawMessage `json:"id"`
}

// Normalize converts a decoded 2xx body into a Result. The rules are applied
// in this order, first match wins:
//
//  1. an envelope with success:true and data present yields data;
//  2. a bare JSON array yields the array;
//  3. a bare object with a truthy "id" yields the object;
//  4. anything else fails with the payload's "message", or fallback.
func Normalize[T any](body []byte, fallback string) Result[T] {
	res, _ := normalize[T](body, fallback)
	return res
}

// normalize is Normalize that also reports why a payload could not be
// decoded, for diagnostics.
func normalize[T any](body []byte, fallback string) (Result[T], error) {
	if fallback == "" {
		fallback = MsgLoadFailed
	}
	failed := Result[T]{Message: fallback}

	payload := bytes.TrimSpace(body)
	if len(payload) == 0 {
		return failed, ErrMalformedResponse
	}

	var env envelope
	isObject := payload[0] == '{'
	if isObject {
		if err := json.Unmarshal(payload, &env); err != nil {
			return failed, errors.Join(ErrMalformedResponse, err)
		}
	}

	// 1. envelope
	acknowledged := env.Success != nil && *env.Success
	if acknowledged && present(env.Data) {
		var value T
		if err := json.Unmarshal(env.Data, &value); err != nil {
			return failed, err
		}
		return Result[T]{OK: true, Value: value, Acknowledged: true}, nil
	}

	// 2. bare array
	if payload[0] == '[' {
		var value T
		if err := json.Unmarshal(payload, &value); err != nil {
			return failed, err
		}
		return Result[T]{OK: true, Value: value}, nil
	}

	if !isObject {
		return failed, ErrMalformedResponse
	}

	// 3. bare object
	if truthy(env.ID) {
		var value T
		if err := json.Unmarshal(payload, &value); err != nil {
			return failed, err
		}
		return Result[T]{OK: true, Value: value}, nil
	}

	// 4. failure
	msg := fallback
	if env.Message != nil && *env.Message != "" {
		msg = *env.Message
	}
	return Result[T]{Message: msg, Errors: env.Errors, Acknowledged: acknowledged}, nil
}

// uploadEnvelope covers both observed upload contracts:
// {success, message, invoice} and {invoiceId}.
type uploadEnvelope struct {
	Success   *bool           `json:"success"`
	Message   string          `json:"message"`
	Invoice   json.RawMessage `json:"invoice"`
	InvoiceID json.RawMessage `json:"invoiceId"`
	Data      json.RawMessage `json:"data"`
	ID        json.RawMessage `json:"id"`
}

// NormalizeUpload converts an upload response into an UploadResult.
//
// Success is decided by content: the response must embed an invoice or
// identify one. An explicit success:false always fails. The message field
// is informational and never decides the outcome on its own.
func NormalizeUpload(body []byte) Result[UploadResult] {
	res, _ := normalizeUpload(body)
	return res
}

func normalizeUpload(body []byte) (Result[UploadResult], error) {
	failed := Result[UploadResult]{Message: MsgUploadFailed}

	payload := bytes.TrimSpace(body)
	if len(payload) == 0 || payload[0] != '{' {
		return failed, ErrMalformedResponse
	}

	var env uploadEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return failed, errors.Join(ErrMalformedResponse, err)
	}
	if env.Message != "" {
		failed.Message = env.Message
	}
	if env.Success != nil && !*env.Success {
		return failed, nil
	}

	result := UploadResult{Message: env.Message}

	if present(env.Invoice) {
		var inv models.Invoice
		if err := json.Unmarshal(env.Invoice, &inv); err != nil {
			return failed, err
		}
		result.Invoice = &inv
		return Result[UploadResult]{OK: true, Value: result}, nil
	}

	// Some revisions wrap the extraction in a standard envelope.
	if present(env.Data) && bytes.HasPrefix(bytes.TrimSpace(env.Data), []byte("{")) {
		inner, err := normalizeUpload(env.Data)
		if err != nil {
			return failed, err
		}
		if inner.OK {
			inner.Value.Message = result.Message
			return inner, nil
		}
	}

	if id, ok := parseID(env.InvoiceID); ok {
		result.InvoiceID = id
		return Result[UploadResult]{OK: true, Value: result}, nil
	}

	// A bare invoice object
	if truthy(env.ID) {
		var inv models.Invoice
		if err := json.Unmarshal(payload, &inv); err != nil {
			return failed, err
		}
		result.Invoice = &inv
		return Result[UploadResult]{OK: true, Value: result}, nil
	}

	return failed, nil
}

// present reports whether a raw field exists and is not JSON null.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// truthy mirrors loose truthiness of a JSON value: null, false, 0 and ""
// are falsy, everything else is truthy.
func truthy(raw json.RawMessage) bool {
	if !present(raw) {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// parseID accepts a positive identifier given as a JSON number or a
// numeric string.
func parseID(raw json.RawMessage) (int64, bool) {
	if !present(raw) {
		return 0, false
	}
	text := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
