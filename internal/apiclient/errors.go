package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed API call. Kinds are errors themselves so callers
// can write errors.Is(err, apiclient.ErrConflict).
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrNetwork      Kind = "network_error"
	ErrUnauthorized Kind = "unauthorized"
	ErrForbidden    Kind = "forbidden"
	ErrValidation   Kind = "validation_error"
	ErrNotFound     Kind = "not_found"
	ErrConflict     Kind = "conflict"
	ErrServer       Kind = "server_error"
)

// FieldError is a validation message attached to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned by every Client method that fails.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Detail string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error against a Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Message is the text shown to users: the server's detail when there is one.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	switch e.Kind {
	case ErrNetwork:
		return "could not reach the transport API"
	case ErrUnauthorized:
		return "session expired, please log in again"
	case ErrForbidden:
		return "permission denied"
	case ErrNotFound:
		return "not found"
	default:
		return "unexpected server error"
	}
}

// KindOf extracts the Kind from err, or "" when err is not an API error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict, status == http.StatusBadRequest:
		return ErrConflict
	case status == http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrServer
	}
}

// errorFromResponse builds an *Error from a non-2xx body. The API reports
// {"detail": "text"} for rule violations and
// {"detail": [{"loc": [...], "msg": "..."}]} for validation failures.
func errorFromResponse(op string, status int, body []byte) *Error {
	apiErr := &Error{Op: op, Kind: kindForStatus(status), Status: status}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		apiErr.Detail = strings.TrimSpace(string(body))
		return apiErr
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		apiErr.Detail = text
		return apiErr
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			apiErr.Fields = append(apiErr.Fields, FieldError{Field: fieldName(item.Loc), Message: item.Msg})
			msgs = append(msgs, item.Msg)
		}
		apiErr.Detail = strings.Join(msgs, "; ")
		return apiErr
	}

	apiErr.Detail = string(envelope.Detail)
	return apiErr
}

// fieldName returns the last string element of a FastAPI "loc" path.
func fieldName(loc []any) string {
	for i := len(loc) - 1; i >= 0; i-- {
		if s, ok := loc[i].(string); ok && s != "body" && s != "query" && s != "path" {
			return s
		}
	}
	return ""
}
