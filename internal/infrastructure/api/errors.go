package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ResponseError is a non-2xx answer from the backend. Code and Message are
// lifted from a {code, message} or {status, message} body when present.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ReasonCode is the machine-readable code from the body, if any.
func (e *ResponseError) ReasonCode() string {
	return e.Code
}

// ReasonMessage is the server's human-readable message, if any.
func (e *ResponseError) ReasonMessage() string {
	return e.Message
}

// UserMessage is the text to surface for this failure: the server message,
// else the raw body.
func (e *ResponseError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Body
}

// IsAuthFailure reports whether the backend rejected the credential.
func (e *ResponseError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func newResponseError(status int, body []byte) *ResponseError {
	rerr := &ResponseError{
		StatusCode: status,
		Body:       strings.TrimSpace(string(body)),
	}

	var parsed struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return rerr
	}

	rerr.Message = parsed.Message
	if len(parsed.Code) > 0 {
		var code string
		if err := json.Unmarshal(parsed.Code, &code); err == nil {
			rerr.Code = code
		} else {
			rerr.Code = string(parsed.Code)
		}
	}
	// some handlers put the human message in data
	if rerr.Message == "" && len(parsed.Data) > 0 {
		var s string
		if err := json.Unmarshal(parsed.Data, &s); err == nil {
			rerr.Message = s
		}
	}
	return rerr
}

// AsResponseError extracts a *ResponseError from err.
func AsResponseError(err error) (*ResponseError, bool) {
	var rerr *ResponseError
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}

// ErrorMessage picks the text to show for a failed call: the server
// message, else the raw body, else the error itself.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if rerr, ok := AsResponseError(err); ok {
		if msg := rerr.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
