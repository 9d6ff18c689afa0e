package comixapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fpang/comix-generator/internal/comix"
)

// ErrorKind categorizes a non-2xx response.
type ErrorKind int

const (
	// KindOther is any status not covered below.
	KindOther ErrorKind = iota
	// KindBadRequest is a 400 or 422: the server rejected the payload.
	KindBadRequest
	// KindUnauthorized is a 401 or 403: missing or invalid quota token.
	KindUnauthorized
	// KindQuotaExceeded is a 429.
	KindQuotaExceeded
	// KindServer is a 5xx.
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindServer:
		return "server"
	default:
		return "other"
	}
}

// APIError is a non-2xx answer from the generation endpoint.
type APIError struct {
	StatusCode int
	Kind       ErrorKind

	// Message is the server-supplied error text, or comix.MsgUnknownError
	// when the body carried none.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generation failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// errorBody covers both the plain {"error": ...} shape and FastAPI's
// {"detail": ...}, where detail is a string or a list of validation issues.
type errorBody struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Kind:       classifyStatus(status),
		Message:    errorMessage(body),
	}
}

// errorMessage extracts the server message, falling back to MsgUnknownError.
func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return comix.MsgUnknownError
	}
	if msg := strings.TrimSpace(eb.Error); msg != "" {
		return msg
	}
	if len(eb.Detail) == 0 {
		return comix.MsgUnknownError
	}

	var detail string
	if err := json.Unmarshal(eb.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
		return strings.TrimSpace(detail)
	}

	var issues []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(eb.Detail, &issues); err == nil && len(issues) > 0 && issues[0].Msg != "" {
		return issues[0].Msg
	}
	return comix.MsgUnknownError
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindBadRequest
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusTooManyRequests:
		return KindQuotaExceeded
	case status >= 500:
		return KindServer
	default:
		return KindOther
	}
}
