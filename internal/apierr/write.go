package apierr

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Body is the wire shape of every non-2xx response.
type Body struct {
	Error BodyError `json:"error"`
}

type BodyError struct {
	Code         Code   `json:"code"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retry_after_ms"`
}

// Write sends e as JSON with its status. Retry-After (seconds, rounded up)
// is set whenever the hint is positive.
func Write(w http.ResponseWriter, e *Error) {
	if e == nil {
		e = New(Internal, "")
	}
	if e.RetryAfterMs > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt((e.RetryAfterMs+999)/1000, 10))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())
	_ = json.NewEncoder(w).Encode(Body{Error: BodyError{
		Code:         e.Code,
		Message:      e.Message,
		RetryAfterMs: e.RetryAfterMs,
	}})
}
