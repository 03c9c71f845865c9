package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Result is the normalized outcome of a dispatched call.
// Success refers to the transport only: an application-level failure is
// reported through AppError with Success still true.
type Result struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	URL        string          `json:"url"`
	Response   json.RawMessage `json:"response"`

	endpoint string
}

// AppError returns the business error carried in the payload, or nil.
// SendGrid reports it either as {"error": "..."} or as
// {"message": "error", "errors": [...]}.
func (r *Result) AppError() *ApplicationError {
	if r == nil || !r.IsObject() {
		return nil
	}

	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Errors  []string        `json:"errors"`
	}
	if err := json.Unmarshal(r.Response, &payload); err != nil {
		return nil
	}

	var msg string
	switch {
	case len(payload.Error) > 0 && string(payload.Error) != "null":
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil {
			msg = s
		} else {
			msg = string(payload.Error)
		}
	case payload.Message == "error":
		msg = strings.Join(payload.Errors, "; ")
		if msg == "" {
			msg = "error"
		}
	default:
		return nil
	}

	return &ApplicationError{
		Endpoint:   r.endpoint,
		StatusCode: r.StatusCode,
		Message:    msg,
	}
}

// IsObject reports whether the payload is a JSON object.
func (r *Result) IsObject() bool {
	return firstByte(r.Response) == '{'
}

// IsList reports whether the payload is a JSON array.
func (r *Result) IsList() bool {
	return firstByte(r.Response) == '['
}

// Decode unmarshals the payload into v.
func (r *Result) Decode(v any) error {
	if err := json.Unmarshal(r.Response, v); err != nil {
		return fmt.Errorf("decode %s response: %w", r.endpoint, err)
	}
	return nil
}

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>\s*([^<]+?)\s*</title>`)

// normalizeBody returns body when it is JSON, or {"error": "<title>"} when it
// is an HTML error page. ok is false when neither applies.
func normalizeBody(body []byte) (payload json.RawMessage, ok bool) {
	if json.Valid(body) {
		return json.RawMessage(body), true
	}

	m := titlePattern.FindSubmatch(body)
	if m == nil {
		return nil, false
	}

	data, err := json.Marshal(map[string]string{"error": string(m[1])})
	if err != nil {
		return nil, false
	}
	return data, true
}
