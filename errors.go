package sesame

import (
	"fmt"
	"net/http"
	"strings"
)

// MalformedQueryError is the classification of a 400 response: the
// server rejected the query or update syntax.
type MalformedQueryError struct {
	StatusCode int
	Body       string
}

func (e *MalformedQueryError) Error() string {
	return statusMessage("malformed query", e.StatusCode, e.Body)
}

// ClientError is the classification of a 4xx response other than 400:
// the request shape was wrong, the resource is missing, or access was
// denied.
type ClientError struct {
	StatusCode int
	Body       string
}

func (e *ClientError) Error() string {
	return statusMessage("client error", e.StatusCode, e.Body)
}

// ServerError is the classification of a 5xx response, or of any status
// this layer has no business receiving (1xx, 3xx).
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return statusMessage("server error", e.StatusCode, e.Body)
}

// UnsupportedContentTypeError reports a response media type the decoder
// has no grammar for.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("sesame: unsupported content type %q", e.ContentType)
}

// PatternError reports a filter term that cannot be encoded for its
// position, such as a literal bound as subject.
type PatternError struct {
	Field  string
	Reason string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("sesame: invalid pattern: %s: %s", e.Field, e.Reason)
}

func statusMessage(kind string, status int, body string) string {
	msg := fmt.Sprintf("sesame: %s: %d %s", kind, status, http.StatusText(status))
	if b := strings.TrimSpace(body); b != "" {
		msg += ". Response body:\n" + b
	}
	return msg
}

// classify maps an HTTP status to nil on 2xx or to the matching error
// kind, carrying the response body as diagnostic payload. It is a pure
// function of its arguments.
func classify(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest:
		return &MalformedQueryError{StatusCode: status, Body: string(body)}
	case status >= 400 && status < 500:
		return &ClientError{StatusCode: status, Body: string(body)}
	default:
		return &ServerError{StatusCode: status, Body: string(body)}
	}
}

// expectNoContent enforces the 204-only success contract of the
// mutating endpoints.
func expectNoContent(resp *response) error {
	if resp.status == http.StatusNoContent {
		return nil
	}
	return &ServerError{StatusCode: resp.status, Body: string(resp.body)}
}
