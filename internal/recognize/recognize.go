// Package recognize talks to the text-recognition service. Failures are
// classified structurally so the retry controller never inspects error
// strings.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMissingCredential reports that the recognition credential is not
// configured. This is fatal for the run; retrying cannot help.
var ErrMissingCredential = errors.New("recognize: service credential is not configured")

// QuotaError reports that the service is temporarily out of capacity.
// Waiting RetryAfter (or a caller-chosen default when zero) and retrying
// the same attempt is expected to succeed eventually.
type QuotaError struct {
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("recognition quota exhausted, retry after %s", e.RetryAfter)
	}
	return "recognition quota exhausted"
}

// ServiceError reports a request or service fault.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("recognition service fault (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("recognition service fault: %s", e.Message)
}

// ParseError reports that the service responded but the response did not
// contain the expected text field.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("recognition response not parseable: %s", e.Message)
}

// Request carries one context window to the service. Images are in
// document order; CurrentIndex locates the target page among them.
type Request struct {
	Page         int
	Images       [][]byte
	CurrentIndex int
}

// Recognizer extracts the target page's text from a context window.
type Recognizer interface {
	Recognize(ctx context.Context, req *Request) (string, error)
	Close() error
}
