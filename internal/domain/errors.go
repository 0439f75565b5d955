package domain

import (
	"errors"
	"fmt"
)

// ErrCrawlInProgress is returned when a crawl is requested for a source that
// is already being crawled by this process. It is the only crawl-level
// failure surfaced to the caller as an error rather than a failed history.
var ErrCrawlInProgress = errors.New("crawl already in progress for source")

// TransientError is a retryable external failure: timeout, HTTP 5xx or 429.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient failure (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a non-retryable external failure: bad credentials, a 4xx
// other than 429, or a malformed response.
type PermanentError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: permanent failure (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: permanent failure: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// ClassifyStatus wraps an HTTP-status failure as transient or permanent.
// 5xx and 429 retry; everything else propagates on first occurrence.
func ClassifyStatus(op string, status int, err error) error {
	if status >= 500 || status == 429 {
		return &TransientError{Op: op, StatusCode: status, Err: err}
	}
	return &PermanentError{Op: op, StatusCode: status, Err: err}
}
