package common

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Error kinds, as reported in run summaries.
const (
	KindExtraction     = "EXTRACTION_ERROR"
	KindServiceAuth    = "SERVICE_AUTH_ERROR"
	KindServiceRate    = "SERVICE_RATE_LIMIT"
	KindServiceOther   = "SERVICE_TRANSIENT"
	KindSchema         = "SCHEMA_VIOLATION"
	KindMatchingConfig = "MATCHING_CONFIG_ERROR"
	KindConfig         = "CONFIG_ERROR"
	KindUnknown        = "UNKNOWN"
)

// ExtractionError marks an unreadable, corrupted or encrypted source document.
// Per-document: recorded, batch continues.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ServiceAuthError marks an authentication/configuration failure from the
// inference service. Fatal: halts the whole batch.
type ServiceAuthError struct {
	Status int
	Err    error
}

func (e *ServiceAuthError) Error() string {
	return fmt.Sprintf("inference service auth error (status %d): %v", e.Status, e.Err)
}

func (e *ServiceAuthError) Unwrap() error { return e.Err }

// ServiceRateLimitError indicates the inference service returned HTTP 429.
// Retried with bounded backoff; RetryAfter is honored when larger than the
// policy delay.
type ServiceRateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ServiceRateLimitError) Error() string {
	return fmt.Sprintf("inference service rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ServiceRateLimitError) Unwrap() error { return e.Err }

// NewServiceRateLimitError builds a ServiceRateLimitError from an HTTP
// Retry-After header value in seconds. Zero or invalid defaults to 30s.
func NewServiceRateLimitError(err error, retryAfterSecs int) *ServiceRateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 30
	}
	return &ServiceRateLimitError{
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Err:        err,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// ServiceTransientError marks a retryable service failure (timeouts, 5xx,
// dropped connections).
type ServiceTransientError struct {
	Status int
	Err    error
}

func (e *ServiceTransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("inference service transient error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("inference service transient error: %v", e.Err)
}

func (e *ServiceTransientError) Unwrap() error { return e.Err }

// SchemaViolation marks a model response that could not be coerced into a
// fully typed record. Raw carries the offending text for diagnostics.
type SchemaViolation struct {
	Reason string
	Raw    string
}

func (e *SchemaViolation) Error() string {
	return "schema violation: " + e.Reason
}

// MatchingConfigError marks an identity-integrity problem in the ground-truth
// table (duplicate identifier after normalization). Fatal to the validation
// run: silent resolution would corrupt statistics.
type MatchingConfigError struct {
	ID string
}

func (e *MatchingConfigError) Error() string {
	return fmt.Sprintf("duplicate ground-truth identifier after normalization: %q", e.ID)
}

// ErrNoMatches signals an empty matched-pair set. The report is still
// produced (all totals zero); the CLI exits non-zero.
var ErrNoMatches = errors.New("no matched pairs between predictions and ground truth")

// IsRetryable reports whether err should be retried with backoff.
func IsRetryable(err error) bool {
	var rl *ServiceRateLimitError
	var tr *ServiceTransientError
	return errors.As(err, &rl) || errors.As(err, &tr)
}

// IsFatal reports whether err halts the whole batch rather than a single
// document.
func IsFatal(err error) bool {
	var auth *ServiceAuthError
	return errors.As(err, &auth)
}

// Kind labels err with the error-kind taxonomy for summaries and logs.
func Kind(err error) string {
	var (
		ex   *ExtractionError
		auth *ServiceAuthError
		rl   *ServiceRateLimitError
		tr   *ServiceTransientError
		sv   *SchemaViolation
		mc   *MatchingConfigError
	)
	switch {
	case errors.As(err, &ex):
		return KindExtraction
	case errors.As(err, &auth):
		return KindServiceAuth
	case errors.As(err, &rl):
		return KindServiceRate
	case errors.As(err, &tr):
		return KindServiceOther
	case errors.As(err, &sv):
		return KindSchema
	case errors.As(err, &mc):
		return KindMatchingConfig
	default:
		return KindUnknown
	}
}
