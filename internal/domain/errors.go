package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFingerprint signals an empty, wrong-length, all-zero or non-finite fingerprint.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
	// ErrEmptyPredicate signals that the reference document carries no usable tags.
	ErrEmptyPredicate = errors.New("no classification information available")
	// ErrNoCandidates signals that no valid candidate survived filtering and validation.
	ErrNoCandidates = errors.New("no similar documents found")
	// ErrUpstreamUnavailable signals a failing data source.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrReferenceNotFound signals a missing reference fingerprint.
	ErrReferenceNotFound = errors.New("reference fingerprint not found")
	// ErrInvalidPrefixLength signals a prefix length below 1.
	ErrInvalidPrefixLength = errors.New("invalid prefix length")
	// ErrInvalidQuery signals a malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
)

// FingerprintReason names the rule a fingerprint violated.
type FingerprintReason string

// Fingerprint validation failure reasons.
const (
	ReasonEmpty     FingerprintReason = "empty"
	ReasonDimension FingerprintReason = "dimension"
	ReasonZero      FingerprintReason = "zero"
	ReasonNonFinite FingerprintReason = "non_finite"
)

// FingerprintError wraps ErrInvalidFingerprint with the violated rule.
type FingerprintError struct {
	Reason FingerprintReason
	Detail string
}

func (e *FingerprintError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidFingerprint.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidFingerprint.Error(), e.Reason, e.Detail)
}

func (e *FingerprintError) Unwrap() error { return ErrInvalidFingerprint }

// UpstreamError wraps ErrUpstreamUnavailable with the failing source and operation.
type UpstreamError struct {
	Source string
	Op     string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrUpstreamUnavailable.Error(), e.Source, e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstreamUnavailable, e.Err} }

// NewUpstreamError creates an upstream failure for the given source and operation.
func NewUpstreamError(source, op string, err error) error {
	return &UpstreamError{Source: source, Op: op, Err: err}
}
