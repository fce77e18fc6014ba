package patsim

import "github.com/kailas-cloud/patsim/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery        = domain.ErrInvalidQuery
	ErrInvalidPrefixLength = domain.ErrInvalidPrefixLength
	ErrReferenceNotFound   = domain.ErrReferenceNotFound
	ErrInvalidFingerprint  = domain.ErrInvalidFingerprint
	ErrUpstreamUnavailable = domain.ErrUpstreamUnavailable
	ErrImportUnsupported   = errImportUnsupported
)
