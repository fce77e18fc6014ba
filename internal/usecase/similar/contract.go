package similar

import (
	"context"

	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
	"github.com/kailas-cloud/patsim/internal/domain/patent"
)

// ReferenceSource looks up the fingerprint of the reference publication.
// A missing publication is reported as domain.ErrReferenceNotFound.
type ReferenceSource interface {
	Reference(ctx context.Context, publicationNumber, country string) (fingerprint.Fingerprint, error)
}

// CandidateSource retrieves records matching the prefix predicate within one
// jurisdiction. Records come back in no particular score order.
type CandidateSource interface {
	Candidates(ctx context.Context, q candidate.Query) ([]candidate.Patent, error)
}

// TagExpander suggests additional classification codes for a document.
type TagExpander interface {
	Expand(ctx context.Context, doc patent.Document) ([]string, error)
}
