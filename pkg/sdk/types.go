package patsim

import (
	"context"
	"strings"

	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
	"github.com/kailas-cloud/patsim/internal/domain/patent"
	"github.com/kailas-cloud/patsim/internal/usecase/rank"
	similaruc "github.com/kailas-cloud/patsim/internal/usecase/similar"
)

// Status constants reported in Result.Status.
const (
	StatusOK             = string(similaruc.StatusOK)
	StatusEmptyPredicate = string(similaruc.StatusEmptyPredicate)
	StatusNoCandidates   = string(similaruc.StatusNoCandidates)
)

// Document is the reference publication of a query.
type Document struct {
	PublicationNumber   string
	Country             string
	ClassificationCodes []string
	ThemeCodes          []string
	// Claims is optional; with an Expander it drives claim-based code suggestions.
	Claims string
}

// Record is one publication to import into Valkey.
type Record struct {
	PublicationNumber string
	Title             string
	FilingDate        string // YYYYMMDD, empty when unknown
	Country           string
	Codes             []string
	Fingerprint       []float64
}

// Match is one ranked publication.
type Match struct {
	PublicationNumber string
	Title             string
	FilingDate        string
	Country           string
	Codes             []string
	Score             float64
}

// Diagnostics explains how many candidates were considered and dropped.
type Diagnostics struct {
	Considered      int
	Valid           int
	Dropped         int
	DroppedByReason map[string]int
	BelowThreshold  int
	Shortfall       int
	Duplicates      int
	ExcludedSelf    bool
}

// Result is the outcome of a Similar call that did not fail.
type Result struct {
	Status       string
	Prefixes     []string
	Tags         []string
	ExpandedTags []string
	Matches      []Match
	Diagnostics  Diagnostics
}

// Expander suggests additional classification codes for a document.
type Expander interface {
	Expand(ctx context.Context, doc Document) ([]string, error)
}

// SearchOption overrides a default for one Similar call.
type SearchOption func(*similaruc.Query)

// TopK sets the number of matches to return.
func TopK(k int) SearchOption {
	return func(q *similaruc.Query) { q.K = &k }
}

// MinScore drops matches scoring below s.
func MinScore(s float64) SearchOption {
	return func(q *similaruc.Query) { q.MinScore = &s }
}

// PrefixLength sets the classification prefix length for one call.
func PrefixLength(n int) SearchOption {
	return func(q *similaruc.Query) { q.PrefixLen = &n }
}

func toDomainDocument(d Document) (patent.Document, error) {
	doc, err := patent.New(d.PublicationNumber, d.Country, d.ClassificationCodes, d.ThemeCodes)
	if err != nil {
		return patent.Document{}, err
	}
	return doc.WithClaims(d.Claims), nil
}

func fromDomainDocument(d patent.Document) Document {
	return Document{
		PublicationNumber:   d.PublicationNumber(),
		Country:             d.CountryCode(),
		ClassificationCodes: d.ClassificationCodes(),
		ThemeCodes:          d.ThemeCodes(),
		Claims:              d.Claims(),
	}
}

func toPatent(r Record) candidate.Patent {
	fields := map[string]string{
		candidate.FieldPublicationNumber: r.PublicationNumber,
		candidate.FieldCountryCode:       strings.ToUpper(strings.TrimSpace(r.Country)),
		candidate.FieldCodes:             candidate.JoinCodes(patent.NormalizeCodes(r.Codes)),
	}
	if r.Title != "" {
		fields[candidate.FieldTitle] = r.Title
	}
	if r.FilingDate != "" {
		fields[candidate.FieldFilingDate] = r.FilingDate
	}
	return candidate.Patent{
		Record:      candidate.NewRecord(fields),
		Fingerprint: fingerprint.Fingerprint(r.Fingerprint),
	}
}

func toResult(out similaruc.Outcome) Result {
	d := out.Result.Diagnostics
	res := Result{
		Status:       string(out.Status),
		Prefixes:     out.Prefixes,
		Tags:         out.Tags,
		ExpandedTags: out.ExpandedTags,
		Matches:      toMatches(out.Hits()),
		Diagnostics: Diagnostics{
			Considered:     d.Considered,
			Valid:          d.Valid,
			Dropped:        d.Dropped,
			BelowThreshold: d.BelowThreshold,
			Shortfall:      d.Shortfall,
			Duplicates:     out.Duplicates,
			ExcludedSelf:   out.ExcludedSelf,
		},
	}
	if len(d.DroppedByReason) > 0 {
		res.Diagnostics.DroppedByReason = make(map[string]int, len(d.DroppedByReason))
		for reason, n := range d.DroppedByReason {
			res.Diagnostics.DroppedByReason[string(reason)] = n
		}
	}
	return res
}

func toMatches(hits []rank.Hit[candidate.Record]) []Match {
	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = Match{
			PublicationNumber: h.Record.ID(),
			Title:             h.Record.Title(),
			FilingDate:        h.Record.FilingDate(),
			Country:           h.Record.CountryCode(),
			Codes:             h.Record.Codes(),
			Score:             h.Score,
		}
	}
	return matches
}
