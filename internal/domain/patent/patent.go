package patent

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultCountry is assumed when the source document omits a jurisdiction.
const DefaultCountry = "JP"

// Document is the reference publication a similarity query is anchored on.
type Document struct {
	publicationNumber   string
	countryCode         string
	classificationCodes []string
	themeCodes          []string
	claims              string
}

// New validates and creates a Document. Codes are normalized (inner
// whitespace removed), deduplicated and sorted.
func New(publicationNumber, countryCode string, classificationCodes, themeCodes []string) (Document, error) {
	publicationNumber = strings.TrimSpace(publicationNumber)
	if publicationNumber == "" {
		return Document{}, fmt.Errorf("publication number is required")
	}
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if countryCode == "" {
		countryCode = DefaultCountry
	}
	return Document{
		publicationNumber:   publicationNumber,
		countryCode:         countryCode,
		classificationCodes: NormalizeCodes(classificationCodes),
		themeCodes:          NormalizeCodes(themeCodes),
	}, nil
}

// PublicationNumber returns the publication identifier (e.g. JP-2020123456-A).
func (d Document) PublicationNumber() string { return d.publicationNumber }

// CountryCode returns the jurisdiction code.
func (d Document) CountryCode() string { return d.countryCode }

// ClassificationCodes returns IPC/CPC codes.
func (d Document) ClassificationCodes() []string { return d.classificationCodes }

// ThemeCodes returns FI/F-term codes.
func (d Document) ThemeCodes() []string { return d.themeCodes }

// Claims returns the claim text, empty when the source carried none.
func (d Document) Claims() string { return d.claims }

// WithClaims returns a copy carrying the given claim text.
func (d Document) WithClaims(text string) Document {
	d.claims = strings.TrimSpace(text)
	return d
}

// Tags returns classification and theme codes combined.
func (d Document) Tags() []string {
	out := make([]string, 0, len(d.classificationCodes)+len(d.themeCodes))
	out = append(out, d.classificationCodes...)
	return append(out, d.themeCodes...)
}

// NormalizeCodes strips whitespace inside codes ("H04L 9/00" -> "H04L9/00"),
// drops empty ones, deduplicates and sorts.
func NormalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.Join(strings.Fields(c), "")
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
