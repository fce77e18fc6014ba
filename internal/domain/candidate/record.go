package candidate

import (
	"strings"

	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

// Well-known record fields.
const (
	FieldPublicationNumber = "publication_number"
	FieldTitle             = "title"
	FieldFilingDate        = "filing_date"
	FieldCountryCode       = "country_code"
	FieldCodes             = "codes"
)

// Record is an opaque candidate payload keyed by field name.
// The shape varies by data source; only the tie-break comparator reads it.
type Record struct {
	fields map[string]string
}

// NewRecord copies fields into a Record.
func NewRecord(fields map[string]string) Record {
	c := make(map[string]string, len(fields))
	for k, v := range fields {
		c[k] = v
	}
	return Record{fields: c}
}

// Get returns a field value.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Field returns a field value or "".
func (r Record) Field(name string) string { return r.fields[name] }

// Fields returns a copy of all fields.
func (r Record) Fields() map[string]string {
	c := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		c[k] = v
	}
	return c
}

// ID returns the publication number.
func (r Record) ID() string { return r.fields[FieldPublicationNumber] }

// Title returns the descriptive title.
func (r Record) Title() string { return r.fields[FieldTitle] }

// FilingDate returns the filing date as stored (YYYYMMDD in the public dataset).
func (r Record) FilingDate() string { return r.fields[FieldFilingDate] }

// CountryCode returns the jurisdiction code.
func (r Record) CountryCode() string { return r.fields[FieldCountryCode] }

// Codes returns the classification codes joined in the codes field.
func (r Record) Codes() []string { return SplitCodes(r.fields[FieldCodes]) }

// JoinCodes encodes codes for the codes field.
func JoinCodes(codes []string) string { return strings.Join(codes, ",") }

// SplitCodes decodes the codes field.
func SplitCodes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Patent pairs a patent record with its fingerprint.
type Patent struct {
	Record      Record
	Fingerprint fingerprint.Fingerprint
}
