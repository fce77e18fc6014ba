package parquet

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

// row is one publication in a chunk file. The layout mirrors the columns
// exported from google_patents_research.publications, with the CPC codes
// flattened into a list.
type row struct {
	PublicationNumber string    `parquet:"publication_number"`
	Title             string    `parquet:"title"`
	FilingDate        int64     `parquet:"filing_date"`
	CountryCode       string    `parquet:"country_code"`
	Codes             []string  `parquet:"codes,list"`
	Embedding         []float64 `parquet:"embedding_v1,list"`
}

// toPatent copies the row; the reader reuses row buffers between reads.
func (r *row) toPatent() candidate.Patent {
	var date string
	if r.FilingDate != 0 {
		date = strconv.FormatInt(r.FilingDate, 10)
	}
	return candidate.Patent{
		Record: candidate.NewRecord(map[string]string{
			candidate.FieldPublicationNumber: r.PublicationNumber,
			candidate.FieldTitle:             r.Title,
			candidate.FieldFilingDate:        date,
			candidate.FieldCountryCode:       r.CountryCode,
			candidate.FieldCodes:             candidate.JoinCodes(r.Codes),
		}),
		Fingerprint: fingerprint.Fingerprint(slices.Clone(r.Embedding)),
	}
}

// fromPatent stores the filing date as a YYYYMMDD integer, 0 when unknown.
func fromPatent(p candidate.Patent) (row, error) {
	var date int64
	if s := candidate.NormalizeDate(p.Record.FilingDate()); s != "" {
		d, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return row{}, fmt.Errorf("%s: filing date %q: %w", p.Record.ID(), p.Record.FilingDate(), err)
		}
		date = d
	}
	return row{
		PublicationNumber: p.Record.ID(),
		Title:             p.Record.Title(),
		FilingDate:        date,
		CountryCode:       p.Record.CountryCode(),
		Codes:             p.Record.Codes(),
		Embedding:         p.Fingerprint,
	}, nil
}
