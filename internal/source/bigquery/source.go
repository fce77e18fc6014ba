// Package bigquery serves references and candidates from the public patents
// dataset in Google BigQuery.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
)

// DefaultTable is the public publications table carrying embedding_v1.
const DefaultTable = "patents-public-data.patents.publications"

var tableRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

const referenceSQL = `
SELECT
  p.embedding_v1
FROM ` + "`%s`" + ` AS p
WHERE p.publication_number = @pub_number
  AND p.country_code = @country
  AND ARRAY_LENGTH(p.embedding_v1) > 0
LIMIT 1`

const candidatesSQL = `
SELECT
  p.publication_number,
  p.title_localized[SAFE_OFFSET(0)].text AS title,
  p.filing_date,
  p.country_code,
  ARRAY(SELECT c.code FROM UNNEST(p.cpc) AS c) AS codes,
  p.embedding_v1
FROM ` + "`%s`" + ` AS p
WHERE p.country_code = @country
  AND ARRAY_LENGTH(p.embedding_v1) > 0
  AND EXISTS (
    SELECT 1
    FROM UNNEST(p.cpc) AS c, UNNEST(@prefixes) AS pre
    WHERE STARTS_WITH(c.code, pre)
  )
ORDER BY p.filing_date DESC, p.publication_number`

const pingSQL = `SELECT 1 AS ok`

// rowIterator is satisfied by *bigquery.RowIterator.
type rowIterator interface {
	Next(dst any) error
}

// runner executes a parameterized query.
type runner interface {
	Run(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error)
}

type clientRunner struct {
	client *bigquery.Client
}

func (c clientRunner) Run(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error) {
	q := c.client.Query(sql)
	q.Parameters = params
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	return it, nil
}

// Source queries the publications table.
type Source struct {
	runner  runner
	table   string
	timeout time.Duration
	close   func() error
}

// Config holds BigQuery source settings.
type Config struct {
	Project string
	Table   string
	Timeout time.Duration
}

// New connects to BigQuery with application default credentials.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Project == "" {
		return nil, errors.New("bigquery: project is required")
	}
	client, err := bigquery.NewClient(ctx, cfg.Project)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	s, err := newSource(clientRunner{client: client}, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	s.close = client.Close
	return s, nil
}

func newSource(r runner, cfg Config) (*Source, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableRe.MatchString(table) {
		return nil, fmt.Errorf("bigquery: invalid table name %q", table)
	}
	return &Source{runner: r, table: table, timeout: cfg.Timeout}, nil
}

// Close releases the client.
func (s *Source) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Ping runs a trivial query to check credentials and connectivity.
func (s *Source) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	it, err := s.runner.Run(ctx, pingSQL, nil)
	if err != nil {
		return err
	}
	var row struct {
		OK int64 `bigquery:"ok"`
	}
	if err := it.Next(&row); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("read ping: %w", err)
	}
	return nil
}

type referenceRow struct {
	Embedding []float64 `bigquery:"embedding_v1"`
}

type candidateRow struct {
	PublicationNumber string              `bigquery:"publication_number"`
	Title             bigquery.NullString `bigquery:"title"`
	FilingDate        bigquery.NullInt64  `bigquery:"filing_date"`
	CountryCode       string              `bigquery:"country_code"`
	Codes             []string            `bigquery:"codes"`
	Embedding         []float64           `bigquery:"embedding_v1"`
}

// Reference returns the embedding_v1 of one publication.
func (s *Source) Reference(ctx context.Context, publicationNumber, country string) (fingerprint.Fingerprint, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	it, err := s.runner.Run(ctx, fmt.Sprintf(referenceSQL, s.table), []bigquery.QueryParameter{
		{Name: "pub_number", Value: publicationNumber},
		{Name: "country", Value: country},
	})
	if err != nil {
		return nil, err
	}

	var r referenceRow
	switch err := it.Next(&r); {
	case errors.Is(err, iterator.Done):
		return nil, fmt.Errorf("%w: %s", domain.ErrReferenceNotFound, publicationNumber)
	case err != nil:
		return nil, fmt.Errorf("read reference: %w", err)
	}
	return fingerprint.Fingerprint(r.Embedding), nil
}

// Candidates returns publications of q.Country whose CPC codes start with
// any predicate prefix, most recently filed first, up to q.Limit.
func (s *Source) Candidates(ctx context.Context, q candidate.Query) ([]candidate.Patent, error) {
	if q.Predicate.IsEmpty() {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sql := fmt.Sprintf(candidatesSQL, s.table)
	params := []bigquery.QueryParameter{
		{Name: "country", Value: q.Country},
		{Name: "prefixes", Value: q.Predicate.Prefixes()},
	}
	if q.Limit > 0 {
		sql += "\nLIMIT @limit"
		params = append(params, bigquery.QueryParameter{Name: "limit", Value: q.Limit})
	}

	it, err := s.runner.Run(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	var out []candidate.Patent
	for {
		var r candidateRow
		err := it.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read candidates: %w", err)
		}
		out = append(out, r.toPatent())
	}
	return out, nil
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (r *candidateRow) toPatent() candidate.Patent {
	var date string
	if r.FilingDate.Valid && r.FilingDate.Int64 != 0 {
		date = strconv.FormatInt(r.FilingDate.Int64, 10)
	}
	return candidate.Patent{
		Record: candidate.NewRecord(map[string]string{
			candidate.FieldPublicationNumber: r.PublicationNumber,
			candidate.FieldTitle:             r.Title.StringVal,
			candidate.FieldFilingDate:        date,
			candidate.FieldCountryCode:       r.CountryCode,
			candidate.FieldCodes:             candidate.JoinCodes(r.Codes),
		}),
		Fingerprint: fingerprint.Fingerprint(r.Embedding),
	}
}
