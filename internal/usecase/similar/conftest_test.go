package similar

import (
	"context"
	"math"
	"testing"

	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
	"github.com/kailas-cloud/patsim/internal/domain/patent"
)

const testDim = 4

// --- Mocks ---

type mockRefs struct {
	fp     fingerprint.Fingerprint
	err    error
	called bool
}

func (m *mockRefs) Reference(_ context.Context, _, _ string) (fingerprint.Fingerprint, error) {
	m.called = true
	return m.fp, m.err
}

type mockCands struct {
	patents []candidate.Patent
	err     error
	last    candidate.Query
	called  bool
}

func (m *mockCands) Candidates(_ context.Context, q candidate.Query) ([]candidate.Patent, error) {
	m.called = true
	m.last = q
	return m.patents, m.err
}

type mockExpander struct {
	codes []string
	err   error
}

func (m *mockExpander) Expand(_ context.Context, _ patent.Document) ([]string, error) {
	return m.codes, m.err
}

// --- Helpers ---

func testDoc(t *testing.T, classes ...string) patent.Document {
	t.Helper()
	doc, err := patent.New("JP-REF-A", "JP", classes, nil)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return doc
}

func testPatent(id, date string, fp ...float64) candidate.Patent {
	return candidate.Patent{
		Record: candidate.NewRecord(map[string]string{
			candidate.FieldPublicationNumber: id,
			candidate.FieldFilingDate:        date,
			candidate.FieldCountryCode:       "JP",
		}),
		Fingerprint: fp,
	}
}

// angled returns a unit vector at angle theta (radians) from the x axis.
func angled(theta float64) []float64 {
	return []float64{math.Cos(theta), math.Sin(theta), 0, 0}
}

func newTestService(refs *mockRefs, cands *mockCands, exp TagExpander, opts Options) *Service {
	if opts.Dimensions == 0 {
		opts.Dimensions = testDim
	}
	return New(refs, cands, exp, nil, opts, nil)
}

func hitIDs(o Outcome) []string {
	out := make([]string, 0, len(o.Hits()))
	for _, h := range o.Hits() {
		out = append(out, h.Record.ID())
	}
	return out
}

func ptr[T any](v T) *T { return &v }
