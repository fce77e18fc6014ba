package chi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/candidate"
	"github.com/kailas-cloud/patsim/internal/domain/fingerprint"
	"github.com/kailas-cloud/patsim/internal/usecase/health"
	"github.com/kailas-cloud/patsim/internal/usecase/rank"
	similaruc "github.com/kailas-cloud/patsim/internal/usecase/similar"
)

// --- Mocks ---

type mockSearcher struct {
	out   similaruc.Outcome
	err   error
	last  similaruc.Query
	calls int
}

func (m *mockSearcher) Search(_ context.Context, q similaruc.Query) (similaruc.Outcome, error) {
	m.calls++
	m.last = q
	out := m.out
	out.Document = q.Document
	return out, m.err
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

// --- Helpers ---

func okOutcome() similaruc.Outcome {
	rec := func(id, title, date string) candidate.Record {
		return candidate.NewRecord(map[string]string{
			candidate.FieldPublicationNumber: id,
			candidate.FieldTitle:             title,
			candidate.FieldFilingDate:        date,
			candidate.FieldCountryCode:       "JP",
		})
	}
	return similaruc.Outcome{
		Status:   similaruc.StatusOK,
		Prefixes: []string{"H0"},
		Tags:     []string{"H04L9/00"},
		Result: rank.Result[candidate.Record]{
			Hits: []rank.Hit[candidate.Record]{
				{Record: rec("JP-2-A", "Encoder", "20210101"), Score: 0.9},
				{Record: rec("JP-1-A", "Decoder", ""), Score: 0.8},
			},
			Diagnostics: rank.Diagnostics{
				Code:            rank.CodeOK,
				Considered:      3,
				Valid:           2,
				Dropped:         1,
				DroppedByReason: map[domain.FingerprintReason]int{domain.ReasonZero: 1},
			},
		},
		Duplicates: 1,
	}
}

func newTestRouter(searcher Searcher, hs *health.Service) http.Handler {
	if hs == nil {
		hs = health.New("valkey", nil, nil)
	}
	server := NewServer(searcher, hs, 1024, zap.NewNop())
	return HandlerWithOptions(server, ServerOptions{BaseRouter: chi.NewRouter()})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return errResp
}

const jsonBody = `{"publication_number":"JP-REF-A","country_code":"jp","classification_codes":["H04L 9/00"],"claims":"1. A cipher."}`

// --- Tests ---

func TestSearchSimilar_JSON(t *testing.T) {
	searcher := &mockSearcher{out: okOutcome()}
	rr := do(t, newTestRouter(searcher, nil), "POST", "/v1/similar?k=5&min_score=0.25&prefix_len=3", jsonBody)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	q := searcher.last
	if q.K == nil || *q.K != 5 || q.MinScore == nil || *q.MinScore != 0.25 || q.PrefixLen == nil || *q.PrefixLen != 3 {
		t.Errorf("unexpected query overrides %+v", q)
	}
	if q.Document.CountryCode() != "JP" || q.Document.ClassificationCodes()[0] != "H04L9/00" || q.Document.Claims() != "1. A cipher." {
		t.Errorf("unexpected document %+v", q.Document)
	}

	var resp SimilarResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.PublicationNumber != "JP-REF-A" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Results) != 2 || resp.Results[0].PublicationNumber != "JP-2-A" || resp.Results[0].Rank != 1 {
		t.Errorf("unexpected results %+v", resp.Results)
	}
	if resp.Diagnostics.DroppedByReason["zero"] != 1 || resp.Diagnostics.Duplicates != 1 {
		t.Errorf("unexpected diagnostics %+v", resp.Diagnostics)
	}
	if rr.Header().Get("X-Search-Status") != "ok" {
		t.Errorf("X-Search-Status = %q", rr.Header().Get("X-Search-Status"))
	}
}

func TestSearchSimilar_NoOverrides(t *testing.T) {
	searcher := &mockSearcher{out: okOutcome()}
	rr := do(t, newTestRouter(searcher, nil), "POST", "/v1/similar", jsonBody)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if searcher.last.K != nil || searcher.last.MinScore != nil || searcher.last.PrefixLen != nil {
		t.Errorf("expected nil overrides, got %+v", searcher.last)
	}
}

func TestSearchSimilar_CSV(t *testing.T) {
	rr := do(t, newTestRouter(&mockSearcher{out: okOutcome()}, nil), "POST", "/v1/similar?format=csv", jsonBody)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := strings.TrimPrefix(rr.Body.String(), "\ufeff")
	records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 || records[1][0] != "JP-2-A" || records[1][4] != "0.900000" {
		t.Errorf("unexpected csv %v", records)
	}
}

func TestSearchSimilar_StatusOutcomes(t *testing.T) {
	for _, status := range []similaruc.Status{similaruc.StatusEmptyPredicate, similaruc.StatusNoCandidates} {
		t.Run(string(status), func(t *testing.T) {
			searcher := &mockSearcher{out: similaruc.Outcome{Status: status}}
			rr := do(t, newTestRouter(searcher, nil), "POST", "/v1/similar", jsonBody)
			if rr.Code != http.StatusOK {
				t.Fatalf("got %d", rr.Code)
			}
			var resp SimilarResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(status) || resp.Results == nil || len(resp.Results) != 0 {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}

func TestSearchSimilar_BadInput(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		code   ErrorResponseCode
	}{
		{"bad json", "/v1/similar", "{", ErrorResponseCodeBadRequest},
		{"missing publication", "/v1/similar", `{"classification_codes":["H04L"]}`, ErrorResponseCodeValidationFailed},
		{"bad k", "/v1/similar?k=abc", jsonBody, ErrorResponseCodeBadRequest},
		{"bad min score", "/v1/similar?min_score=x", jsonBody, ErrorResponseCodeBadRequest},
		{"bad format", "/v1/similar?format=xlsx", jsonBody, ErrorResponseCodeValidationFailed},
		{"body too large", "/v1/similar", `{"publication_number":"` + strings.Repeat("x", 2048) + `"}`, ErrorResponseCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &mockSearcher{out: okOutcome()}
			rr := do(t, newTestRouter(searcher, nil), "POST", tt.target, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			if got := decodeError(t, rr).Code; got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
			if searcher.calls != 0 {
				t.Error("search must not run for bad input")
			}
		})
	}
}

func TestSearchSimilar_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorResponseCode
	}{
		{"invalid query", domain.ErrInvalidQuery, http.StatusBadRequest, ErrorResponseCodeValidationFailed},
		{"prefix length", domain.ErrInvalidPrefixLength, http.StatusBadRequest, ErrorResponseCodeValidationFailed},
		{"not found", domain.ErrReferenceNotFound, http.StatusNotFound, ErrorResponseCodeReferenceNotFound},
		{"fingerprint", &domain.FingerprintError{Reason: domain.ReasonZero},
			http.StatusUnprocessableEntity, ErrorResponseCodeInvalidFingerprint},
		{"upstream", domain.NewUpstreamError("valkey", "candidates", errors.New("dial tcp 10.0.0.1")),
			http.StatusBadGateway, ErrorResponseCodeUpstreamUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorResponseCodeTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrorResponseCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(&mockSearcher{err: tt.err}, nil), "POST", "/v1/similar", jsonBody)
			if rr.Code != tt.status {
				t.Fatalf("got %d, want %d", rr.Code, tt.status)
			}
			errResp := decodeError(t, rr)
			if errResp.Code != tt.code {
				t.Errorf("code = %q, want %q", errResp.Code, tt.code)
			}
			if strings.Contains(errResp.Message, "10.0.0.1") {
				t.Errorf("message leaks internals: %q", errResp.Message)
			}
		})
	}
}

func TestSearchSimilarXML(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<patent-document>
  <bibliographic-data>
    <publication-reference>
      <document-id><country>JP</country><doc-number>2020123456</doc-number><kind>A</kind></document-id>
    </publication-reference>
    <classification-ipc><main-classification><text>H04L 9/00</text></main-classification></classification-ipc>
  </bibliographic-data>
</patent-document>`

	searcher := &mockSearcher{out: okOutcome()}
	rr := do(t, newTestRouter(searcher, nil), "POST", "/v1/similar/xml?k=10", doc)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if got := searcher.last.Document.PublicationNumber(); got != "JP-2020123456-A" {
		t.Errorf("publication number = %q", got)
	}
}

func TestSearchSimilarXML_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		code ErrorResponseCode
	}{
		{"malformed", "<patent-document>", ErrorResponseCodeValidationFailed},
		{"no publication number", "<patent-document><title>x</title></patent-document>", ErrorResponseCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(&mockSearcher{}, nil), "POST", "/v1/similar/xml", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d", rr.Code)
			}
			if got := decodeError(t, rr).Code; got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	rr := do(t, newTestRouter(&mockSearcher{}, nil), "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}

	rr = do(t, newTestRouter(&mockSearcher{}, health.New("valkey", failingPinger{}, nil)), "GET", "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "error" || resp.Checks["valkey"] != "error" {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(t, newTestRouter(&mockSearcher{}, nil), "GET", "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
}

type fixedSource struct {
	patents []candidate.Patent
}

func (f fixedSource) Reference(context.Context, string, string) (fingerprint.Fingerprint, error) {
	return fingerprint.Fingerprint{1, 0, 0, 0}, nil
}

func (f fixedSource) Candidates(context.Context, candidate.Query) ([]candidate.Patent, error) {
	return f.patents, nil
}

func TestSearchSimilar_ZeroK(t *testing.T) {
	src := fixedSource{patents: []candidate.Patent{{
		Record: candidate.NewRecord(map[string]string{
			candidate.FieldPublicationNumber: "JP-2-A",
			candidate.FieldCountryCode:       "JP",
		}),
		Fingerprint: fingerprint.Fingerprint{1, 0.1, 0, 0},
	}}}
	svc := similaruc.New(src, src, nil, nil, similaruc.Options{Dimensions: 4, K: 10}, nil)

	rr := do(t, newTestRouter(svc, nil), "POST", "/v1/similar?k=0", jsonBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var resp SimilarResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("expected ok with empty results, got %+v", resp)
	}
}
