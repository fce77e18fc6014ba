package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/patent"
	"github.com/kailas-cloud/patsim/internal/extract/xmldoc"
	"github.com/kailas-cloud/patsim/internal/logger"
	"github.com/kailas-cloud/patsim/internal/report"
	healthuc "github.com/kailas-cloud/patsim/internal/usecase/health"
	similaruc "github.com/kailas-cloud/patsim/internal/usecase/similar"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes = 4 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Searcher runs similarity searches (satisfied by *similar.Service).
type Searcher interface {
	Search(ctx context.Context, q similaruc.Query) (similaruc.Outcome, error)
}

// Server implements ServerInterface.
type Server struct {
	similar       Searcher
	health        *healthuc.Service
	maxBodyBytes  int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. maxBodyBytes <= 0 uses DefaultMaxBodyBytes.
func NewServer(similar Searcher, health *healthuc.Service, maxBodyBytes int64, logger *zap.Logger) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		similar:      similar,
		health:       health,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidPrefixLength, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrReferenceNotFound, http.StatusNotFound, ErrorResponseCodeReferenceNotFound),
		sentinelHandler(domain.ErrInvalidFingerprint,
			http.StatusUnprocessableEntity, ErrorResponseCodeInvalidFingerprint),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, ErrorResponseCodeUpstreamUnavailable),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorResponseCodeTimeout),
	}
	return s
}

// SearchSimilar handles POST /v1/similar.
func (s *Server) SearchSimilar(w http.ResponseWriter, r *http.Request, params SimilarParams) {
	var req SimilarRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	doc, err := patent.New(req.PublicationNumber, req.CountryCode, req.ClassificationCodes, req.ThemeCodes)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}
	s.search(w, r, doc.WithClaims(req.Claims), params)
}

// SearchSimilarXML handles POST /v1/similar/xml.
func (s *Server) SearchSimilarXML(w http.ResponseWriter, r *http.Request, params SimilarParams) {
	doc, err := xmldoc.Parse(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			s.handleDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid patent XML: "+err.Error())
		return
	}
	s.search(w, r, doc, params)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, doc patent.Document, params SimilarParams) {
	format := SimilarParamsFormatJSON
	if params.Format != nil {
		format = *params.Format
	}
	if format != SimilarParamsFormatJSON && format != SimilarParamsFormatCSV {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("unsupported format %q", format))
		return
	}

	ctx := logger.ForReference(r.Context(), doc.PublicationNumber(), doc.CountryCode())
	out, err := s.similar.Search(ctx, similaruc.Query{
		Document:  doc,
		K:         params.K,
		MinScore:  params.MinScore,
		PrefixLen: params.PrefixLen,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("X-Search-Status", string(out.Status))
	if format == SimilarParamsFormatCSV {
		s.writeCSV(w, doc, out)
		return
	}
	writeJSON(w, http.StatusOK, outcomeToResponse(out))
}

func (s *Server) writeCSV(w http.ResponseWriter, doc patent.Document, out similaruc.Outcome) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "similar_"+doc.PublicationNumber()+".csv"))
	w.WriteHeader(http.StatusOK)
	if err := report.WriteCSV(w, out.Hits(), report.CSVOptions{BOM: true}); err != nil {
		s.logger.Warn("write csv response", zap.Error(err))
	}
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	rep := s.health.Check(r.Context())

	checks := make(map[string]string, len(rep.Checks))
	for k, v := range rep.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if rep.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(rep.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func outcomeToResponse(out similaruc.Outcome) SimilarResponse {
	d := out.Result.Diagnostics
	resp := SimilarResponse{
		Status:            string(out.Status),
		PublicationNumber: out.Document.PublicationNumber(),
		CountryCode:       out.Document.CountryCode(),
		Prefixes:          nonNil(out.Prefixes),
		Tags:              nonNil(out.Tags),
		ExpandedTags:      out.ExpandedTags,
		Results:           make([]SimilarItem, 0, len(out.Hits())),
		Diagnostics: DiagnosticsItem{
			Code:           string(d.Code),
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
		resp.Diagnostics.DroppedByReason = make(map[string]int, len(d.DroppedByReason))
		for reason, n := range d.DroppedByReason {
			resp.Diagnostics.DroppedByReason[string(reason)] = n
		}
	}
	for i, h := range out.Hits() {
		resp.Results = append(resp.Results, SimilarItem{
			Rank:              i + 1,
			PublicationNumber: h.Record.ID(),
			Title:             h.Record.Title(),
			FilingDate:        h.Record.FilingDate(),
			CountryCode:       h.Record.CountryCode(),
			Score:             h.Score,
		})
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation and not-found errors carry caller-supplied details and are passed through.
func safeDomainMessage(err error) string {
	for _, s := range []error{domain.ErrInvalidQuery, domain.ErrInvalidPrefixLength, domain.ErrReferenceNotFound} {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrInvalidFingerprint,
		domain.ErrUpstreamUnavailable,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
