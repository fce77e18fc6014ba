package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is implemented by Server and mounted by HandlerWithOptions.
type ServerInterface interface {
	// SearchSimilar handles POST /v1/similar.
	SearchSimilar(w http.ResponseWriter, r *http.Request, params SimilarParams)
	// SearchSimilarXML handles POST /v1/similar/xml.
	SearchSimilarXML(w http.ResponseWriter, r *http.Request, params SimilarParams)
	// HealthCheck handles GET /health.
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// Metrics handles GET /metrics.
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ServerOptions configures route mounting.
type ServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// HandlerWithOptions mounts si on the base router.
func HandlerWithOptions(si ServerInterface, options ServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	errorHandler := options.ErrorHandlerFunc
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		}
	}

	withParams := func(h func(http.ResponseWriter, *http.Request, SimilarParams)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			params, err := bindSimilarParams(r)
			if err != nil {
				errorHandler(w, r, err)
				return
			}
			h(w, r, params)
		}
	}

	r.Post("/v1/similar", withParams(si.SearchSimilar))
	r.Post("/v1/similar/xml", withParams(si.SearchSimilarXML))
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)
	return r
}

func bindSimilarParams(r *http.Request) (SimilarParams, error) {
	var params SimilarParams
	query := r.URL.Query()

	bindings := []struct {
		name string
		dest any
	}{
		{"k", &params.K},
		{"min_score", &params.MinScore},
		{"prefix_len", &params.PrefixLen},
		{"format", &params.Format},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			return SimilarParams{}, &InvalidParamFormatError{ParamName: b.name, Err: err}
		}
	}
	return params, nil
}
