package chi

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest          ErrorResponseCode = "bad_request"
	ErrorResponseCodeMissingAPIKey       ErrorResponseCode = "missing_api_key"
	ErrorResponseCodeInvalidAPIKey       ErrorResponseCode = "invalid_api_key"
	ErrorResponseCodeValidationFailed    ErrorResponseCode = "validation_failed"
	ErrorResponseCodeReferenceNotFound   ErrorResponseCode = "reference_not_found"
	ErrorResponseCodeInvalidFingerprint  ErrorResponseCode = "invalid_fingerprint"
	ErrorResponseCodeUpstreamUnavailable ErrorResponseCode = "upstream_unavailable"
	ErrorResponseCodeTimeout             ErrorResponseCode = "timeout"
	ErrorResponseCodeInternalError       ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SimilarParamsFormat selects the response encoding.
type SimilarParamsFormat string

const (
	SimilarParamsFormatJSON SimilarParamsFormat = "json"
	SimilarParamsFormatCSV  SimilarParamsFormat = "csv"
)

// SimilarParams are the query parameters of the /v1/similar endpoints.
type SimilarParams struct {
	K         *int                 `form:"k,omitempty" json:"k,omitempty"`
	MinScore  *float64             `form:"min_score,omitempty" json:"min_score,omitempty"`
	PrefixLen *int                 `form:"prefix_len,omitempty" json:"prefix_len,omitempty"`
	Format    *SimilarParamsFormat `form:"format,omitempty" json:"format,omitempty"`
}

// SimilarRequest is the JSON body of POST /v1/similar.
type SimilarRequest struct {
	PublicationNumber   string   `json:"publication_number"`
	CountryCode         string   `json:"country_code,omitempty"`
	ClassificationCodes []string `json:"classification_codes,omitempty"`
	ThemeCodes          []string `json:"theme_codes,omitempty"`
	// Claims feed the claim-based code expansion when the expander is on.
	Claims string `json:"claims,omitempty"`
}

// SimilarResponse is the JSON result of a similarity search.
type SimilarResponse struct {
	Status            string          `json:"status"`
	PublicationNumber string          `json:"publication_number"`
	CountryCode       string          `json:"country_code"`
	Prefixes          []string        `json:"prefixes"`
	Tags              []string        `json:"tags"`
	ExpandedTags      []string        `json:"expanded_tags,omitempty"`
	Results           []SimilarItem   `json:"results"`
	Diagnostics       DiagnosticsItem `json:"diagnostics"`
}

// SimilarItem is one ranked publication.
type SimilarItem struct {
	Rank              int     `json:"rank"`
	PublicationNumber string  `json:"publication_number"`
	Title             string  `json:"title,omitempty"`
	FilingDate        string  `json:"filing_date,omitempty"`
	CountryCode       string  `json:"country_code,omitempty"`
	Score             float64 `json:"score"`
}

// DiagnosticsItem reports what happened to the candidate batch.
type DiagnosticsItem struct {
	Code            string         `json:"code"`
	Considered      int            `json:"considered"`
	Valid           int            `json:"valid"`
	Dropped         int            `json:"dropped"`
	DroppedByReason map[string]int `json:"dropped_by_reason,omitempty"`
	BelowThreshold  int            `json:"below_threshold"`
	Shortfall       int            `json:"shortfall"`
	Duplicates      int            `json:"duplicates"`
	ExcludedSelf    bool           `json:"excluded_self"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
