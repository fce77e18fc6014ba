package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/patent"
	"github.com/kailas-cloud/patsim/internal/metrics"
)

const (
	defaultMaxAttempts = 5
	defaultInitialWait = 2 * time.Second
	backoffFactor      = 4
)

const systemPrompt = "You are an experienced patent searcher. " +
	"Answer with a single JSON object and nothing else."

const userPromptTemplate = `To improve the recall of a prior-art search, recommend other classification codes
(IPC, CPC, FI or F-term) that are statistically or semantically close to the known codes below
and under which prior art is likely to exist.

Known classification codes:
%s

Recommend at most %d codes. Give a short reason for each one.
Output format:
{"recommended_codes": [{"code": "G01N 21/00", "reason": "..."}]}`

const decomposePromptTemplate = `Read the claims below and break the invention down into its independent
technical components. Describe each component briefly so that the essential structure of the
invention stays recognizable.

Claims:
%s

Output format:
{"components": ["a print head ejecting ink droplets", "an oleophobic coating covering the print head"]}`

const classifyPromptTemplate = `For each technical component below, predict the %d most relevant
patent classification codes (IPC or CPC).

Components:
%s

Output format:
{"component_classifications": [{"component": "a print head ejecting ink droplets", "predicted_codes": ["B41J 2/14", "B41J 2/16"]}]}`

const defaultCodesPerComponent = 3

// fencedJSON matches a ```json ... ``` or ``` ... ``` block.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Recommendation is one suggested classification code.
type Recommendation struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type expansion struct {
	RecommendedCodes []Recommendation `json:"recommended_codes"`
}

// ComponentCodes holds the codes predicted for one claim component.
type ComponentCodes struct {
	Component string   `json:"component"`
	Codes     []string `json:"predicted_codes"`
}

type decomposition struct {
	Components []string `json:"components"`
}

type classification struct {
	Classifications []ComponentCodes `json:"component_classifications"`
}

// Expander suggests related classification codes through an OpenAI-compatible chat API.
type Expander struct {
	client      *openai.Client
	model       string
	maxCodes    int
	temperature float32
	maxAttempts int
	initialWait time.Duration
	logger      *zap.Logger
}

// Config holds the expander settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxCodes    int
	Temperature float32
	Timeout     time.Duration
	// MaxAttempts and InitialWait tune rate-limit retries; zero means 5 attempts from 2s.
	MaxAttempts int
	InitialWait time.Duration
	Logger      *zap.Logger
}

// NewExpander creates a classification-code expander.
func NewExpander(cfg *Config) *Expander {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	e := &Expander{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxCodes:    cfg.MaxCodes,
		temperature: cfg.Temperature,
		maxAttempts: cfg.MaxAttempts,
		initialWait: cfg.InitialWait,
		logger:      cfg.Logger,
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = defaultMaxAttempts
	}
	if e.initialWait <= 0 {
		e.initialWait = defaultInitialWait
	}
	if e.maxCodes <= 0 {
		e.maxCodes = 10
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Expand returns classification codes to add to the document's tags.
// When the document carries claims, they are split into components and each
// component is classified; those codes join the known ones as input to
// Recommend. The result is the component codes followed by up to maxCodes
// recommendations.
func (e *Expander) Expand(ctx context.Context, doc patent.Document) ([]string, error) {
	known := doc.Tags()

	var derived []string
	if claims := doc.Claims(); claims != "" {
		components, err := e.Decompose(ctx, claims)
		if err != nil {
			return nil, err
		}
		classified, err := e.ClassifyElements(ctx, components)
		if err != nil {
			return nil, err
		}
		for _, c := range classified {
			derived = append(derived, c.Codes...)
		}
	}

	recs, err := e.Recommend(ctx, append(append([]string{}, known...), derived...))
	if err != nil {
		return nil, err
	}
	codes := derived
	for _, r := range recs {
		codes = append(codes, r.Code)
	}
	return codes, nil
}

// Decompose splits claim text into independent technical components.
func (e *Expander) Decompose(ctx context.Context, claims string) ([]string, error) {
	var out decomposition
	if err := e.complete(ctx, "decompose", fmt.Sprintf(decomposePromptTemplate, claims), &out); err != nil {
		return nil, err
	}
	components := out.Components[:0]
	for _, c := range out.Components {
		if c = strings.TrimSpace(c); c != "" {
			components = append(components, c)
		}
	}
	e.logger.Debug("Claims decomposed", zap.Int("components", len(components)))
	return components, nil
}

// ClassifyElements predicts classification codes for each component.
// Components the model leaves out are absent from the result.
func (e *Expander) ClassifyElements(ctx context.Context, components []string) ([]ComponentCodes, error) {
	if len(components) == 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf(classifyPromptTemplate, defaultCodesPerComponent, bulletList(components))
	var out classification
	if err := e.complete(ctx, "classify", prompt, &out); err != nil {
		return nil, err
	}
	result := out.Classifications[:0]
	for _, c := range out.Classifications {
		if strings.TrimSpace(c.Component) == "" {
			continue
		}
		codes := c.Codes[:0]
		for _, code := range c.Codes {
			if strings.TrimSpace(code) != "" {
				codes = append(codes, code)
			}
		}
		c.Codes = codes
		result = append(result, c)
	}
	return result, nil
}

// Recommend asks the model for codes related to known.
func (e *Expander) Recommend(ctx context.Context, known []string) ([]Recommendation, error) {
	known = patent.NormalizeCodes(known)
	if len(known) == 0 {
		return nil, nil
	}

	var out expansion
	if err := e.complete(ctx, "expand", fmt.Sprintf(userPromptTemplate, bulletList(known), e.maxCodes), &out); err != nil {
		return nil, err
	}
	recs := out.RecommendedCodes[:0]
	for _, r := range out.RecommendedCodes {
		if strings.TrimSpace(r.Code) != "" {
			recs = append(recs, r)
		}
	}
	if len(recs) > e.maxCodes {
		recs = recs[:e.maxCodes]
	}
	e.logger.Debug("Classification codes expanded",
		zap.String("model", e.model),
		zap.Int("known", len(known)),
		zap.Int("recommended", len(recs)),
	)
	return recs, nil
}

// complete runs one JSON-mode chat completion and decodes the answer into out.
func (e *Expander) complete(ctx context.Context, op, prompt string, out any) error {
	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := e.createWithRetry(ctx, req)
	metrics.ExpanderRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExpanderRequestsTotal.WithLabelValues("error").Inc()
		return domain.NewUpstreamError("openai", op, parseAPIError(err))
	}
	if len(resp.Choices) == 0 {
		metrics.ExpanderRequestsTotal.WithLabelValues("error").Inc()
		return domain.NewUpstreamError("openai", op, errors.New("empty completion"))
	}
	if err = decodeCompletion(resp.Choices[0].Message.Content, out); err != nil {
		metrics.ExpanderRequestsTotal.WithLabelValues("error").Inc()
		return domain.NewUpstreamError("openai", op, err)
	}
	metrics.ExpanderRequestsTotal.WithLabelValues("success").Inc()
	e.logger.Debug("Expander completion",
		zap.String("op", op),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return nil
}

func bulletList(items []string) string {
	return "- " + strings.Join(items, "\n- ")
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Expander) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// createWithRetry retries rate-limited requests with exponential backoff
// (wait, 4*wait, 16*wait, ...). Other errors are returned immediately.
func (e *Expander) createWithRetry(
	ctx context.Context, req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	wait := e.initialWait
	for attempt := 1; ; attempt++ {
		resp, err := e.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !isRateLimited(err) || attempt >= e.maxAttempts {
			return openai.ChatCompletionResponse{}, err
		}

		e.logger.Warn("Expander rate limited, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.maxAttempts),
			zap.Duration("wait", wait),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return openai.ChatCompletionResponse{}, ctx.Err()
		case <-timer.C:
		}
		wait *= backoffFactor
	}
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// decodeCompletion decodes the model output, accepting a bare JSON object or
// one wrapped in a fenced code block.
func decodeCompletion(content string, out any) error {
	content = strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		m := fencedJSON.FindStringSubmatch(content)
		if m == nil {
			return fmt.Errorf("decode completion: %w", err)
		}
		if err = json.Unmarshal([]byte(m[1]), out); err != nil {
			return fmt.Errorf("decode fenced completion: %w", err)
		}
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("chat API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("chat API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("chat request failed: %w", err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
