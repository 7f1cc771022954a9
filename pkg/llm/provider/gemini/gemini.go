// Package gemini implements llm.Model for Google's Gemini models, reached
// either through the Gemini API (generativelanguage.googleapis.com, API key)
// or through Vertex AI (aiplatform.googleapis.com, OAuth access token).
//
// Both surfaces share the generateContent wire format. Streaming uses
// streamGenerateContent with alt=sse, one GenerateContentResponse per event.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/relay/pkg/llm"
)

const (
	// DefaultBaseURL is the public Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultLocation is the Vertex AI region used when none is configured.
	DefaultLocation = "us-central1"

	apiKeyHeader = "x-goog-api-key"
)

// Config configures a Provider.
type Config struct {
	// BaseURL overrides the provider endpoint (scheme + host).
	BaseURL string

	// Model is the opaque model identifier, e.g. "gemini-1.5-flash-preview-0514".
	Model string

	// Credential is the API key (Gemini API) or bearer access token (Vertex AI).
	Credential string

	// Project and Location address the model on Vertex AI.
	Project  string
	Location string

	// HTTPClient defaults to a client with no timeout.
	HTTPClient *http.Client
}

// Provider is an llm.Model backed by the Gemini REST API.
type Provider struct {
	name       string
	model      string
	modelURL   string
	setAuth    func(h http.Header)
	httpClient *http.Client
}

// New returns a Provider for the Gemini API.
func New(cfg Config) *Provider {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	return &Provider{
		name:       "gemini",
		model:      cfg.Model,
		modelURL:   strings.TrimRight(base, "/") + "/v1beta/models/" + url.PathEscape(cfg.Model),
		httpClient: httpClientOrDefault(cfg.HTTPClient),
		setAuth: func(h http.Header) {
			if cfg.Credential != "" {
				h.Set(apiKeyHeader, cfg.Credential)
			}
		},
	}
}

// NewVertex returns a Provider for Gemini models on Vertex AI.
func NewVertex(cfg Config) (*Provider, error) {
	if cfg.Project == "" {
		return nil, errors.New("vertex: project is required")
	}

	location := cfg.Location
	if location == "" {
		location = DefaultLocation
	}

	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", location)
	}

	modelURL := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s",
		strings.TrimRight(base, "/"),
		url.PathEscape(cfg.Project),
		url.PathEscape(location),
		url.PathEscape(cfg.Model),
	)

	return &Provider{
		name:       "vertex",
		model:      cfg.Model,
		modelURL:   modelURL,
		httpClient: httpClientOrDefault(cfg.HTTPClient),
		setAuth: func(h http.Header) {
			if cfg.Credential != "" {
				h.Set("Authorization", "Bearer "+cfg.Credential)
			}
		},
	}, nil
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{}
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) ModelID() string {
	return p.model
}

// Invoke calls generateContent and returns the complete answer.
func (p *Provider) Invoke(ctx context.Context, prompt string) (*llm.ChatResponse, error) {
	httpResp, err := p.post(ctx, p.modelURL+":generateContent", prompt)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", p.name, err)
	}

	var resp generateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", p.name, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" && len(resp.Candidates) == 0 {
		return nil, &llm.APIError{
			Provider:   p.name,
			StatusCode: httpResp.StatusCode,
			Code:       resp.PromptFeedback.BlockReason,
			Message:    "prompt blocked",
			Raw:        body,
		}
	}

	text, finish := candidateText(&resp)

	return &llm.ChatResponse{
		Model:       p.modelVersion(&resp),
		CreatedAt:   time.Now(),
		Message:     llm.NewTextMessage("assistant", text),
		StopReason:  finish,
		Usage:       convertUsage(resp.UsageMetadata),
		RawResponse: body,
	}, nil
}

// Stream calls streamGenerateContent?alt=sse. The returned stream yields one
// chunk per SSE event, in arrival order.
func (p *Provider) Stream(ctx context.Context, prompt string) (llm.Stream, error) {
	httpResp, err := p.post(ctx, p.modelURL+":streamGenerateContent?alt=sse", prompt)
	if err != nil {
		return nil, err
	}

	return newStream(p, httpResp), nil
}

// post sends a generateContent-shaped request and maps non-2xx statuses
// to *llm.APIError.
func (p *Provider) post(ctx context.Context, endpoint, prompt string) (*http.Response, error) {
	payload, err := json.Marshal(generateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.setAuth(req.Header)

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		defer httpResp.Body.Close()
		raw, _ := io.ReadAll(httpResp.Body)
		return nil, p.apiError(httpResp.StatusCode, raw)
	}

	return httpResp, nil
}

func (p *Provider) apiError(status int, raw []byte) *llm.APIError {
	apiErr := &llm.APIError{
		Provider:   p.name,
		StatusCode: status,
		Raw:        raw,
	}

	var parsed geminiErrorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil {
		apiErr.Code = parsed.Error.Status
		apiErr.Message = parsed.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}

	return apiErr
}

func (p *Provider) modelVersion(resp *generateContentResponse) string {
	if resp.ModelVersion != "" {
		return resp.ModelVersion
	}
	return p.model
}

// candidateText joins the answer parts of the first candidate, skipping
// thought parts.
func candidateText(resp *generateContentResponse) (string, string) {
	if len(resp.Candidates) == 0 {
		return "", ""
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}

	return b.String(), cand.FinishReason
}

func convertUsage(u *geminiUsage) *llm.Usage {
	if u == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      u.TotalTokenCount,
	}
}
