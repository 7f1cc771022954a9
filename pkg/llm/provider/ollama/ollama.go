// Package ollama implements llm.Model against a local Ollama server.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/relay/pkg/llm"
)

// DefaultBaseURL is where a stock Ollama install listens.
const DefaultBaseURL = "http://localhost:11434"

const providerName = "ollama"

// Provider is an llm.Model backed by Ollama's /api/chat.
type Provider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New returns a Provider. An empty baseURL means DefaultBaseURL and a nil
// client means one without a timeout.
func New(baseURL, model string, httpClient *http.Client) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) ModelID() string {
	return p.model
}

// Invoke sends a non-streaming chat request.
func (p *Provider) Invoke(ctx context.Context, prompt string) (*llm.ChatResponse, error) {
	httpResp, err := p.post(ctx, prompt, false)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: reading response: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama: decoding response: %w", err)
	}

	return &llm.ChatResponse{
		Model:       resp.Model,
		CreatedAt:   resp.CreatedAt,
		Message:     llm.NewTextMessage(resp.Message.Role, resp.Message.Content),
		StopReason:  resp.DoneReason,
		Usage:       usage(&resp),
		RawResponse: body,
	}, nil
}

// Stream sends a streaming chat request. Ollama answers with one JSON
// object per line; the last one has done=true.
func (p *Provider) Stream(ctx context.Context, prompt string) (llm.Stream, error) {
	httpResp, err := p.post(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &stream{resp: httpResp, scanner: scanner}, nil
}

func (p *Provider) post(ctx context.Context, prompt string, streaming bool) (*http.Response, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    p.model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   &streaming,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		defer httpResp.Body.Close()
		raw, _ := io.ReadAll(httpResp.Body)

		apiErr := &llm.APIError{Provider: providerName, StatusCode: httpResp.StatusCode, Raw: raw}
		var parsed errorResponse
		if json.Unmarshal(raw, &parsed) == nil {
			apiErr.Message = parsed.Error
		}
		return nil, apiErr
	}

	return httpResp, nil
}

func usage(resp *chatResponse) *llm.Usage {
	if resp.PromptEvalCount == 0 && resp.EvalCount == 0 {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		TotalDurationNs:  resp.TotalDuration,
	}
}

type stream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	done    bool
	closed  bool
}

func (s *stream) Recv() (*llm.StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp chatResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, fmt.Errorf("ollama: decoding stream line: %w", err)
		}
		if resp.Error != "" {
			return nil, &llm.APIError{Provider: providerName, Message: resp.Error, Raw: line}
		}

		s.done = resp.Done
		return &llm.StreamChunk{
			Model:      resp.Model,
			CreatedAt:  resp.CreatedAt,
			Message:    llm.NewTextMessage(resp.Message.Role, resp.Message.Content),
			StopReason: resp.DoneReason,
			Usage:      usage(&resp),
		}, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Body.Close()
}
