package gemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/pkg/sse"
)

type stream struct {
	provider *Provider
	resp     *http.Response
	reader   *sse.Reader
	closed   bool
}

func newStream(p *Provider, resp *http.Response) *stream {
	return &stream{
		provider: p,
		resp:     resp,
		reader:   sse.NewReader(resp.Body),
	}
}

// Recv returns the next chunk, or io.EOF once the provider closes the stream.
func (s *stream) Recv() (*llm.StreamChunk, error) {
	ev, err := s.reader.Next()
	if err != nil {
		return nil, err
	}

	var resp generateContentResponse
	if err := json.Unmarshal([]byte(ev.Data), &resp); err != nil {
		return nil, fmt.Errorf("%s: decoding stream event: %w", s.provider.name, err)
	}

	if resp.Error != nil {
		return nil, &llm.APIError{
			Provider:   s.provider.name,
			StatusCode: resp.Error.Code,
			Code:       resp.Error.Status,
			Message:    resp.Error.Message,
			Raw:        []byte(ev.Data),
		}
	}

	text, finish := candidateText(&resp)

	return &llm.StreamChunk{
		Model:      s.provider.modelVersion(&resp),
		CreatedAt:  time.Now(),
		Message:    llm.NewTextMessage("assistant", text),
		StopReason: finish,
		Usage:      convertUsage(resp.UsageMetadata),
	}, nil
}

func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Body.Close()
}
