package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/utils"
)

const (
	runToolName        = "run"
	runToolDescription = "Send a prompt to the configured LLM and return its complete answer. Omitting message sends the default prompt."
)

// RunInput is the input of the run tool. A nil Message means the default
// prompt; an empty string is sent as is.
type RunInput struct {
	Message *string `json:"message,omitempty" jsonschema:"the prompt to send to the model"`
}

// RunOutput is the structured result of the run tool.
type RunOutput struct {
	Model  string `json:"model"`
	Answer string `json:"answer"`
}

type mcpServer struct {
	relay   *Relay
	server  *mcp.Server
	handler *mcp.StreamableHTTPHandler
}

func newMCPServer(r *Relay) *mcpServer {
	s := &mcpServer{relay: r}

	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    "relay",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        runToolName,
		Description: runToolDescription,
	}, s.handleRun)

	// Stateless: every tool call is a single independent request.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return s.server
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s
}

func (s *mcpServer) handleRun(ctx context.Context, _ *mcp.CallToolRequest, input RunInput) (*mcp.CallToolResult, RunOutput, error) {
	r := s.relay
	startTime := time.Now()

	prompt := r.config.DefaultPrompt
	if input.Message != nil {
		prompt = *input.Message
	}

	resp, err := r.model.Invoke(ctx, prompt)
	if err != nil {
		r.logger.Error("mcp run failed", "provider", r.model.Name(), "error", err)
		r.enqueueCompletion(routeMCP, false, prompt, "", 0, startTime, eventstream.StatusFailed, err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "model invocation failed: " + err.Error()},
			},
		}, RunOutput{}, nil
	}

	answer := resp.Message.GetText()
	r.enqueueCompletion(routeMCP, false, prompt, answer, 0, startTime, eventstream.StatusOK, nil)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: answer},
		},
	}, RunOutput{Model: r.model.ModelID(), Answer: answer}, nil
}
