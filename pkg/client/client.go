// Package client talks to a relay server and paces the relayed answer for
// display.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultTarget is where `relay serve` listens by default.
const DefaultTarget = "http://localhost:8000"

// StatusError is returned when the relay answers with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Error: %d", e.Code)
}

// ErrorText renders err for the terminal. Status errors already read
// "Error: <code>" and are returned as is.
func ErrorText(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return "Error: " + err.Error()
}

// Client calls a relay server.
type Client struct {
	target     string
	httpClient *http.Client
}

// New creates a Client for the relay at target. A nil httpClient means one
// without a timeout.
func New(target string, httpClient *http.Client) *Client {
	if target == "" {
		target = DefaultTarget
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		target:     strings.TrimRight(target, "/"),
		httpClient: httpClient,
	}
}

// RunStream posts prompt to /run_stream and returns the complete body,
// separators included. The body is read in full before returning.
func (c *Client) RunStream(ctx context.Context, prompt string) (string, error) {
	return c.post(ctx, "/run_stream", prompt)
}

// Run posts prompt to /run and returns the answer.
func (c *Client) Run(ctx context.Context, prompt string) (string, error) {
	return c.post(ctx, "/run", prompt)
}

func (c *Client) post(ctx context.Context, path, prompt string) (string, error) {
	endpoint := c.target + path + "?" + url.Values{"message": {prompt}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading relay response: %w", err)
	}

	return string(body), nil
}
