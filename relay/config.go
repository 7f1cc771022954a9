package relay

// DefaultPrompt is sent upstream when a request carries no message parameter.
const DefaultPrompt = "What is baseball?"

// Separator follows every chunk written to a /run_stream response body.
const Separator = "\n\n--------------------------\n\n"

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// DefaultPrompt replaces an omitted message. Empty means DefaultPrompt.
	DefaultPrompt string

	// EnableMCP mounts the Model Context Protocol endpoint at /mcp.
	EnableMCP bool

	// EventWorkers is the number of event publishing workers (defaults to 1).
	EventWorkers uint
}
