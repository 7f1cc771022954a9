package llm

// Message represents a single message in a conversation.
// Content is stored as ContentBlocks so providers that split an answer into
// several parts (Gemini "parts") keep that structure.
type Message struct {
	Role    string         `json:"role"`    // "user", "assistant"
	Content []ContentBlock `json:"content"` // Array of content blocks
}

// ContentBlock represents a single piece of content within a message.
type ContentBlock struct {
	Type string `json:"type"` // "text"
	Text string `json:"text,omitempty"`
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: "text", Text: text},
		},
	}
}

// GetText returns the concatenated text content from all text blocks in the message.
func (m *Message) GetText() string {
	var result string
	for _, block := range m.Content {
		if block.Type == "text" {
			result += block.Text
		}
	}
	return result
}
