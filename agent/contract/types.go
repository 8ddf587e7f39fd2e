package contract

// Role is the conversational channel a message travels on. Tool results are
// carried on the user channel so the next model call sees them as
// environment feedback.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason tells the loop whether the model wants a tool executed or is
// done with its turn.
type StopReason string

const (
	StopToolUse StopReason = "tool_use"
	StopEndTurn StopReason = "end_turn"
)

// ContentBlock is one element of a message body. Exactly one field is set.
type ContentBlock struct {
	Text       string      `json:"text,omitempty"`
	ToolUse    *ToolUse    `json:"tool_use,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ToolUse is the model's request to run a named tool. ID is the opaque
// invocation id that must round-trip unchanged into the matching ToolResult.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// ToolResult carries the stringified outcome of a tool execution back to the
// model, correlated by the originating invocation id.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
}

// Message is one append-only entry of the conversation history.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Text: text}}}
}

func ToolResultMessage(toolUseID, content string) Message {
	return Message{
		Role: RoleUser,
		Content: []ContentBlock{
			{ToolResult: &ToolResult{ToolUseID: toolUseID, Content: content}},
		},
	}
}

// FirstText returns the first plain-text block of the message body.
func (m Message) FirstText() (string, bool) {
	for _, block := range m.Content {
		if block.Text != "" {
			return block.Text, true
		}
	}
	return "", false
}

// ToolSpec declares one callable tool to the inference service. InputSchema
// is descriptive metadata in JSON-Schema object form; the dispatcher does not
// validate against it.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// GenerateRequest is one inference call: system instructions, the full
// history so far, the declared tools, and an output-length ceiling.
type GenerateRequest struct {
	System    string
	Messages  []Message
	Tools     []ToolSpec
	MaxTokens int
}

// ModelResponse is the provider-neutral inference result. The loop decides
// what to do next from StopReason and the content block shapes alone.
type ModelResponse struct {
	StopReason StopReason
	Content    []ContentBlock
}
