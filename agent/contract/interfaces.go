package contract

import "context"

// ChatModel is the inference service boundary. Implementations translate the
// neutral message model to their wire format and back; they impose their own
// transport timeouts and never retry on behalf of the loop.
type ChatModel interface {
	Generate(ctx context.Context, req GenerateRequest) (*ModelResponse, error)
}

// Dispatcher executes a named tool against a backend and returns a
// displayable result string for re-insertion into the history. Unknown tool
// names and schema violations are reported as errors; whether an error is
// conversational or fatal is the caller's policy.
type Dispatcher interface {
	Specs() []ToolSpec
	Dispatch(ctx context.Context, name string, input map[string]any) (string, error)
}
