package loop

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tanpawarit/technova-support-bot/agent/contract"
	storex "github.com/tanpawarit/technova-support-bot/agent/store"
	toolx "github.com/tanpawarit/technova-support-bot/agent/tool"
)

// scriptedModel replays canned responses and records every request it saw.
type scriptedModel struct {
	responses []*contract.ModelResponse
	requests  []contract.GenerateRequest
	err       error
}

func (m *scriptedModel) Generate(_ context.Context, req contract.GenerateRequest) (*contract.ModelResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func toolUseResponse(id, name string, input map[string]any) *contract.ModelResponse {
	return &contract.ModelResponse{
		StopReason: contract.StopToolUse,
		Content: []contract.ContentBlock{
			{Text: "Let me look that up."},
			{ToolUse: &contract.ToolUse{ID: id, Name: name, Input: input}},
		},
	}
}

func endTurnResponse(text string) *contract.ModelResponse {
	return &contract.ModelResponse{
		StopReason: contract.StopEndTurn,
		Content:    []contract.ContentBlock{{Text: text}},
	}
}

func newLoop(t *testing.T, model contract.ChatModel, opts ...Option) *Loop {
	t.Helper()
	s, err := storex.Seeded()
	if err != nil {
		t.Fatalf("Seeded() error = %v", err)
	}
	d, err := toolx.New(s)
	if err != nil {
		t.Fatalf("tool.New() error = %v", err)
	}
	l, err := New(model, d, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func TestHandleTurnToolRoundTrip(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*contract.ModelResponse{
		toolUseResponse("toolu_01", "get_order_by_id", map[string]any{"order_id": "24601"}),
		endTurnResponse("<thinking>done</thinking><reply>Order 24601 has shipped.</reply>"),
	}}
	l := newLoop(t, model)

	out, err := l.HandleTurn(context.Background(), "What's my order 24601 status?")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out != "Order 24601 has shipped." {
		t.Fatalf("reply = %q", out)
	}

	// Two inference calls: one answered with a tool request, one final.
	if len(model.requests) != 2 {
		t.Fatalf("inference calls = %d, want 2", len(model.requests))
	}
	if len(model.requests[0].Tools) != 4 {
		t.Fatalf("declared tools = %d, want 4", len(model.requests[0].Tools))
	}

	history := l.History()
	// user, assistant(tool_use), user(tool_result), assistant(final)
	if len(history) != 4 {
		t.Fatalf("history len = %d, want 4", len(history))
	}
	if history[1].Role != contract.RoleAssistant {
		t.Fatalf("history[1].Role = %s", history[1].Role)
	}

	var use *contract.ToolUse
	for _, block := range history[1].Content {
		if block.ToolUse != nil {
			use = block.ToolUse
		}
	}
	if use == nil {
		t.Fatal("assistant message lost its tool_use block")
	}

	result := history[2]
	if result.Role != contract.RoleUser {
		t.Fatalf("tool result role = %s, want user", result.Role)
	}
	if result.Content[0].ToolResult == nil {
		t.Fatal("history[2] is not a tool result message")
	}
	if result.Content[0].ToolResult.ToolUseID != use.ID {
		t.Fatalf("invocation id %q did not round-trip (got %q)",
			use.ID, result.Content[0].ToolResult.ToolUseID)
	}
	if !strings.Contains(result.Content[0].ToolResult.Content, "Wireless Headphones") {
		t.Fatalf("tool result missing order record: %s", result.Content[0].ToolResult.Content)
	}

	// The raw tool output never reaches the user.
	if strings.Contains(out, "Wireless Headphones") {
		t.Fatalf("raw tool output leaked into reply: %q", out)
	}
}

func TestHandleTurnPicksLastToolUseBlock(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*contract.ModelResponse{
		{
			StopReason: contract.StopToolUse,
			Content: []contract.ContentBlock{
				{ToolUse: &contract.ToolUse{ID: "toolu_first", Name: "get_user", Input: map[string]any{"key": "email", "value": "john@gmail.com"}}},
				{ToolUse: &contract.ToolUse{ID: "toolu_last", Name: "get_order_by_id", Input: map[string]any{"order_id": "13579"}}},
			},
		},
		endTurnResponse("<reply>Found it.</reply>"),
	}}
	l := newLoop(t, model)

	if _, err := l.HandleTurn(context.Background(), "check order 13579"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	history := l.History()
	tr := history[2].Content[0].ToolResult
	if tr == nil || tr.ToolUseID != "toolu_last" {
		t.Fatalf("expected result for last tool_use block, got %+v", tr)
	}
}

func TestHandleTurnUnknownToolFedBack(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*contract.ModelResponse{
		toolUseResponse("toolu_02", "refund_order", map[string]any{"order_id": "24601"}),
		endTurnResponse("<reply>Apologies, I can't do refunds.</reply>"),
	}}
	l := newLoop(t, model)

	out, err := l.HandleTurn(context.Background(), "refund my order")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out != "Apologies, I can't do refunds." {
		t.Fatalf("reply = %q", out)
	}

	tr := l.History()[2].Content[0].ToolResult
	if tr == nil || !strings.Contains(tr.Content, "unknown tool") {
		t.Fatalf("unknown-tool error not surfaced as result: %+v", tr)
	}
}

func TestHandleTurnInvalidKeyIsFatal(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*contract.ModelResponse{
		toolUseResponse("toolu_03", "get_user", map[string]any{"key": "name", "value": "John"}),
	}}
	l := newLoop(t, model)

	_, err := l.HandleTurn(context.Background(), "find John")
	if !errors.Is(err, contract.ErrInvalidKey) {
		t.Fatalf("HandleTurn() error = %v, want ErrInvalidKey", err)
	}
}

func TestHandleTurnExtractionMissFallsBack(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*contract.ModelResponse{
		endTurnResponse("forgot the markers entirely"),
	}}
	l := newLoop(t, model, WithFallbackReply("placeholder"))

	out, err := l.HandleTurn(context.Background(), "hello")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out != "placeholder" {
		t.Fatalf("reply = %q, want fallback", out)
	}
	// The degraded turn still lands in history.
	if len(l.History()) != 2 {
		t.Fatalf("history len = %d, want 2", len(l.History()))
	}
}

func TestHandleTurnToolRoundLimit(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*contract.ModelResponse{
		toolUseResponse("toolu_a", "get_order_by_id", map[string]any{"order_id": "24601"}),
		toolUseResponse("toolu_b", "get_order_by_id", map[string]any{"order_id": "24601"}),
		toolUseResponse("toolu_c", "get_order_by_id", map[string]any{"order_id": "24601"}),
	}}
	l := newLoop(t, model, WithMaxToolRounds(2))

	_, err := l.HandleTurn(context.Background(), "loop forever")
	if err == nil || !strings.Contains(err.Error(), "tool rounds exceeded") {
		t.Fatalf("HandleTurn() error = %v, want round limit error", err)
	}
}

func TestHandleTurnEmptyContent(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*contract.ModelResponse{
		{StopReason: contract.StopEndTurn},
	}}
	l := newLoop(t, model)

	_, err := l.HandleTurn(context.Background(), "hello")
	if !errors.Is(err, contract.ErrEmptyResponse) {
		t.Fatalf("HandleTurn() error = %v, want ErrEmptyResponse", err)
	}
}

type scriptedIO struct {
	lines   []string
	replies []string
}

func (s *scriptedIO) ReadLine() (string, bool) {
	if len(s.lines) == 0 {
		return "", false
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, true
}

func (s *scriptedIO) ShowReply(text string) {
	s.replies = append(s.replies, text)
}

func TestRunReadsUntilEOF(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*contract.ModelResponse{
		endTurnResponse("<reply>Hi John!</reply>"),
		endTurnResponse("<reply>Anything else?</reply>"),
	}}
	l := newLoop(t, model)

	io := &scriptedIO{lines: []string{"hi", "   ", "thanks"}}
	if err := l.Run(context.Background(), io); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// The blank line is skipped without an inference call.
	if len(io.replies) != 2 {
		t.Fatalf("replies = %v", io.replies)
	}
	if io.replies[0] != "Hi John!" || io.replies[1] != "Anything else?" {
		t.Fatalf("unexpected replies: %v", io.replies)
	}
}
