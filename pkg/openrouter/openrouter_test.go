package openrouter

import (
	"errors"
	"testing"

	openaisdk "github.com/openai/openai-go"
	"github.com/tanpawarit/technova-support-bot/agent/contract"
)

func TestToWireMessagesMapsToolResultToToolRole(t *testing.T) {
	t.Parallel()

	history := []contract.Message{
		contract.TextMessage(contract.RoleUser, "cancel order 13579"),
		{
			Role: contract.RoleAssistant,
			Content: []contract.ContentBlock{
				{Text: "Cancelling now."},
				{ToolUse: &contract.ToolUse{ID: "call_1", Name: "cancel_order", Input: map[string]any{"order_id": "13579"}}},
			},
		},
		contract.ToolResultMessage("call_1", "Cancelled the order"),
	}

	wire := toWireMessages("be helpful", history)
	if len(wire) != 4 {
		t.Fatalf("wire messages = %d, want 4 (system, user, assistant, tool)", len(wire))
	}
	if wire[0].OfSystem == nil {
		t.Fatal("wire[0] is not a system message")
	}
	if wire[1].OfUser == nil {
		t.Fatal("wire[1] is not a user message")
	}

	assistant := wire[2].OfAssistant
	if assistant == nil {
		t.Fatal("wire[2] is not an assistant message")
	}
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_1" {
		t.Fatalf("assistant tool calls = %+v", assistant.ToolCalls)
	}
	if assistant.ToolCalls[0].Function.Name != "cancel_order" {
		t.Fatalf("tool call name = %s", assistant.ToolCalls[0].Function.Name)
	}

	toolMsg := wire[3].OfTool
	if toolMsg == nil {
		t.Fatal("wire[3] is not a tool message")
	}
	if toolMsg.ToolCallID != "call_1" {
		t.Fatalf("tool call id = %s, want call_1", toolMsg.ToolCallID)
	}
}

func TestToWireToolsCarriesSchema(t *testing.T) {
	t.Parallel()

	specs := []contract.ToolSpec{{
		Name:        "get_user",
		Description: "Looks up a user.",
		InputSchema: contract.InputSchema{
			Type: "object",
			Properties: map[string]contract.Property{
				"key": {Type: "string", Enum: []string{"email", "phone", "username"}},
			},
			Required: []string{"key"},
		},
	}}

	wire := toWireTools(specs)
	if len(wire) != 1 {
		t.Fatalf("wire tools = %d", len(wire))
	}
	if wire[0].Function.Name != "get_user" {
		t.Fatalf("name = %s", wire[0].Function.Name)
	}
	if wire[0].Function.Parameters["type"] != "object" {
		t.Fatalf("parameters = %+v", wire[0].Function.Parameters)
	}
}

func TestFromWireChoiceToolCalls(t *testing.T) {
	t.Parallel()

	choice := openaisdk.ChatCompletionChoice{
		FinishReason: "tool_calls",
		Message: openaisdk.ChatCompletionMessage{
			Content: "Let me check.",
			ToolCalls: []openaisdk.ChatCompletionMessageToolCall{{
				ID: "call_9",
				Function: openaisdk.ChatCompletionMessageToolCallFunction{
					Name:      "get_order_by_id",
					Arguments: `{"order_id":"24601"}`,
				},
			}},
		},
	}

	resp, err := fromWireChoice(choice)
	if err != nil {
		t.Fatalf("fromWireChoice() error = %v", err)
	}
	if resp.StopReason != contract.StopToolUse {
		t.Fatalf("stop reason = %s", resp.StopReason)
	}

	var use *contract.ToolUse
	for _, block := range resp.Content {
		if block.ToolUse != nil {
			use = block.ToolUse
		}
	}
	if use == nil || use.ID != "call_9" || use.Name != "get_order_by_id" {
		t.Fatalf("tool use = %+v", use)
	}
	if use.Input["order_id"] != "24601" {
		t.Fatalf("input = %+v", use.Input)
	}
}

func TestFromWireChoicePlainReply(t *testing.T) {
	t.Parallel()

	choice := openaisdk.ChatCompletionChoice{
		FinishReason: "stop",
		Message:      openaisdk.ChatCompletionMessage{Content: "<reply>Hi!</reply>"},
	}

	resp, err := fromWireChoice(choice)
	if err != nil {
		t.Fatalf("fromWireChoice() error = %v", err)
	}
	if resp.StopReason != contract.StopEndTurn {
		t.Fatalf("stop reason = %s", resp.StopReason)
	}
	if len(resp.Content) != 1 || resp.Content[0].Text != "<reply>Hi!</reply>" {
		t.Fatalf("content = %+v", resp.Content)
	}
}

func TestFromWireChoiceEmpty(t *testing.T) {
	t.Parallel()

	_, err := fromWireChoice(openaisdk.ChatCompletionChoice{})
	if !errors.Is(err, contract.ErrEmptyResponse) {
		t.Fatalf("error = %v, want ErrEmptyResponse", err)
	}
}
