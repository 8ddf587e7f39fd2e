// Package claude adapts the Anthropic Messages API to the contract chat
// model. The contract's block and stop-reason model is native here, so the
// mapping is one-to-one.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tanpawarit/technova-support-bot/agent/contract"
)

type Config struct {
	APIKey  string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model   string        `envconfig:"MODEL" split_words:"true" default:"claude-sonnet-4-20250514"`
	BaseURL string        `envconfig:"BASE_URL" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
}

type Model struct {
	client *anthropic.Client
	model  string
}

var _ contract.ChatModel = (*Model)(nil)

func New(cfg Config) (*Model, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("claude: api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(2),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	client := anthropic.NewClient(opts...)
	return &Model{client: &client, model: strings.TrimSpace(cfg.Model)}, nil
}

func (m *Model) Generate(ctx context.Context, req contract.GenerateRequest) (*contract.ModelResponse, error) {
	messages, err := toSDKMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		Messages:  messages,
		MaxTokens: int64(req.MaxTokens),
		Tools:     toSDKTools(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}

	result, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude: create message: %w", err)
	}

	return fromSDKMessage(result)
}

func toSDKMessages(messages []contract.Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch {
			case block.ToolUse != nil:
				input, err := json.Marshal(block.ToolUse.Input)
				if err != nil {
					return nil, fmt.Errorf("claude: marshal tool input: %w", err)
				}
				// json.RawMessage passes through as the original object; a
				// plain []byte would be re-encoded as base64 by the SDK.
				blocks = append(blocks, anthropic.NewToolUseBlock(block.ToolUse.ID, json.RawMessage(input), block.ToolUse.Name))
			case block.ToolResult != nil:
				blocks = append(blocks, anthropic.NewToolResultBlock(block.ToolResult.ToolUseID, block.ToolResult.Content, false))
			case block.Text != "":
				blocks = append(blocks, anthropic.NewTextBlock(block.Text))
			}
		}
		if len(blocks) == 0 {
			continue
		}

		switch msg.Role {
		case contract.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		default:
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out, nil
}

func toSDKTools(tools []contract.ToolSpec) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		properties := make(map[string]any, len(tool.InputSchema.Properties))
		for name, prop := range tool.InputSchema.Properties {
			properties[name] = prop
		}
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Type:       "object",
					Properties: properties,
					Required:   tool.InputSchema.Required,
				},
			},
		}
	}
	return out
}

func fromSDKMessage(result *anthropic.Message) (*contract.ModelResponse, error) {
	resp := &contract.ModelResponse{
		StopReason: contract.StopEndTurn,
	}
	if string(result.StopReason) == string(contract.StopToolUse) {
		resp.StopReason = contract.StopToolUse
	}

	for _, block := range result.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content = append(resp.Content, contract.ContentBlock{Text: content.Text})
		case anthropic.ToolUseBlock:
			raw, err := json.Marshal(content.Input)
			if err != nil {
				return nil, fmt.Errorf("claude: encode tool input: %w", err)
			}
			input := map[string]any{}
			if err := json.Unmarshal(raw, &input); err != nil {
				return nil, fmt.Errorf("claude: decode tool input: %w", err)
			}
			resp.Content = append(resp.Content, contract.ContentBlock{
				ToolUse: &contract.ToolUse{ID: content.ID, Name: content.Name, Input: input},
			})
		}
	}
	return resp, nil
}
