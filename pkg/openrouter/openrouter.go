// Package openrouter adapts any OpenAI-compatible chat-completions endpoint
// to the contract chat model. Tool-use blocks ride as tool_calls and
// tool-result messages as tool-role wire messages; the contract history
// itself is unchanged.
package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tanpawarit/technova-support-bot/agent/contract"
)

type Config struct {
	BaseURL  string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey   string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model    string        `envconfig:"MODEL" split_words:"true" required:"true"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL  string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName string        `envconfig:"SITE_NAME" split_words:"true"`
}

type Model struct {
	client *openaisdk.Client
	model  string
}

var _ contract.ChatModel = (*Model)(nil)

func New(cfg Config) (*Model, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter: api key is required")
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		return nil, fmt.Errorf("openrouter: model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	// OpenRouter attribution headers.
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	client := openaisdk.NewClient(opts...)
	return &Model{client: &client, model: modelName}, nil
}

func (m *Model) Generate(ctx context.Context, req contract.GenerateRequest) (*contract.ModelResponse, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(m.model),
		Messages: toWireMessages(req.System, req.Messages),
		Tools:    toWireTools(req.Tools),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(req.MaxTokens))
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openrouter: %w", contract.ErrEmptyResponse)
	}

	return fromWireChoice(completion.Choices[0])
}

// toWireMessages flattens the contract history onto chat-completions roles.
// A user message holding a tool result becomes a tool-role message keyed by
// the invocation id, which is how this wire format correlates results.
func toWireMessages(system string, messages []contract.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openaisdk.SystemMessage(system))
	}

	for _, msg := range messages {
		if msg.Role == contract.RoleAssistant {
			out = append(out, assistantWireMessage(msg))
			continue
		}

		var texts []string
		for _, block := range msg.Content {
			switch {
			case block.ToolResult != nil:
				out = append(out, openaisdk.ChatCompletionMessageParamUnion{
					OfTool: &openaisdk.ChatCompletionToolMessageParam{
						ToolCallID: block.ToolResult.ToolUseID,
						Content: openaisdk.ChatCompletionToolMessageParamContentUnion{
							OfString: openaisdk.String(block.ToolResult.Content),
						},
					},
				})
			case block.Text != "":
				texts = append(texts, block.Text)
			}
		}
		if len(texts) > 0 {
			out = append(out, openaisdk.UserMessage(strings.Join(texts, "\n")))
		}
	}
	return out
}

func assistantWireMessage(msg contract.Message) openaisdk.ChatCompletionMessageParamUnion {
	assistant := &openaisdk.ChatCompletionAssistantMessageParam{}

	var texts []string
	for _, block := range msg.Content {
		switch {
		case block.ToolUse != nil:
			args, err := json.Marshal(block.ToolUse.Input)
			if err != nil {
				args = []byte("{}")
			}
			assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
				ID: block.ToolUse.ID,
				Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
					Name:      block.ToolUse.Name,
					Arguments: string(args),
				},
			})
		case block.Text != "":
			texts = append(texts, block.Text)
		}
	}
	if len(texts) > 0 {
		assistant.Content = openaisdk.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openaisdk.String(strings.Join(texts, "\n")),
		}
	}

	return openaisdk.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

func toWireTools(tools []contract.ToolSpec) []openaisdk.ChatCompletionToolParam {
	if len(tools) == 0 {
		return nil
	}

	out := make([]openaisdk.ChatCompletionToolParam, len(tools))
	for i, tool := range tools {
		properties := make(map[string]any, len(tool.InputSchema.Properties))
		for name, prop := range tool.InputSchema.Properties {
			properties[name] = prop
		}
		out[i] = openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openaisdk.String(tool.Description),
				Parameters: openaisdk.FunctionParameters{
					"type":       tool.InputSchema.Type,
					"properties": properties,
					"required":   tool.InputSchema.Required,
				},
			},
		}
	}
	return out
}

func fromWireChoice(choice openaisdk.ChatCompletionChoice) (*contract.ModelResponse, error) {
	resp := &contract.ModelResponse{StopReason: contract.StopEndTurn}

	if choice.Message.Content != "" {
		resp.Content = append(resp.Content, contract.ContentBlock{Text: choice.Message.Content})
	}

	for _, call := range choice.Message.ToolCalls {
		input := map[string]any{}
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			if err := json.Unmarshal([]byte(args), &input); err != nil {
				return nil, fmt.Errorf("openrouter: decode tool arguments for %s: %w", call.Function.Name, err)
			}
		}
		resp.Content = append(resp.Content, contract.ContentBlock{
			ToolUse: &contract.ToolUse{ID: call.ID, Name: call.Function.Name, Input: input},
		})
	}

	if len(choice.Message.ToolCalls) > 0 || choice.FinishReason == "tool_calls" {
		resp.StopReason = contract.StopToolUse
	}
	if len(resp.Content) == 0 {
		return nil, contract.ErrEmptyResponse
	}
	return resp, nil
}
