// Package loop drives the tool-use orchestration cycle: send the history to
// the model, execute the tool it asks for, feed the result back, and repeat
// until the model ends its turn with a user-facing reply.
package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/technova-support-bot/agent/contract"
	replyx "github.com/tanpawarit/technova-support-bot/agent/reply"
)

const (
	DefaultMaxTokens     = 4096
	DefaultMaxToolRounds = 16
	DefaultFallbackReply = "Sorry, I couldn't put together a response. Could you rephrase that?"
)

// UserIO is the human-facing side of a session: one line in per turn, the
// extracted reply out. Reading blocks until input arrives or the stream ends.
type UserIO interface {
	ReadLine() (string, bool)
	ShowReply(text string)
}

// Loop owns the append-only message history of one session. Messages are
// never mutated or removed; the full history is resent on every inference
// call.
type Loop struct {
	model      contract.ChatModel
	dispatcher contract.Dispatcher

	system        string
	messages      []contract.Message
	maxTokens     int
	maxToolRounds int
	fallback      string
	onToolUse     func(name string)
}

// Option customizes the Loop.
type Option func(*Loop)

func WithSystemPrompt(system string) Option {
	return func(l *Loop) {
		l.system = system
	}
}

func WithMaxTokens(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxTokens = n
		}
	}
}

// WithMaxToolRounds caps consecutive tool executions within a single user
// turn so a runaway model cannot spin without new input.
func WithMaxToolRounds(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxToolRounds = n
		}
	}
}

func WithFallbackReply(text string) Option {
	return func(l *Loop) {
		if strings.TrimSpace(text) != "" {
			l.fallback = text
		}
	}
}

// WithToolUseNotifier registers a callback fired before each dispatch, for
// tool-use notices on the terminal.
func WithToolUseNotifier(fn func(name string)) Option {
	return func(l *Loop) {
		l.onToolUse = fn
	}
}

func New(model contract.ChatModel, dispatcher contract.Dispatcher, opts ...Option) (*Loop, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	if dispatcher == nil {
		return nil, errors.New("tool dispatcher is required")
	}

	l := &Loop{
		model:         model,
		dispatcher:    dispatcher,
		maxTokens:     DefaultMaxTokens,
		maxToolRounds: DefaultMaxToolRounds,
		fallback:      DefaultFallbackReply,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// History returns a snapshot of the session history.
func (l *Loop) History() []contract.Message {
	out := make([]contract.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Run reads user turns until the input stream ends. Recoverable trouble is
// folded into the conversation; only transport failures and schema-contract
// violations end the session.
func (l *Loop) Run(ctx context.Context, io UserIO) error {
	for {
		line, ok := io.ReadLine()
		if !ok {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		text, err := l.HandleTurn(ctx, line)
		if err != nil {
			return err
		}
		io.ShowReply(text)
	}
}

// HandleTurn appends one user message and drives inference/tool rounds until
// the model produces a final answer, returning the extracted reply.
func (l *Loop) HandleTurn(ctx context.Context, userText string) (string, error) {
	l.messages = append(l.messages, contract.TextMessage(contract.RoleUser, userText))

	rounds := 0
	for {
		resp, err := l.model.Generate(ctx, contract.GenerateRequest{
			System:    l.system,
			Messages:  l.messages,
			Tools:     l.dispatcher.Specs(),
			MaxTokens: l.maxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("%w: %v", contract.ErrModelInvoke, err)
		}
		if len(resp.Content) == 0 {
			return "", contract.ErrEmptyResponse
		}

		log.Debug().
			Str("stop_reason", string(resp.StopReason)).
			Int("history_len", len(l.messages)).
			Msg("model response")

		if resp.StopReason != contract.StopToolUse {
			return l.finishTurn(resp), nil
		}

		use := pickToolUse(resp.Content)
		if use == nil {
			return "", fmt.Errorf("%w: stop reason %s without a tool_use block", contract.ErrModelInvoke, resp.StopReason)
		}

		// The assistant's full content, tool-use block included, goes into
		// the history before the result message so the invocation id pairs
		// line up.
		l.messages = append(l.messages, contract.Message{
			Role:    contract.RoleAssistant,
			Content: resp.Content,
		})

		rounds++
		if rounds > l.maxToolRounds {
			return "", fmt.Errorf("tool rounds exceeded limit of %d in one turn", l.maxToolRounds)
		}

		if l.onToolUse != nil {
			l.onToolUse(use.Name)
		}
		log.Debug().Str("tool", use.Name).Str("tool_use_id", use.ID).Msg("dispatching tool")

		result, err := l.dispatcher.Dispatch(ctx, use.Name, use.Input)
		if err != nil {
			if errors.Is(err, contract.ErrInvalidKey) {
				// Schema-contract violation, not a conversational matter.
				return "", err
			}
			result = fmt.Sprintf("Tool call failed: %s", err)
		}

		l.messages = append(l.messages, contract.ToolResultMessage(use.ID, result))
	}
}

func (l *Loop) finishTurn(resp *contract.ModelResponse) string {
	assistant := contract.Message{Role: contract.RoleAssistant, Content: resp.Content}
	l.messages = append(l.messages, assistant)

	text, ok := assistant.FirstText()
	if !ok {
		log.Debug().Msg("assistant turn carried no text block")
		return l.fallback
	}

	out, ok := replyx.Extract(text)
	if !ok {
		log.Debug().Msg("no reply markers in assistant text")
		return l.fallback
	}
	return out
}

// pickToolUse selects the last tool-use block of the content sequence. The
// model emits the tool request as the final block after any thinking text,
// so the last one is the request to honor.
func pickToolUse(content []contract.ContentBlock) *contract.ToolUse {
	for i := len(content) - 1; i >= 0; i-- {
		if content[i].ToolUse != nil {
			return content[i].ToolUse
		}
	}
	return nil
}
