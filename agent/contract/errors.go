package contract

import "errors"

var (
	// ErrInvalidKey is a schema-contract violation: a customer lookup key
	// outside the declared enum. Propagated as a hard failure, never fed
	// back into the conversation.
	ErrInvalidKey = errors.New("invalid lookup key")

	// ErrUnknownTool is returned by the dispatcher for names outside the
	// catalog. The loop stringifies it into the tool result so the model
	// can recover conversationally.
	ErrUnknownTool = errors.New("unknown tool")

	ErrModelInvoke   = errors.New("model invoke failed")
	ErrEmptyResponse = errors.New("model returned no content")
)
