package messages

import (
	"github.com/google/uuid"

	"dsa-copilot/internal/streaming"
)

// Chat asks an assistant session to answer one user message. Emitter may be
// nil for non-streaming callers.
type Chat struct {
	RequestID uuid.UUID
	Message   string
	// Context is optional frontend state (current screen, selected company)
	// injected into the system prompt.
	Context string
	Emitter streaming.Emitter
}

// ChatReply is the session's answer to a Chat request.
type ChatReply struct {
	Reply string
}

// GetStatus asks a session actor for its current state and history.
type GetStatus struct{}
