package models

import (
	"time"

	"dsa-copilot/pkg/memory/buffer"
)

// Error captures a session fault with the message that triggered it.
type Error struct {
	Err     error       `json:"error,omitempty"`
	Message interface{} `json:"message,omitempty"`
	Time    *time.Time  `json:"time,omitempty"`
}

// Session is the externally visible state of one assistant conversation.
type Session struct {
	State   State           `json:"state"`
	History buffer.Memories `json:"history"`
	Errs    Error           `json:"error,omitempty"`
}

// HandlerResult is what an agent handler returns to its actor.
type HandlerResult struct {
	Reply      string
	Iterations int
	Error      error
}
