package streaming

import (
	"regexp"
	"strings"
)

// Event types emitted while a workflow runs. The wire format mirrors what the
// frontend already consumes: one JSON object per SSE data frame.
const (
	EventToken     = "token"
	EventLLMStart  = "llm_start"
	EventToolStart = "tool_start"
	EventToolEnd   = "tool_end"
	EventNodeStart = "node_start"
	EventNodeEnd   = "node_end"
	EventResult    = "result"
	EventError     = "error"
	EventDone      = "done"
)

// Source is a citation extracted from web search output.
type Source struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// Event is a single progress frame streamed to the caller.
type Event struct {
	Type         string   `json:"type"`
	Node         string   `json:"node,omitempty"`
	Agent        string   `json:"agent,omitempty"`
	Name         string   `json:"name,omitempty"`
	Content      string   `json:"content,omitempty"`
	Input        string   `json:"input,omitempty"`
	OutputLength int      `json:"output_length,omitempty"`
	Sources      []Source `json:"sources,omitempty"`
	Data         any      `json:"data,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// Emitter receives workflow progress events. Implementations must be safe for
// concurrent use; researcher branches emit from many goroutines.
type Emitter interface {
	Emit(ev Event)
}

// NopEmitter discards all events. Used by the non-streaming endpoints.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// ChannelEmitter forwards events to a buffered channel for an SSE writer to
// drain. Progress events never block: if the consumer has fallen behind
// enough to fill the buffer, they are dropped rather than stalling the
// workflow. Terminal result and error frames are delivered unconditionally —
// the caller must always end up with either the report or an explicit fault,
// so Emit blocks on those until the consumer makes room. A writer that stops
// draining early must keep consuming until Close (see WriteSSE) so a pending
// terminal send cannot strand the workflow goroutine.
type ChannelEmitter struct {
	ch chan Event
}

func NewChannelEmitter(buffer int) *ChannelEmitter {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelEmitter{ch: make(chan Event, buffer)}
}

func (e *ChannelEmitter) Emit(ev Event) {
	switch ev.Type {
	case EventResult, EventError:
		e.ch <- ev
	default:
		select {
		case e.ch <- ev:
		default:
		}
	}
}

// Events exposes the receive side for the SSE writer.
func (e *ChannelEmitter) Events() <-chan Event {
	return e.ch
}

// Close signals the writer that no more events will arrive. Emit must not be
// called after Close.
func (e *ChannelEmitter) Close() {
	close(e.ch)
}

var (
	titledSourceRe = regexp.MustCompile(`\*\*([^*]+)\*\*\n\s+(https?://[^\s\n]+)`)
	bareURLRe      = regexp.MustCompile(`https?://[^\s\n]+`)
)

const maxExtractedSources = 8

// ExtractSources pulls citations out of formatted web search output.
// Search results are formatted as "**Title**\n   URL"; when that shape is not
// present it falls back to bare URLs.
func ExtractSources(output string) []Source {
	if output == "" {
		return nil
	}
	matches := titledSourceRe.FindAllStringSubmatch(output, maxExtractedSources)
	if len(matches) > 0 {
		sources := make([]Source, 0, len(matches))
		for _, m := range matches {
			sources = append(sources, Source{Title: strings.TrimSpace(m[1]), URL: strings.TrimSpace(m[2])})
		}
		return sources
	}
	urls := bareURLRe.FindAllString(output, maxExtractedSources)
	if len(urls) == 0 {
		return nil
	}
	sources := make([]Source, 0, len(urls))
	for _, u := range urls {
		sources = append(sources, Source{URL: strings.TrimSpace(u)})
	}
	return sources
}

