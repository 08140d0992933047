package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// WriteSSE drains events onto w as server-sent-event frames until the channel
// closes or the client disconnects, then appends a terminal done frame.
func WriteSSE(w http.ResponseWriter, r *http.Request, events <-chan Event) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				writeFrame(w, Event{Type: EventDone})
				flush()
				return
			}
			writeFrame(w, ev)
			flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		payload, _ = json.Marshal(Event{Type: EventError, Message: err.Error()})
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
