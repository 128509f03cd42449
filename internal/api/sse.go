package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// eventsHandler streams progress events as server-sent events. A
// client reconnecting with Last-Event-ID (or ?since=) first receives
// the retained events it missed, then the live feed.
func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		since := parseSince(r)
		live, cancel := cfg.Bus.Subscribe()
		defer cancel()

		lastSeq := since
		for _, evt := range cfg.Bus.Since(since) {
			writeEvent(w, evt.Seq, evt)
			lastSeq = evt.Seq
		}
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, open := <-live:
				if !open {
					return
				}
				// The replay pass may already have covered this event.
				if evt.Seq <= lastSeq {
					continue
				}
				writeEvent(w, evt.Seq, evt)
				lastSeq = evt.Seq
				flusher.Flush()
			}
		}
	}
}

func parseSince(r *http.Request) uint64 {
	raw := r.Header.Get("Last-Event-ID")
	if q := r.URL.Query().Get("since"); q != "" {
		raw = q
	}
	if raw == "" {
		return 0
	}
	since, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return since
}

func writeEvent(w http.ResponseWriter, seq uint64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\ndata: %s\n\n", seq, data)
}
