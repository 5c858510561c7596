package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zennify/zennify/internal/domain"
)

// startStream writes the event-stream headers.
func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

func writeEvent(w http.ResponseWriter, f http.Flusher, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	f.Flush()
}

func writePing(w http.ResponseWriter, f http.Flusher) {
	fmt.Fprint(w, ": ping\n\n")
	f.Flush()
}

// CloseStreams ends every open event stream. Regular requests are left to
// finish. Safe to call more than once.
func (s *Server) CloseStreams() {
	s.drainOnce.Do(func() { close(s.draining) })
}

// streamContext is done when the client goes away or CloseStreams is called.
func (s *Server) streamContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	go func() {
		select {
		case <-s.draining:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// handleEvents streams the caller's progression and auth events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		writeError(w, http.StatusNotFound, "event stream disabled")
		return
	}
	ctx, cancel := s.streamContext(r)
	defer cancel()
	sub := s.Hub.Subscribe(identityFrom(ctx).UserID)
	defer s.Hub.Unsubscribe(sub)

	flusher, ok := startStream(w)
	if !ok {
		return
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writePing(w, flusher)
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				s.log.Warn("marshal event", "type", string(ev.Type), "error", err)
				continue
			}
			writeEvent(w, flusher, string(ev.Type), raw)
			if ev.Type == domain.EventSignedOut && s.sessionEnded(r) {
				return
			}
		}
	}
}
