// Package web provides an HTTP status server for the button-sensor daemon.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
)

// recentOnIndex is the number of events listed on the HTML page.
const recentOnIndex = 10

// maxEventsLimit caps the limit query parameter of /events.json.
const maxEventsLimit = 1000

// EventLog provides recent events for display.
type EventLog interface {
	Recent(ctx context.Context, limit int) ([]logic.Event, error)
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	events     EventLog
}

// New creates a Server that reads state from the given tracker.
// events may be nil, in which case /events.json is not served.
func New(addr string, tracker *status.Tracker, events EventLog) *Server {
	s := &Server{tracker: tracker, events: events}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if events != nil {
		mux.HandleFunc("/events.json", s.handleEvents)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()

	var recent []logic.Event
	if s.events != nil {
		var err error
		recent, err = s.events.Recent(r.Context(), recentOnIndex)
		if err != nil {
			log.Printf("web: recent events: %v", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap, recent, s.events != nil); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// EventsJSON is the JSON representation of recent events.
type EventsJSON struct {
	Events []mqtt.ButtonPayload `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventsLimit)
	}

	events, err := s.events.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("web: recent events: %v", err)
		http.Error(w, "event history unavailable", http.StatusInternalServerError)
		return
	}

	out := EventsJSON{Events: make([]mqtt.ButtonPayload, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, mqtt.ButtonPayload{
			Timestamp: e.Timestamp.UTC().Format(mqtt.EventTimestampFormat),
			Name:      e.Button,
			Event:     string(e.Type),
			State:     string(e.State),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	data, _ := json.MarshalIndent(out, "", "  ")
	w.Write(data)
}
