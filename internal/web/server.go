// Package web provides an HTTP status server for the garage-door daemon.
package web

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"net"
	"net/http"

	"github.com/sweeney/garage-door/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	tmpl       *template.Template
	log        *slog.Logger
}

// New creates a Server that reads state from the given tracker. log may be nil.
func New(addr string, tracker *status.Tracker, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		tracker: tracker,
		tmpl:    indexTmpl,
		log:     log.With("component", "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)

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

	// Render fully before writing so a template failure can still become a 500.
	var buf bytes.Buffer
	if err := renderHTML(&buf, s.tmpl, s.tracker.Snapshot()); err != nil {
		s.log.Error("render status page failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.write(w, buf.Bytes())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	s.write(w, status.FormatJSON(snap))
}

// write sends body; a failure here means the client has gone away, so it is
// only logged.
func (s *Server) write(w http.ResponseWriter, body []byte) {
	if _, err := w.Write(body); err != nil {
		s.log.Warn("write response failed", "error", err)
	}
}
