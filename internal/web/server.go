// Package web provides the HTTP status and control surface for the
// signal-controller daemon.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/signal-controller/internal/logic"
	"github.com/sweeney/signal-controller/internal/status"
)

// Op is a control operation requested over HTTP.
type Op string

const (
	OpPause     Op = "pause"
	OpResume    Op = "resume"
	OpReset     Op = "reset"
	OpEmergency Op = "emergency"
	OpInject    Op = "inject"
)

// Command is one control request forwarded to the run loop.
type Command struct {
	Op     Op
	Lane   logic.Lane
	Amount int
}

// Server serves the status page, JSON, metrics, and control endpoints.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   chan<- Command
}

// New creates a Server. Control requests are forwarded on the commands
// channel without blocking; if the run loop is backed up, the request is
// rejected with 503.
func New(addr string, tracker *status.Tracker, commands chan<- Command, gatherer prometheus.Gatherer) *Server {
	s := &Server{tracker: tracker, commands: commands}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/control/", s.handleControl)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

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
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cmd, err := parseControl(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case s.commands <- cmd:
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, "%s accepted\n", cmd.Op)
	default:
		http.Error(w, "controller busy", http.StatusServiceUnavailable)
	}
}

func parseControl(r *http.Request) (Command, error) {
	op := Op(r.URL.Path[len("/control/"):])
	switch op {
	case OpPause, OpResume, OpReset:
		return Command{Op: op}, nil
	case OpEmergency:
		lane := r.URL.Query().Get("lane")
		if lane == "" {
			return Command{}, fmt.Errorf("emergency requires lane parameter")
		}
		return Command{Op: op, Lane: logic.Lane(lane)}, nil
	case OpInject:
		lane := r.URL.Query().Get("lane")
		if lane == "" {
			return Command{}, fmt.Errorf("inject requires lane parameter")
		}
		amount := 1
		if a := r.URL.Query().Get("amount"); a != "" {
			n, err := strconv.Atoi(a)
			if err != nil {
				return Command{}, fmt.Errorf("bad amount %q", a)
			}
			amount = n
		}
		return Command{Op: op, Lane: logic.Lane(lane), Amount: amount}, nil
	default:
		return Command{}, fmt.Errorf("unknown control operation %q", op)
	}
}
