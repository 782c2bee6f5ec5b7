// Package web provides the HTTP status and control server for the reflow-oven daemon.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sweeney/reflow-oven/internal/command"
	"github.com/sweeney/reflow-oven/internal/logic"
	"github.com/sweeney/reflow-oven/internal/status"
)

// DefaultDisplayInterval is how often websocket clients receive a snapshot.
const DefaultDisplayInterval = 3 * time.Second

const wsWriteWait = 10 * time.Second

// CommandSink accepts operator commands. *command.Queue satisfies it.
type CommandSink interface {
	Push(cmd logic.Command)
}

// Server serves the status page and accepts commands over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   CommandSink
	display    time.Duration
	upgrader   websocket.Upgrader

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a Server that reads state from the given tracker and pushes
// commands into sink. A nil sink disables the command endpoint.
func New(addr string, tracker *status.Tracker, sink CommandSink, display time.Duration) *Server {
	if display <= 0 {
		display = DefaultDisplayInterval
	}
	s := &Server{
		tracker:  tracker,
		commands: sink,
		display:  display,
		upgrader: websocket.Upgrader{
			CheckOrigin: sameOrigin,
		},
		done: make(chan struct{}),
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/index.html", s.handleIndex).Methods("GET")
	r.HandleFunc("/index.json", s.handleJSON).Methods("GET")
	r.Handle("/command/{name}", requireSameOrigin(http.HandlerFunc(s.handleCommand))).Methods("POST")
	r.HandleFunc("/ws", s.handleWS)
	return r
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server and ends websocket feeds.
func (s *Server) Shutdown(ctx context.Context) error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// sameOrigin reports whether a browser request came from a page served by
// this host. Requests without an Origin header (curl, scripts) pass.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host != "" && strings.EqualFold(u.Host, r.Host)
}

// requireSameOrigin refuses cross-site requests so that another page open in
// the operator's browser cannot start the heater.
func requireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameOrigin(r) {
			log.Printf("web: refused cross-origin %s %s from %q", r.Method, r.URL.Path, r.Header.Get("Origin"))
			writeCommandResponse(w, http.StatusForbidden, commandResponse{Error: "cross-origin request refused"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// commandResponse is the body returned by the command endpoint.
type commandResponse struct {
	Accepted string `json:"accepted,omitempty"`
	Error    string `json:"error,omitempty"`
}

func writeCommandResponse(w http.ResponseWriter, code int, resp commandResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

// handleCommand queues START or ABORT. Whether the command is valid for the
// current phase is decided by the controller on the next tick.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeCommandResponse(w, http.StatusServiceUnavailable, commandResponse{Error: "commands disabled"})
		return
	}

	cmd, err := command.Parse(mux.Vars(r)["name"])
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, command.ErrUnknownCommand) {
			code = http.StatusBadRequest
		}
		writeCommandResponse(w, code, commandResponse{Error: err.Error()})
		return
	}

	log.Printf("web: received command %s from %s", cmd, r.RemoteAddr)
	s.commands.Push(cmd)
	writeCommandResponse(w, http.StatusAccepted, commandResponse{Accepted: string(cmd)})
}

// handleWS streams a status snapshot on connect and then every display interval.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close and ping control messages are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket read: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.display)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(status.Build(s.tracker.Snapshot())); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-closed:
			return
		case <-s.done:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		}
	}
}
