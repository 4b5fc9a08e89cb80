// Package watchtest runs an in-process capture server that speaks the push,
// pull and clear protocol the viewer consumes.
package watchtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/funnyzak/reqwatch/internal/config"
	"github.com/funnyzak/reqwatch/pkg/capture"
)

// Server is a fake capture server. Every push connection receives the full
// list as an all event first, then new and clear events as they happen.
type Server struct {
	mu          sync.Mutex
	requests    []capture.Request
	sseClients  map[chan capture.Event]struct{}
	hub         *hub
	clearStatus int
	clock       time.Time
	pulls       []string

	router *mux.Router
	srv    *httptest.Server
}

// NewServer starts a fake server on a loopback port.
func NewServer() *Server {
	s := &Server{
		sseClients:  make(map[chan capture.Event]struct{}),
		hub:         newHub(),
		clearStatus: http.StatusOK,
		clock:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/SSEUpdate", s.handleSSE).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	s.router.HandleFunc("/requests", s.handleRequests).Methods(http.MethodGet)
	s.router.HandleFunc("/clear", s.handleClear).Methods(http.MethodGet)

	s.srv = httptest.NewServer(s.router)
	return s
}

// URL returns the base URL.
func (s *Server) URL() string { return s.srv.URL }

// ServerConfig returns endpoint settings pointing at the fake.
func (s *Server) ServerConfig() config.ServerConfig {
	return config.ServerConfig{
		BaseURL:      s.srv.URL,
		EventsPath:   "/SSEUpdate",
		WSPath:       "/ws",
		RequestsPath: "/requests",
		ClearPath:    "/clear",
		Timeout:      5 * time.Second,
	}
}

// Close disconnects every client and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	for ch := range s.sseClients {
		close(ch)
		delete(s.sseClients, ch)
	}
	s.mu.Unlock()

	s.hub.Close()
	s.srv.CloseClientConnections()
	s.srv.Close()
}

// Capture records a request and pushes it as a new event.
func (s *Server) Capture(method, url, body string, headers map[string]string) capture.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock = s.clock.Add(time.Second)
	req := capture.Request{
		ID:        capture.ID(uuid.NewString()),
		Timestamp: s.clock.Format(time.RFC3339Nano),
		Method:    method,
		URL:       url,
		Body:      body,
		Headers:   capture.EncodeHeaders(headers),
	}
	s.requests = append(s.requests, req)

	if ev, err := capture.NewRequestEvent(req); err == nil {
		s.broadcastLocked(ev)
	}
	return req
}

// Notify pushes an unnamed notification carrying no request data.
func (s *Server) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(capture.Event{Data: json.RawMessage(`"updated"`)})
}

// Push sends an arbitrary event, which need not be well formed.
func (s *Server) Push(name capture.EventName, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(capture.Event{Name: name, Data: json.RawMessage(data)})
}

// SetClearStatus makes the clear endpoint answer with code without purging
// anything when code is not 2xx.
func (s *Server) SetClearStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearStatus = code
}

// Requests returns the stored requests, oldest first.
func (s *Server) Requests() []capture.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capture.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Pulls returns the url parameter of every pull received so far.
func (s *Server) Pulls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.pulls))
	copy(out, s.pulls)
	return out
}

// Clients returns the number of connected push clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sseClients) + s.hub.Len()
}

// WaitForClients blocks until n push clients are connected or timeout passes.
func (s *Server) WaitForClients(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Clients() >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func (s *Server) broadcastLocked(ev capture.Event) {
	for ch := range s.sseClients {
		select {
		case ch <- ev:
		default:
		}
	}
	s.hub.Broadcast(ev)
}

func (s *Server) snapshotLocked() capture.Event {
	ev, _ := capture.NewListEvent(capture.EventAll, s.requests)
	return ev
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := make(chan capture.Event, 256)
	s.mu.Lock()
	ch <- s.snapshotLocked()
	s.sseClients[ch] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if _, ok := s.sseClients[ch]; ok {
			delete(s.sseClients, ch)
		}
		s.mu.Unlock()
	}()

	fmt.Fprint(w, "retry: 50\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Name == capture.EventNotify {
				fmt.Fprint(w, ": notification\n")
				fmt.Fprintf(w, "data: %s\n\n", "updated")
			} else {
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.hub.Upgrade(w, r, s.snapshotLocked()); err != nil {
		return
	}
}

// handleRequests answers newest first, as the capture server does.
func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("url")

	s.mu.Lock()
	s.pulls = append(s.pulls, filter)
	list := make([]capture.Request, 0, len(s.requests))
	for i := len(s.requests) - 1; i >= 0; i-- {
		if filter == "" || s.requests[i].URL == filter {
			list = append(list, s.requests[i])
		}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clearStatus < 200 || s.clearStatus >= 300 {
		w.WriteHeader(s.clearStatus)
		return
	}
	s.requests = nil
	ev, _ := capture.NewListEvent(capture.EventClear, nil)
	s.broadcastLocked(ev)
	w.WriteHeader(s.clearStatus)
}
