// Package roomservicetest provides an in-process room service admin API for tests.
package roomservicetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"voice-broker/internal/auth"
	"voice-broker/internal/roomservice"
)

// Call is one admin RPC received by the server.
type Call struct {
	Method       string
	Room         string
	EmptyTimeout int64
	Claims       auth.Claims
}

// Server verifies bearer admin tokens against Key and records calls.
type Server struct {
	*httptest.Server

	Key auth.Credentials

	mu     sync.Mutex
	calls  []Call
	status int
}

func NewServer(key auth.Credentials) *Server {
	s := &Server{Key: key, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// WSURL returns the server address with a ws:// scheme, as a channel would configure it.
func (s *Server) WSURL() string {
	return "ws://" + strings.TrimPrefix(s.URL, "http://")
}

// FailWith makes every subsequent call answer with status.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	prefix := "/" + roomservice.Namespace + "/"
	if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	method := strings.TrimPrefix(r.URL.Path, prefix)

	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims, err := auth.NewIssuer().Verify(raw, s.Key, time.Now())
	if err != nil || !claims.Video.IsAdmin() {
		http.Error(w, `{"code":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	var body struct {
		Name         string `json:"name"`
		Room         string `json:"room"`
		EmptyTimeout int64  `json:"empty_timeout"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"code":"malformed"}`, http.StatusBadRequest)
		return
	}
	room := body.Name
	if method == roomservice.MethodDeleteRoom {
		room = body.Room
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Room: room, EmptyTimeout: body.EmptyTimeout, Claims: claims})
	status := s.status
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusOK {
		_ = json.NewEncoder(w).Encode(map[string]any{"name": room})
		return
	}
	_, _ = w.Write([]byte(`{"code":"internal"}`))
}
