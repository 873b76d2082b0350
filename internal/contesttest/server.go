// Package contesttest is an in-process contest server speaking the same wire
// contract as the real one: bulk balloon load, send/cancel mutations, the
// balloon feed, member lookup and attendance submit. Integration tests and
// the demo binary run against it.
package contesttest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/contestkit/balloonpad/internal/attend"
	"github.com/contestkit/balloonpad/internal/balloon"
)

type feedConn struct {
	outbox chan balloon.Record
}

// Server holds the contest fixture state behind a mutex; it is not an actor
// because it exists only to exercise the client side.
type Server struct {
	mu          sync.Mutex
	records     map[balloon.Key]balloon.Record
	order       []balloon.Key // bulk load order
	members     map[string]attend.Member
	mutationErr string
	redirect    string
	feeds       map[*feedConn]struct{}

	router chi.Router
}

func New() *Server {
	s := &Server{
		records:  make(map[balloon.Key]balloon.Record),
		members:  make(map[string]attend.Member),
		feeds:    make(map[*feedConn]struct{}),
		redirect: "/contest/attend/done",
	}

	r := chi.NewRouter()
	r.Get("/balloon", s.handleBulkLoad)
	r.Post("/balloon", s.handleMutation)
	r.Get("/balloon-conn", s.handleFeed)
	r.Get("/member", s.handleMemberLookup)
	r.Post("/attend", s.handleAttend)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed installs records without emitting feed messages.
func (s *Server) Seed(records ...balloon.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.store(rec)
	}
}

// Push stores the record and emits it on every connected feed.
func (s *Server) Push(rec balloon.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(rec)
	s.broadcast(rec)
}

// AddMember registers a student for lookup.
func (s *Server) AddMember(m attend.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
}

// FailMutations makes every mutation respond 400 with the given message.
// An empty message restores normal behavior.
func (s *Server) FailMutations(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutationErr = message
}

// CloseFeeds disconnects every live feed, server side.
func (s *Server) CloseFeeds() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for fc := range s.feeds {
		close(fc.outbox)
		delete(s.feeds, fc)
	}
}

// store and broadcast require s.mu held.
func (s *Server) store(rec balloon.Record) {
	if _, ok := s.records[rec.Key()]; !ok {
		s.order = append(s.order, rec.Key())
	}
	s.records[rec.Key()] = rec
}

func (s *Server) broadcast(rec balloon.Record) {
	for fc := range s.feeds {
		select {
		case fc.outbox <- rec:
		default:
			close(fc.outbox)
			delete(s.feeds, fc)
		}
	}
}

func (s *Server) handleBulkLoad(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pending := make([]balloon.Record, 0, len(s.order))
	for _, k := range s.order {
		if rec := s.records[k]; !rec.Delivered {
			pending = append(pending, rec)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Balloons []balloon.Record `json:"balloons"`
	}{Balloons: pending})
}

type mutationRequest struct {
	Operation string `json:"operation"`
	ContestID int64  `json:"contest_id"`
	TeamID    int64  `json:"team_id"`
	ProblemID string `json:"problem_id"`
}

func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	s.mu.Lock()
	if s.mutationErr != "" {
		msg := s.mutationErr
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	key := balloon.Key{ContestID: req.ContestID, TeamID: req.TeamID, ProblemID: req.ProblemID}
	rec, ok := s.records[key]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "no such balloon")
		return
	}

	switch balloon.Operation(req.Operation) {
	case balloon.OpSend:
		rec.Delivered = true
	case balloon.OpCancel:
		rec.Delivered = false
	default:
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "unknown operation")
		return
	}
	s.store(rec)
	// The feed, not the response body, is how clients learn about the move.
	s.broadcast(rec)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	fc := &feedConn{outbox: make(chan balloon.Record, 16)}
	s.mu.Lock()
	s.feeds[fc] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if _, ok := s.feeds[fc]; ok {
			close(fc.outbox)
			delete(s.feeds, fc)
		}
		s.mu.Unlock()
	}()

	for {
		select {
		case rec, ok := <-fc.outbox:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			payload, _ := json.Marshal(rec)
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			err := conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				conn.CloseNow()
				return
			}
		case <-r.Context().Done():
			conn.CloseNow()
			return
		}
	}
}

func (s *Server) handleMemberLookup(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	suffix := r.URL.Query().Get("citizen_id_suffix")

	s.mu.Lock()
	m, ok := s.members[studentID]
	s.mu.Unlock()

	if !ok || m.CitizenSuffix != suffix {
		writeError(w, http.StatusNotFound, "verification failed")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleAttend(w http.ResponseWriter, r *http.Request) {
	var sub attend.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if len(sub.MemberIDs) == 0 {
		writeError(w, http.StatusBadRequest, "team has no members")
		return
	}

	s.mu.Lock()
	redirect := s.redirect
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Redirect string `json:"redirect"`
	}{Redirect: redirect})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, struct {
		Message string `json:"message"`
	}{Message: message})
}
