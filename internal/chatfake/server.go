// Package chatfake is a small in-process chat application that renders the
// same DOM the verification flows drive. It backs the browser tests and the
// serve-fixture command so the flows can be exercised without the real app.
package chatfake

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/sirupsen/logrus"
)

//go:embed static
var staticFiles embed.FS

// SessionCookie carries the server-side session opened by login
const SessionCookie = "sid"

// Server is the fake chat application
type Server struct {
	store *Store
	hub   *hub
	mux   *http.ServeMux
	log   logrus.FieldLogger
}

// New creates a server with an empty store
func New(log logrus.FieldLogger) *Server {
	s := &Server{
		store: NewStore(),
		hub:   newHub(log),
		mux:   http.NewServeMux(),
		log:   log,
	}
	s.routes()
	return s
}

// Store exposes the state for seeding and assertions
func (s *Server) Store() *Store { return s.store }

// Close disconnects websocket clients
func (s *Server) Close() { s.hub.close() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.mux.Handle("GET /", http.FileServer(http.FS(static)))

	s.mux.HandleFunc("POST /api/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/logout", s.handleLogout)
	s.mux.HandleFunc("GET /api/users/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/friends", s.handleFriends)
	s.mux.HandleFunc("GET /api/friends/requests", s.handleRequests)
	s.mux.HandleFunc("POST /api/friends/request", s.handleFriendRequest)
	s.mux.HandleFunc("POST /api/friends/accept", s.handleAccept)
	s.mux.HandleFunc("GET /api/groups", s.handleGroups)
	s.mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	s.mux.HandleFunc("POST /api/groups/join", s.handleJoinGroup)
	s.mux.HandleFunc("GET /api/messages", s.handleMessages)
	s.mux.HandleFunc("POST /api/messages", s.handleSend)
	s.mux.HandleFunc("GET /api/messages/seen", s.handleSeenBy)
	s.mux.HandleFunc("POST /api/read", s.handleRead)
	s.mux.HandleFunc("GET /ws", s.hub.serve)
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.store.Register(req.Username, req.Password, req.DisplayName)
	if err != nil {
		fail(w, err)
		return
	}
	s.log.Infof("Registered %s", u.Username)
	ok(w, map[string]any{"user": u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	u, sid, err := s.store.Login(req.Username, req.Password)
	if err != nil {
		fail(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	ok(w, map[string]any{"user": u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.store.Logout(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Path: "/", MaxAge: -1})
	ok(w, nil)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ok(w, map[string]any{"users": s.store.Search(q.Get("q"), q.Get("username"))})
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]any{"friends": s.store.Friends(r.URL.Query().Get("username"))})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]any{"requests": s.store.Requests(r.URL.Query().Get("username"))})
}

type friendRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Username string `json:"username"`
}

func (s *Server) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req friendRequest
	if !decode(w, r, &req) {
		return
	}
	accepted, err := s.store.RequestFriend(req.From, req.To)
	if err != nil {
		fail(w, err)
		return
	}
	s.hub.notify(Event{Type: EventFriends}, req.From, req.To)
	ok(w, map[string]any{"accepted": accepted})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	var req friendRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.store.AcceptFriend(req.Username, req.From); err != nil {
		fail(w, err)
		return
	}
	s.hub.notify(Event{Type: EventFriends}, req.Username, req.From)
	ok(w, nil)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]any{"groups": s.store.Groups(r.URL.Query().Get("username"))})
}

type groupRequest struct {
	Name     string `json:"name"`
	Creator  string `json:"creator"`
	GroupID  string `json:"groupId"`
	Username string `json:"username"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decode(w, r, &req) {
		return
	}
	g, err := s.store.CreateGroup(req.Name, req.Creator)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"group": g})
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decode(w, r, &req) {
		return
	}
	g, err := s.store.JoinGroup(req.GroupID, req.Username)
	if err != nil {
		fail(w, err)
		return
	}
	s.hub.notify(Event{Type: EventGroups}, g.Members...)
	ok(w, map[string]any{"group": g})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	msgs, err := s.store.Messages(q.Get("chat"), q.Get("username"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"messages": msgs})
}

type sendRequest struct {
	Chat    string `json:"chat"`
	User    string `json:"user"`
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := s.store.Send(req.Chat, req.User, req.Text, req.ReplyTo)
	if err != nil {
		fail(w, err)
		return
	}
	s.notifyChat(req.Chat)
	ok(w, map[string]any{"message": m})
}

func (s *Server) handleSeenBy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := s.store.SeenBy(q.Get("chat"), q.Get("id"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"seenBy": users})
}

type readRequest struct {
	Chat     string `json:"chat"`
	Username string `json:"username"`
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var req readRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := s.store.MarkRead(req.Chat, req.Username)
	if err != nil {
		fail(w, err)
		return
	}
	if n > 0 {
		s.notifyChat(req.Chat)
	}
	ok(w, map[string]any{"updated": n})
}

func (s *Server) notifyChat(chat string) {
	members, err := s.store.Members(chat)
	if err != nil {
		return
	}
	s.hub.notify(Event{Type: EventMessages, Chat: chat}, members...)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return false
	}
	return true
}

func ok(w http.ResponseWriter, body map[string]any) {
	if body == nil {
		body = map[string]any{}
	}
	body["success"] = true
	writeJSON(w, http.StatusOK, body)
}

func fail(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"success": false, "error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrAlreadyFriends):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownUser), errors.Is(err, ErrUnknownChat), errors.Is(err, ErrNoRequest):
		return http.StatusNotFound
	case errors.Is(err, ErrNotMember):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
