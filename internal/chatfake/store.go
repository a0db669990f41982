package chatfake

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

// Domain errors surfaced to the frontend as the "error" field
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("username must be 3-30 letters, digits or underscores")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnknownUser        = errors.New("user not found")
	ErrUnknownChat        = errors.New("chat not found")
	ErrAlreadyFriends     = errors.New("already friends")
	ErrNoRequest          = errors.New("no pending friend request")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrNotMember          = errors.New("not a member of this chat")
)

const (
	scryptN      = 1 << 14
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// Message status as shown by the sender's checkmarks
const (
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// User is the public view of an account, also stored client-side as chatUser
type User struct {
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Avatar      string   `json:"avatar"`
	Theme       string   `json:"theme"`
	PinnedChats []string `json:"pinned_chats"`
}

// Group is a named multi-user chat
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Creator   string    `json:"creator"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one chat line
type Message struct {
	ID        string    `json:"id"`
	Chat      string    `json:"chat"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	ReplyTo   string    `json:"replyTo,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	SeenBy    []string  `json:"seenBy"`
}

// FriendRequest is a pending request towards a user
type FriendRequest struct {
	From        string `json:"from"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

type account struct {
	user User
	hash string
}

// Store is the in-memory state of the fake application
type Store struct {
	mu       sync.RWMutex
	users    map[string]*account
	friends  map[string]map[string]bool
	requests map[string][]string // to -> from, in arrival order
	groups   map[string]*Group
	order    []string // group IDs in creation order
	messages map[string][]*Message
	sessions map[string]string // session ID -> username
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*account),
		friends:  make(map[string]map[string]bool),
		requests: make(map[string][]string),
		groups:   make(map[string]*Group),
		messages: make(map[string][]*Message),
		sessions: make(map[string]string),
		now:      time.Now,
	}
}

// AvatarURL is the generated avatar for a display name
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + strings.ReplaceAll(strings.TrimSpace(name), " ", "+")
}

// DirectChat is the chat ID shared by two users
func DirectChat(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return "dm:" + pair[0] + ":" + pair[1]
}

// Register creates an account
func (s *Store) Register(username, password, displayName string) (User, error) {
	username = strings.TrimSpace(username)
	if !usernameRe.MatchString(username) {
		return User{}, ErrInvalidUsername
	}
	if len(password) < 6 {
		return User{}, ErrWeakPassword
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = username
	}

	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[strings.ToLower(username)]; ok {
		return User{}, ErrUsernameTaken
	}
	u := User{
		Username:    username,
		DisplayName: displayName,
		Avatar:      AvatarURL(displayName),
		Theme:       "light",
		PinnedChats: []string{},
	}
	s.users[strings.ToLower(username)] = &account{user: u, hash: hash}
	return u, nil
}

// Login verifies credentials and opens a session
func (s *Store) Login(username, password string) (User, string, error) {
	s.mu.RLock()
	acct, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	s.mu.RUnlock()
	if !ok || !verifyPassword(password, acct.hash) {
		return User{}, "", ErrInvalidCredentials
	}

	sid := uuid.NewString()
	s.mu.Lock()
	s.sessions[sid] = acct.user.Username
	s.mu.Unlock()
	return acct.user, sid, nil
}

// Session returns the username behind a session ID
func (s *Store) Session(sid string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.sessions[sid]
	return u, ok
}

// Logout ends a session
func (s *Store) Logout(sid string) {
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
}

// User returns a user by name
func (s *Store) User(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.users[strings.ToLower(username)]
	if !ok {
		return User{}, ErrUnknownUser
	}
	return acct.user, nil
}

// Search returns users whose username or display name contains q, except self
func (s *Store) Search(q, self string) []User {
	q = strings.ToLower(strings.TrimSpace(q))
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []User
	if q == "" {
		return out
	}
	for key, acct := range s.users {
		if strings.EqualFold(acct.user.Username, self) {
			continue
		}
		if strings.Contains(key, q) || strings.Contains(strings.ToLower(acct.user.DisplayName), q) {
			out = append(out, acct.user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// RequestFriend records a friend request. A request crossing a pending one in
// the other direction makes the two users friends right away.
func (s *Store) RequestFriend(from, to string) (accepted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromAcct, ok := s.users[strings.ToLower(from)]
	if !ok {
		return false, ErrUnknownUser
	}
	toAcct, ok := s.users[strings.ToLower(to)]
	if !ok || fromAcct == toAcct {
		return false, ErrUnknownUser
	}
	from, to = fromAcct.user.Username, toAcct.user.Username

	if s.friends[from][to] {
		return false, ErrAlreadyFriends
	}
	if slices.Contains(s.requests[from], to) {
		s.befriend(from, to)
		return true, nil
	}
	if !slices.Contains(s.requests[to], from) {
		s.requests[to] = append(s.requests[to], from)
	}
	return false, nil
}

// AcceptFriend accepts the pending request from "from" to username
func (s *Store) AcceptFriend(username, from string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.requests[username], from) {
		return ErrNoRequest
	}
	s.befriend(username, from)
	return nil
}

func (s *Store) befriend(a, b string) {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		if s.friends[pair[0]] == nil {
			s.friends[pair[0]] = make(map[string]bool)
		}
		s.friends[pair[0]][pair[1]] = true
		s.requests[pair[0]] = slices.DeleteFunc(s.requests[pair[0]], func(u string) bool { return u == pair[1] })
	}
}

// Requests lists pending requests towards username
func (s *Store) Requests(username string) []FriendRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []FriendRequest{}
	for _, from := range s.requests[username] {
		u := s.users[strings.ToLower(from)].user
		out = append(out, FriendRequest{From: u.Username, DisplayName: u.DisplayName, Avatar: u.Avatar})
	}
	return out
}

// Friends lists the friends of username sorted by name
func (s *Store) Friends(username string) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []User{}
	for name := range s.friends[username] {
		out = append(out, s.users[strings.ToLower(name)].user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// CreateGroup creates a group with creator as its first member
func (s *Store) CreateGroup(name, creator string) (Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Group{}, errors.New("group name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.users[strings.ToLower(creator)]
	if !ok {
		return Group{}, ErrUnknownUser
	}
	g := &Group{
		ID:        uuid.NewString(),
		Name:      name,
		Avatar:    AvatarURL(name),
		Creator:   acct.user.Username,
		Members:   []string{acct.user.Username},
		CreatedAt: s.now(),
	}
	s.groups[g.ID] = g
	s.order = append(s.order, g.ID)
	return *g, nil
}

// JoinGroup adds username to a group
func (s *Store) JoinGroup(id, username string) (Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return Group{}, ErrUnknownChat
	}
	acct, ok := s.users[strings.ToLower(username)]
	if !ok {
		return Group{}, ErrUnknownUser
	}
	if !slices.Contains(g.Members, acct.user.Username) {
		g.Members = append(g.Members, acct.user.Username)
	}
	return *g, nil
}

// Groups lists the groups username belongs to, oldest first
func (s *Store) Groups(username string) []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Group{}
	for _, id := range s.order {
		g := s.groups[id]
		if slices.Contains(g.Members, username) {
			c := *g
			c.Members = slices.Clone(g.Members)
			out = append(out, c)
		}
	}
	return out
}

// members returns the users of a chat. Caller holds the lock.
func (s *Store) members(chat string) ([]string, error) {
	if rest, ok := strings.CutPrefix(chat, "dm:"); ok {
		a, b, ok := strings.Cut(rest, ":")
		if !ok || !s.friends[a][b] {
			return nil, ErrUnknownChat
		}
		return []string{a, b}, nil
	}
	g, ok := s.groups[chat]
	if !ok {
		return nil, ErrUnknownChat
	}
	return g.Members, nil
}

// Members returns the users of a chat
func (s *Store) Members(chat string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.members(chat)
	return slices.Clone(m), err
}

// Send appends a message to a chat
func (s *Store) Send(chat, user, text, replyTo string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := s.members(chat)
	if err != nil {
		return Message{}, err
	}
	if !slices.Contains(members, user) {
		return Message{}, ErrNotMember
	}
	m := &Message{
		ID:        uuid.NewString(),
		Chat:      chat,
		User:      user,
		Text:      text,
		ReplyTo:   replyTo,
		Timestamp: s.now(),
		Status:    StatusDelivered,
		SeenBy:    []string{},
	}
	s.messages[chat] = append(s.messages[chat], m)
	return copyMessage(m), nil
}

// Messages returns the history of a chat for a member
func (s *Store) Messages(chat, user string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, err := s.members(chat)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(members, user) {
		return nil, ErrNotMember
	}

	out := make([]Message, 0, len(s.messages[chat]))
	for _, m := range s.messages[chat] {
		out = append(out, copyMessage(m))
	}
	return out, nil
}

// MarkRead records that reader has seen every message of chat sent by
// others. It returns the number of messages that changed.
func (s *Store) MarkRead(chat, reader string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := s.members(chat)
	if err != nil {
		return 0, err
	}
	if !slices.Contains(members, reader) {
		return 0, ErrNotMember
	}

	changed := 0
	for _, m := range s.messages[chat] {
		if m.User == reader || slices.Contains(m.SeenBy, reader) {
			continue
		}
		m.SeenBy = append(m.SeenBy, reader)
		m.Status = StatusRead
		changed++
	}
	return changed, nil
}

// SeenBy lists who has read a message
func (s *Store) SeenBy(chat, id string) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages[chat] {
		if m.ID != id {
			continue
		}
		out := []User{}
		for _, name := range m.SeenBy {
			out = append(out, s.users[strings.ToLower(name)].user)
		}
		return out, nil
	}
	return nil, fmt.Errorf("message %s: %w", id, ErrUnknownChat)
}

func copyMessage(m *Message) Message {
	c := *m
	c.SeenBy = slices.Clone(m.SeenBy)
	return c
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

func verifyPassword(password, stored string) bool {
	saltHex, keyHex, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil {
		return false
	}
	got, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
