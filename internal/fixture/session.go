package fixture

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

// StoredSession is what the app keeps client-side for a logged-in user
type StoredSession struct {
	Username   string            `json:"username"`
	ChatUser   string            `json:"chat_user"`
	Cookies    []*network.Cookie `json:"cookies,omitempty"`
	CapturedAt time.Time         `json:"captured_at"`
}

// sessionFile maps base URL -> username -> session
type sessionFile map[string]map[string]StoredSession

// SessionStore persists captured sessions so later runs can skip the login form
type SessionStore struct {
	path   string
	maxAge time.Duration

	mu sync.Mutex
}

// NewSessionStore creates a session store at the given path. Sessions older
// than maxAge are ignored; zero keeps them forever.
func NewSessionStore(path string, maxAge time.Duration) *SessionStore {
	return &SessionStore{path: path, maxAge: maxAge}
}

// Path is the backing file
func (ss *SessionStore) Path() string { return ss.path }

// Save records sess for baseURL, replacing any earlier session of the same user
func (ss *SessionStore) Save(baseURL string, sess StoredSession) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	file, err := ss.load()
	if err != nil {
		return err
	}
	if file[baseURL] == nil {
		file[baseURL] = make(map[string]StoredSession)
	}
	if sess.CapturedAt.IsZero() {
		sess.CapturedAt = time.Now()
	}
	file[baseURL][sess.Username] = sess
	return ss.write(file)
}

// Get returns the stored session of username for baseURL
func (ss *SessionStore) Get(baseURL, username string) (StoredSession, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	file, err := ss.load()
	if err != nil {
		return StoredSession{}, false
	}
	sess, ok := file[baseURL][username]
	if !ok {
		return StoredSession{}, false
	}
	if ss.maxAge > 0 && time.Since(sess.CapturedAt) > ss.maxAge {
		return StoredSession{}, false
	}
	return sess, true
}

// Forget drops the session of username for baseURL
func (ss *SessionStore) Forget(baseURL, username string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	file, err := ss.load()
	if err != nil {
		return err
	}
	if _, ok := file[baseURL][username]; !ok {
		return nil
	}
	delete(file[baseURL], username)
	return ss.write(file)
}

// Clear removes every stored session
func (ss *SessionStore) Clear() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	err := os.Remove(ss.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (ss *SessionStore) load() (sessionFile, error) {
	data, err := os.ReadFile(ss.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(sessionFile), nil
	}
	if err != nil {
		return nil, err
	}

	file := make(sessionFile)
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file, nil
}

func (ss *SessionStore) write(file sessionFile) error {
	if err := os.MkdirAll(filepath.Dir(ss.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ss.path, data, 0600)
}
