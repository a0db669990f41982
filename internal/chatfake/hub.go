package chatfake

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Event is pushed to connected pages when something they show changed
type Event struct {
	Type string `json:"type"`
	Chat string `json:"chat,omitempty"`
}

// Event types
const (
	EventMessages = "messages"
	EventFriends  = "friends"
	EventGroups   = "groups"
)

type client struct {
	username string
	conn     *websocket.Conn
	send     chan Event
}

// hub fans events out to the websocket clients of each user
type hub struct {
	upgrader websocket.Upgrader
	log      logrus.FieldLogger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func newHub(log logrus.FieldLogger) *hub {
	return &hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:      log,
		clients:  make(map[*client]struct{}),
	}
}

// serve upgrades the request and keeps the connection until the peer leaves
func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debugf("Websocket upgrade failed: %v", err)
		return
	}

	c := &client{username: username, conn: conn, send: make(chan Event, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()
	h.log.Debugf("Websocket connected: %s", username)

	go h.writeLoop(c)
	go h.readLoop(c)
}

// readLoop discards input; it only exists to notice the peer going away
func (h *hub) readLoop(c *client) {
	defer h.wg.Done()
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writeLoop(c *client) {
	defer h.wg.Done()
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			h.log.Debugf("Websocket write to %s failed: %v", c.username, err)
			c.conn.Close()
			break
		}
	}
	// drain so remove never blocks
	for range c.send {
	}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// notify sends ev to every connection of the given users
func (h *hub) notify(ev Event, users ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !slices.Contains(users, c.username) {
			continue
		}
		select {
		case c.send <- ev:
		default:
			h.log.Warnf("Dropping %s event for slow client %s", ev.Type, c.username)
		}
	}
}

// connected returns the number of open connections of username
func (h *hub) connected(username string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients {
		if c.username == username {
			n++
		}
	}
	return n
}

// close disconnects everyone and waits for the connection goroutines
func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(writeWait))
		c.conn.Close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}
