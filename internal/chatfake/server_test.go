package chatfake

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/chatcheck/internal/logging"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(logging.Discard())
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestPagesServed(t *testing.T) {
	_, ts := newTestServer(t)

	for path, marker := range map[string]string{
		"/":              `id="loginForm"`,
		"/app.html":      `id="sidebarToggleBtn"`,
		"/settings.html": `id="logoutBtn"`,
		"/app.js":        "directChat",
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, buf.String(), marker, path)
	}
}

func TestRegisterLoginAPI(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := postJSON(t, ts.URL+"/api/register", map[string]string{
		"username": "testuser1", "password": "password", "displayName": "Test User",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = postJSON(t, ts.URL+"/api/register", map[string]string{
		"username": "testuser1", "password": "password", "displayName": "Test User",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, ErrUsernameTaken.Error(), body["error"])

	resp, body = postJSON(t, ts.URL+"/api/login", map[string]string{"username": "testuser1", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, body = postJSON(t, ts.URL+"/api/login", map[string]string{"username": "testuser1", "password": "password"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, "testuser1", user["username"])
	assert.Equal(t, "Test User", user["displayName"])

	var sid *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			sid = c
		}
	}
	require.NotNil(t, sid)
	assert.True(t, sid.HttpOnly)

	resp, err := http.Post(ts.URL+"/api/login", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFriendsAndReadReceiptsAPI(t *testing.T) {
	s, ts := newTestServer(t)
	seedUsers(t, s.Store(), "userA", "userB")

	search := getJSON(t, ts.URL+"/api/users/search?q=userB&username=userA")
	assert.Len(t, search["users"], 1)

	_, body := postJSON(t, ts.URL+"/api/friends/request", map[string]string{"from": "userA", "to": "userB"})
	require.Equal(t, true, body["success"])
	reqs := getJSON(t, ts.URL+"/api/friends/requests?username=userB")
	require.Len(t, reqs["requests"], 1)

	_, body = postJSON(t, ts.URL+"/api/friends/accept", map[string]string{"username": "userB", "from": "userA"})
	require.Equal(t, true, body["success"])
	friends := getJSON(t, ts.URL+"/api/friends?username=userA")
	require.Len(t, friends["friends"], 1)

	chat := DirectChat("userA", "userB")
	_, body = postJSON(t, ts.URL+"/api/messages", map[string]string{"chat": chat, "user": "userA", "text": "Hello Checkmark"})
	require.Equal(t, true, body["success"])
	msg := body["message"].(map[string]any)
	assert.Equal(t, StatusDelivered, msg["status"])

	_, body = postJSON(t, ts.URL+"/api/read", map[string]string{"chat": chat, "username": "userB"})
	assert.Equal(t, float64(1), body["updated"])

	msgs := getJSON(t, ts.URL+"/api/messages?chat="+chat+"&username=userA")["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, StatusRead, msgs[0].(map[string]any)["status"])

	seen := getJSON(t, ts.URL+"/api/messages/seen?chat="+chat+"&id="+msg["id"].(string))
	assert.Len(t, seen["seenBy"], 1)

	resp, _ := postJSON(t, ts.URL+"/api/messages", map[string]string{"chat": "dm:x:y", "user": "x", "text": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGroupsAPI(t *testing.T) {
	s, ts := newTestServer(t)
	seedUsers(t, s.Store(), "userA", "userB")

	_, body := postJSON(t, ts.URL+"/api/groups", map[string]string{"name": "Test Group", "creator": "userA"})
	require.Equal(t, true, body["success"])
	id := body["group"].(map[string]any)["id"].(string)

	groups := getJSON(t, ts.URL+"/api/groups?username=userA")["groups"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, "Test Group", groups[0].(map[string]any)["name"])

	_, body = postJSON(t, ts.URL+"/api/groups/join", map[string]string{"groupId": id, "username": "userB"})
	require.Equal(t, true, body["success"])
	assert.Len(t, getJSON(t, ts.URL+"/api/groups?username=userB")["groups"], 1)

	resp, _ := postJSON(t, ts.URL+"/api/groups/join", map[string]string{"groupId": "missing", "username": "userB"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func dialWS(t *testing.T, ts *httptest.Server, username string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?username=" + username
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebsocketNotifiesMembers(t *testing.T) {
	s, ts := newTestServer(t)
	seedUsers(t, s.Store(), "userA", "userB", "userC")
	_, err := s.Store().RequestFriend("userA", "userB")
	require.NoError(t, err)
	require.NoError(t, s.Store().AcceptFriend("userB", "userA"))

	connA := dialWS(t, ts, "userA")
	connC := dialWS(t, ts, "userC")
	require.Eventually(t, func() bool {
		return s.hub.connected("userA") == 1 && s.hub.connected("userC") == 1
	}, 2*time.Second, 10*time.Millisecond)

	chat := DirectChat("userA", "userB")
	_, err = s.Store().Send(chat, "userA", "Hello", "")
	require.NoError(t, err)
	_, body := postJSON(t, ts.URL+"/api/read", map[string]string{"chat": chat, "username": "userB"})
	require.Equal(t, true, body["success"])

	require.NoError(t, connA.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, connA.ReadJSON(&ev))
	assert.Equal(t, Event{Type: EventMessages, Chat: chat}, ev)

	// userC is not part of the chat
	require.NoError(t, connC.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	assert.Error(t, connC.ReadJSON(&ev))
}

func TestWebsocketRequiresUsername(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloseDisconnectsClients(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dialWS(t, ts, "userA")
	require.Eventually(t, func() bool { return s.hub.connected("userA") == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, s.hub.connected("userA"))
}
