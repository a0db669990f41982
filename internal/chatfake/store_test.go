package chatfake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, s *Store, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := s.Register(n, "password", "User "+n)
		require.NoError(t, err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := NewStore()

	u, err := s.Register("userA", "password", "User A")
	require.NoError(t, err)
	assert.Equal(t, "User A", u.DisplayName)
	assert.Equal(t, "https://ui-avatars.com/api/?name=User+A", u.Avatar)
	assert.Equal(t, []string{}, u.PinnedChats)

	_, err = s.Register("usera", "password", "Again")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	_, err = s.Register("a", "password", "")
	assert.ErrorIs(t, err, ErrInvalidUsername)
	_, err = s.Register("userC", "123", "")
	assert.ErrorIs(t, err, ErrWeakPassword)

	got, sid, err := s.Login("userA", "password")
	require.NoError(t, err)
	assert.Equal(t, u, got)
	name, ok := s.Session(sid)
	require.True(t, ok)
	assert.Equal(t, "userA", name)

	s.Logout(sid)
	_, ok = s.Session(sid)
	assert.False(t, ok)

	_, _, err = s.Login("userA", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = s.Login("nobody", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordHash(t *testing.T) {
	h, err := hashPassword("secret1")
	require.NoError(t, err)
	assert.NotContains(t, h, "secret1")
	assert.True(t, verifyPassword("secret1", h))
	assert.False(t, verifyPassword("secret2", h))
	assert.False(t, verifyPassword("secret1", "plaintext"))
	assert.False(t, verifyPassword("secret1", "zz:zz"))

	h2, err := hashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, h, h2, "salted")
}

func TestSearch(t *testing.T) {
	s := NewStore()
	seedUsers(t, s, "userA", "userB", "mobile_user")

	got := s.Search("user", "userA")
	var names []string
	for _, u := range got {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"mobile_user", "userB"}, names)
	assert.Empty(t, s.Search("", "userA"))
	assert.Empty(t, s.Search("zzz", "userA"))
}

func TestFriendRequests(t *testing.T) {
	s := NewStore()
	seedUsers(t, s, "userA", "userB", "userC")

	accepted, err := s.RequestFriend("userA", "userB")
	require.NoError(t, err)
	assert.False(t, accepted)
	// duplicate requests collapse
	_, err = s.RequestFriend("userA", "userB")
	require.NoError(t, err)
	require.Len(t, s.Requests("userB"), 1)
	assert.Equal(t, "userA", s.Requests("userB")[0].From)
	assert.Empty(t, s.Requests("userA"))

	assert.ErrorIs(t, s.AcceptFriend("userB", "userC"), ErrNoRequest)
	require.NoError(t, s.AcceptFriend("userB", "userA"))
	assert.Empty(t, s.Requests("userB"))
	assert.Len(t, s.Friends("userA"), 1)
	assert.Equal(t, "userA", s.Friends("userB")[0].Username)

	_, err = s.RequestFriend("userB", "userA")
	assert.ErrorIs(t, err, ErrAlreadyFriends)
	_, err = s.RequestFriend("userA", "ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, err = s.RequestFriend("userA", "userA")
	assert.ErrorIs(t, err, ErrUnknownUser)

	// crossing requests befriend immediately
	_, err = s.RequestFriend("userC", "userA")
	require.NoError(t, err)
	accepted, err = s.RequestFriend("userA", "userC")
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Len(t, s.Friends("userA"), 2)
}

func TestDirectMessagesAndReceipts(t *testing.T) {
	s := NewStore()
	seedUsers(t, s, "userA", "userB", "userC")
	chat := DirectChat("userB", "userA")
	assert.Equal(t, "dm:userA:userB", chat)

	_, err := s.Send(chat, "userA", "Hello", "")
	assert.ErrorIs(t, err, ErrUnknownChat, "not friends yet")

	_, err = s.RequestFriend("userA", "userB")
	require.NoError(t, err)
	require.NoError(t, s.AcceptFriend("userB", "userA"))

	m, err := s.Send(chat, "userA", "Hello Checkmark", "")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, m.Status)
	_, err = s.Send(chat, "userA", "   ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = s.Send(chat, "userC", "hi", "")
	assert.ErrorIs(t, err, ErrNotMember)

	// the sender reading changes nothing
	n, err := s.MarkRead(chat, "userA")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.MarkRead(chat, "userB")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.MarkRead(chat, "userB")
	require.NoError(t, err)
	assert.Zero(t, n)

	msgs, err := s.Messages(chat, "userA")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, StatusRead, msgs[0].Status)
	assert.Equal(t, []string{"userB"}, msgs[0].SeenBy)

	seen, err := s.SeenBy(chat, m.ID)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "User userB", seen[0].DisplayName)

	_, err = s.Messages(chat, "userC")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestGroups(t *testing.T) {
	s := NewStore()
	seedUsers(t, s, "userA", "userB")

	g, err := s.CreateGroup("Test Group", "userA")
	require.NoError(t, err)
	assert.Equal(t, []string{"userA"}, g.Members)
	_, err = s.CreateGroup(" ", "userA")
	assert.Error(t, err)
	_, err = s.CreateGroup("x", "ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)

	assert.Len(t, s.Groups("userA"), 1)
	assert.Empty(t, s.Groups("userB"))

	_, err = s.JoinGroup("nope", "userB")
	assert.ErrorIs(t, err, ErrUnknownChat)
	g, err = s.JoinGroup(g.ID, "userB")
	require.NoError(t, err)
	assert.Equal(t, []string{"userA", "userB"}, g.Members)
	g, err = s.JoinGroup(g.ID, "userB")
	require.NoError(t, err)
	assert.Len(t, g.Members, 2)

	_, err = s.Send(g.ID, "userA", "Hello World", "")
	require.NoError(t, err)
	n, err := s.MarkRead(g.ID, "userB")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
