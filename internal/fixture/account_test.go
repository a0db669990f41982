package fixture

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/chatcheck/internal/config"
	"github.com/ibeckermayer/chatcheck/internal/logging"
)

func TestMockUserJSON(t *testing.T) {
	u := MockUser("testuser", "Test User")
	data, err := json.Marshal(u)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "testuser", raw["username"])
	assert.Equal(t, "Test User", raw["displayName"])
	assert.Equal(t, "https://ui-avatars.com/api/?name=Test+User", raw["avatar"])
	assert.Equal(t, "light", raw["theme"])
	assert.Equal(t, []any{}, raw["pinned_chats"])
}

func TestAccountSuffix(t *testing.T) {
	cfg := config.Default()
	acct := cfg.Fixtures.Primary

	plain := New(cfg, nil, logging.Discard())
	assert.Equal(t, acct, plain.Account(acct))

	cfg.Fixtures.UniqueSuffix = true
	f := New(cfg, nil, logging.Discard())
	got := f.Account(acct)
	assert.True(t, strings.HasPrefix(got.Username, acct.Username+"_"))
	assert.Len(t, got.Username, len(acct.Username)+9)
	assert.Equal(t, acct.Password, got.Password)
	// stable for the lifetime of the fixtures
	assert.Equal(t, got, f.Account(acct))
	// distinct users keep distinct names
	assert.NotEqual(t, f.Account(cfg.Fixtures.Peer).Username, got.Username)
}
