package providers

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageParts(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := buildMessage("bot@example.com", "dev@example.com", "[chatcheck] FAIL", "<p>failed</p>", "failed", now)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "bot@example.com", msg.Header.Get("From"))
	assert.Equal(t, "dev@example.com", msg.Header.Get("To"))
	assert.Equal(t, "[chatcheck] FAIL", msg.Header.Get("Subject"))
	date, err := msg.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(now))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var types, bodies []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(part)
		require.NoError(t, err)
		types = append(types, part.Header.Get("Content-Type"))
		bodies = append(bodies, string(body))
	}
	assert.Equal(t, []string{`text/plain; charset="utf-8"`, `text/html; charset="utf-8"`}, types)
	assert.Equal(t, []string{"failed", "<p>failed</p>"}, bodies)
}

func TestBuildMessageUniqueBoundary(t *testing.T) {
	a := buildMessage("a", "b", "s", "h", "p", time.Now())
	b := buildMessage("a", "b", "s", "h", "p", time.Now())
	assert.NotEqual(t, a, b)
}
