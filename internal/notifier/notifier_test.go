package notifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/chatcheck/internal/config"
	"github.com/ibeckermayer/chatcheck/internal/report"
)

type sentMail struct {
	to, subject, html, plain string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(to, subject, htmlBody, plainBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, htmlBody, plainBody})
	return nil
}

func TestNotifyFailure(t *testing.T) {
	failing := &report.Report{Subject: "[chatcheck] FAIL", HTMLBody: "<b>x</b>", PlainBody: "x"}

	t.Run("sends failing report", func(t *testing.T) {
		s := &fakeSender{}
		sent, err := New(s).NotifyFailure(failing, "dev@example.com")
		require.NoError(t, err)
		assert.True(t, sent)
		require.Len(t, s.sent, 1)
		assert.Equal(t, sentMail{"dev@example.com", "[chatcheck] FAIL", "<b>x</b>", "x"}, s.sent[0])
	})

	t.Run("skips passing report", func(t *testing.T) {
		s := &fakeSender{}
		sent, err := New(s).NotifyFailure(&report.Report{Passed: true}, "dev@example.com")
		require.NoError(t, err)
		assert.False(t, sent)
		assert.Empty(t, s.sent)
	})

	t.Run("needs recipient", func(t *testing.T) {
		_, err := New(&fakeSender{}).NotifyFailure(failing, "")
		assert.ErrorIs(t, err, ErrNoRecipient)
	})

	t.Run("propagates send error", func(t *testing.T) {
		boom := errors.New("relay down")
		_, err := New(&fakeSender{err: boom}).NotifyFailure(failing, "dev@example.com")
		assert.ErrorIs(t, err, boom)
	})
}

func TestNewFromConfig(t *testing.T) {
	_, err := NewFromConfig(config.EmailConfig{Provider: "pigeon"})
	assert.Error(t, err)

	_, err = NewFromConfig(config.EmailConfig{Provider: "smtp"})
	assert.Error(t, err)

	n, err := NewFromConfig(config.EmailConfig{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 1025, FromAddr: "bot@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, n)
}
