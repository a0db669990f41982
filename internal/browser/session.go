package browser

import (
	"context"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// Viewport is the emulated screen of a session
type Viewport struct {
	Width  int64
	Height int64
	Mobile bool
}

// SessionOptions configures the page environment of a new session
type SessionOptions struct {
	Viewport  *Viewport
	UserAgent string
	// PromptText is typed into prompt() dialogs before they are accepted
	PromptText string
}

// Desktop leaves the window size configured on the allocator
func Desktop() SessionOptions {
	return SessionOptions{}
}

// Mobile emulates a 375x667 touch phone with an iPhone user agent
func Mobile() SessionOptions {
	return SessionOptions{
		Viewport:  &Viewport{Width: 375, Height: 667, Mobile: true},
		UserAgent: MobileUserAgent,
	}
}

func (o SessionOptions) actions() []chromedp.Action {
	var actions []chromedp.Action
	if o.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(o.UserAgent))
	}
	if o.Viewport != nil {
		var vopts []chromedp.EmulateViewportOption
		if o.Viewport.Mobile {
			vopts = append(vopts, chromedp.EmulateMobile, chromedp.EmulateTouch)
		}
		actions = append(actions, chromedp.EmulateViewport(o.Viewport.Width, o.Viewport.Height, vopts...))
	}
	return actions
}

// Session is one isolated tab. JavaScript dialogs are accepted
// automatically and their messages recorded.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	name   string
	log    logrus.FieldLogger

	mu         sync.Mutex
	dialogs    []string
	promptText string
}

func newSession(ctx context.Context, cancel context.CancelFunc, name string, log logrus.FieldLogger) *Session {
	return &Session{ctx: ctx, cancel: cancel, name: name, log: log}
}

// Name identifies the session in logs and artifacts
func (s *Session) Name() string { return s.name }

// Context is the chromedp context bound to the session's tab
func (s *Session) Context() context.Context { return s.ctx }

// Close closes the tab and its browser context
func (s *Session) Close() { s.cancel() }

// SetPromptText sets the text entered into subsequent prompt() dialogs
func (s *Session) SetPromptText(text string) {
	s.mu.Lock()
	s.promptText = text
	s.mu.Unlock()
}

// Dialogs returns the messages of every dialog shown so far, oldest first
func (s *Session) Dialogs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.dialogs...)
}

// LastDialog returns the most recent dialog message, or "" if none
func (s *Session) LastDialog() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dialogs) == 0 {
		return ""
	}
	return s.dialogs[len(s.dialogs)-1]
}

// SawDialog reports whether any dialog so far contained substr
func (s *Session) SawDialog(substr string) bool {
	for _, d := range s.Dialogs() {
		if strings.Contains(d, substr) {
			return true
		}
	}
	return false
}

func (s *Session) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *page.EventJavascriptDialogOpening:
		s.mu.Lock()
		s.dialogs = append(s.dialogs, ev.Message)
		prompt := s.promptText
		s.mu.Unlock()

		s.log.WithField("type", ev.Type).Infof("Dialog: %s", ev.Message)

		// Listeners must not block; the dialog is answered from a new goroutine
		go func() {
			accept := page.HandleJavaScriptDialog(true)
			if ev.Type == page.DialogTypePrompt {
				accept = accept.WithPromptText(prompt)
			}
			if err := chromedp.Run(s.ctx, accept); err != nil && s.ctx.Err() == nil {
				s.log.Warnf("Failed to accept dialog: %v", err)
			}
		}()
	}
}
