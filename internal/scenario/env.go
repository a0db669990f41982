package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/config"
	"github.com/ibeckermayer/chatcheck/internal/fixture"
	"github.com/ibeckermayer/chatcheck/internal/page"
	"github.com/ibeckermayer/chatcheck/internal/types"
)

// errorShotTimeout bounds the diagnostic screenshot after a failure, which
// is taken with a fresh context since the scenario's may be done
const errorShotTimeout = 10 * time.Second

// SessionOpener opens isolated browser sessions
type SessionOpener interface {
	NewSession(name string, opts browser.SessionOptions) (*browser.Session, error)
}

// Env is everything a scenario needs from the outside
type Env struct {
	Config   *config.Config
	Fixtures *fixture.Fixtures
	Log      logrus.FieldLogger

	name     string
	opener   SessionOpener
	sink     page.ScreenshotSink
	timeouts page.Timeouts

	mu     sync.Mutex
	checks []types.Check
	pages  []*page.Page
	closed bool
}

// NewEnv prepares the environment for one scenario run
func NewEnv(name string, cfg *config.Config, opener SessionOpener, sink page.ScreenshotSink, fixtures *fixture.Fixtures, log logrus.FieldLogger) *Env {
	return &Env{
		Config:   cfg,
		Fixtures: fixtures,
		Log:      log.WithField("scenario", name),
		name:     name,
		opener:   opener,
		sink:     sink,
		timeouts: page.Timeouts{
			Action: cfg.Timeouts.Action.Std(),
			Wait:   cfg.Timeouts.Wait.Std(),
			Poll:   cfg.Timeouts.PollInterval.Std(),
		},
	}
}

// URL resolves path against the target application
func (e *Env) URL(path string) string { return e.Config.URL(path) }

// OpenPage opens a new isolated session. The session is closed when the
// scenario ends.
func (e *Env) OpenPage(session string, opts browser.SessionOptions) (*page.Page, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("scenario %s already finished", e.name)
	}

	s, err := e.opener.NewSession(e.name+"/"+session, opts)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", session, err)
	}
	p := page.New(s, e.name, e.sink, e.timeouts, e.Log.WithField("session", session))
	e.pages = append(e.pages, p)
	return p, nil
}

// Check records a named assertion and returns passed so flows can stop on
// failures that later steps depend on
func (e *Env) Check(name string, passed bool, detail string, args ...interface{}) bool {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	e.mu.Lock()
	e.checks = append(e.checks, types.Check{Name: name, Passed: passed, Detail: detail})
	e.mu.Unlock()

	if passed {
		e.Log.Infof("PASS %s: %s", name, detail)
	} else {
		e.Log.Warnf("FAIL %s: %s", name, detail)
	}
	return passed
}

// Expect records a check that passes when err is nil
func (e *Env) Expect(name string, err error) bool {
	if err != nil {
		return e.Check(name, false, err.Error())
	}
	return e.Check(name, true, "ok")
}

// Checks returns the recorded checks in order
func (e *Env) Checks() []types.Check {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.Check(nil), e.checks...)
}

// Artifacts returns the screenshots of every session in open order
func (e *Env) Artifacts() []types.Artifact {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []types.Artifact
	for _, p := range e.pages {
		out = append(out, p.Artifacts()...)
	}
	return out
}

// Close closes every session the scenario opened
func (e *Env) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.pages {
		p.Session().Close()
	}
	e.closed = true
}

func (e *Env) captureErrors() {
	e.mu.Lock()
	pages := append([]*page.Page(nil), e.pages...)
	e.mu.Unlock()

	for i, p := range pages {
		name := "error"
		if len(pages) > 1 {
			name = fmt.Sprintf("error_%d", i+1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), errorShotTimeout)
		if _, err := p.Screenshot(ctx, name); err != nil {
			e.Log.Warnf("Failed to capture error screenshot: %v", err)
		}
		cancel()
	}
}
