// Package page drives one browser session the way the verification flows
// need: navigate, fill, click, wait for conditions and capture screenshots.
package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/layout"
	"github.com/ibeckermayer/chatcheck/internal/types"
	"github.com/ibeckermayer/chatcheck/internal/wait"
)

// ErrNotFound is returned when a selector matches no element
var ErrNotFound = errors.New("element not found")

// ScreenshotSink stores captured screenshots
type ScreenshotSink interface {
	Screenshot(scenario, name string, png []byte) (types.Artifact, error)
}

// Timeouts bounds page operations
type Timeouts struct {
	// Action bounds a single browser round trip
	Action time.Duration
	// Wait is the default for Wait* helpers
	Wait time.Duration
	// Poll is the interval between condition checks
	Poll time.Duration
}

// Page wraps a session with the scenario's timeouts and artifact sink
type Page struct {
	session  *browser.Session
	scenario string
	sink     ScreenshotSink
	timeouts Timeouts
	log      logrus.FieldLogger

	mu    sync.Mutex
	shots []types.Artifact
}

// New binds a session to a scenario
func New(s *browser.Session, scenario string, sink ScreenshotSink, timeouts Timeouts, log logrus.FieldLogger) *Page {
	return &Page{
		session:  s,
		scenario: scenario,
		sink:     sink,
		timeouts: timeouts,
		log:      log,
	}
}

// Session returns the underlying browser session
func (p *Page) Session() *browser.Session { return p.session }

// Artifacts returns every screenshot captured through this page
func (p *Page) Artifacts() []types.Artifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.Artifact(nil), p.shots...)
}

// run executes actions on the session, bounded by ctx and the action timeout
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	ctx, cancel := p.actionContext(ctx)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// actionContext derives a context that carries the session's chromedp
// target while honoring cancellation of ctx.
func (p *Page) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	actx, cancel := context.WithTimeout(p.session.Context(), p.timeouts.Action)
	stop := context.AfterFunc(ctx, cancel)
	return actx, func() {
		stop()
		cancel()
	}
}

func (p *Page) waitOpts(timeout time.Duration) wait.Options {
	if timeout <= 0 {
		timeout = p.timeouts.Wait
	}
	return wait.Options{Timeout: timeout, Interval: p.timeouts.Poll}
}

// Goto navigates and waits for the load event
func (p *Page) Goto(ctx context.Context, url string) error {
	p.log.Debugf("Navigating to %s", url)
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Reload reloads the current page
func (p *Page) Reload(ctx context.Context) error {
	if err := p.run(ctx, chromedp.Reload()); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// URL returns the current location
func (p *Page) URL(ctx context.Context) (string, error) {
	var u string
	if err := p.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

// WaitURL waits until the location matches pattern (see MatchURL)
func (p *Page) WaitURL(ctx context.Context, pattern string, timeout time.Duration) error {
	var last string
	err := wait.Until(ctx, p.waitOpts(timeout), func(ctx context.Context) (bool, error) {
		u, err := p.URL(ctx)
		if err != nil {
			return false, err
		}
		last = u
		return MatchURL(pattern, u), nil
	})
	if err != nil {
		return fmt.Errorf("url %q never matched %q: %w", last, pattern, err)
	}
	return nil
}

// Fill replaces the value of an input by typing into it
func (p *Page) Fill(ctx context.Context, sel, value string) error {
	if err := p.WaitVisible(ctx, sel, 0); err != nil {
		return err
	}
	err := p.run(ctx,
		chromedp.SetValue(sel, "", chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill %s: %w", sel, err)
	}
	return nil
}

// Click clicks the first element matching sel once it is visible
func (p *Page) Click(ctx context.Context, sel string) error {
	if err := p.WaitVisible(ctx, sel, 0); err != nil {
		return err
	}
	if err := p.run(ctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

// ClickNth left-clicks the nth match of sel; negative n counts from the end
func (p *Page) ClickNth(ctx context.Context, sel string, n int) error {
	return p.mouseClick(ctx, sel, n)
}

// RightClick opens the context menu of the nth match of sel
func (p *Page) RightClick(ctx context.Context, sel string, n int) error {
	return p.mouseClick(ctx, sel, n, chromedp.ButtonType(input.Right))
}

// DoubleClick double-clicks the first match of sel
func (p *Page) DoubleClick(ctx context.Context, sel string) error {
	return p.mouseClick(ctx, sel, 0, chromedp.ClickCount(2))
}

// ClickText clicks the first match of sel whose text contains text
func (p *Page) ClickText(ctx context.Context, sel, text string) error {
	var idx int
	err := wait.Until(ctx, p.waitOpts(0), func(ctx context.Context) (bool, error) {
		script := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).findIndex(el => el.textContent.includes(%s))`, js(sel), js(text))
		if err := p.Evaluate(ctx, script, &idx); err != nil {
			return false, err
		}
		return idx >= 0, nil
	})
	if err != nil {
		return fmt.Errorf("no %s containing %q: %w", sel, text, err)
	}
	return p.mouseClick(ctx, sel, idx)
}

func (p *Page) mouseClick(ctx context.Context, sel string, n int, opts ...chromedp.MouseOption) error {
	if err := p.WaitVisible(ctx, sel, 0); err != nil {
		return err
	}

	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll)); err != nil {
		return fmt.Errorf("query %s: %w", sel, err)
	}
	idx := n
	if idx < 0 {
		idx = len(nodes) + n
	}
	if idx < 0 || idx >= len(nodes) {
		return fmt.Errorf("%s has %d matches, wanted index %d: %w", sel, len(nodes), n, ErrNotFound)
	}

	if err := p.run(ctx, chromedp.MouseClickNode(nodes[idx], opts...)); err != nil {
		return fmt.Errorf("click %s[%d]: %w", sel, idx, err)
	}
	return nil
}

// Evaluate runs script and decodes its result into out (which may be nil)
func (p *Page) Evaluate(ctx context.Context, script string, out interface{}) error {
	return p.run(ctx, chromedp.Evaluate(script, out))
}

// IsVisible reports whether sel matches a rendered element with a non-empty box
func (p *Page) IsVisible(ctx context.Context, sel string) (bool, error) {
	var visible bool
	err := p.Evaluate(ctx, fmt.Sprintf(isVisibleJS, js(sel)), &visible)
	return visible, err
}

// Count returns the number of elements matching sel
func (p *Page) Count(ctx context.Context, sel string) (int, error) {
	var n int
	err := p.Evaluate(ctx, fmt.Sprintf(`document.querySelectorAll(%s).length`, js(sel)), &n)
	return n, err
}

// CountSettled returns the number of elements matching sel once there is at
// least one, or once the count has stayed zero for settle. It is for lists
// the page fills asynchronously, where an early zero means "not loaded yet".
func (p *Page) CountSettled(ctx context.Context, sel string, settle time.Duration) (int, error) {
	var (
		n         int
		zeroSince time.Time
	)
	opts := p.waitOpts(0)
	if opts.Timeout < settle {
		opts.Timeout = settle + opts.Interval
	}
	err := wait.Until(ctx, opts, func(ctx context.Context) (bool, error) {
		var err error
		if n, err = p.Count(ctx, sel); err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
		if zeroSince.IsZero() {
			zeroSince = time.Now()
		}
		return time.Since(zeroSince) >= settle, nil
	})
	return n, err
}

// Text returns the text content of the first match of sel
func (p *Page) Text(ctx context.Context, sel string) (string, error) {
	var text *string
	if err := p.Evaluate(ctx, fmt.Sprintf(`(() => { const el = document.querySelector(%s); return el ? el.textContent : null; })()`, js(sel)), &text); err != nil {
		return "", err
	}
	if text == nil {
		return "", fmt.Errorf("%s: %w", sel, ErrNotFound)
	}
	return strings.TrimSpace(*text), nil
}

// HasClass reports whether the first match of sel carries class
func (p *Page) HasClass(ctx context.Context, sel, class string) (bool, error) {
	return p.HasClassNth(ctx, sel, 0, class)
}

// HasClassNth is HasClass for the nth match; negative n counts from the end
func (p *Page) HasClassNth(ctx context.Context, sel string, n int, class string) (bool, error) {
	var has *bool
	script := fmt.Sprintf(`(() => {
		const all = document.querySelectorAll(%s);
		const i = %d < 0 ? all.length + %d : %d;
		const el = all[i];
		return el ? el.classList.contains(%s) : null;
	})()`, js(sel), n, n, n, js(class))
	if err := p.Evaluate(ctx, script, &has); err != nil {
		return false, err
	}
	if has == nil {
		return false, fmt.Errorf("%s: %w", sel, ErrNotFound)
	}
	return *has, nil
}

// BoundingBox returns the viewport-relative rectangle of the first match of sel
func (p *Page) BoundingBox(ctx context.Context, sel string) (layout.Box, error) {
	var box *layout.Box
	if err := p.Evaluate(ctx, fmt.Sprintf(boundingBoxJS, js(sel)), &box); err != nil {
		return layout.Box{}, err
	}
	if box == nil {
		return layout.Box{}, fmt.Errorf("%s: %w", sel, ErrNotFound)
	}
	return *box, nil
}

// ViewportWidth returns window.innerWidth
func (p *Page) ViewportWidth(ctx context.Context) (float64, error) {
	var w float64
	err := p.Evaluate(ctx, `window.innerWidth`, &w)
	return w, err
}

// WaitVisible waits until sel is visible. timeout <= 0 uses the page default.
func (p *Page) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	err := wait.Until(ctx, p.waitOpts(timeout), func(ctx context.Context) (bool, error) {
		return p.IsVisible(ctx, sel)
	})
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", sel, err)
	}
	return nil
}

// WaitGone waits until sel is absent or hidden
func (p *Page) WaitGone(ctx context.Context, sel string, timeout time.Duration) error {
	err := wait.Until(ctx, p.waitOpts(timeout), func(ctx context.Context) (bool, error) {
		visible, err := p.IsVisible(ctx, sel)
		return !visible, err
	})
	if err != nil {
		return fmt.Errorf("waiting for %s to disappear: %w", sel, err)
	}
	return nil
}

// WaitText waits until the text of sel contains substr
func (p *Page) WaitText(ctx context.Context, sel, substr string, timeout time.Duration) error {
	var last string
	err := wait.Until(ctx, p.waitOpts(timeout), func(ctx context.Context) (bool, error) {
		text, err := p.Text(ctx, sel)
		last = text
		return strings.Contains(text, substr), err
	})
	if err != nil {
		return fmt.Errorf("%s text %q never contained %q: %w", sel, last, substr, err)
	}
	return nil
}

// WaitClass waits until the nth match of sel has (want=true) or lacks class
func (p *Page) WaitClass(ctx context.Context, sel string, n int, class string, want bool, timeout time.Duration) error {
	err := wait.Until(ctx, p.waitOpts(timeout), func(ctx context.Context) (bool, error) {
		has, err := p.HasClassNth(ctx, sel, n, class)
		return has == want, err
	})
	if err != nil {
		return fmt.Errorf("waiting for %s class %q=%v: %w", sel, class, want, err)
	}
	return nil
}

// WaitBox waits until the bounding box of sel satisfies pred and returns it
func (p *Page) WaitBox(ctx context.Context, sel string, pred func(layout.Box) bool, timeout time.Duration) (layout.Box, error) {
	var box layout.Box
	err := wait.Until(ctx, p.waitOpts(timeout), func(ctx context.Context) (bool, error) {
		b, err := p.BoundingBox(ctx, sel)
		if err != nil {
			return false, err
		}
		box = b
		return pred(b), nil
	})
	if err != nil {
		return box, fmt.Errorf("%s box %v never matched: %w", sel, box, err)
	}
	return box, nil
}

// SetLocalStorage stores value under key for the current origin
func (p *Page) SetLocalStorage(ctx context.Context, key, value string) error {
	return p.Evaluate(ctx, fmt.Sprintf(`localStorage.setItem(%s, %s)`, js(key), js(value)), nil)
}

// LocalStorage reads key for the current origin; ok is false when unset
func (p *Page) LocalStorage(ctx context.Context, key string) (value string, ok bool, err error) {
	var v *string
	if err := p.Evaluate(ctx, fmt.Sprintf(`localStorage.getItem(%s)`, js(key)), &v); err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// RemoveLocalStorage deletes key for the current origin
func (p *Page) RemoveLocalStorage(ctx context.Context, key string) error {
	return p.Evaluate(ctx, fmt.Sprintf(`localStorage.removeItem(%s)`, js(key)), nil)
}

// Screenshot captures the viewport and stores it under name
func (p *Page) Screenshot(ctx context.Context, name string) (types.Artifact, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return types.Artifact{}, fmt.Errorf("screenshot %s: %w", name, err)
	}
	a, err := p.sink.Screenshot(p.scenario, name, buf)
	if err != nil {
		return types.Artifact{}, err
	}

	p.mu.Lock()
	p.shots = append(p.shots, a)
	p.mu.Unlock()

	p.log.Infof("Captured %s", a.Path)
	return a, nil
}

// MatchURL reports whether u matches pattern. A pattern starting with "**"
// matches any URL whose path ends with the remainder; anything else must
// equal u, ignoring a trailing slash.
func MatchURL(pattern, u string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "**"); ok {
		if i := strings.IndexAny(u, "?#"); i >= 0 {
			u = u[:i]
		}
		return strings.HasSuffix(u, suffix)
	}
	return strings.TrimSuffix(pattern, "/") == strings.TrimSuffix(u, "/")
}

// js encodes s as a JavaScript string literal
func js(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

const isVisibleJS = `(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const style = window.getComputedStyle(el);
	if (style.display === 'none' || style.visibility === 'hidden') return false;
	const r = el.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
})()`

const boundingBoxJS = `(() => {
	const el = document.querySelector(%s);
	if (!el) return null;
	const r = el.getBoundingClientRect();
	return {x: r.x, y: r.y, width: r.width, height: r.height};
})()`
