// Package fixture makes sure the accounts and client-side sessions the
// scenarios rely on exist before a flow starts.
package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/chatcheck/internal/chatui"
	"github.com/ibeckermayer/chatcheck/internal/config"
	"github.com/ibeckermayer/chatcheck/internal/page"
	"github.com/ibeckermayer/chatcheck/internal/wait"
)

// ErrAccountSetup is returned when an account can neither log in nor be registered
var ErrAccountSetup = errors.New("fixture account setup failed")

// ChatUser is the object the frontend keeps in localStorage after login
type ChatUser struct {
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Avatar      string   `json:"avatar"`
	Theme       string   `json:"theme"`
	PinnedChats []string `json:"pinned_chats"`
}

// MockUser builds a ChatUser with the avatar service URL the app itself uses
func MockUser(username, displayName string) ChatUser {
	return ChatUser{
		Username:    username,
		DisplayName: displayName,
		Avatar:      "https://ui-avatars.com/api/?name=" + strings.ReplaceAll(displayName, " ", "+"),
		Theme:       "light",
		PinnedChats: []string{},
	}
}

// Fixtures sets up accounts against one target application
type Fixtures struct {
	cfg      *config.Config
	sessions *SessionStore
	suffix   string
	log      logrus.FieldLogger
}

// New creates fixtures for cfg's target. sessions may be nil to always go
// through the login form.
func New(cfg *config.Config, sessions *SessionStore, log logrus.FieldLogger) *Fixtures {
	f := &Fixtures{cfg: cfg, sessions: sessions, log: log}
	if cfg.Fixtures.UniqueSuffix {
		f.suffix = "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return f
}

// Account applies the run's unique suffix, if any, to acct's username. The
// suffix is fixed for the lifetime of f so every scenario sees the same names.
func (f *Fixtures) Account(acct config.Account) config.Account {
	acct.Username += f.suffix
	return acct
}

// EnsureAccount leaves p logged in as acct on the chat page. It reuses a
// stored session when the app still accepts it, then tries the login form,
// and registers the account only when login fails.
func (f *Fixtures) EnsureAccount(ctx context.Context, p *page.Page, acct config.Account) error {
	log := f.log.WithField("user", acct.Username)

	if f.restore(ctx, p, acct) {
		log.Debug("Reused stored session")
		return nil
	}

	if err := p.Goto(ctx, f.cfg.URL(chatui.LoginPath)); err != nil {
		return err
	}

	// A leftover session of another user redirects straight to the chat page
	if f.onApp(ctx, p) {
		if f.loggedInAs(ctx, p, acct.Username) {
			return f.capture(ctx, p, acct.Username)
		}
		if err := f.Logout(ctx, p); err != nil {
			return err
		}
	}

	loginErr := f.Login(ctx, p, acct)
	if loginErr == nil {
		log.Debug("Logged in")
		return f.capture(ctx, p, acct.Username)
	}
	log.Infof("Login failed (%v), registering", loginErr)

	loggedIn, err := f.Register(ctx, p, acct)
	if err != nil {
		return fmt.Errorf("%w: register %s: %v", ErrAccountSetup, acct.Username, err)
	}
	if !loggedIn {
		if err := f.Login(ctx, p, acct); err != nil {
			return fmt.Errorf("%w: login %s after registering: %v", ErrAccountSetup, acct.Username, err)
		}
	}
	log.Info("Registered and logged in")
	return f.capture(ctx, p, acct.Username)
}

// Login submits the login form and waits for the chat page
func (f *Fixtures) Login(ctx context.Context, p *page.Page, acct config.Account) error {
	if err := f.showForm(ctx, p, chatui.LoginForm, chatui.ShowLoginLink); err != nil {
		return err
	}
	if err := p.Fill(ctx, chatui.LoginUsername, acct.Username); err != nil {
		return err
	}
	if err := p.Fill(ctx, chatui.LoginPassword, acct.Password); err != nil {
		return err
	}
	if err := p.Click(ctx, chatui.LoginSubmit); err != nil {
		return err
	}
	if err := p.WaitURL(ctx, chatui.AppURLPattern, f.cfg.Timeouts.Login.Std()); err != nil {
		if d := p.Session().LastDialog(); d != "" {
			return fmt.Errorf("login rejected (%q): %w", d, err)
		}
		return err
	}
	return p.WaitText(ctx, chatui.UserUsername, "@"+acct.Username, 0)
}

// Register submits the registration form. The app either confirms with a
// dialog and shows the login form, or logs the user in directly; loggedIn
// reports the latter. A rejection dialog (for instance an existing
// username) is not an error: the caller logs in next.
func (f *Fixtures) Register(ctx context.Context, p *page.Page, acct config.Account) (loggedIn bool, err error) {
	if err := f.showForm(ctx, p, chatui.RegisterForm, chatui.ShowRegisterLink); err != nil {
		return false, err
	}
	if err := p.Fill(ctx, chatui.RegisterUsername, acct.Username); err != nil {
		return false, err
	}
	if err := p.Fill(ctx, chatui.RegisterDisplay, acct.DisplayName); err != nil {
		return false, err
	}
	if err := p.Fill(ctx, chatui.RegisterPassword, acct.Password); err != nil {
		return false, err
	}

	before := len(p.Session().Dialogs())
	if err := p.Click(ctx, chatui.RegisterSubmit); err != nil {
		return false, err
	}

	err = wait.Until(ctx, wait.Options{Timeout: f.cfg.Timeouts.Wait.Std(), Interval: f.cfg.Timeouts.PollInterval.Std()},
		func(ctx context.Context) (bool, error) {
			if len(p.Session().Dialogs()) > before {
				return true, nil
			}
			u, err := p.URL(ctx)
			if err != nil {
				return false, err
			}
			if page.MatchURL(chatui.AppURLPattern, u) {
				loggedIn = true
				return true, nil
			}
			return false, nil
		})
	if err != nil {
		return false, fmt.Errorf("no response to registration: %w", err)
	}
	if !loggedIn {
		f.log.WithField("user", acct.Username).Debugf("Registration answered: %s", p.Session().LastDialog())
	}
	return loggedIn, nil
}

// Logout clears the client-side session and returns to the login page
func (f *Fixtures) Logout(ctx context.Context, p *page.Page) error {
	if err := p.RemoveLocalStorage(ctx, chatui.StorageKey); err != nil {
		return err
	}
	return p.Goto(ctx, f.cfg.URL(chatui.LoginPath))
}

// SeedSession writes user straight into localStorage, bypassing the server,
// and opens the chat page. The app trusts the stored object, so this works
// for users that do not exist server-side.
func (f *Fixtures) SeedSession(ctx context.Context, p *page.Page, user ChatUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return f.seedRaw(ctx, p, string(data))
}

func (f *Fixtures) seedRaw(ctx context.Context, p *page.Page, chatUser string) error {
	if err := p.Goto(ctx, f.cfg.URL(chatui.LoginPath)); err != nil {
		return err
	}
	if err := p.SetLocalStorage(ctx, chatui.StorageKey, chatUser); err != nil {
		return fmt.Errorf("failed to seed session: %w", err)
	}
	return p.Goto(ctx, f.cfg.URL(chatui.AppPath))
}

// showForm makes form visible, using the toggle link when it is hidden
func (f *Fixtures) showForm(ctx context.Context, p *page.Page, form, toggle string) error {
	visible, err := p.IsVisible(ctx, form)
	if err != nil {
		return err
	}
	if !visible {
		if err := p.Click(ctx, toggle); err != nil {
			return err
		}
	}
	return p.WaitVisible(ctx, form, 0)
}

func (f *Fixtures) onApp(ctx context.Context, p *page.Page) bool {
	u, err := p.URL(ctx)
	return err == nil && page.MatchURL(chatui.AppURLPattern, u)
}

func (f *Fixtures) loggedInAs(ctx context.Context, p *page.Page, username string) bool {
	return p.WaitText(ctx, chatui.UserUsername, "@"+username, f.cfg.Timeouts.Login.Std()) == nil
}

// restore tries the stored session of acct. On failure the page is left
// logged out.
func (f *Fixtures) restore(ctx context.Context, p *page.Page, acct config.Account) bool {
	if f.sessions == nil {
		return false
	}
	sess, ok := f.sessions.Get(f.cfg.Target.BaseURL, acct.Username)
	if !ok {
		return false
	}

	if err := f.seedRaw(ctx, p, sess.ChatUser); err != nil {
		return false
	}
	if len(sess.Cookies) > 0 {
		if err := p.SetCookies(ctx, sess.Cookies); err != nil {
			f.log.Warnf("Failed to restore cookies: %v", err)
		}
	}
	if f.onApp(ctx, p) && f.loggedInAs(ctx, p, acct.Username) {
		return true
	}

	if err := f.Logout(ctx, p); err != nil {
		f.log.Warnf("Failed to clear rejected session: %v", err)
	}
	if err := f.sessions.Forget(f.cfg.Target.BaseURL, acct.Username); err != nil {
		f.log.Warnf("Failed to forget session: %v", err)
	}
	return false
}

// capture stores the current client-side session of username
func (f *Fixtures) capture(ctx context.Context, p *page.Page, username string) error {
	if f.sessions == nil {
		return nil
	}
	chatUser, ok, err := p.LocalStorage(ctx, chatui.StorageKey)
	if err != nil || !ok {
		// Not fatal: the next run logs in through the form
		f.log.Warnf("No session to capture for %s: %v", username, err)
		return nil
	}
	cookies, err := p.Cookies(ctx)
	if err != nil {
		f.log.Warnf("Failed to read cookies for %s: %v", username, err)
	}
	return f.sessions.Save(f.cfg.Target.BaseURL, StoredSession{
		Username:   username,
		ChatUser:   chatUser,
		Cookies:    cookies,
		CapturedAt: time.Now(),
	})
}
