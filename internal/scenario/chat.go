package scenario

import (
	"context"
	"fmt"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/chatui"
	"github.com/ibeckermayer/chatcheck/internal/layout"
)

// chatFlow covers the basic login journey: register, log in, collapse the
// sidebar and come back to find the session kept.
type chatFlow struct{}

func (chatFlow) Name() string { return "chat" }

func (chatFlow) Description() string {
	return "register and log in through the forms, toggle the sidebar, verify the session survives a revisit"
}

func (chatFlow) Run(ctx context.Context, env *Env) error {
	acct := env.Fixtures.Account(env.Config.Fixtures.Primary)

	p, err := env.OpenPage("main", browser.Desktop())
	if err != nil {
		return err
	}
	if err := p.Goto(ctx, env.URL(chatui.LoginPath)); err != nil {
		return err
	}
	// Start from the login form even when a previous run left a session
	if err := env.Fixtures.Logout(ctx, p); err != nil {
		return err
	}

	loggedIn, err := env.Fixtures.Register(ctx, p, acct)
	if err != nil {
		return err
	}
	if d := p.Session().LastDialog(); d != "" {
		env.Log.Infof("Registration answered: %s", d)
	}

	var loginErr error
	if loggedIn {
		loginErr = p.WaitURL(ctx, chatui.AppURLPattern, 0)
	} else {
		loginErr = env.Fixtures.Login(ctx, p, acct)
	}
	if !env.Expect("login_redirects_to_app", loginErr) {
		return nil
	}
	env.Expect("username_displayed", p.WaitText(ctx, chatui.UserUsername, "@"+acct.Username, 0))
	shoot(ctx, env, p, "app_view")

	before, err := p.BoundingBox(ctx, chatui.Sidebar)
	if err != nil {
		return err
	}
	if err := p.Click(ctx, chatui.SidebarToggle); err != nil {
		return err
	}
	collapseErr := p.WaitClass(ctx, chatui.Sidebar, 0, chatui.SidebarCollapsed, true, 0)
	env.Expect("sidebar_collapsed", collapseErr)
	if collapseErr == nil {
		after, err := p.WaitBox(ctx, chatui.Sidebar, func(b layout.Box) bool { return b.Width < before.Width }, 0)
		env.Check("sidebar_narrower", err == nil, "width %.0f -> %.0f", before.Width, after.Width)
	}
	shoot(ctx, env, p, "app_sidebar_collapsed")

	if err := p.Goto(ctx, env.URL(chatui.LoginPath)); err != nil {
		return err
	}
	err = p.WaitURL(ctx, chatui.AppURLPattern, 0)
	if err != nil {
		u, _ := p.URL(ctx)
		err = fmt.Errorf("stayed on %s: %w", u, err)
	}
	env.Expect("session_persists", err)
	return nil
}
