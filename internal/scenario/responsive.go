package scenario

import (
	"context"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/chatui"
	"github.com/ibeckermayer/chatcheck/internal/layout"
)

// minAuthWidth is the narrowest acceptable login card on a 375px screen
const minAuthWidth = 300

// responsiveFlow measures the phone layout: the login card fills the screen
// and the chat area slides in from the right and back out
type responsiveFlow struct{}

func (responsiveFlow) Name() string { return "responsive" }

func (responsiveFlow) Description() string {
	return "phone viewport geometry: wide login card, chat area slides in and out"
}

func (responsiveFlow) Run(ctx context.Context, env *Env) error {
	acct := env.Fixtures.Account(env.Config.Fixtures.Mobile)

	p, err := env.OpenPage("mobile", browser.Mobile())
	if err != nil {
		return err
	}
	if err := p.Goto(ctx, env.URL(chatui.LoginPath)); err != nil {
		return err
	}
	if err := env.Fixtures.Logout(ctx, p); err != nil {
		return err
	}
	if err := p.WaitVisible(ctx, chatui.AuthContainer, 0); err != nil {
		return err
	}

	vw, err := p.ViewportWidth(ctx)
	if err != nil {
		return err
	}
	auth, err := p.BoundingBox(ctx, chatui.AuthContainer)
	if err != nil {
		return err
	}
	env.Check("auth_container_wide", layout.WiderThan(auth, minAuthWidth), "width %.1f in %.0fpx viewport", auth.Width, vw)
	shoot(ctx, env, p, "mobile_login")

	if err := env.Fixtures.EnsureAccount(ctx, p, acct); err != nil {
		return err
	}
	if err := p.WaitVisible(ctx, chatui.AppContainer, 0); err != nil {
		return err
	}

	offscreen := func(b layout.Box) bool { return layout.OffscreenRight(b, vw) }
	onscreen := func(b layout.Box) bool { return layout.AtLeftEdge(b, 0.5) }

	box, err := p.WaitBox(ctx, chatui.ChatArea, offscreen, 0)
	env.Check("chat_area_hidden_initially", err == nil, "x=%.1f viewport=%.0f", box.X, vw)
	shoot(ctx, env, p, "mobile_chat_list")

	if err := ensureGroup(ctx, env, p); err != nil {
		return err
	}
	if active, _ := p.HasClass(ctx, chatui.ChatArea, chatui.ChatAreaActive); active {
		if err := p.Click(ctx, chatui.MobileBackButton); err != nil {
			return err
		}
		if _, err := p.WaitBox(ctx, chatui.ChatArea, offscreen, 0); err != nil {
			return err
		}
	}

	if err := p.ClickNth(ctx, chatui.GroupItem, 0); err != nil {
		return err
	}
	box, err = p.WaitBox(ctx, chatui.ChatArea, onscreen, 0)
	env.Check("chat_area_slid_in", err == nil, "x=%.1f", box.X)
	shoot(ctx, env, p, "mobile_chat_open")

	visible, err := p.IsVisible(ctx, chatui.MobileBackButton)
	if err != nil {
		return err
	}
	if !env.Check("back_button_visible", visible, "%s visible=%v", chatui.MobileBackButton, visible) {
		return nil
	}
	if err := p.Click(ctx, chatui.MobileBackButton); err != nil {
		return err
	}
	box, err = p.WaitBox(ctx, chatui.ChatArea, offscreen, 0)
	env.Check("chat_area_slid_out", err == nil, "x=%.1f viewport=%.0f", box.X, vw)
	return nil
}
