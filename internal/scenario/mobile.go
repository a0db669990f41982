package scenario

import (
	"context"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/chatui"
)

// mobileFlow checks the list/chat switching of the phone layout through the
// chat area's active class
type mobileFlow struct{}

func (mobileFlow) Name() string { return "mobile" }

func (mobileFlow) Description() string {
	return "phone viewport: opening a chat activates the chat area, the back button returns to the list"
}

func (mobileFlow) Run(ctx context.Context, env *Env) error {
	acct := env.Fixtures.Account(env.Config.Fixtures.Mobile)

	p, err := env.OpenPage("mobile", browser.Mobile())
	if err != nil {
		return err
	}
	if err := env.Fixtures.EnsureAccount(ctx, p, acct); err != nil {
		return err
	}
	if err := p.WaitVisible(ctx, chatui.AppContainer, 0); err != nil {
		return err
	}
	shoot(ctx, env, p, "1_mobile_sidebar")

	if err := ensureGroup(ctx, env, p); err != nil {
		return err
	}
	// Creating a group opens it; start from the list either way
	if active, _ := p.HasClass(ctx, chatui.ChatArea, chatui.ChatAreaActive); active {
		if err := p.Click(ctx, chatui.MobileBackButton); err != nil {
			return err
		}
		if err := p.WaitClass(ctx, chatui.ChatArea, 0, chatui.ChatAreaActive, false, 0); err != nil {
			return err
		}
	}

	if err := p.ClickNth(ctx, chatui.GroupItem, 0); err != nil {
		return err
	}
	env.Expect("chat_area_active", p.WaitClass(ctx, chatui.ChatArea, 0, chatui.ChatAreaActive, true, 0))
	shoot(ctx, env, p, "2_mobile_chat_open")

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
	env.Expect("chat_area_inactive", p.WaitClass(ctx, chatui.ChatArea, 0, chatui.ChatAreaActive, false, 0))
	shoot(ctx, env, p, "3_mobile_back_to_list")
	return nil
}
