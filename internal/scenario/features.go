package scenario

import (
	"context"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/chatui"
)

const featuresText = "Hello World"

// featuresFlow walks the context menus: group pinning, message seen-by and
// reply
type featuresFlow struct{}

func (featuresFlow) Name() string { return "features" }

func (featuresFlow) Description() string {
	return "group and message context menus, the seen-by modal and the reply banner"
}

func (featuresFlow) Run(ctx context.Context, env *Env) error {
	acct := env.Fixtures.Account(env.Config.Fixtures.Primary)

	p, err := env.OpenPage("main", browser.Desktop())
	if err != nil {
		return err
	}
	if err := env.Fixtures.EnsureAccount(ctx, p, acct); err != nil {
		return err
	}
	if err := p.WaitVisible(ctx, chatui.UserDisplayName, 0); err != nil {
		return err
	}

	// A fresh group also becomes the open chat
	if err := createGroup(ctx, p, env.Config.Fixtures.GroupName); err != nil {
		return err
	}

	if err := p.RightClick(ctx, chatui.GroupItem, 0); err != nil {
		return err
	}
	env.Expect("group_context_menu", p.WaitVisible(ctx, chatui.ContextMenu, 0))
	menu, _ := p.Text(ctx, chatui.ContextMenu)
	env.Check("group_menu_has_pin", containsFold(menu, chatui.MenuPin), "menu: %q", menu)
	shoot(ctx, env, p, "1_group_context")

	if err := p.Click(ctx, "body"); err != nil {
		return err
	}
	env.Expect("context_menu_dismissed", p.WaitGone(ctx, chatui.ContextMenu, 0))

	if err := p.Fill(ctx, chatui.MessageInput, featuresText); err != nil {
		return err
	}
	if err := p.Click(ctx, chatui.SendButton); err != nil {
		return err
	}
	if !env.Expect("message_sent", p.WaitVisible(ctx, chatui.OwnMessage, 0)) {
		return nil
	}

	if err := p.RightClick(ctx, chatui.MessageContent, -1); err != nil {
		return err
	}
	env.Expect("message_context_menu", p.WaitVisible(ctx, chatui.ContextMenu, 0))
	shoot(ctx, env, p, "2_message_context")

	if err := p.ClickText(ctx, chatui.ContextMenuItem, chatui.MenuSeenBy); err != nil {
		return err
	}
	env.Expect("seen_by_modal", p.WaitVisible(ctx, chatui.SeenByModal+" "+chatui.ModalHeader, 0))
	shoot(ctx, env, p, "3_seen_by_modal")

	if err := p.Click(ctx, chatui.SeenByModal+" "+chatui.CloseModal); err != nil {
		return err
	}
	if err := p.WaitGone(ctx, chatui.SeenByModal, 0); err != nil {
		return err
	}

	if err := p.RightClick(ctx, chatui.MessageContent, -1); err != nil {
		return err
	}
	if err := p.ClickText(ctx, chatui.ContextMenuItem, chatui.MenuReply); err != nil {
		return err
	}
	env.Expect("reply_banner", p.WaitVisible(ctx, chatui.ReplyBanner, 0))
	banner, _ := p.Text(ctx, chatui.ReplyBanner)
	env.Check("reply_quotes_message", containsFold(banner, featuresText), "banner: %q", banner)
	shoot(ctx, env, p, "4_reply_banner")
	return nil
}
