package scenario

import (
	"context"
	"fmt"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/chatui"
	"github.com/ibeckermayer/chatcheck/internal/page"
)

const checkmarkText = "Hello Checkmark"

// checkmarksFlow follows one direct message from sent to read across two
// isolated users
type checkmarksFlow struct{}

func (checkmarksFlow) Name() string { return "checkmarks" }

func (checkmarksFlow) Description() string {
	return "two users befriend each other; a direct message shows delivered, then read once opened"
}

func (checkmarksFlow) Run(ctx context.Context, env *Env) error {
	acctA := env.Fixtures.Account(env.Config.Fixtures.Primary)
	acctB := env.Fixtures.Account(env.Config.Fixtures.Peer)

	a, err := env.OpenPage("a", browser.Desktop())
	if err != nil {
		return err
	}
	b, err := env.OpenPage("b", browser.Desktop())
	if err != nil {
		return err
	}
	if err := env.Fixtures.EnsureAccount(ctx, a, acctA); err != nil {
		return err
	}
	if err := env.Fixtures.EnsureAccount(ctx, b, acctB); err != nil {
		return err
	}

	if err := befriend(ctx, env, a, b, acctB.Username); err != nil {
		return err
	}

	if err := openFriendChat(ctx, a, acctB.Username); err != nil {
		return err
	}
	if err := a.WaitVisible(ctx, chatui.MessagesContainer, 0); err != nil {
		return err
	}
	if err := a.Fill(ctx, chatui.MessageInput, checkmarkText); err != nil {
		return err
	}
	if err := a.Click(ctx, chatui.SendButton); err != nil {
		return err
	}
	if err := a.WaitText(ctx, chatui.OwnMessage+":last-child", checkmarkText, 0); err != nil {
		return err
	}

	env.Expect("status_delivered", a.WaitClass(ctx, chatui.OwnMessageStatus, -1, chatui.StatusDelivered, true, 0))
	shoot(ctx, env, a, "step1_delivered")

	if err := openFriendChat(ctx, b, acctA.Username); err != nil {
		return err
	}
	env.Expect("status_read", a.WaitClass(ctx, chatui.OwnMessageStatus, -1, chatui.StatusRead, true, 0))
	shoot(ctx, env, a, "step2_read")
	return nil
}

// befriend has a send a friend request to peer and b accept it. Users that
// are already friends have nothing to accept, which is fine.
func befriend(ctx context.Context, env *Env, a, b *page.Page, peer string) error {
	if err := a.Click(ctx, chatui.AddFriendButton); err != nil {
		return err
	}
	if err := a.Fill(ctx, chatui.FriendSearchInput, peer); err != nil {
		return err
	}
	if err := a.Click(ctx, chatui.SearchUserButton); err != nil {
		return err
	}
	if err := a.Click(ctx, chatui.SearchResultAdd); err != nil {
		return fmt.Errorf("%s not found by search: %w", peer, err)
	}
	if d := a.Session().LastDialog(); d != "" {
		env.Log.Infof("Friend request answered: %s", d)
	}
	if err := a.WaitGone(ctx, chatui.AddFriendModal, 0); err != nil {
		return err
	}

	if err := b.Reload(ctx); err != nil {
		return err
	}
	if err := b.Click(ctx, chatui.FriendRequestAccept); err != nil {
		env.Log.Infof("No friend request to accept, assuming already friends: %v", err)
	}
	return nil
}

// openFriendChat clicks the friend entry, reloading once if the list is stale
func openFriendChat(ctx context.Context, p *page.Page, friend string) error {
	sel := chatui.FriendItemFor(friend)
	if err := p.WaitVisible(ctx, sel, 0); err != nil {
		if err := p.Reload(ctx); err != nil {
			return err
		}
	}
	return p.Click(ctx, sel)
}
