package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ibeckermayer/chatcheck/internal/chatui"
	"github.com/ibeckermayer/chatcheck/internal/page"
)

// shoot captures a screenshot. A failed capture is logged, not fatal: the
// flow's checks still stand without the picture.
func shoot(ctx context.Context, env *Env, p *page.Page, name string) {
	if _, err := p.Screenshot(ctx, name); err != nil {
		env.Log.Warnf("Screenshot %s failed: %v", name, err)
	}
}

// createGroup creates a group through the sidebar modal and waits for it to
// be listed
func createGroup(ctx context.Context, p *page.Page, name string) error {
	if err := p.Click(ctx, chatui.CreateGroupButton); err != nil {
		return err
	}
	if err := p.Fill(ctx, chatui.GroupNameInput, name); err != nil {
		return err
	}
	if err := p.Click(ctx, chatui.SubmitCreateGroup); err != nil {
		return err
	}
	if err := p.WaitGone(ctx, chatui.CreateGroupModal, 0); err != nil {
		return err
	}
	if err := p.WaitVisible(ctx, chatui.GroupItem, 0); err != nil {
		return fmt.Errorf("group %q never listed: %w", name, err)
	}
	return nil
}

// groupListSettle is how long an empty group list must stay empty before
// the account is taken to have no groups
const groupListSettle = 1500 * time.Millisecond

// ensureGroup creates a group only when the account has none
func ensureGroup(ctx context.Context, env *Env, p *page.Page) error {
	n, err := p.CountSettled(ctx, chatui.GroupItem, groupListSettle)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	env.Log.Infof("No groups yet, creating %q", env.Config.Fixtures.GroupName)
	return createGroup(ctx, p, env.Config.Fixtures.GroupName)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
