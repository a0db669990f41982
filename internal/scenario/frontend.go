package scenario

import (
	"context"
	"fmt"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/chatui"
	"github.com/ibeckermayer/chatcheck/internal/fixture"
)

// Mock entities injected into the page. They never exist server-side.
const (
	mockUsername    = "testuser"
	mockDisplayName = "Test User"
	mockGroupName   = "Test Group"
	mockGroupID     = "12345-abcde"
	mockFriendUser  = "friend1"
	mockFriendName  = "Friend One"
)

// injectMockGroupJS adds a group entry whose double-click fills and opens
// the group info modal
var injectMockGroupJS = fmt.Sprintf(`(() => {
	const list = document.querySelector(%q);
	const div = document.createElement('div');
	div.className = 'group-item mock-group';
	div.innerHTML = '<img src="https://ui-avatars.com/api/?name=Test+Group" style="width:36px;height:36px;border-radius:50%%;margin-right:5px"> ' + %q;
	div.addEventListener('dblclick', (e) => {
		e.preventDefault();
		e.stopPropagation();
		document.querySelector(%q).textContent = %q;
		document.querySelector(%q).textContent = %q;
		document.querySelector(%q).src = 'https://ui-avatars.com/api/?name=Test+Group';
		document.querySelector(%q).classList.remove('hidden');
	});
	list.prepend(div);
	return true;
})()`, chatui.GroupsList, mockGroupName,
	chatui.GroupInfoName, mockGroupName,
	chatui.GroupInfoID, mockGroupID,
	chatui.GroupInfoAvatar, chatui.GroupInfoModal)

// showMockProfileJS fills the profile modal with a mock friend and opens it
var showMockProfileJS = fmt.Sprintf(`(() => {
	document.querySelector(%q).src = 'https://ui-avatars.com/api/?name=Friend+One';
	document.querySelector(%q).textContent = %q;
	document.querySelector(%q).textContent = %q;
	const status = document.querySelector(%q);
	status.textContent = 'Online';
	status.style.color = 'var(--success)';
	status.style.border = '1px solid var(--success)';
	status.style.background = 'rgba(16, 185, 129, 0.1)';
	document.querySelector(%q).classList.remove('hidden');
	return true;
})()`, chatui.ProfileAvatar,
	chatui.ProfileName, mockFriendName,
	chatui.ProfileUsername, "@"+mockFriendUser,
	chatui.ProfileStatus, chatui.UserProfileModal)

// frontendFlow renders the styled modals and the settings page with a mock
// user seeded straight into local storage
type frontendFlow struct{}

func (frontendFlow) Name() string { return "frontend" }

func (frontendFlow) Description() string {
	return "seeded mock user: group info modal, settings page and profile modal render"
}

func (frontendFlow) Run(ctx context.Context, env *Env) error {
	p, err := env.OpenPage("main", browser.Desktop())
	if err != nil {
		return err
	}

	if err := env.Fixtures.SeedSession(ctx, p, fixture.MockUser(mockUsername, mockDisplayName)); err != nil {
		return err
	}
	if !env.Expect("display_name_shown", p.WaitText(ctx, chatui.UserDisplayName, mockDisplayName, env.Config.Timeouts.Action.Std())) {
		return nil
	}

	if err := p.Evaluate(ctx, injectMockGroupJS, nil); err != nil {
		return fmt.Errorf("inject mock group: %w", err)
	}
	if err := p.DoubleClick(ctx, chatui.GroupItem); err != nil {
		return err
	}
	env.Expect("group_info_modal", p.WaitVisible(ctx, chatui.GroupInfoModal, 0))
	env.Expect("group_info_name", p.WaitText(ctx, chatui.GroupInfoName, mockGroupName, 0))
	env.Expect("group_info_id", p.WaitText(ctx, chatui.GroupInfoID, mockGroupID, 0))
	shoot(ctx, env, p, "group_settings")

	if err := p.Click(ctx, chatui.CloseGroupInfo); err != nil {
		return err
	}
	env.Expect("group_info_closed", p.WaitGone(ctx, chatui.GroupInfoModal, 0))

	if err := p.Click(ctx, chatui.UserProfile); err != nil {
		return err
	}
	env.Expect("settings_page", p.WaitURL(ctx, chatui.SettingsURLPattern, 0))
	shoot(ctx, env, p, "user_settings")

	if err := p.Goto(ctx, env.URL(chatui.AppPath)); err != nil {
		return err
	}
	if err := p.WaitText(ctx, chatui.UserDisplayName, mockDisplayName, 0); err != nil {
		return err
	}
	if err := p.Evaluate(ctx, showMockProfileJS, nil); err != nil {
		return fmt.Errorf("open profile modal: %w", err)
	}
	env.Expect("profile_modal", p.WaitVisible(ctx, chatui.UserProfileModal, 0))
	env.Expect("profile_username", p.WaitText(ctx, chatui.ProfileUsername, "@"+mockFriendUser, 0))
	shoot(ctx, env, p, "profile_modal")
	return nil
}
