// Package chatui is the DOM contract of the chat application under test.
// Selectors are isolated here because the frontend changes more often than
// the flows that exercise it; update these when a scenario starts failing on
// a missing element.
package chatui

import "fmt"

// Pages
const (
	LoginPath    = "/"
	AppPath      = "/app.html"
	SettingsPath = "/settings.html"
)

// AppURLPattern matches the chat page regardless of host
const AppURLPattern = "**" + AppPath

// SettingsURLPattern matches the settings page regardless of host
const SettingsURLPattern = "**" + SettingsPath

// StorageKey is the localStorage key holding the logged-in user
const StorageKey = "chatUser"

// Auth page
const (
	AuthContainer    = `.auth-container`
	LoginForm        = `#loginForm`
	RegisterForm     = `#registerForm`
	ShowRegisterLink = `#showRegister`
	ShowLoginLink    = `#showLogin`
	LoginUsername    = `#loginForm input[name='username']`
	LoginPassword    = `#loginForm input[name='password']`
	LoginSubmit      = `#loginForm button[type='submit']`
	RegisterUsername = `#registerForm input[name='regUsername']`
	RegisterDisplay  = `#registerForm input[name='regDisplayName']`
	RegisterPassword = `#registerForm input[name='regPassword']`
	RegisterSubmit   = `#registerForm button[type='submit']`
)

// App shell
const (
	AppContainer     = `.app-container`
	Sidebar          = `.sidebar`
	SidebarToggle    = `#sidebarToggleBtn`
	SidebarCollapsed = `collapsed`
	ChatArea         = `.chat-area`
	ChatAreaActive   = `active`
	MobileBackButton = `#mobileBackBtn`
	UserProfile      = `.user-profile`
	UserDisplayName  = `#userDisplayName`
	UserUsername     = `#userUsername`
	UserAvatar       = `#userAvatar`
)

// Groups
const (
	GroupsList        = `#groupsList`
	GroupItem         = `.group-item`
	CreateGroupButton = `#createGroupBtn`
	CreateGroupModal  = `#createGroupModal`
	GroupNameInput    = `#groupNameInput`
	SubmitCreateGroup = `#submitCreateGroup`
	GroupInfoModal    = `#groupInfoModal`
	GroupInfoName     = `#infoGroupName`
	GroupInfoID       = `#infoGroupId`
	GroupInfoAvatar   = `#infoGroupAvatar`
	CloseGroupInfo    = `.close-modal-info`
)

// Friends
const (
	FriendsContainer    = `#friendsContainer`
	FriendItem          = `.friend-item`
	AddFriendButton     = `#addFriendBtn`
	AddFriendModal      = `#addFriendModal`
	FriendSearchInput   = `#friendSearchInput`
	SearchUserButton    = `#searchUserBtn`
	SearchResultAdd     = `.search-result-item button`
	FriendRequestAccept = `.friend-request-item .btn-primary`
)

// Messages
const (
	MessagesContainer = `#messages`
	MessageInput      = `#messageInput`
	SendButton        = `#sendBtn`
	OwnMessage        = `.message.me`
	MessageContent    = `.message-content`
	OwnMessageStatus  = `.message.me .msg-status`
	StatusDelivered   = `delivered`
	StatusRead        = `read`
	ReplyBanner       = `#replyBanner`
)

// Overlays
const (
	ContextMenu      = `.context-menu`
	ContextMenuItem  = `.context-menu div`
	ModalHeader      = `.modal-header`
	SeenByModal      = `#seenByModal`
	CloseModal       = `.close-modal`
	Hidden           = `hidden`
	UserProfileModal = `#userProfileModal`
	ProfileAvatar    = `#profileModalAvatar`
	ProfileName      = `#profileModalName`
	ProfileUsername  = `#profileModalUsername`
	ProfileStatus    = `#profileModalStatus`
)

// Context menu labels
const (
	MenuSeenBy = "Seen by"
	MenuReply  = "Reply"
	MenuPin    = "Pin"
)

// FriendItemFor selects the friend list entry for username
func FriendItemFor(username string) string {
	return fmt.Sprintf(`.friend-item[data-username=%q]`, username)
}
