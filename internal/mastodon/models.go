package mastodon

import (
	"time"
)

// Status is a Mastodon post as returned by the statuses and timeline endpoints.
type Status struct {
	ID               string            `json:"id"`
	URL              string            `json:"url"`
	URI              string            `json:"uri,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	EditedAt         *time.Time        `json:"edited_at,omitempty"`
	Account          Account           `json:"account"`
	Content          string            `json:"content"`
	Sensitive        bool              `json:"sensitive"`
	SpoilerText      string            `json:"spoiler_text"`
	MediaAttachments []MediaAttachment `json:"media_attachments"`
	Card             *Card             `json:"card,omitempty"`
	Emojis           []Emoji           `json:"emojis"`
	Reblog           *Status           `json:"reblog,omitempty"`
	InReplyToID      *string           `json:"in_reply_to_id,omitempty"`
	Pinned           bool              `json:"pinned,omitempty"`
}

// IsBoost reports whether the status is a reblog of another status.
func (s *Status) IsBoost() bool {
	return s.Reblog != nil
}

// Shown returns the status whose body should be displayed: the reblogged
// status for boosts, the status itself otherwise.
func (s *Status) Shown() *Status {
	if s.Reblog != nil {
		return s.Reblog
	}
	return s
}

// HasContentWarning reports whether the body should start hidden.
func (s *Status) HasContentWarning() bool {
	return s.Sensitive || s.SpoilerText != ""
}

type Account struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Acct         string  `json:"acct"`
	DisplayName  string  `json:"display_name"`
	URL          string  `json:"url"`
	Avatar       string  `json:"avatar"`
	AvatarStatic string  `json:"avatar_static"`
	Emojis       []Emoji `json:"emojis,omitempty"`
}

// AvatarURL prefers the static avatar so animated avatars do not play in feeds.
func (a *Account) AvatarURL() string {
	if a.AvatarStatic != "" {
		return a.AvatarStatic
	}
	return a.Avatar
}

type MediaAttachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url"`
	RemoteURL   string `json:"remote_url,omitempty"`
	Description string `json:"description"`
}

type Card struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`
	Image       string `json:"image"`
}

type Emoji struct {
	Shortcode string `json:"shortcode"`
	URL       string `json:"url"`
	StaticURL string `json:"static_url,omitempty"`
}

// AccountInfo is the result of a successful handle lookup.
type AccountInfo struct {
	Instance    string `json:"instance"`
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Acct        string `json:"acct"`
	Username    string `json:"username"`
	URL         string `json:"url"`
}
