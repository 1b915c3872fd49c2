package settings

import (
	"time"

	"github.com/pders01/mastofeed/internal/validation"
)

const (
	DefaultInstance       = "mastodon.social"
	DefaultLimit          = 10
	DefaultCacheInterval  = 3600
	DefaultHTTPTimeout    = 5
	DefaultDateTimeFormat = "Y-m-d h:i a"
)

// Style holds the colour and shape tokens used to generate the feed CSS.
type Style struct {
	BackgroundColor string `json:"background_color" mapstructure:"background_color" toml:"background_color"`
	FontColor       string `json:"font_color" mapstructure:"font_color" toml:"font_color"`
	AccentColor     string `json:"accent_color" mapstructure:"accent_color" toml:"accent_color"`
	AccentFontColor string `json:"accent_font_color" mapstructure:"accent_font_color" toml:"accent_font_color"`
	BorderRadius    string `json:"border_radius" mapstructure:"border_radius" toml:"border_radius"`
}

// Text holds the user-facing strings of a rendered feed.
type Text struct {
	NoPosts      string `json:"no_posts" mapstructure:"no_posts" toml:"no_posts"`
	Boosted      string `json:"boosted" mapstructure:"boosted" toml:"boosted"`
	ShowContent  string `json:"show_content" mapstructure:"show_content" toml:"show_content"`
	PreDateTime  string `json:"pre_datetime" mapstructure:"pre_datetime" toml:"pre_datetime"`
	PostDateTime string `json:"post_datetime" mapstructure:"post_datetime" toml:"post_datetime"`
	Edited       string `json:"edited" mapstructure:"edited" toml:"edited"`
}

// Settings are the site-wide defaults every feed falls back to.
type Settings struct {
	DefaultInstance  string `json:"default_instance" mapstructure:"default_instance" toml:"default_instance"`
	Limit            int    `json:"limit" mapstructure:"limit" toml:"limit"`
	CacheInterval    int    `json:"cache_interval" mapstructure:"cache_interval" toml:"cache_interval"`
	HTTPTimeout      int    `json:"http_timeout" mapstructure:"http_timeout" toml:"http_timeout"`
	ExcludeBoosts    bool   `json:"exclude_boosts" mapstructure:"exclude_boosts" toml:"exclude_boosts"`
	ExcludeReplies   bool   `json:"exclude_replies" mapstructure:"exclude_replies" toml:"exclude_replies"`
	OnlyPinned       bool   `json:"only_pinned" mapstructure:"only_pinned" toml:"only_pinned"`
	OnlyMedia        bool   `json:"only_media" mapstructure:"only_media" toml:"only_media"`
	Tagged           string `json:"tagged" mapstructure:"tagged" toml:"tagged"`
	LinkTarget       string `json:"link_target" mapstructure:"link_target" toml:"link_target"`
	ShowPreviewCards bool   `json:"show_preview_cards" mapstructure:"show_preview_cards" toml:"show_preview_cards"`
	ShowPostAuthor   bool   `json:"show_post_author" mapstructure:"show_post_author" toml:"show_post_author"`
	ShowDateTime     bool   `json:"show_datetime" mapstructure:"show_datetime" toml:"show_datetime"`
	DateTimeFormat   string `json:"datetime_format" mapstructure:"datetime_format" toml:"datetime_format"`
	Timezone         string `json:"timezone" mapstructure:"timezone" toml:"timezone"`
	Style            Style  `json:"style" mapstructure:"style" toml:"style"`
	Text             Text   `json:"text" mapstructure:"text" toml:"text"`
}

// Defaults returns the factory settings.
func Defaults() Settings {
	return Settings{
		DefaultInstance:  DefaultInstance,
		Limit:            DefaultLimit,
		CacheInterval:    DefaultCacheInterval,
		HTTPTimeout:      DefaultHTTPTimeout,
		LinkTarget:       validation.DefaultLinkTarget,
		ShowPreviewCards: true,
		ShowPostAuthor:   true,
		ShowDateTime:     true,
		DateTimeFormat:   DefaultDateTimeFormat,
		Timezone:         validation.DefaultTimezone,
		Style: Style{
			BackgroundColor: "rgba(219,219,219,0.8)",
			FontColor:       "#000000",
			AccentColor:     "#6364FF",
			AccentFontColor: "#ffffff",
			BorderRadius:    validation.DefaultBorderRadius,
		},
		Text: Text{
			NoPosts:      "No posts available",
			Boosted:      "boosted 🚀",
			ShowContent:  "Show content",
			PreDateTime:  "on",
			PostDateTime: "",
			Edited:       "(edited)",
		},
	}
}

// Sanitize returns a copy with every value passed through its validator.
// Colours that fail validation are left empty so the CSS falls back to the
// browser default.
func (s Settings) Sanitize() Settings {
	out := s

	out.DefaultInstance = validation.SanitizeInstance(s.DefaultInstance)
	if out.DefaultInstance == "" {
		out.DefaultInstance = DefaultInstance
	}
	if out.Limit < 0 {
		out.Limit = 0
	}
	if out.CacheInterval <= 0 {
		out.CacheInterval = DefaultCacheInterval
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = DefaultHTTPTimeout
	}
	out.Tagged = validation.SanitizeTag(validation.SanitizeText(s.Tagged))
	out.LinkTarget = validation.ValidateLinkTarget(s.LinkTarget)
	out.DateTimeFormat = validation.SanitizeText(s.DateTimeFormat)
	if out.DateTimeFormat == "" {
		out.DateTimeFormat = DefaultDateTimeFormat
	}
	out.Timezone = validation.ValidateTimezone(s.Timezone)

	out.Style = Style{
		BackgroundColor: validation.ValidateColor(s.Style.BackgroundColor),
		FontColor:       validation.ValidateColor(s.Style.FontColor),
		AccentColor:     validation.ValidateColor(s.Style.AccentColor),
		AccentFontColor: validation.ValidateColor(s.Style.AccentFontColor),
		BorderRadius:    validation.ValidateBorderRadius(s.Style.BorderRadius),
	}

	out.Text = Text{
		NoPosts:      validation.SanitizeText(s.Text.NoPosts),
		Boosted:      validation.SanitizeText(s.Text.Boosted),
		ShowContent:  validation.SanitizeText(s.Text.ShowContent),
		PreDateTime:  validation.SanitizeText(s.Text.PreDateTime),
		PostDateTime: validation.SanitizeText(s.Text.PostDateTime),
		Edited:       validation.SanitizeText(s.Text.Edited),
	}
	return out
}

// CacheTTL is the cache interval as a duration.
func (s Settings) CacheTTL() time.Duration {
	if s.CacheInterval <= 0 {
		return DefaultCacheInterval * time.Second
	}
	return time.Duration(s.CacheInterval) * time.Second
}

// Timeout is the HTTP timeout as a duration.
func (s Settings) Timeout() time.Duration {
	if s.HTTPTimeout <= 0 {
		return DefaultHTTPTimeout * time.Second
	}
	return time.Duration(s.HTTPTimeout) * time.Second
}

// Location resolves the configured timezone, falling back to UTC.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || s.Timezone == "" {
		return time.UTC
	}
	return loc
}
