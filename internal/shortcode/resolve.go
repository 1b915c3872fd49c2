package shortcode

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/pders01/mastofeed/internal/mastodon"
	"github.com/pders01/mastofeed/internal/render"
	"github.com/pders01/mastofeed/internal/settings"
	"github.com/pders01/mastofeed/internal/validation"
)

var truthy = []string{"1", "true", "yes", "on"}

// Request is a fully resolved embed: what to fetch and how to show it.
type Request struct {
	Query   mastodon.FeedQuery
	Display render.DisplayOptions
}

// Resolve merges embed attributes over the site settings. Attribute keys
// are matched case-insensitively.
func Resolve(attrs map[string]string, s settings.Settings) Request {
	lower := make(map[string]string, len(attrs))
	for k, v := range attrs {
		lower[strings.ToLower(k)] = v
	}
	str := func(key, fallback string) string {
		if v, ok := lower[key]; ok {
			return v
		}
		return fallback
	}
	flag := func(key string, fallback bool) bool {
		if v, ok := lower[key]; ok {
			return ParseBool(v)
		}
		return fallback
	}

	limit := s.Limit
	if v, ok := lower["limit"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			limit = max(n, 0)
		}
	}

	query := mastodon.FeedQuery{
		Instance:       str("instance", s.DefaultInstance),
		Account:        strings.TrimSpace(str("account", "")),
		Tag:            validation.SanitizeTag(strings.TrimSpace(str("tag", ""))),
		Limit:          limit,
		ExcludeBoosts:  flag("excludeboosts", s.ExcludeBoosts),
		ExcludeReplies: flag("excludereplies", s.ExcludeReplies),
		OnlyPinned:     flag("onlypinned", s.OnlyPinned),
		OnlyMedia:      flag("onlymedia", s.OnlyMedia),
		Tagged:         validation.SanitizeTag(strings.TrimSpace(str("tagged", s.Tagged))),
	}

	display := render.DisplayOptionsFrom(s)
	display.LinkTarget = validation.ValidateLinkTarget(str("linktarget", s.LinkTarget))
	display.ShowPreviewCards = flag("showpreviewcards", s.ShowPreviewCards)
	display.ShowPostAuthor = flag("showpostauthor", s.ShowPostAuthor)
	display.ShowDateTime = flag("showdatetime", s.ShowDateTime)
	display.DateTimeFormat = str("datetimeformat", s.DateTimeFormat)
	display.Text = settings.Text{
		NoPosts:      str("text-noposts", s.Text.NoPosts),
		Boosted:      str("text-boosted", s.Text.Boosted),
		ShowContent:  str("text-showcontent", s.Text.ShowContent),
		PreDateTime:  str("text-predatetime", s.Text.PreDateTime),
		PostDateTime: str("text-postdatetime", s.Text.PostDateTime),
		Edited:       str("text-edited", s.Text.Edited),
	}

	return Request{Query: query, Display: display}
}

// ParseBool accepts 1, true, yes and on in any case; everything else is false.
func ParseBool(v string) bool {
	return lo.Contains(truthy, strings.ToLower(strings.TrimSpace(v)))
}
