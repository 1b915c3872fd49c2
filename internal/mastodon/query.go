package mastodon

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pders01/mastofeed/internal/validation"
)

// FeedQuery selects the statuses of one account or one hashtag on an instance.
type FeedQuery struct {
	Instance       string `json:"instance"`
	Account        string `json:"account,omitempty"`
	Tag            string `json:"tag,omitempty"`
	Limit          int    `json:"limit"`
	ExcludeBoosts  bool   `json:"exclude_boosts"`
	ExcludeReplies bool   `json:"exclude_replies"`
	OnlyPinned     bool   `json:"only_pinned"`
	OnlyMedia      bool   `json:"only_media"`
	Tagged         string `json:"tagged,omitempty"`
}

// Validate checks that the query names a source. When both account and tag
// are set the account wins.
func (q FeedQuery) Validate() error {
	if q.Account == "" && q.Tag == "" {
		return ErrMissingSource
	}
	return nil
}

// StatusesURL builds the REST URL for the query against scheme://instance.
func (q FeedQuery) StatusesURL(scheme string) string {
	u := url.URL{
		Scheme: scheme,
		Host:   validation.SanitizeInstance(q.Instance),
	}

	if q.Account != "" {
		u.Path = "/api/v1/accounts/" + q.Account + "/statuses"
		u.RawPath = "/api/v1/accounts/" + url.PathEscape(q.Account) + "/statuses"
	} else {
		u.Path = "/api/v1/timelines/tag/" + q.Tag
		u.RawPath = "/api/v1/timelines/tag/" + url.PathEscape(q.Tag)
	}

	var params []string
	if q.Limit > 0 {
		params = append(params, "limit="+strconv.Itoa(q.Limit))
	}
	if q.ExcludeBoosts {
		params = append(params, "exclude_reblogs=true")
	}
	if q.ExcludeReplies {
		params = append(params, "exclude_replies=true")
	}
	if q.OnlyPinned {
		params = append(params, "pinned=true")
	}
	if q.OnlyMedia {
		params = append(params, "only_media=true")
	}
	if q.Tagged != "" {
		params = append(params, "tagged="+url.QueryEscape(q.Tagged))
	}
	u.RawQuery = strings.Join(params, "&")

	return u.String()
}
