package shortcode

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Name is the shortcode tag, BlockName the block comment name.
const (
	Name      = "mastodon-feed"
	BlockName = "mastodon-feed/embed"
)

var (
	// [mastodon-feed ...]; a doubled [[mastodon-feed]] is an escaped literal.
	shortcodePattern = regexp.MustCompile(`\[(\[?)mastodon-feed((?:\s[^\]]*?)?)\s*/?\](\]?)`)
	blockPattern     = regexp.MustCompile(`(?s)<!--\s+wp:mastodon-feed/embed(?:\s+(\{.*?\}))?\s+/?-->`)
	attrPattern      = regexp.MustCompile(`([\w-]+)\s*=\s*"([^"]*)"|([\w-]+)\s*=\s*'([^']*)'|([\w-]+)\s*=\s*([^\s'"]+)|"[^"]*"|'[^']*'|(\S+)`)
)

// block attribute name -> shortcode attribute name
var blockAttrs = map[string]string{
	"instance":         "instance",
	"account":          "account",
	"tag":              "tag",
	"limit":            "limit",
	"excludeBoosts":    "excludeboosts",
	"excludeReplies":   "excludereplies",
	"onlyPinned":       "onlypinned",
	"onlyMedia":        "onlymedia",
	"tagged":           "tagged",
	"linkTarget":       "linktarget",
	"showPreviewCards": "showpreviewcards",
	"showPostAuthor":   "showpostauthor",
	"showDateTime":     "showdatetime",
	"dateTimeFormat":   "datetimeformat",
}

// Block defaults differ from the site settings: a block without filter
// attributes never inherits the site-wide filters.
var blockDefaults = map[string]string{
	"instance":       "mastodon.social",
	"account":        "",
	"tag":            "",
	"limit":          "10",
	"excludeboosts":  "",
	"excludereplies": "",
	"onlypinned":     "",
	"onlymedia":      "",
}

type Kind int

const (
	KindShortcode Kind = iota
	KindBlock
)

// Tag is one feed embed found in a piece of content.
type Tag struct {
	Kind  Kind
	Start int
	End   int
	Attrs map[string]string
	// Literal is set for an escaped [[mastodon-feed]], which renders as text.
	Literal string
}

// Find returns every shortcode and block comment in content, in order.
func Find(content string) []Tag {
	var tags []Tag

	for _, m := range shortcodePattern.FindAllStringSubmatchIndex(content, -1) {
		tag := Tag{Kind: KindShortcode, Start: m[0], End: m[1]}
		open, close := content[m[2]:m[3]], content[m[6]:m[7]]
		switch {
		case open == "[" && close == "]":
			tag.Literal = content[m[0]+1 : m[1]-1]
		case open == "[":
			tag.Start++
		case close == "]":
			tag.End--
		}
		if tag.Literal == "" {
			tag.Attrs = ParseAttrs(content[m[4]:m[5]])
		}
		tags = append(tags, tag)
	}

	for _, m := range blockPattern.FindAllStringSubmatchIndex(content, -1) {
		var raw string
		if m[2] >= 0 {
			raw = content[m[2]:m[3]]
		}
		tags = append(tags, Tag{Kind: KindBlock, Start: m[0], End: m[1], Attrs: ParseBlockAttrs(raw)})
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Start < tags[j].Start })
	return tags
}

// Contains reports whether content embeds at least one feed.
func Contains(content string) bool {
	for _, tag := range Find(content) {
		if tag.Literal == "" {
			return true
		}
	}
	return false
}

// Expand replaces every embed in content with render's output. Escaped
// shortcodes lose one pair of brackets.
func Expand(content string, render func(attrs map[string]string) string) string {
	tags := Find(content)
	if len(tags) == 0 {
		return content
	}

	var b strings.Builder
	last := 0
	for _, tag := range tags {
		// a block comment inside an escaped shortcode was already consumed
		if tag.Start < last {
			continue
		}
		b.WriteString(content[last:tag.Start])
		if tag.Literal != "" {
			b.WriteString(tag.Literal)
		} else {
			b.WriteString(render(tag.Attrs))
		}
		last = tag.End
	}
	b.WriteString(content[last:])
	return b.String()
}

// ParseAttrs parses shortcode attributes. Keys are lower-cased; a bare
// word is a flag set to "1". Positional quoted values are ignored.
func ParseAttrs(text string) map[string]string {
	attrs := map[string]string{}
	for _, m := range attrPattern.FindAllStringSubmatch(text, -1) {
		switch {
		case m[1] != "":
			attrs[strings.ToLower(m[1])] = m[2]
		case m[3] != "":
			attrs[strings.ToLower(m[3])] = m[4]
		case m[5] != "":
			attrs[strings.ToLower(m[5])] = m[6]
		case m[7] != "" && m[7] != "/":
			attrs[strings.ToLower(m[7])] = "1"
		}
	}
	return attrs
}

// ParseBlockAttrs maps a block comment's JSON attributes onto shortcode
// attributes, filling in the block defaults. Invalid JSON yields the
// defaults alone.
func ParseBlockAttrs(raw string) map[string]string {
	attrs := make(map[string]string, len(blockDefaults))
	for k, v := range blockDefaults {
		attrs[k] = v
	}
	if raw == "" {
		return attrs
	}

	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return attrs
	}
	for name, value := range values {
		key, ok := blockAttrs[name]
		if !ok {
			continue
		}
		attrs[key] = attrString(value)
	}
	return attrs
}

func attrString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return ""
	}
}
