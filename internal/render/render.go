package render

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pders01/mastofeed/internal/mastodon"
	"github.com/pders01/mastofeed/internal/settings"
	"github.com/pders01/mastofeed/internal/validation"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets/mastodon-feed.js
var script string

const defaultMediaAlt = "Media attachment"

var classNames = regexp.MustCompile(`^[\w\- ]+$`)

// DisplayOptions control how a list of posts is turned into HTML.
type DisplayOptions struct {
	LinkTarget       string
	ShowPreviewCards bool
	ShowPostAuthor   bool
	ShowDateTime     bool
	DateTimeFormat   string
	Location         *time.Location
	Text             settings.Text
}

// DisplayOptionsFrom takes the display defaults from site settings.
func DisplayOptionsFrom(s settings.Settings) DisplayOptions {
	return DisplayOptions{
		LinkTarget:       s.LinkTarget,
		ShowPreviewCards: s.ShowPreviewCards,
		ShowPostAuthor:   s.ShowPostAuthor,
		ShowDateTime:     s.ShowDateTime,
		DateTimeFormat:   s.DateTimeFormat,
		Location:         s.Location(),
		Text:             s.Text,
	}
}

type Renderer struct {
	feed   *template.Template
	css    *texttemplate.Template
	policy *bluemonday.Policy
	newID  func() string
}

func New() (*Renderer, error) {
	feed, err := template.ParseFS(templateFS, "templates/feed.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing feed template: %w", err)
	}
	css, err := texttemplate.ParseFS(templateFS, "templates/style.css.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing style template: %w", err)
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(classNames).Globally()

	return &Renderer{
		feed:   feed,
		css:    css,
		policy: policy,
		newID: func() string {
			return "mastodon-feed-" + uuid.NewString()
		},
	}, nil
}

type accountView struct {
	Name   string
	URL    string
	Avatar string
}

type linkView struct {
	URL    string
	Target string
	Date   string
}

type mediaView struct {
	Type    string
	URL     string
	Preview string
	Alt     string
}

type postView struct {
	Author            accountView
	Permalink         linkView
	Edited            bool
	Boost             bool
	Original          accountView
	OriginalPermalink linkView
	ContentWarning    bool
	Spoiler           string
	BodyID            string
	Content           template.HTML
	Media             []mediaView
	Card              *mastodon.Card
}

type feedView struct {
	ID               string
	Target           string
	ShowPostAuthor   bool
	ShowDateTime     bool
	ShowPreviewCards bool
	Text             settings.Text
	Posts            []postView
}

// Render turns posts into the feed markup. An empty list renders the
// no-posts message.
func (r *Renderer) Render(posts []mastodon.Status, opts DisplayOptions) (string, error) {
	if len(posts) == 0 {
		return r.RenderEmpty(opts.Text.NoPosts), nil
	}

	target := validation.ValidateLinkTarget(opts.LinkTarget)
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	format := opts.DateTimeFormat
	if format == "" {
		format = settings.DefaultDateTimeFormat
	}

	view := feedView{
		ID:               r.newID(),
		Target:           target,
		ShowPostAuthor:   opts.ShowPostAuthor,
		ShowDateTime:     opts.ShowDateTime,
		ShowPreviewCards: opts.ShowPreviewCards,
		Text:             opts.Text,
		Posts:            make([]postView, 0, len(posts)),
	}

	date := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return FormatDate(format, t.In(loc))
	}

	for i := range posts {
		status := &posts[i]
		shown := status.Shown()

		post := postView{
			Author:    viewAccount(&status.Account),
			Permalink: linkView{URL: status.URL, Target: target, Date: date(status.CreatedAt)},
			Edited:    status.EditedAt != nil,
			Boost:     status.IsBoost(),
			Content:   r.content(shown, target),
			Card:      shown.Card,
		}
		if post.Boost {
			post.Original = viewAccount(&shown.Account)
			post.OriginalPermalink = linkView{URL: shown.URL, Target: target, Date: date(shown.CreatedAt)}
		}
		if shown.HasContentWarning() {
			post.ContentWarning = true
			post.Spoiler = shown.SpoilerText
			post.BodyID = fmt.Sprintf("%s-cw-%d", view.ID, i)
		}
		for _, m := range shown.MediaAttachments {
			alt := m.Description
			if alt == "" {
				alt = defaultMediaAlt
			}
			post.Media = append(post.Media, mediaView{Type: m.Type, URL: m.URL, Preview: m.PreviewURL, Alt: alt})
		}
		view.Posts = append(view.Posts, post)
	}

	var buf bytes.Buffer
	if err := r.feed.ExecuteTemplate(&buf, "feed", view); err != nil {
		return "", fmt.Errorf("rendering feed: %w", err)
	}
	return buf.String(), nil
}

func viewAccount(a *mastodon.Account) accountView {
	name := a.DisplayName
	if name == "" {
		name = a.Username
	}
	return accountView{Name: name, URL: a.URL, Avatar: a.AvatarURL()}
}

// content substitutes custom emoji, sanitizes the status HTML and points
// its links at target.
func (r *Renderer) content(s *mastodon.Status, target string) template.HTML {
	body := s.Content
	for _, e := range s.Emojis {
		if e.Shortcode == "" {
			continue
		}
		img := fmt.Sprintf(`<img src="%s" alt="%s" class="emoji">`, html.EscapeString(e.URL), html.EscapeString(e.Shortcode))
		body = strings.ReplaceAll(body, ":"+e.Shortcode+":", img)
	}

	clean := r.policy.Sanitize(body)
	return template.HTML(applyLinkTarget(clean, target))
}

func applyLinkTarget(fragment, target string) string {
	if !strings.Contains(fragment, "<a") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		a.SetAttr("target", target)
		if target == "_blank" {
			a.SetAttr("rel", "nofollow noopener noreferrer")
		}
	})
	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return out
}

// RenderError wraps a message in the feed container, escaped.
func (r *Renderer) RenderError(message string) string {
	return `<div class="mastodon-feed">` + template.HTMLEscapeString(message) + `</div>`
}

// RenderEmpty renders the no-posts text.
func (r *Renderer) RenderEmpty(text string) string {
	return r.RenderError(text)
}

// CSS renders the stylesheet with the style tokens as custom properties.
func (r *Renderer) CSS(style settings.Style) (string, error) {
	style = settings.Settings{Style: style}.Sanitize().Style
	var buf bytes.Buffer
	if err := r.css.ExecuteTemplate(&buf, "style.css.tmpl", style); err != nil {
		return "", fmt.Errorf("rendering styles: %w", err)
	}
	return buf.String(), nil
}

// Script returns the frontend script handling content warning toggles.
func Script() string {
	return script
}

// HeadAssets renders the inline style and script blocks a page embeds once
// when it shows at least one feed.
func (r *Renderer) HeadAssets(style settings.Style) (string, error) {
	css, err := r.CSS(style)
	if err != nil {
		return "", err
	}
	return "<style>\n" + css + "</style>\n<script>\n" + script + "</script>\n", nil
}
