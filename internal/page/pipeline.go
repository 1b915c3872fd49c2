package page

import (
	"context"
	"errors"
	"time"

	"github.com/pders01/mastofeed/internal/debuglog"
	"github.com/pders01/mastofeed/internal/mastodon"
	"github.com/pders01/mastofeed/internal/metrics"
	"github.com/pders01/mastofeed/internal/render"
	"github.com/pders01/mastofeed/internal/settings"
	"github.com/pders01/mastofeed/internal/shortcode"
)

const (
	missingSourceMessage = `Error: Either "account" or "tag" parameter is required for the mastodon-feed shortcode.`
	renderFailedMessage  = "Failed to render the Mastodon feed."
)

// SettingsSource provides the current site settings.
type SettingsSource interface {
	Get() (settings.Settings, error)
}

// PostSource fetches posts for a query, caching them for ttl.
type PostSource interface {
	GetPosts(ctx context.Context, q mastodon.FeedQuery, ttl time.Duration) ([]mastodon.Status, error)
}

// Pipeline turns embeds into feed markup. It never fails: problems are
// rendered as an inline message in place of the feed.
type Pipeline struct {
	settings SettingsSource
	posts    PostSource
	renderer *render.Renderer
	metrics  *metrics.Metrics
}

func NewPipeline(settings SettingsSource, posts PostSource, renderer *render.Renderer, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		settings: settings,
		posts:    posts,
		renderer: renderer,
		metrics:  m,
	}
}

// Settings returns the current settings, or the defaults when they cannot
// be read.
func (p *Pipeline) Settings() settings.Settings {
	s, err := p.settings.Get()
	if err != nil {
		debuglog.Errorf("loading settings, using defaults: %v", err)
		return settings.Defaults()
	}
	return s
}

// Display renders one feed from shortcode attributes.
func (p *Pipeline) Display(ctx context.Context, attrs map[string]string) string {
	s := p.Settings()
	return p.display(ctx, shortcode.Resolve(attrs, s), s)
}

// RenderBlock renders one feed from a block's JSON attributes.
func (p *Pipeline) RenderBlock(ctx context.Context, rawAttrs string) string {
	return p.Display(ctx, shortcode.ParseBlockAttrs(rawAttrs))
}

func (p *Pipeline) display(ctx context.Context, req shortcode.Request, s settings.Settings) string {
	if err := req.Query.Validate(); err != nil {
		p.metrics.Render("error")
		return p.renderer.RenderError(missingSourceMessage)
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout())
	defer cancel()

	posts, err := p.posts.GetPosts(ctx, req.Query, s.CacheTTL())
	if err != nil {
		p.metrics.Render("error")
		return p.renderer.RenderError(errorMessage(err))
	}

	if len(posts) == 0 {
		p.metrics.Render("empty")
		return p.renderer.RenderEmpty(req.Display.Text.NoPosts)
	}

	out, err := p.renderer.Render(posts, req.Display)
	if err != nil {
		debuglog.Errorf("rendering feed: %v", err)
		p.metrics.Render("error")
		return p.renderer.RenderError(renderFailedMessage)
	}
	p.metrics.Render("posts")
	return out
}

func errorMessage(err error) string {
	var fetchErr *mastodon.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Error()
	}
	if errors.Is(err, mastodon.ErrMissingSource) {
		return missingSourceMessage
	}
	return (&mastodon.FetchError{Kind: mastodon.KindTransport, Err: err}).Error()
}

// Result is a processed page.
type Result struct {
	Content  string `json:"content"`
	Head     string `json:"head"`
	FeedUsed bool   `json:"feed_used"`
}

// Process expands every embed in content and emits the head assets when
// the content or one of the widgets shows a feed.
func (p *Pipeline) Process(ctx context.Context, content string, widgets []string) (Result, error) {
	pass := p.NewPass(widgets)
	expanded := pass.Expand(ctx, content)

	head, err := pass.Head()
	if err != nil {
		return Result{}, err
	}
	return Result{Content: expanded, Head: head, FeedUsed: pass.FeedUsed()}, nil
}
