package page

import (
	"context"

	"github.com/pders01/mastofeed/internal/shortcode"
)

// Pass tracks whether one page render uses a feed. The widget scan runs at
// most once per pass however often the answer is needed.
type Pass struct {
	pipeline *Pipeline
	widgets  []string
	contains func(string) bool

	used        bool
	scanned     bool
	widgetsFeed bool
}

func (p *Pipeline) NewPass(widgets []string) *Pass {
	return &Pass{
		pipeline: p,
		widgets:  widgets,
		contains: shortcode.Contains,
	}
}

// Expand renders every embed in content, marking the pass as using a feed
// when there was at least one.
func (ps *Pass) Expand(ctx context.Context, content string) string {
	return shortcode.Expand(content, func(attrs map[string]string) string {
		ps.used = true
		return ps.pipeline.Display(ctx, attrs)
	})
}

// MarkUsed records a feed rendered outside Expand.
func (ps *Pass) MarkUsed() {
	ps.used = true
}

// FeedUsed reports whether the page or any widget shows a feed.
func (ps *Pass) FeedUsed() bool {
	if ps.used {
		return true
	}
	if !ps.scanned {
		ps.scanned = true
		for _, w := range ps.widgets {
			if ps.contains(w) {
				ps.widgetsFeed = true
				break
			}
		}
	}
	return ps.widgetsFeed
}

// Head returns the style and script blocks, or "" when no feed is used.
func (ps *Pass) Head() (string, error) {
	if !ps.FeedUsed() {
		return "", nil
	}
	s := ps.pipeline.Settings()
	return ps.pipeline.renderer.HeadAssets(s.Style)
}
