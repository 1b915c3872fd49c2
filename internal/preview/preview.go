package preview

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/mastofeed/internal/mastodon"
	"github.com/pders01/mastofeed/internal/render"
)

var (
	AccentColor = lipgloss.Color("#6364FF") // Mastodon purple
	MutedColor  = lipgloss.Color("#94A3B8")
)

const (
	minWidth = 40
	maxWidth = 120
)

// Previewer renders a feed for the terminal.
type Previewer struct {
	renderer *glamour.TermRenderer
	width    int
}

func New(width int) (*Previewer, error) {
	width = min(max(width, minWidth), maxWidth)

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return &Previewer{renderer: r, width: width}, nil
}

// Render prints each post as a styled header followed by its body.
func (p *Previewer) Render(posts []mastodon.Status, opts render.DisplayOptions) (string, error) {
	if len(posts) == 0 {
		return lipgloss.NewStyle().Foreground(MutedColor).Italic(true).Render(opts.Text.NoPosts) + "\n", nil
	}

	separator := lipgloss.NewStyle().Foreground(MutedColor).Render(strings.Repeat("─", p.width))

	var b strings.Builder
	for i := range posts {
		if i > 0 {
			b.WriteString(separator + "\n")
		}
		b.WriteString(header(&posts[i], opts) + "\n")

		md, err := Markdown(posts[i].Shown(), opts)
		if err != nil {
			return "", err
		}
		body, err := p.renderer.Render(md)
		if err != nil {
			return "", fmt.Errorf("rendering post %s: %w", posts[i].ID, err)
		}
		b.WriteString(body)
	}
	return b.String(), nil
}

func header(status *mastodon.Status, opts render.DisplayOptions) string {
	var parts []string

	author := lipgloss.NewStyle().Bold(true).Foreground(AccentColor)
	muted := lipgloss.NewStyle().Foreground(MutedColor)

	if opts.ShowPostAuthor {
		parts = append(parts, author.Render(displayName(&status.Account)))
	}
	if opts.ShowDateTime && !status.CreatedAt.IsZero() {
		loc := opts.Location
		if loc != nil {
			date := render.FormatDate(opts.DateTimeFormat, status.CreatedAt.In(loc))
			parts = append(parts, muted.Render(strings.TrimSpace(opts.Text.PreDateTime+" "+date)))
		}
		if status.EditedAt != nil {
			parts = append(parts, muted.Render(opts.Text.Edited))
		}
	}
	if status.IsBoost() {
		parts = append(parts, muted.Italic(true).Render(opts.Text.Boosted),
			author.Render(displayName(&status.Reblog.Account)))
	}
	return strings.Join(parts, " ")
}

func displayName(a *mastodon.Account) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if a.Acct != "" {
		return "@" + a.Acct
	}
	return a.Username
}

// Markdown converts a status body, its media and its preview card to
// Markdown. A content warning is shown as a quote above the body.
func Markdown(status *mastodon.Status, opts render.DisplayOptions) (string, error) {
	var b strings.Builder

	if status.HasContentWarning() {
		warning := status.SpoilerText
		if warning == "" {
			warning = "Sensitive content"
		}
		fmt.Fprintf(&b, "> ⚠ %s\n\n", warning)
	}

	if status.Content != "" {
		md, err := htmltomarkdown.ConvertString(status.Content)
		if err != nil {
			return "", fmt.Errorf("converting status %s: %w", status.ID, err)
		}
		b.WriteString(strings.TrimSpace(md))
		b.WriteString("\n\n")
	}

	for _, m := range status.MediaAttachments {
		alt := m.Description
		if alt == "" {
			alt = "Media attachment"
		}
		fmt.Fprintf(&b, "- %s: [%s](%s)\n", m.Type, escapeLinkText(alt), m.URL)
	}
	if len(status.MediaAttachments) > 0 {
		b.WriteString("\n")
	}

	if opts.ShowPreviewCards && status.Card != nil && status.Card.URL != "" {
		title := status.Card.Title
		if title == "" {
			title = status.Card.URL
		}
		fmt.Fprintf(&b, "> **[%s](%s)**", escapeLinkText(title), status.Card.URL)
		if status.Card.Description != "" {
			fmt.Fprintf(&b, "  \n> %s", status.Card.Description)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

var linkTextEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)

func escapeLinkText(s string) string {
	return linkTextEscaper.Replace(s)
}
