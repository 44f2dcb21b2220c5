package markdown

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Markdown wraps reply-guideline source. HTML and plain text are rendered on
// demand and cached.
type Markdown struct {
	Source string

	renderedHTML *template.HTML
	renderedText *string
}

var (
	bfRenderer = blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.HrefTargetBlank | blackfriday.Smartypants | blackfriday.SmartypantsDashes,
	})
	bfExtensions = blackfriday.NoIntraEmphasis | blackfriday.Tables | blackfriday.FencedCode | blackfriday.Autolink | blackfriday.Strikethrough | blackfriday.SpaceHeadings | blackfriday.NoEmptyLineBeforeBlock
	policy       = bluemonday.UGCPolicy()
)

func New(source string) *Markdown {
	return &Markdown{Source: source}
}

// IsBlank reports whether the source has no visible content.
func (m *Markdown) IsBlank() bool {
	return strings.TrimSpace(m.Source) == ""
}

// Trimmed is the source as it goes into a prompt.
func (m *Markdown) Trimmed() string {
	return strings.TrimSpace(m.Source)
}

func (m *Markdown) run() []byte {
	return blackfriday.Run([]byte(m.Source),
		blackfriday.WithRenderer(bfRenderer),
		blackfriday.WithExtensions(bfExtensions),
	)
}

// Render converts the source into sanitized HTML.
func (m *Markdown) Render() template.HTML {
	if m.renderedHTML != nil {
		return *m.renderedHTML
	}

	safe := policy.SanitizeBytes(m.run())
	html := template.HTML(bytes.TrimSpace(safe))
	m.renderedHTML = &html
	return html
}

// PlainText strips every tag from the rendered output.
func (m *Markdown) PlainText() string {
	if m.renderedText != nil {
		return *m.renderedText
	}

	text := string(bytes.TrimSpace(bluemonday.StrictPolicy().SanitizeBytes(m.run())))
	m.renderedText = &text
	return text
}
