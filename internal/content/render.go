package content

import (
	"strings"

	"github.com/samsaffron/tuibridge/internal/vterm"
)

// maxMessageLen is the messenger's hard per-message character limit (spec
// §5); text longer than this must be split, never truncated.
const maxMessageLen = 4096

// escape replaces the three dialect sentinel characters with their entity
// forms. It must never run on text already inside a tag's markup, only on
// the literal content between tags.
func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// RenderRegions renders an ordered list of regions into one rich-text
// document, separating regions with a blank line.
func RenderRegions(regions []ContentRegion) string {
	var b strings.Builder
	for i, r := range regions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(RenderRegion(r))
	}
	return b.String()
}

// RenderRegion renders a single region to the rich-text dialect: headings as
// bold, code blocks as preformatted, prose reflowed with inline bold/italic
// preserved from the source spans.
func RenderRegion(r ContentRegion) string {
	switch r.Kind {
	case RegionHeading:
		return "<b>" + escape(strings.Join(r.Lines(), " ")) + "</b>"
	case RegionCodeBlock:
		return "<pre>" + escape(strings.Join(r.Lines(), "\n")) + "</pre>"
	default:
		return renderProse(r.Records)
	}
}

// renderProse reflows a run of wrapped terminal rows into a single flowing
// paragraph, joining them with a space rather than preserving the
// incidental 120-column wrap points, while still marking up inline runs
// that were bold or italic in the source.
func renderProse(records []LineRecord) string {
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteString(" ")
		}
		if len(rec.Spans) == 0 {
			b.WriteString(renderMarkdownLine(rec.Text))
			continue
		}
		b.WriteString(renderSpans(rec.Spans))
	}
	return b.String()
}

func renderSpans(spans []vterm.Span) string {
	var b strings.Builder
	for _, sp := range spans {
		text := escape(sp.Text)
		if text == "" {
			continue
		}
		open, close := tagsFor(sp)
		b.WriteString(open)
		b.WriteString(text)
		b.WriteString(close)
	}
	return b.String()
}

func tagsFor(sp vterm.Span) (open, closeTag string) {
	var o, c strings.Builder
	if sp.Bold {
		o.WriteString("<b>")
		c.WriteString("</b>")
	}
	if sp.Italic {
		o.WriteString("<i>")
		c.WriteString("</i>")
	}
	return o.String(), reverseTags(c.String())
}

// reverseTags turns a naive forward-appended close-tag string into properly
// nested closing order (innermost first).
func reverseTags(s string) string {
	if s == "" {
		return s
	}
	var tags []string
	for _, part := range strings.Split(s, "</") {
		if part == "" {
			continue
		}
		tags = append(tags, "</"+part)
	}
	var b strings.Builder
	for i := len(tags) - 1; i >= 0; i-- {
		b.WriteString(tags[i])
	}
	return b.String()
}
