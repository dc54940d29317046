package content

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

// richTextMarkdown is a shared goldmark instance. The agent's terminal
// output sometimes reaches a plain-text line as literal Markdown (bare
// "**bold**", "`code`", bullet "- item") rather than as an ANSI-attributed
// span, when the CLI itself doesn't render that particular emphasis. This
// converts that literal syntax to the same rich-text dialect tagsFor
// produces from real span attributes.
var richTextMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
)

// renderMarkdownLine converts one line of literal Markdown to the rich-text
// dialect. If the line carries no Markdown syntax, the result is just the
// escaped text, so calling this unconditionally on unattributed prose lines
// is safe.
func renderMarkdownLine(line string) string {
	if strings.TrimSpace(line) == "" {
		return escape(line)
	}
	var buf bytes.Buffer
	if err := richTextMarkdown.Convert([]byte(line), &buf); err != nil {
		return escape(line)
	}
	return htmlToRichText(buf.String())
}

// htmlToRichText walks goldmark's HTML output and re-emits only the tags
// the rich-text dialect understands (<b>, <i>, <u>, <s>, <code>, <pre>,
// <a href>); headings become <b> and list items become bullet or numbered
// lines.
func htmlToRichText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))

	var sb strings.Builder
	type listState struct {
		ordered bool
		counter int
	}
	var listStack []listState
	inPre := false

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()

		switch tt {
		case html.TextToken:
			// The tokenizer hands back Data already unescaped (literal "<",
			// "&", ...), so it must be re-escaped before going back into the
			// rich-text dialect.
			sb.WriteString(html.EscapeString(tok.Data))

		case html.StartTagToken, html.SelfClosingTagToken:
			switch tok.Data {
			case "b", "strong":
				sb.WriteString("<b>")
			case "i", "em":
				sb.WriteString("<i>")
			case "u", "ins":
				sb.WriteString("<u>")
			case "s", "strike", "del":
				sb.WriteString("<s>")
			case "code":
				if !inPre {
					sb.WriteString("<code>")
				}
			case "pre":
				inPre = true
				sb.WriteString("<pre>")
			case "a":
				if href := attrVal(tok.Attr, "href"); href != "" {
					fmt.Fprintf(&sb, `<a href="%s">`, html.EscapeString(href))
				} else {
					sb.WriteString("<a>")
				}
			case "br":
				sb.WriteString("\n")
			case "ul":
				listStack = append(listStack, listState{})
			case "ol":
				listStack = append(listStack, listState{ordered: true})
			case "li":
				if len(listStack) > 0 {
					top := &listStack[len(listStack)-1]
					if top.ordered {
						top.counter++
						fmt.Fprintf(&sb, "\n%d. ", top.counter)
					} else {
						sb.WriteString("\n• ")
					}
				} else {
					sb.WriteString("\n• ")
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				sb.WriteString("<b>")
			}

		case html.EndTagToken:
			switch tok.Data {
			case "b", "strong":
				sb.WriteString("</b>")
			case "i", "em":
				sb.WriteString("</i>")
			case "u", "ins":
				sb.WriteString("</u>")
			case "s", "strike", "del":
				sb.WriteString("</s>")
			case "code":
				if !inPre {
					sb.WriteString("</code>")
				}
			case "pre":
				inPre = false
				sb.WriteString("</pre>")
			case "a":
				sb.WriteString("</a>")
			case "p":
				sb.WriteString("\n")
			case "ul", "ol":
				if len(listStack) > 0 {
					listStack = listStack[:len(listStack)-1]
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				sb.WriteString("</b>")
			}
		}
	}

	return strings.TrimSpace(sb.String())
}

func attrVal(attrs []html.Attribute, name string) string {
	for _, a := range attrs {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
