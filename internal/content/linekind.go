// Package content implements C3: it classifies each row of a screen snapshot
// into a LineKind, groups runs of rows into ContentRegions, and renders those
// regions into the rich-text dialect the messenger adapter understands.
package content

import (
	"regexp"
	"strings"
)

// LineKind is the fine-grained classification of a single screen row, distinct
// from (and finer than) classify.TerminalView which classifies whole screens.
type LineKind string

const (
	KindContent       LineKind = "content"
	KindResponse      LineKind = "response"
	KindToolConnector LineKind = "tool_connector"
	KindSeparator     LineKind = "separator"
	KindStatusBar     LineKind = "status_bar"
	KindThinking      LineKind = "thinking"
	KindToolHeader    LineKind = "tool_header"
	KindPrompt        LineKind = "prompt"
	KindBox           LineKind = "box"
	KindLogo          LineKind = "logo"
	KindEmpty         LineKind = "empty"
	KindDiffDelimiter LineKind = "diff_delimiter"
	KindTodoItem      LineKind = "todo_item"
	KindAgentTree     LineKind = "agent_tree"
	KindStartup       LineKind = "startup"
)

var (
	separatorLineRe = regexp.MustCompile(`^[─━]{6,}$`)
	diffDelimiterRe = regexp.MustCompile(`^(diff --git|@@|\+\+\+|---)(\s|$)`)
	boxLineRe       = regexp.MustCompile(`^[╭╮╰╯│├┤┬┴┼].*[╭╮╰╯│├┤┬┴┼]?$`)
	statusBarRe     = regexp.MustCompile(`ctrl\+[a-z]|tokens|context left`)
	toolHeaderRe    = regexp.MustCompile(`^[A-Z][a-zA-Z]*\(.*\)$`)
)

// ClassifyLine assigns a LineKind to a single already-plain-text row, given
// its leading glyph and shape. It never looks at neighboring rows; region
// grouping (which needs that context) happens in GroupRegions.
func ClassifyLine(line string) LineKind {
	t := strings.TrimSpace(line)
	switch {
	case t == "":
		return KindEmpty
	case separatorLineRe.MatchString(t):
		return KindSeparator
	case diffDelimiterRe.MatchString(t):
		return KindDiffDelimiter
	case strings.HasPrefix(t, "❯"):
		return KindPrompt
	case strings.HasPrefix(t, "⏺"):
		return KindResponse
	case strings.HasPrefix(t, "⎿"):
		return KindToolConnector
	case strings.HasPrefix(t, "✶") || strings.HasPrefix(t, "✳") || strings.HasPrefix(t, "✻") ||
		strings.HasPrefix(t, "✽") || strings.HasPrefix(t, "✢"):
		return KindThinking
	case strings.HasPrefix(t, "◻") || strings.HasPrefix(t, "◼") || strings.HasPrefix(t, "✔"):
		return KindTodoItem
	case strings.HasPrefix(t, "├─") || strings.HasPrefix(t, "└─") || strings.HasPrefix(t, "│"):
		return KindAgentTree
	case strings.ContainsAny(t, "▐▛▜▌"):
		return KindLogo
	case boxLineRe.MatchString(t):
		return KindBox
	case statusBarRe.MatchString(strings.ToLower(t)):
		return KindStatusBar
	case toolHeaderRe.MatchString(t):
		return KindToolHeader
	default:
		return KindContent
	}
}

// IsChrome reports whether a LineKind is UI furniture that should never reach
// a rendered message: separators, boxes, status bars, prompts, and logos.
func IsChrome(k LineKind) bool {
	switch k {
	case KindSeparator, KindBox, KindStatusBar, KindPrompt, KindLogo, KindStartup, KindEmpty:
		return true
	default:
		return false
	}
}
