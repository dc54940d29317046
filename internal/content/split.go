package content

import "strings"

// Split breaks rendered rich text into chunks no longer than limit,
// preferring to break at a paragraph boundary ("\n\n"), then a single
// newline, then a space, and only mid-word as a last resort. Splitting never
// changes the concatenation of the non-separator content (spec invariant
// P9): Split(s) joined back together, modulo the boundary it broke on and
// the fence-reopening markup described below, reconstructs s.
//
// If a chunk boundary falls inside an open <pre> block, the block is closed
// at the end of that chunk and reopened with <pre> at the start of the next,
// so every chunk is independently well-formed markup.
func Split(s string, limit int) []string {
	if limit <= 0 {
		limit = maxMessageLen
	}
	if len(s) <= limit {
		return []string{s}
	}

	var chunks []string
	remaining := s
	openPre := false

	for len(remaining) > 0 {
		budget := limit
		if openPre {
			budget -= len("<pre>")
		}
		if budget <= 0 {
			budget = limit
		}
		if len(remaining) <= budget {
			chunk := remaining
			if openPre {
				chunk = "<pre>" + chunk
			}
			chunks = append(chunks, chunk)
			break
		}

		cut := bestBreak(remaining, budget)
		piece := remaining[:cut]
		if openPre {
			piece = "<pre>" + piece
		}
		closesPre := countOpen(piece, "<pre>") > countOpen(piece, "</pre>")
		if closesPre && len(piece)+len("</pre>") > limit && budget > len("</pre>") {
			// Leave room for the closing tag so the chunk stays within limit.
			cut = bestBreak(remaining, budget-len("</pre>"))
			piece = remaining[:cut]
			if openPre {
				piece = "<pre>" + piece
			}
			closesPre = countOpen(piece, "<pre>") > countOpen(piece, "</pre>")
		}
		if closesPre {
			piece += "</pre>"
		}
		chunks = append(chunks, piece)
		openPre = closesPre
		remaining = strings.TrimLeft(remaining[cut:], " ")
	}
	return chunks
}

// bestBreak finds the furthest-back break point at or before budget,
// preferring a paragraph break, then a line break, then a space.
func bestBreak(s string, budget int) int {
	if budget >= len(s) {
		return len(s)
	}
	window := s[:budget]
	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return idx + 2
	}
	if idx := strings.LastIndex(window, "\n"); idx > 0 {
		return idx + 1
	}
	if idx := strings.LastIndex(window, " "); idx > 0 {
		return idx + 1
	}
	return budget
}

func countOpen(s, tag string) int {
	return strings.Count(s, tag)
}
