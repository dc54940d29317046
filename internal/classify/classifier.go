package classify

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	thinkingStars = []string{"✶", "✳", "✻", "✽", "✢", "·"}
	logoGlyphs    = []string{"▐", "▛", "▜", "▌"}
	checkboxes    = []string{"◻", "◼", "✔"}

	todoHeaderRe   = regexp.MustCompile(`^(\d+) tasks? \(.*done.*\)\s*·\s*ctrl\+t to hide tasks`)
	parallelHdrRe  = regexp.MustCompile(`^(\d+) agents launched \(ctrl\+o to expand\)`)
	toolResultRe   = regexp.MustCompile(`⎿\s*Added (\d+) lines?, removed (\d+) lines?`)
	separatorRe    = regexp.MustCompile(`^[─━=]{8,}$`)

	authKeywords = []string{
		"please visit", "invalid api key", "login required", "authentication required",
		"/login", "log in to continue", "auth required", "not authenticated",
		"please log in", "oauth",
	}
	errorKeywords = []string{
		"mcp server failed", "mcp server error", "enoent", "econnrefused",
		"command not found", "panic:", "fatal error", "failed to connect",
		"connection refused",
	}
)

// Classify runs the three-pass priority detector over a full 40-row plain
// text display and returns exactly one ScreenEvent.
func Classify(lines [40]string) ScreenEvent {
	all := lines[:]

	if ev, ok := detectToolRequest(all); ok {
		return ev
	}
	if ok := containsAny(all, authKeywords); ok {
		return ScreenEvent{View: ViewAuthRequired}
	}
	if ev, ok := detectTodoList(all); ok {
		return ev
	}
	if ev, ok := detectParallelAgents(all); ok {
		return ev
	}

	tail := lastN(all, 8)
	if ok := detectThinking(tail); ok {
		return ScreenEvent{View: ViewThinking}
	}
	if ok := detectToolRunning(tail); ok {
		return ScreenEvent{View: ViewToolRunning}
	}
	if ok := detectToolResult(tail); ok {
		return ScreenEvent{View: ViewToolResult}
	}
	if ok := detectBackgroundTask(tail); ok {
		return ScreenEvent{View: ViewBackgroundTask}
	}

	if detectIdle(all) {
		return ScreenEvent{View: ViewIdle}
	}
	if containsRune(all, '⏺') {
		return ScreenEvent{View: ViewStreaming}
	}
	if idx, text := lastPromptLine(all); idx >= 0 && text != "" {
		return ScreenEvent{View: ViewUserMessage}
	}
	if hasLogoInHead(all) && !containsRune(all, '⏺') {
		return ScreenEvent{View: ViewStartup}
	}
	if containsAny(all, errorKeywords) {
		return ScreenEvent{View: ViewError}
	}
	return ScreenEvent{View: ViewUnknown}
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func containsAny(lines []string, keywords []string) bool {
	for _, l := range lines {
		low := strings.ToLower(l)
		for _, kw := range keywords {
			if strings.Contains(low, kw) {
				return true
			}
		}
	}
	return false
}

func containsRune(lines []string, r rune) bool {
	for _, l := range lines {
		if strings.ContainsRune(l, r) {
			return true
		}
	}
	return false
}

// --- Pass 1 ---

func detectToolRequest(lines []string) (ScreenEvent, bool) {
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if !strings.Contains(t, "❯ 1.") {
			continue
		}
		opt1 := optionText(t, "1.")
		var opt2, opt3 string
		hasEsc := false
		for j := i; j < len(lines) && j < i+10; j++ {
			tj := strings.TrimSpace(lines[j])
			if strings.HasPrefix(tj, "2.") {
				opt2 = optionText(tj, "2.")
			} else if strings.HasPrefix(tj, "3.") {
				opt3 = optionText(tj, "3.")
			}
			if strings.Contains(lines[j], "Esc to cancel") {
				hasEsc = true
			}
		}
		if opt1 == "" || opt2 == "" || opt3 == "" || !hasEsc {
			continue
		}
		question := findQuestionAbove(lines, i)
		return ScreenEvent{
			View: ViewToolRequest,
			Tool: &ToolRequestPayload{Question: question, Options: []string{opt1, opt2, opt3}},
		}, true
	}
	return ScreenEvent{}, false
}

func optionText(line, marker string) string {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx+len(marker):])
}

func findQuestionAbove(lines []string, toolLineIdx int) string {
	for k := toolLineIdx - 1; k >= 0 && k >= toolLineIdx-15; k-- {
		t := strings.TrimSpace(lines[k])
		if t == "" || separatorRe.MatchString(t) {
			continue
		}
		if strings.HasPrefix(t, "Do you want to") && strings.HasSuffix(t, "?") {
			return t
		}
	}
	return ""
}

func detectTodoList(lines []string) (ScreenEvent, bool) {
	for i, l := range lines {
		m := todoHeaderRe.FindStringSubmatch(strings.TrimSpace(l))
		if m == nil {
			continue
		}
		total, _ := strconv.Atoi(m[1])
		var items []TodoItem
		done := 0
		for j := i + 1; j < len(lines); j++ {
			t := strings.TrimSpace(lines[j])
			if t == "" {
				break
			}
			state, text, ok := splitCheckbox(t)
			if !ok {
				break
			}
			if state == "✔" {
				done++
			}
			items = append(items, TodoItem{State: state, Text: text})
		}
		if len(items) == 0 {
			continue
		}
		return ScreenEvent{
			View: ViewTodoList,
			Todo: &TodoListPayload{Done: done, Total: total, Items: items},
		}, true
	}
	return ScreenEvent{}, false
}

func splitCheckbox(line string) (state, text string, ok bool) {
	for _, cb := range checkboxes {
		if strings.HasPrefix(line, cb) {
			return cb, strings.TrimSpace(strings.TrimPrefix(line, cb)), true
		}
	}
	return "", "", false
}

func detectParallelAgents(lines []string) (ScreenEvent, bool) {
	for i, l := range lines {
		if !parallelHdrRe.MatchString(strings.TrimSpace(l)) {
			continue
		}
		var agents []AgentStatus
		for j := i + 1; j < len(lines); j++ {
			t := lines[j]
			trimmed := strings.TrimSpace(t)
			if trimmed == "" {
				break
			}
			if !isTreeLine(trimmed) {
				break
			}
			agents = append(agents, parseAgentLine(trimmed))
		}
		if len(agents) == 0 {
			continue
		}
		return ScreenEvent{View: ViewParallelAgents, Agents: &ParallelAgentsPayload{Agents: agents}}, true
	}
	return ScreenEvent{}, false
}

func isTreeLine(t string) bool {
	return strings.HasPrefix(t, "├─") || strings.HasPrefix(t, "│") || strings.HasPrefix(t, "└─")
}

func parseAgentLine(t string) AgentStatus {
	t = strings.TrimPrefix(t, "├─")
	t = strings.TrimPrefix(t, "└─")
	t = strings.TrimPrefix(t, "│")
	t = strings.TrimSpace(t)
	done := strings.Contains(strings.ToLower(t), "done") || strings.Contains(t, "✔")
	name := t
	detail := ""
	if idx := strings.Index(t, ":"); idx >= 0 {
		name = strings.TrimSpace(t[:idx])
		detail = strings.TrimSpace(t[idx+1:])
	}
	return AgentStatus{Name: name, Done: done, Detail: detail}
}

// --- Pass 2 (bottom 8 lines) ---

func detectThinking(tail []string) bool {
	for _, l := range tail {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		for _, star := range thinkingStars {
			if strings.HasPrefix(t, star) && strings.HasSuffix(t, "…") {
				return true
			}
		}
	}
	return false
}

func detectToolRunning(tail []string) bool {
	for _, l := range tail {
		if strings.Contains(l, "⎿") &&
			(strings.Contains(l, "Running…") || strings.Contains(l, "Waiting…") ||
				strings.Contains(l, "Running PreToolUse hooks…")) {
			return true
		}
	}
	return false
}

func detectToolResult(tail []string) bool {
	for _, l := range tail {
		if toolResultRe.MatchString(l) {
			return true
		}
	}
	return false
}

func detectBackgroundTask(tail []string) bool {
	for _, l := range tail {
		low := strings.ToLower(l)
		if strings.Contains(low, "in the background") && strings.Contains(low, "manage") {
			return true
		}
	}
	return false
}

// --- Pass 3 ---

func detectIdle(lines []string) bool {
	promptIdx := -1
	for i, l := range lines {
		if strings.Contains(l, "❯") {
			promptIdx = i
		}
	}
	if promptIdx < 0 {
		return false
	}
	return hasSeparatorWithin(lines, promptIdx, -1) && hasSeparatorWithin(lines, promptIdx, 1)
}

func hasSeparatorWithin(lines []string, from, dir int) bool {
	gap := 0
	for i := from + dir; i >= 0 && i < len(lines) && gap <= 3; i += dir {
		t := strings.TrimSpace(lines[i])
		if t == "" {
			gap++
			continue
		}
		if separatorRe.MatchString(t) {
			return true
		}
		return false
	}
	return false
}

func lastPromptLine(lines []string) (int, string) {
	for i := len(lines) - 1; i >= 0; i-- {
		t := strings.TrimSpace(lines[i])
		if strings.HasPrefix(t, "❯") {
			text := strings.TrimSpace(strings.TrimPrefix(t, "❯"))
			if text != "" {
				return i, text
			}
		}
	}
	return -1, ""
}

func hasLogoInHead(lines []string) bool {
	head := lines
	if len(head) > 10 {
		head = head[:10]
	}
	return containsGlyphAny(head, logoGlyphs)
}

func containsGlyphAny(lines []string, glyphs []string) bool {
	for _, l := range lines {
		for _, g := range glyphs {
			if strings.Contains(l, g) {
				return true
			}
		}
	}
	return false
}
