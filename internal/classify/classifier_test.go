package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(rows ...string) [40]string {
	var out [40]string
	copy(out[:], rows)
	return out
}

func TestClassifyToolRequest(t *testing.T) {
	lines := fixture(
		"Do you want to edit main.go?",
		"──────────────────────────",
		"❯ 1. Yes",
		"  2. Yes, and don't ask again",
		"  3. No, and tell Claude what to do differently",
		"",
		"Esc to cancel",
	)
	ev := Classify(lines)
	require.Equal(t, ViewToolRequest, ev.View)
	require.NotNil(t, ev.Tool)
	assert.Equal(t, "Do you want to edit main.go?", ev.Tool.Question)
	assert.Equal(t, []string{"Yes", "Yes, and don't ask again", "No, and tell Claude what to do differently"}, ev.Tool.Options)
}

func TestClassifyAuthRequired(t *testing.T) {
	lines := fixture("Please visit https://example.com/login to authenticate")
	ev := Classify(lines)
	assert.Equal(t, ViewAuthRequired, ev.View)
}

func TestClassifyTodoList(t *testing.T) {
	lines := fixture(
		"3 tasks (1 done, 2 pending) · ctrl+t to hide tasks",
		"✔ write the spec",
		"◼ implement the parser",
		"◻ write tests",
	)
	ev := Classify(lines)
	require.Equal(t, ViewTodoList, ev.View)
	require.NotNil(t, ev.Todo)
	assert.Equal(t, 1, ev.Todo.Done)
	assert.Equal(t, 3, ev.Todo.Total)
	assert.Len(t, ev.Todo.Items, 3)
}

func TestClassifyParallelAgents(t *testing.T) {
	lines := fixture(
		"2 agents launched (ctrl+o to expand)",
		"├─ agent-one: done",
		"└─ agent-two: running",
	)
	ev := Classify(lines)
	require.Equal(t, ViewParallelAgents, ev.View)
	require.NotNil(t, ev.Agents)
	assert.Len(t, ev.Agents.Agents, 2)
	assert.True(t, ev.Agents.Agents[0].Done)
	assert.False(t, ev.Agents.Agents[1].Done)
}

func TestClassifyThinking(t *testing.T) {
	var rows [40]string
	rows[35] = "✶ Pondering…"
	ev := Classify(rows)
	assert.Equal(t, ViewThinking, ev.View)
}

func TestClassifyToolRunning(t *testing.T) {
	var rows [40]string
	rows[36] = "⎿  Running…"
	ev := Classify(rows)
	assert.Equal(t, ViewToolRunning, ev.View)
}

func TestClassifyToolResult(t *testing.T) {
	var rows [40]string
	rows[36] = "⎿  Added 4 lines, removed 1 line"
	ev := Classify(rows)
	assert.Equal(t, ViewToolResult, ev.View)
}

func TestClassifyBackgroundTask(t *testing.T) {
	var rows [40]string
	rows[37] = "Running the build in the background (ctrl+b to manage)"
	ev := Classify(rows)
	assert.Equal(t, ViewBackgroundTask, ev.View)
}

func TestClassifyIdle(t *testing.T) {
	lines := fixture(
		"──────────────────────────",
		"❯",
		"──────────────────────────",
	)
	ev := Classify(lines)
	assert.Equal(t, ViewIdle, ev.View)
}

func TestClassifyStreaming(t *testing.T) {
	var rows [40]string
	rows[10] = "⏺ Here is the plan"
	ev := Classify(rows)
	assert.Equal(t, ViewStreaming, ev.View)
}

func TestClassifyUserMessage(t *testing.T) {
	var rows [40]string
	rows[20] = "❯ fix the bug in parser.go"
	ev := Classify(rows)
	assert.Equal(t, ViewUserMessage, ev.View)
}

func TestClassifyStartup(t *testing.T) {
	lines := fixture(
		"▐▛███▜▌",
		"▝▜█████▛▘",
		"  Claude Code",
	)
	ev := Classify(lines)
	assert.Equal(t, ViewStartup, ev.View)
}

func TestClassifyError(t *testing.T) {
	lines := fixture("mcp server failed to start: connection refused")
	ev := Classify(lines)
	assert.Equal(t, ViewError, ev.View)
}

func TestClassifyUnknownFallback(t *testing.T) {
	var rows [40]string
	ev := Classify(rows)
	assert.Equal(t, ViewUnknown, ev.View)
}

func TestClassifyToolRequestTakesPriorityOverStreaming(t *testing.T) {
	lines := fixture(
		"⏺ I will now make the edit",
		"Do you want to edit main.go?",
		"──────────────────────────",
		"❯ 1. Yes",
		"  2. Yes, and don't ask again",
		"  3. No, and tell Claude what to do differently",
		"",
		"Esc to cancel",
	)
	ev := Classify(lines)
	assert.Equal(t, ViewToolRequest, ev.View)
}

func TestDowngradeStartupIfSeen(t *testing.T) {
	ev := ScreenEvent{View: ViewStartup}
	downgraded := DowngradeStartupIfSeen(ev, true)
	assert.Equal(t, ViewUnknown, downgraded.View)

	notDowngraded := DowngradeStartupIfSeen(ev, false)
	assert.Equal(t, ViewStartup, notDowngraded.View)
}
