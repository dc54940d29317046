// Package classify implements C2: the screen classifier. It turns a full
// 40-row plain-text display into exactly one ScreenEvent via a three-pass
// priority detector (spec §4.2).
package classify

// TerminalView is the semantic classification of a full screen snapshot.
type TerminalView string

const (
	ViewStartup         TerminalView = "STARTUP"
	ViewIdle            TerminalView = "IDLE"
	ViewUserMessage     TerminalView = "USER_MESSAGE"
	ViewThinking        TerminalView = "THINKING"
	ViewStreaming       TerminalView = "STREAMING"
	ViewToolRequest     TerminalView = "TOOL_REQUEST"
	ViewAuthRequired    TerminalView = "AUTH_REQUIRED"
	ViewToolRunning     TerminalView = "TOOL_RUNNING"
	ViewToolResult      TerminalView = "TOOL_RESULT"
	ViewTodoList        TerminalView = "TODO_LIST"
	ViewParallelAgents  TerminalView = "PARALLEL_AGENTS"
	ViewBackgroundTask  TerminalView = "BACKGROUND_TASK"
	ViewError           TerminalView = "ERROR"
	ViewUnknown         TerminalView = "UNKNOWN"
)

// ToolRequestPayload carries the parsed approval options and question text
// for a TOOL_REQUEST observation. Options are always exactly three, in
// on-screen order.
type ToolRequestPayload struct {
	Question string
	Options  []string
}

// TodoItem is one line of a TODO_LIST observation.
type TodoItem struct {
	State string // the checkbox glyph: "◻", "◼", or "✔"
	Text  string
}

// TodoListPayload carries the header counts and checklist items.
type TodoListPayload struct {
	Done  int
	Total int
	Items []TodoItem
}

// AgentStatus is one sub-agent's line in a PARALLEL_AGENTS tree.
type AgentStatus struct {
	Name   string
	Done   bool
	Detail string
}

// ParallelAgentsPayload carries the set of sub-agents and their state.
type ParallelAgentsPayload struct {
	Agents []AgentStatus
}

// ScreenEvent is the classifier's single output per call.
type ScreenEvent struct {
	View    TerminalView
	Tool    *ToolRequestPayload
	Todo    *TodoListPayload
	Agents  *ParallelAgentsPayload
}

// DowngradeStartupIfSeen implements the caller-side fail-safe described in
// spec §4.2: once a session has left STARTUP, any later STARTUP result (the
// persistently pinned banner) is downgraded to UNKNOWN rather than masking
// real transitions.
func DowngradeStartupIfSeen(ev ScreenEvent, leftStartup bool) ScreenEvent {
	if ev.View == ViewStartup && leftStartup {
		return ScreenEvent{View: ViewUnknown}
	}
	return ev
}
