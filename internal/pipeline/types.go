// Package pipeline implements C4: the per-session state machine that turns a
// classified screen observation into the list of actions the messenger side
// should take, driven by a static transition table rather than scattered
// conditionals.
package pipeline

import "github.com/samsaffron/tuibridge/internal/classify"

// Phase is where a session sits in its reply lifecycle.
type Phase string

const (
	PhaseDormant     Phase = "DORMANT"
	PhaseThinking    Phase = "THINKING"
	PhaseStreaming   Phase = "STREAMING"
	PhaseToolPending Phase = "TOOL_PENDING"
)

// Action is one of the closed set of side effects a transition can request.
// Handlers are supplied by the caller; the runner only ever calls them by
// name, never embeds messenger or PTY logic itself.
type Action string

const (
	ActionSendThinking    Action = "send_thinking"
	ActionExtractAndSend  Action = "extract_and_send"
	ActionFinalize        Action = "finalize"
	ActionSendKeyboard    Action = "send_keyboard"
	ActionSendAuthWarning Action = "send_auth_warning"
)

// transition is one row of the static table: the phase to move to and the
// actions to run, in order, on the way there.
type transition struct {
	next    Phase
	actions []Action
}

var table = map[Phase]map[classify.TerminalView]transition{
	PhaseDormant: {
		classify.ViewIdle:         {PhaseDormant, nil},
		classify.ViewStartup:      {PhaseDormant, nil},
		classify.ViewUserMessage:  {PhaseDormant, nil},
		classify.ViewThinking:     {PhaseThinking, []Action{ActionSendThinking}},
		classify.ViewStreaming:    {PhaseStreaming, []Action{ActionExtractAndSend}},
		classify.ViewToolRequest:  {PhaseToolPending, []Action{ActionSendKeyboard}},
		classify.ViewAuthRequired: {PhaseDormant, []Action{ActionSendAuthWarning}},
		classify.ViewError:        {PhaseDormant, nil},
	},
	PhaseThinking: {
		classify.ViewThinking:     {PhaseThinking, nil},
		classify.ViewToolRunning:  {PhaseThinking, nil},
		classify.ViewStreaming:    {PhaseStreaming, []Action{ActionExtractAndSend}},
		classify.ViewToolRequest:  {PhaseToolPending, []Action{ActionSendKeyboard}},
		classify.ViewIdle:         {PhaseDormant, []Action{ActionExtractAndSend, ActionFinalize}},
		classify.ViewAuthRequired: {PhaseDormant, []Action{ActionSendAuthWarning}},
		classify.ViewError:        {PhaseDormant, []Action{ActionFinalize}},
	},
	PhaseStreaming: {
		classify.ViewStreaming:      {PhaseStreaming, []Action{ActionExtractAndSend}},
		classify.ViewToolRunning:    {PhaseStreaming, []Action{ActionExtractAndSend}},
		classify.ViewToolResult:     {PhaseStreaming, []Action{ActionExtractAndSend}},
		classify.ViewTodoList:       {PhaseStreaming, []Action{ActionExtractAndSend}},
		classify.ViewParallelAgents: {PhaseStreaming, []Action{ActionExtractAndSend}},
		classify.ViewBackgroundTask: {PhaseStreaming, []Action{ActionExtractAndSend}},
		classify.ViewThinking:       {PhaseThinking, nil},
		classify.ViewToolRequest:    {PhaseToolPending, []Action{ActionSendKeyboard}},
		classify.ViewIdle:           {PhaseDormant, []Action{ActionExtractAndSend, ActionFinalize}},
		classify.ViewAuthRequired:   {PhaseDormant, []Action{ActionSendAuthWarning}},
		classify.ViewError:          {PhaseDormant, []Action{ActionExtractAndSend, ActionFinalize}},
	},
	PhaseToolPending: {
		classify.ViewToolRequest:  {PhaseToolPending, nil},
		classify.ViewToolRunning:  {PhaseStreaming, nil},
		classify.ViewStreaming:    {PhaseStreaming, []Action{ActionExtractAndSend}},
		classify.ViewIdle:         {PhaseDormant, []Action{ActionFinalize}},
		classify.ViewAuthRequired: {PhaseDormant, []Action{ActionSendAuthWarning}},
		classify.ViewError:        {PhaseDormant, []Action{ActionFinalize}},
	},
}

// Lookup resolves a (phase, view) pair against the static table. Pairs not
// present stay in the current phase and run no actions — the transition
// table need only list the rows that change something.
func Lookup(phase Phase, view classify.TerminalView) (Phase, []Action) {
	if row, ok := table[phase]; ok {
		if t, ok := row[view]; ok {
			return t.next, t.actions
		}
	}
	return phase, nil
}
