// Package botcmd is the bot command layer spec §6 calls out as "exposed by
// the surrounding bot layer, not the core itself": it parses slash commands
// and inline-keyboard callback data and turns them into calls against the
// supervisor, the session store, and the messenger. None of C1-C6 import
// this package; it only calls them.
package botcmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samsaffron/tuibridge/internal/config"
	"github.com/samsaffron/tuibridge/internal/messenger"
	"github.com/samsaffron/tuibridge/internal/store"
	"github.com/samsaffron/tuibridge/internal/supervisor"
)

// Replier is the minimal messenger surface command handling needs beyond
// what the supervisor already wires up for streaming replies.
type Replier interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Dispatcher routes inbound messenger updates to command handlers.
type Dispatcher struct {
	sv    *supervisor.Supervisor
	store store.Store
	reply Replier
	cfg   *config.Config
}

// New creates a Dispatcher.
func New(sv *supervisor.Supervisor, st store.Store, reply Replier, cfg *config.Config) *Dispatcher {
	return &Dispatcher{sv: sv, store: st, reply: reply, cfg: cfg}
}

// Handle routes one messenger update: a command, plain text routed to the
// user's active session, or an inline-keyboard callback.
func (d *Dispatcher) Handle(ctx context.Context, upd messenger.Update) error {
	switch {
	case upd.CallbackData != "":
		return d.handleCallback(ctx, upd)
	case strings.HasPrefix(upd.Text, "/"):
		return d.handleCommand(ctx, upd)
	default:
		return d.handlePlainText(ctx, upd)
	}
}

func (d *Dispatcher) handlePlainText(ctx context.Context, upd messenger.Update) error {
	if err := d.sv.Submit(upd.UserID, upd.Text); err != nil {
		_, sendErr := d.reply.SendMessage(ctx, upd.ChatID, "No active session — send /new to start one.")
		return sendErr
	}
	return nil
}

func (d *Dispatcher) handleCommand(ctx context.Context, upd messenger.Update) error {
	fields := strings.Fields(upd.Text)
	cmd := fields[0]
	if idx := strings.Index(cmd, "@"); idx >= 0 {
		cmd = cmd[:idx] // Telegram appends @botname in group chats.
	}
	var arg string
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch cmd {
	case "/start", "/new":
		return d.cmdNew(ctx, upd, arg)
	case "/sessions":
		return d.cmdSessions(ctx, upd)
	case "/exit":
		return d.cmdExit(ctx, upd)
	case "/update_claude":
		return d.cmdUpdateClaude(ctx, upd)
	case "/history", "/git", "/context":
		return d.notAvailable(ctx, upd, cmd)
	case "/download":
		return d.cmdDownload(ctx, upd, arg)
	default:
		_, err := d.reply.SendMessage(ctx, upd.ChatID, "Unknown command "+cmd)
		return err
	}
}

func (d *Dispatcher) cmdNew(ctx context.Context, upd messenger.Update, arg string) error {
	project := arg
	projectPath := arg
	if project == "" {
		project = d.cfg.Agent.DefaultProject
		projectPath = d.cfg.Agent.DefaultProject
	}
	if projectPath == "" {
		_, err := d.reply.SendMessage(ctx, upd.ChatID, "No project configured — set agent.default_project or pass a path to /new.")
		return err
	}

	sess, err := d.sv.StartSession(ctx, upd.UserID, upd.ChatID, project, projectPath)
	if err != nil {
		_, sendErr := d.reply.SendMessage(ctx, upd.ChatID, "Could not start session: "+err.Error())
		if sendErr != nil {
			return sendErr
		}
		return nil
	}
	_, err = d.reply.SendMessage(ctx, upd.ChatID, fmt.Sprintf("Started session %s in %s.", sess.ID, sess.Project))
	return err
}

func (d *Dispatcher) cmdSessions(ctx context.Context, upd messenger.Update) error {
	sessions, err := d.store.ListByUser(ctx, upd.UserID, 20)
	if err != nil {
		_, sendErr := d.reply.SendMessage(ctx, upd.ChatID, "Could not list sessions: "+err.Error())
		return sendErr
	}
	if len(sessions) == 0 {
		_, sendErr := d.reply.SendMessage(ctx, upd.ChatID, "No sessions yet. Send /new to start one.")
		return sendErr
	}

	var b strings.Builder
	active, hasActive := d.sv.Active(upd.UserID)
	for _, s := range sessions {
		marker := " "
		if hasActive && s.ID == active.ID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s — %s (%s)\n", marker, s.ID, s.Project, s.Status)
	}
	_, err = d.reply.SendMessage(ctx, upd.ChatID, b.String())
	return err
}

func (d *Dispatcher) cmdExit(ctx context.Context, upd messenger.Update) error {
	sess, ok := d.sv.Active(upd.UserID)
	if !ok {
		_, err := d.reply.SendMessage(ctx, upd.ChatID, "No active session to exit.")
		return err
	}
	if err := d.sv.Kill(ctx, sess.ID, nil); err != nil {
		_, sendErr := d.reply.SendMessage(ctx, upd.ChatID, "Could not end session: "+err.Error())
		return sendErr
	}
	_, err := d.reply.SendMessage(ctx, upd.ChatID, "Session ended.")
	return err
}

func (d *Dispatcher) cmdUpdateClaude(ctx context.Context, upd messenger.Update) error {
	_, err := d.reply.SendMessage(ctx, upd.ChatID,
		fmt.Sprintf("Run this on the host to update the agent CLI:\n%s", d.cfg.Agent.UpdateCommand))
	return err
}

func (d *Dispatcher) cmdDownload(ctx context.Context, upd messenger.Update, arg string) error {
	if arg == "" {
		_, err := d.reply.SendMessage(ctx, upd.ChatID, "Usage: /download <path>")
		return err
	}
	return d.notAvailable(ctx, upd, "/download")
}

func (d *Dispatcher) notAvailable(ctx context.Context, upd messenger.Update, cmd string) error {
	_, err := d.reply.SendMessage(ctx, upd.ChatID, cmd+" is not yet available.")
	return err
}

// handleCallback dispatches an inline-keyboard press by its data prefix:
// project:, switch:, kill:, update:, tool:, page:.
func (d *Dispatcher) handleCallback(ctx context.Context, upd messenger.Update) error {
	defer d.reply.AnswerCallback(ctx, upd.CallbackID)

	prefix, rest, ok := strings.Cut(upd.CallbackData, ":")
	if !ok {
		return nil
	}

	switch prefix {
	case "switch":
		return d.callbackSwitch(ctx, upd, rest)
	case "kill":
		return d.callbackKill(ctx, upd, rest)
	case "tool":
		return d.callbackTool(ctx, upd, rest)
	case "project", "update", "page":
		return d.notAvailable(ctx, upd, prefix)
	default:
		return nil
	}
}

func (d *Dispatcher) callbackSwitch(ctx context.Context, upd messenger.Update, sessionID string) error {
	sessions, err := d.store.ListByUser(ctx, upd.UserID, 50)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if s.ID == sessionID {
			_, sendErr := d.reply.SendMessage(ctx, upd.ChatID, "Switched to session "+sessionID)
			return sendErr
		}
	}
	_, err = d.reply.SendMessage(ctx, upd.ChatID, "Unknown session "+sessionID)
	return err
}

func (d *Dispatcher) callbackKill(ctx context.Context, upd messenger.Update, sessionID string) error {
	if err := d.sv.Kill(ctx, sessionID, nil); err != nil {
		_, sendErr := d.reply.SendMessage(ctx, upd.ChatID, "Could not kill "+sessionID+": "+err.Error())
		return sendErr
	}
	_, err := d.reply.SendMessage(ctx, upd.ChatID, "Killed session "+sessionID)
	return err
}

// callbackTool answers a TOOL_REQUEST approval prompt: data is the button's
// index within the three on-screen options, which we translate into arrow
// presses plus Enter against the agent's own menu rather than typing text,
// since the agent renders this as a selectable list, not a text field.
func (d *Dispatcher) callbackTool(ctx context.Context, upd messenger.Update, indexStr string) error {
	idx, err := strconv.Atoi(indexStr)
	if err != nil || idx < 0 || idx > 2 {
		return nil
	}
	sess, ok := d.sv.Active(upd.UserID)
	if !ok {
		return nil
	}
	for i := 0; i < idx; i++ {
		if err := sess.SendKeys([]byte{0x1b, '[', 'B'}); err != nil { // arrow down
			return err
		}
	}
	return sess.SendKeys([]byte("\r"))
}
