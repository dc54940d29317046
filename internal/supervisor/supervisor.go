package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samsaffron/tuibridge/internal/classify"
	"github.com/samsaffron/tuibridge/internal/content"
	"github.com/samsaffron/tuibridge/internal/pipeline"
	"github.com/samsaffron/tuibridge/internal/ptyproc"
	"github.com/samsaffron/tuibridge/internal/store"
	"github.com/samsaffron/tuibridge/internal/streammsg"
)

// KeyboardSender shows an inline keyboard for a TOOL_REQUEST prompt; the
// messenger package's Client satisfies this.
type KeyboardSender interface {
	SendKeyboard(ctx context.Context, chatID int64, text string, options []string, callbackPrefix string) (int, error)
}

// Config tunes concurrency and timing. Zero values fall back to the
// defaults documented in internal/config.
type Config struct {
	MaxConcurrentPerUser int
	PollInterval         time.Duration
	TerminateGrace       time.Duration
	AgentBinary          string
	AgentExtraArgs       []string
}

// spawnFunc matches ptyproc.Spawn's signature; overridable in tests so they
// never need a real agent binary on PATH.
type spawnFunc func(name string, args []string, dir string, env []string) (*ptyproc.Process, error)

// Supervisor owns every running session across every user.
type Supervisor struct {
	mu sync.Mutex

	sessions     map[string]*Session
	byUser       map[int64][]*Session
	activeByUser map[int64]*Session

	cfg        Config
	store      store.Store
	keyboard   KeyboardSender
	controller *streammsg.Controller
	log        *slog.Logger
	spawn      spawnFunc
}

// New creates a Supervisor. sender drives the streaming message controller
// directly; keyboard is used only for TOOL_REQUEST prompts.
func New(cfg Config, st store.Store, sender streammsg.Sender, keyboard KeyboardSender, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxConcurrentPerUser <= 0 {
		cfg.MaxConcurrentPerUser = 3
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 300 * time.Millisecond
	}
	if cfg.TerminateGrace <= 0 {
		cfg.TerminateGrace = 5 * time.Second
	}
	if cfg.AgentBinary == "" {
		cfg.AgentBinary = "claude"
	}
	return &Supervisor{
		sessions:     make(map[string]*Session),
		byUser:       make(map[int64][]*Session),
		activeByUser: make(map[int64]*Session),
		cfg:          cfg,
		store:        st,
		keyboard:     keyboard,
		controller:   streammsg.New(sender, 1500*time.Millisecond, 1200*time.Millisecond, log),
		log:          log,
		spawn:        ptyproc.Spawn,
	}
}

// StartSession spawns a new agent PTY for userID, enforcing the configured
// per-user concurrency bound, and makes it the user's active session.
func (sv *Supervisor) StartSession(ctx context.Context, userID, chatID int64, project, projectPath string) (*Session, error) {
	sv.mu.Lock()
	if len(sv.byUser[userID]) >= sv.cfg.MaxConcurrentPerUser {
		sv.mu.Unlock()
		return nil, fmt.Errorf("supervisor: user %d already has %d sessions running", userID, sv.cfg.MaxConcurrentPerUser)
	}
	sv.mu.Unlock()

	proc, err := sv.spawn(sv.cfg.AgentBinary, sv.cfg.AgentExtraArgs, projectPath, nil)
	if err != nil {
		return nil, fmt.Errorf("supervisor: spawn agent: %w", err)
	}

	sess := newSession(userID, chatID, project, projectPath, proc, sv.log)

	if sv.store != nil {
		if err := sv.store.Create(ctx, store.Session{
			ID: sess.ID, UserID: userID, Project: project,
			ProjectPath: projectPath, StartedAt: sess.StartedAt,
		}); err != nil {
			sv.log.Error("supervisor: record session failed", "error", err)
		}
	}

	sv.mu.Lock()
	sv.sessions[sess.ID] = sess
	sv.byUser[userID] = append(sv.byUser[userID], sess)
	sv.activeByUser[userID] = sess
	sv.mu.Unlock()

	return sess, nil
}

// Active returns the user's current active session, if any.
func (sv *Supervisor) Active(userID int64) (*Session, bool) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	s, ok := sv.activeByUser[userID]
	return s, ok
}

// Submit routes text to the user's active session.
func (sv *Supervisor) Submit(userID int64, text string) error {
	sess, ok := sv.Active(userID)
	if !ok {
		return fmt.Errorf("supervisor: no active session for user %d", userID)
	}
	return sess.Submit(text)
}

// Kill terminates a session and, if it was the user's active session,
// promotes the next-most-recently-started surviving session to active.
func (sv *Supervisor) Kill(ctx context.Context, sessionID string, exitCode *int) error {
	sv.mu.Lock()
	sess, ok := sv.sessions[sessionID]
	if !ok {
		sv.mu.Unlock()
		return fmt.Errorf("supervisor: unknown session %s", sessionID)
	}
	delete(sv.sessions, sessionID)
	sv.removeFromUserLocked(sess)
	sv.mu.Unlock()

	err := sess.terminate(sv.cfg.TerminateGrace)

	status := store.StatusEnded
	if err != nil {
		status = store.StatusCrashed
	}
	if sv.store != nil {
		if serr := sv.store.End(ctx, sessionID, status, exitCode); serr != nil {
			sv.log.Error("supervisor: record session end failed", "error", serr)
		}
	}
	sv.controller.Reset(sess.ChatID)
	return err
}

func (sv *Supervisor) removeFromUserLocked(sess *Session) {
	remaining := sv.byUser[sess.UserID][:0]
	for _, s := range sv.byUser[sess.UserID] {
		if s.ID != sess.ID {
			remaining = append(remaining, s)
		}
	}
	sv.byUser[sess.UserID] = remaining

	if sv.activeByUser[sess.UserID] == sess {
		delete(sv.activeByUser, sess.UserID)
		if len(remaining) > 0 {
			sv.activeByUser[sess.UserID] = remaining[len(remaining)-1]
		}
	}
}

// Run drives the poll loop until ctx is cancelled, then terminates every
// remaining session with a final tick so any in-flight reply can finalize.
func (sv *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(sv.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sv.shutdown(context.Background())
			return
		case now := <-ticker.C:
			sv.tick(ctx, now)
		}
	}
}

func (sv *Supervisor) tick(ctx context.Context, now time.Time) {
	sv.mu.Lock()
	sessions := make([]*Session, 0, len(sv.sessions))
	for _, s := range sv.sessions {
		sessions = append(sessions, s)
	}
	sv.mu.Unlock()

	for _, s := range sessions {
		s.observe(ctx, sv.handlersFor(s))
	}
	sv.controller.Tick(ctx, now)
}

func (sv *Supervisor) shutdown(ctx context.Context) {
	sv.mu.Lock()
	sessions := make([]*Session, 0, len(sv.sessions))
	for _, s := range sv.sessions {
		sessions = append(sessions, s)
	}
	sv.mu.Unlock()

	for _, s := range sessions {
		s.observe(ctx, sv.handlersFor(s))
		if err := sv.Kill(ctx, s.ID, nil); err != nil {
			sv.log.Error("supervisor: shutdown kill failed", "session_id", s.ID, "error", err)
		}
	}
	sv.controller.Tick(ctx, time.Now())
}

// handlersFor binds the pipeline's closed action set to this session's
// concrete side effects: appending the screen's delta since the last tick,
// sending the one-shot keyboard prompt, the auth warning, and the final
// full-screen re-render.
func (sv *Supervisor) handlersFor(s *Session) pipeline.Handlers {
	render := func() string {
		return content.RenderFullDisplay(s.emulator.GetFullDisplay(), s.emulator.GetFullAttributedLines())
	}

	return pipeline.Handlers{
		pipeline.ActionSendThinking: func(ctx context.Context, ev classify.ScreenEvent) error {
			return sv.controller.Replace(ctx, s.ChatID, "_thinking…_", time.Now())
		},
		pipeline.ActionExtractAndSend: func(ctx context.Context, ev classify.ScreenEvent) error {
			delta := content.RenderDelta(s.emulator.GetAttributedChanges())
			if delta == "" {
				return nil
			}
			return sv.controller.Append(ctx, s.ChatID, delta, time.Now())
		},
		pipeline.ActionFinalize: func(ctx context.Context, ev classify.ScreenEvent) error {
			return sv.controller.Finalize(ctx, s.ChatID, render(), time.Now())
		},
		pipeline.ActionSendKeyboard: func(ctx context.Context, ev classify.ScreenEvent) error {
			if sv.keyboard == nil || ev.Tool == nil {
				return nil
			}
			_, err := sv.keyboard.SendKeyboard(ctx, s.ChatID, ev.Tool.Question, ev.Tool.Options, "tool")
			return err
		},
		pipeline.ActionSendAuthWarning: func(ctx context.Context, ev classify.ScreenEvent) error {
			return sv.controller.Replace(ctx, s.ChatID, "Authentication is required — check the server console.", time.Now())
		},
	}
}
