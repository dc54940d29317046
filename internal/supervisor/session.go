// Package supervisor implements C6: it owns every running agent PTY
// process, drives each one's C1-through-C5 pipeline off a single poll-loop
// clock, and enforces per-user bounded concurrency with a single
// "active session" pointer that gets promoted when the active one ends.
package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samsaffron/tuibridge/internal/classify"
	"github.com/samsaffron/tuibridge/internal/pipeline"
	"github.com/samsaffron/tuibridge/internal/vterm"
)

// agentProc is the subset of *ptyproc.Process a Session depends on — defined
// here, at the point of use, so tests can supply a fake PTY-less process
// instead of spawning a real agent binary.
type agentProc interface {
	Read(buf []byte) (int, error)
	Submit(text string) error
	SendKeys(raw []byte) error
	Signal(sig os.Signal) error
	Wait() error
}

// Session is one running agent process plus everything that observes it.
type Session struct {
	ID          string
	UserID      int64
	ChatID      int64
	Project     string
	ProjectPath string
	StartedAt   time.Time

	proc     agentProc
	emulator *vterm.Emulator
	runner   *pipeline.Runner

	leftStartup bool
	lastView    classify.TerminalView
	lastTick    time.Time

	readMu  sync.Mutex
	readBuf bytes.Buffer
	readErr error
}

func newSession(userID, chatID int64, project, projectPath string, proc agentProc, log *slog.Logger) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChatID:      chatID,
		Project:     project,
		ProjectPath: projectPath,
		StartedAt:   time.Now(),
		proc:        proc,
		emulator:    vterm.New(),
		runner:      pipeline.New(log),
	}
	go s.pump()
	return s
}

// pump continuously reads raw PTY bytes into a buffer the poll loop drains
// on its own cadence, so a blocking Read never stalls the scheduler.
func (s *Session) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := s.proc.Read(buf)
		if n > 0 {
			s.readMu.Lock()
			s.readBuf.Write(buf[:n])
			s.readMu.Unlock()
		}
		if err != nil {
			s.readMu.Lock()
			s.readErr = err
			s.readMu.Unlock()
			return
		}
	}
}

// drain takes whatever bytes have accumulated since the last drain.
func (s *Session) drain() ([]byte, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	if s.readBuf.Len() == 0 {
		return nil, s.readErr
	}
	b := append([]byte(nil), s.readBuf.Bytes()...)
	s.readBuf.Reset()
	return b, s.readErr
}

// Submit sends a line of text to the agent using the paste-mode-avoidance
// protocol.
func (s *Session) Submit(text string) error {
	return s.proc.Submit(text)
}

// SendKeys writes raw bytes (e.g. an arrow key or bare Enter) directly.
func (s *Session) SendKeys(raw []byte) error {
	return s.proc.SendKeys(raw)
}

// terminate sends SIGTERM, waits up to grace for exit, then SIGKILL.
func (s *Session) terminate(grace time.Duration) error {
	if err := s.proc.Signal(termSignal()); err != nil {
		return fmt.Errorf("supervisor: sigterm: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.proc.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		_ = s.proc.Signal(killSignal())
		return <-done
	}
}

// observe runs one poll tick: drain pending PTY bytes, feed the emulator,
// classify the resulting screen, and step the pipeline. handlers wires the
// five actions to their real implementations (messenger sends, keyboard
// prompts, and so on).
func (s *Session) observe(ctx context.Context, handlers pipeline.Handlers) {
	raw, _ := s.drain()
	if len(raw) > 0 {
		s.emulator.Feed(raw)
	}

	display := s.emulator.GetFullDisplay()
	ev := classify.Classify(display)
	ev = classify.DowngradeStartupIfSeen(ev, s.leftStartup)
	if ev.View != classify.ViewStartup {
		s.leftStartup = true
	}
	s.lastView = ev.View
	s.lastTick = time.Now()

	s.runner.Step(ctx, ev, handlers)
}
