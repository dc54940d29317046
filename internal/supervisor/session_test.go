package supervisor

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samsaffron/tuibridge/internal/classify"
	"github.com/samsaffron/tuibridge/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProc is an agentProc test double: Feed pushes bytes a real PTY would
// have produced, and the submit/signal calls are recorded for assertions.
// With a non-nil waitErr, Wait blocks until Signal(SIGKILL) is observed,
// simulating a process that ignores SIGTERM, so terminate's escalation path
// can be exercised.
type fakeProc struct {
	mu sync.Mutex

	toRead  []byte
	closed  bool

	submitted []string
	keys      [][]byte
	signals   []os.Signal
	waitErr   error

	killed chan struct{}
	once   sync.Once
}

func newFakeProc(waitErr error) *fakeProc {
	return &fakeProc{waitErr: waitErr, killed: make(chan struct{})}
}

func (f *fakeProc) Feed(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toRead = append(f.toRead, b...)
}

func (f *fakeProc) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.toRead) == 0 {
		if f.closed {
			return 0, errors.New("fakeProc: closed")
		}
		return 0, nil
	}
	n := copy(buf, f.toRead)
	f.toRead = f.toRead[n:]
	return n, nil
}

func (f *fakeProc) Submit(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
	return nil
}

func (f *fakeProc) SendKeys(raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, raw)
	return nil
}

func (f *fakeProc) Signal(sig os.Signal) error {
	f.mu.Lock()
	f.signals = append(f.signals, sig)
	f.mu.Unlock()
	if sig == killSignal() {
		f.once.Do(func() { close(f.killed) })
	}
	return nil
}

// Wait returns immediately for a cooperative process (the default, nil
// killed-wait) or blocks until killed for one simulating a hung agent.
func (f *fakeProc) Wait() error {
	f.mu.Lock()
	hang := f.waitErr != nil
	f.mu.Unlock()
	if hang {
		<-f.killed
	}
	return f.waitErr
}

func TestSessionObserveAdvancesPhaseFromFedBytes(t *testing.T) {
	proc := newFakeProc(nil)
	sess := newSession(1, 100, "demo", "/tmp/demo", proc, nil)

	// Push the cursor down to a row within the classifier's 8-line tail
	// window before writing the thinking indicator.
	proc.Feed([]byte(strings.Repeat("\n", 33) + "✶ Thinking…"))
	var sent []string
	handlers := pipeline.Handlers{
		pipeline.ActionSendThinking: func(ctx context.Context, ev classify.ScreenEvent) error {
			sent = append(sent, "thinking")
			return nil
		},
	}

	// The pump goroutine needs a beat to drain the fed bytes into readBuf.
	time.Sleep(20 * time.Millisecond)
	sess.observe(context.Background(), handlers)

	assert.Equal(t, pipeline.PhaseThinking, sess.runner.Phase())
	assert.Equal(t, []string{"thinking"}, sent)
}

func TestSessionSubmitDelegatesToProc(t *testing.T) {
	proc := newFakeProc(nil)
	sess := newSession(1, 100, "demo", "/tmp/demo", proc, nil)

	require.NoError(t, sess.Submit("hello"))
	require.NoError(t, sess.SendKeys([]byte{0x1b, '[', 'A'}))

	assert.Equal(t, []string{"hello"}, proc.submitted)
	assert.Len(t, proc.keys, 1)
}

func TestSessionTerminateSendsTermThenWaitsCleanly(t *testing.T) {
	proc := newFakeProc(nil)
	sess := newSession(1, 100, "demo", "/tmp/demo", proc, nil)

	err := sess.terminate(50 * time.Millisecond)
	require.NoError(t, err)
	require.Len(t, proc.signals, 1)
	assert.Equal(t, termSignal(), proc.signals[0])
}

func TestSessionTerminateEscalatesToKillAfterGrace(t *testing.T) {
	proc := newFakeProc(errors.New("killed"))
	sess := newSession(1, 100, "demo", "/tmp/demo", proc, nil)

	err := sess.terminate(10 * time.Millisecond)
	require.Error(t, err)
	require.Len(t, proc.signals, 2)
	assert.Equal(t, termSignal(), proc.signals[0])
	assert.Equal(t, killSignal(), proc.signals[1])
}
