package botcmd

import (
	"context"
	"testing"

	"github.com/samsaffron/tuibridge/internal/config"
	"github.com/samsaffron/tuibridge/internal/messenger"
	"github.com/samsaffron/tuibridge/internal/store"
	"github.com/samsaffron/tuibridge/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReplier satisfies both botcmd.Replier and streammsg.Sender, since the
// supervisor needs the latter and tests only care about the former's calls.
type fakeReplier struct {
	sent     []string
	edited   []string
	answered []string
}

func (f *fakeReplier) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	f.sent = append(f.sent, text)
	return len(f.sent), nil
}

func (f *fakeReplier) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	f.edited = append(f.edited, text)
	return nil
}

func (f *fakeReplier) AnswerCallback(ctx context.Context, callbackID string) error {
	f.answered = append(f.answered, callbackID)
	return nil
}

type memStore struct {
	sessions []store.Session
}

func (m *memStore) Create(ctx context.Context, s store.Session) error {
	m.sessions = append(m.sessions, s)
	return nil
}
func (m *memStore) End(ctx context.Context, id string, status store.Status, exitCode *int) error {
	return nil
}
func (m *memStore) Get(ctx context.Context, id string) (*store.Session, error) { return nil, nil }
func (m *memStore) ListByUser(ctx context.Context, userID int64, limit int) ([]store.Session, error) {
	var out []store.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}
func (m *memStore) MarkOrphansLost(ctx context.Context) (int64, error) { return 0, nil }
func (m *memStore) Close() error                                      { return nil }

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeReplier, *memStore) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Agent.DefaultProject = "/tmp/project"
	cfg.Agent.UpdateCommand = "claude update"

	st := &memStore{}
	reply := &fakeReplier{}
	sv := supervisor.New(supervisor.Config{}, st, reply, nil, nil)
	return New(sv, st, reply, cfg), reply, st
}

func TestUnknownCommandRepliesWithMessage(t *testing.T) {
	d, reply, _ := newTestDispatcher(t)
	require.NoError(t, d.Handle(context.Background(), messenger.Update{ChatID: 1, UserID: 1, Text: "/bogus"}))
	assert.Equal(t, []string{"Unknown command /bogus"}, reply.sent)
}

func TestStubCommandsReportNotAvailable(t *testing.T) {
	d, reply, _ := newTestDispatcher(t)
	for _, cmd := range []string{"/history", "/git", "/context"} {
		reply.sent = nil
		require.NoError(t, d.Handle(context.Background(), messenger.Update{ChatID: 1, UserID: 1, Text: cmd}))
		assert.Equal(t, []string{cmd + " is not yet available."}, reply.sent)
	}
}

func TestDownloadWithoutArgShowsUsage(t *testing.T) {
	d, reply, _ := newTestDispatcher(t)
	require.NoError(t, d.Handle(context.Background(), messenger.Update{ChatID: 1, UserID: 1, Text: "/download"}))
	assert.Equal(t, []string{"Usage: /download <path>"}, reply.sent)
}

func TestUpdateClaudeEchoesConfiguredCommand(t *testing.T) {
	d, reply, _ := newTestDispatcher(t)
	require.NoError(t, d.Handle(context.Background(), messenger.Update{ChatID: 1, UserID: 1, Text: "/update_claude"}))
	require.Len(t, reply.sent, 1)
	assert.Contains(t, reply.sent[0], "claude update")
}

func TestSessionsWithNoneYetPromptsForNew(t *testing.T) {
	d, reply, _ := newTestDispatcher(t)
	require.NoError(t, d.Handle(context.Background(), messenger.Update{ChatID: 1, UserID: 1, Text: "/sessions"}))
	assert.Equal(t, []string{"No sessions yet. Send /new to start one."}, reply.sent)
}

func TestExitWithNoActiveSessionReportsNothingToDo(t *testing.T) {
	d, reply, _ := newTestDispatcher(t)
	require.NoError(t, d.Handle(context.Background(), messenger.Update{ChatID: 1, UserID: 1, Text: "/exit"}))
	assert.Equal(t, []string{"No active session to exit."}, reply.sent)
}

func TestPlainTextWithNoActiveSessionNotifiesUser(t *testing.T) {
	d, reply, _ := newTestDispatcher(t)
	require.NoError(t, d.Handle(context.Background(), messenger.Update{ChatID: 1, UserID: 1, Text: "hello there"}))
	assert.Equal(t, []string{"No active session — send /new to start one."}, reply.sent)
}

func TestCallbackUnknownPrefixAnswersCallbackAndDoesNothingElse(t *testing.T) {
	d, reply, _ := newTestDispatcher(t)
	require.NoError(t, d.Handle(context.Background(), messenger.Update{
		ChatID: 1, UserID: 1, CallbackID: "cb1", CallbackData: "weird:1",
	}))
	assert.Equal(t, []string{"cb1"}, reply.answered)
	assert.Empty(t, reply.sent)
}

func TestCallbackKillUnknownSessionReportsError(t *testing.T) {
	d, reply, _ := newTestDispatcher(t)
	require.NoError(t, d.Handle(context.Background(), messenger.Update{
		ChatID: 1, UserID: 1, CallbackID: "cb2", CallbackData: "kill:doesnotexist",
	}))
	require.Len(t, reply.sent, 1)
	assert.Contains(t, reply.sent[0], "Could not kill")
}
