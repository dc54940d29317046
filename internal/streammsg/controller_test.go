package streammsg

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	nextID int
	sends  []string
	edits  []string
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	f.nextID++
	f.sends = append(f.sends, text)
	return f.nextID, nil
}

func (f *fakeSender) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	f.edits = append(f.edits, text)
	return nil
}

func TestReplaceSendsFirstMessageImmediately(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, time.Second, 0, nil)
	now := time.Now()

	require.NoError(t, c.Replace(context.Background(), 1, "hello", now))
	assert.Equal(t, []string{"hello"}, sender.sends)
}

func TestReplaceWithinIntervalBuffersAndCoalesces(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, time.Second, 0, nil)
	now := time.Now()

	require.NoError(t, c.Replace(context.Background(), 1, "first", now))
	require.NoError(t, c.Replace(context.Background(), 1, "second", now.Add(100*time.Millisecond)))
	require.NoError(t, c.Replace(context.Background(), 1, "third", now.Add(200*time.Millisecond)))
	assert.Equal(t, []string{"first"}, sender.sends)
	assert.Empty(t, sender.edits)

	c.Tick(context.Background(), now.Add(1100*time.Millisecond))
	assert.Equal(t, []string{"third"}, sender.edits)
}

func TestFinalizeBypassesRateLimit(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, time.Hour, 0, nil)
	now := time.Now()

	require.NoError(t, c.Replace(context.Background(), 1, "first", now))
	require.NoError(t, c.Finalize(context.Background(), 1, "final text", now.Add(time.Millisecond)))
	assert.Equal(t, []string{"final text"}, sender.edits)
}

func TestFinalizeIgnoresLaterReplace(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, 0, 0, nil)
	now := time.Now()

	require.NoError(t, c.Replace(context.Background(), 1, "intro", now))
	require.NoError(t, c.Finalize(context.Background(), 1, "done", now.Add(time.Millisecond)))
	require.NoError(t, c.Replace(context.Background(), 1, "ignored", now.Add(time.Second)))
	assert.Equal(t, []string{"intro"}, sender.sends)
	assert.Equal(t, []string{"done"}, sender.edits)
}

func TestFinalizeOverflowSplitsIntoFollowUpMessages(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, 0, 0, nil)
	now := time.Now()
	long := strings.Repeat("a", 5000)

	require.NoError(t, c.Replace(context.Background(), 1, "intro", now))
	require.NoError(t, c.Finalize(context.Background(), 1, long, now))
	assert.Len(t, sender.sends, 2) // first live message + one overflow message
	assert.Len(t, sender.edits, 1) // edit of the live message to the first chunk
}

func TestAppendGrowsLiveMessageInPlace(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, 0, 0, nil)
	now := time.Now()

	require.NoError(t, c.Append(context.Background(), 1, "first chunk", now))
	require.NoError(t, c.Append(context.Background(), 1, "second chunk", now.Add(time.Millisecond)))

	assert.Equal(t, []string{"first chunk"}, sender.sends)
	assert.Equal(t, []string{"first chunk\n\nsecond chunk"}, sender.edits)
}

func TestAppendEmptyDeltaIsNoop(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, 0, 0, nil)
	now := time.Now()

	require.NoError(t, c.Append(context.Background(), 1, "only chunk", now))
	require.NoError(t, c.Append(context.Background(), 1, "", now.Add(time.Millisecond)))

	assert.Equal(t, []string{"only chunk"}, sender.sends)
	assert.Empty(t, sender.edits)
}

func TestAppendAfterFinalizeIsIgnored(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, 0, 0, nil)
	now := time.Now()

	require.NoError(t, c.Append(context.Background(), 1, "intro", now))
	require.NoError(t, c.Finalize(context.Background(), 1, "done", now.Add(time.Millisecond)))
	require.NoError(t, c.Append(context.Background(), 1, "ignored", now.Add(time.Second)))

	assert.Equal(t, []string{"intro"}, sender.sends)
	assert.Equal(t, []string{"done"}, sender.edits)
}

func TestResetStartsNewLogicalMessage(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, 0, 0, nil)
	now := time.Now()

	require.NoError(t, c.Finalize(context.Background(), 1, "done", now))
	c.Reset(1)
	require.NoError(t, c.Replace(context.Background(), 1, "new message", now))
	assert.Equal(t, []string{"done", "new message"}, sender.sends)
}
