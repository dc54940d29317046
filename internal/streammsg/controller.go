// Package streammsg implements C5: a rate-limited, edit-in-place messenger
// controller. At most one live message is kept per chat; repeated updates
// coalesce into that message's next edit rather than spamming new ones, and
// overflow beyond the messenger's size limit rolls into follow-up messages.
package streammsg

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samsaffron/tuibridge/internal/content"
)

// Sender is the minimal messenger surface the controller depends on. The
// real implementation lives in internal/messenger; tests supply a fake.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (messageID int, err error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
}

type liveMessage struct {
	messageID   int
	overflowIDs []int

	accumulated string // full logical text built up by Append calls
	rendered    string // last text actually sent/edited
	pending     string // latest requested text, not yet flushed
	hasPending  bool
	generation  int

	lastEdit  time.Time
	finalized bool
}

// Controller owns the single live message per chat id and the edit-rate
// limiting around it (spec §5: per-message and global caps, coalescing on
// deferred changes, generation guards against stale scheduled edits).
type Controller struct {
	mu sync.Mutex

	sender Sender
	log    *slog.Logger

	perMessageInterval time.Duration
	globalInterval     time.Duration
	lastGlobalEdit     time.Time

	messages map[int64]*liveMessage
}

// New creates a Controller. perMessageInterval bounds how often any single
// message may be edited; globalInterval bounds how often the controller
// issues any edit at all, across every chat, protecting the messenger's
// account-wide rate limit.
func New(sender Sender, perMessageInterval, globalInterval time.Duration, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		sender:             sender,
		log:                log,
		perMessageInterval: perMessageInterval,
		globalInterval:     globalInterval,
		messages:           make(map[int64]*liveMessage),
	}
}

// Replace sets the full desired text for a chat's live message. If enough
// time has elapsed since the last edit (both per-message and globally), it
// flushes immediately; otherwise it buffers the text, and a later call to
// Tick flushes it once the interval has passed. A second Replace before the
// first flush overwrites the buffered text (last-write-wins coalescing) and
// bumps the generation counter, so a Tick scheduled against the stale value
// is a no-op once it observes the newer generation.
func (c *Controller) Replace(ctx context.Context, chatID int64, text string, now time.Time) error {
	c.mu.Lock()
	m := c.liveMessageLocked(chatID)
	m.accumulated = text
	c.mu.Unlock()
	return c.stage(ctx, chatID, text, now)
}

// Append extends the chat's live message with delta rather than replacing it
// wholesale: the text actually staged for the next flush is the full
// accumulation of every delta appended so far, so a message that has already
// been partially flushed keeps growing in place instead of being re-rendered
// from scratch (spec §4.5 — the delta-driven streaming path feeds
// vterm.GetAttributedChanges output here). A zero-length delta is a no-op.
func (c *Controller) Append(ctx context.Context, chatID int64, delta string, now time.Time) error {
	if delta == "" {
		return nil
	}
	c.mu.Lock()
	m := c.liveMessageLocked(chatID)
	if m.accumulated != "" {
		m.accumulated += "\n\n"
	}
	m.accumulated += delta
	text := m.accumulated
	c.mu.Unlock()
	return c.stage(ctx, chatID, text, now)
}

// stage buffers text as the chat's next desired state, flushing immediately
// if the rate limit allows and deferring to Tick otherwise. Shared by Replace
// and Append, which differ only in how they compute the target text.
func (c *Controller) stage(ctx context.Context, chatID int64, text string, now time.Time) error {
	c.mu.Lock()
	m := c.liveMessageLocked(chatID)
	if m.finalized {
		c.mu.Unlock()
		return nil
	}
	if text == m.rendered && !m.hasPending {
		c.mu.Unlock()
		return nil
	}
	m.pending = text
	m.hasPending = true
	m.generation++
	gen := m.generation

	if !c.dueLocked(m, now) {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.flush(ctx, chatID, gen, now)
}

// Tick flushes any chat whose buffered text has become due since the last
// check. Call this from the poll loop (spec's 300ms clock); cheap no-op
// when nothing is pending.
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	c.mu.Lock()
	due := make(map[int64]int)
	for chatID, m := range c.messages {
		if m.hasPending && !m.finalized && c.dueLocked(m, now) {
			due[chatID] = m.generation
		}
	}
	c.mu.Unlock()

	for chatID, gen := range due {
		if err := c.flush(ctx, chatID, gen, now); err != nil {
			c.log.Error("streammsg: flush failed", "chat_id", chatID, "error", err)
		}
	}
}

// Finalize sends the final text unconditionally, bypassing the rate limit,
// splits it across follow-up messages if it overflows the size limit, and
// marks the chat's live message closed: further Replace calls are ignored
// until the caller calls Reset for a new logical message.
func (c *Controller) Finalize(ctx context.Context, chatID int64, text string, now time.Time) error {
	c.mu.Lock()
	m := c.liveMessageLocked(chatID)
	if m.finalized {
		c.mu.Unlock()
		return nil
	}
	m.finalized = true
	m.hasPending = false
	m.generation++
	c.mu.Unlock()

	return c.sendChunks(ctx, chatID, m, text, now)
}

// Reset drops a chat's live message state so the next Replace call starts a
// brand new logical message.
func (c *Controller) Reset(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.messages, chatID)
}

func (c *Controller) liveMessageLocked(chatID int64) *liveMessage {
	m, ok := c.messages[chatID]
	if !ok {
		m = &liveMessage{}
		c.messages[chatID] = m
	}
	return m
}

func (c *Controller) dueLocked(m *liveMessage, now time.Time) bool {
	if m.lastEdit.IsZero() {
		return true
	}
	if c.perMessageInterval > 0 && now.Sub(m.lastEdit) < c.perMessageInterval {
		return false
	}
	if c.globalInterval > 0 && now.Sub(c.lastGlobalEdit) < c.globalInterval {
		return false
	}
	return true
}

// flush performs the actual send/edit for a chat if its buffered generation
// still matches gen — a stale scheduled flush silently drops.
func (c *Controller) flush(ctx context.Context, chatID int64, gen int, now time.Time) error {
	c.mu.Lock()
	m, ok := c.messages[chatID]
	if !ok || m.generation != gen || !m.hasPending || m.finalized {
		c.mu.Unlock()
		return nil
	}
	text := m.pending
	c.mu.Unlock()

	err := c.sendChunks(ctx, chatID, m, text, now)

	c.mu.Lock()
	if m.generation == gen {
		m.hasPending = false
	}
	c.mu.Unlock()
	return err
}

// sendChunks splits text if it overflows the messenger limit, editing the
// primary message in place and sending any overflow as new messages.
func (c *Controller) sendChunks(ctx context.Context, chatID int64, m *liveMessage, text string, now time.Time) error {
	chunks := content.Split(text, 0)
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	first := chunks[0]
	var err error
	if m.messageID == 0 {
		m.messageID, err = c.sender.SendMessage(ctx, chatID, first)
	} else {
		err = c.sender.EditMessage(ctx, chatID, m.messageID, first)
	}
	if err != nil {
		return err
	}
	m.rendered = first
	m.lastEdit = now
	c.lastGlobalEdit = now

	for i := 1; i < len(chunks); i++ {
		if i-1 < len(m.overflowIDs) {
			if err := c.sender.EditMessage(ctx, chatID, m.overflowIDs[i-1], chunks[i]); err != nil {
				return err
			}
			continue
		}
		id, err := c.sender.SendMessage(ctx, chatID, chunks[i])
		if err != nil {
			return err
		}
		m.overflowIDs = append(m.overflowIDs, id)
	}
	return nil
}
