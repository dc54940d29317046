package vterm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedPlainText(t *testing.T) {
	e := New()
	e.Feed([]byte("hello"))
	disp := e.GetFullDisplay()
	assert.Equal(t, "hello", disp[0])
}

func TestFeedCarriageReturnOverwrite(t *testing.T) {
	e := New()
	e.Feed([]byte("hello world"))
	e.Feed([]byte("\rHELLO"))
	disp := e.GetFullDisplay()
	assert.Equal(t, "HELLO world", disp[0])
}

func TestFeedSGRColor(t *testing.T) {
	e := New()
	e.Feed([]byte("\x1b[32mgreen\x1b[0m plain"))
	lines := e.GetFullAttributedLines()
	require.NotEmpty(t, lines[0])
	assert.Equal(t, ColorGreen, lines[0][0].Color)
	assert.Equal(t, "green", lines[0][0].Text)
	assert.Equal(t, ColorDefault, lines[0][1].Color)
}

func TestFeedBoldAndItalic(t *testing.T) {
	e := New()
	e.Feed([]byte("\x1b[1mbold\x1b[22m\x1b[3mitalic\x1b[23m"))
	lines := e.GetFullAttributedLines()
	require.Len(t, lines[0], 2)
	assert.True(t, lines[0][0].Bold)
	assert.True(t, lines[0][1].Italic)
	assert.False(t, lines[0][1].Bold)
}

func TestEraseLine(t *testing.T) {
	e := New()
	e.Feed([]byte("abcdef"))
	e.Feed([]byte("\x1b[1G\x1b[K"))
	disp := e.GetFullDisplay()
	assert.Equal(t, "", disp[0])
}

func TestCursorPositioning(t *testing.T) {
	e := New()
	e.Feed([]byte("\x1b[5;10Hx"))
	disp := e.GetFullDisplay()
	assert.Equal(t, byte('x'), disp[4][9])
}

func TestLineFeedScrollsAtBottom(t *testing.T) {
	e := New()
	for i := 0; i < Rows+5; i++ {
		e.Feed([]byte("line\n"))
	}
	disp := e.GetFullDisplay()
	// After scrolling, every visible row that has content should read "line".
	nonEmpty := 0
	// A bare "\n" does not return the carriage, so rows carry leading spaces.
	for _, l := range disp {
		if strings.TrimSpace(l) != "" {
			nonEmpty++
			assert.Equal(t, "line", strings.TrimSpace(l))
		}
	}
	assert.Greater(t, nonEmpty, 0)
}

func TestGetAttributedChangesClearsTracker(t *testing.T) {
	e := New()
	e.Feed([]byte("abc"))
	changes := e.GetAttributedChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, 0, changes[0].Row)

	// Second call with no intervening feed returns nothing: tracker cleared.
	changes2 := e.GetAttributedChanges()
	assert.Empty(t, changes2)
}

func TestGetAttributedChangesOnlyTouchedRows(t *testing.T) {
	e := New()
	e.Feed([]byte("row0"))
	e.Feed([]byte("\x1b[3;1Hrow2"))
	changes := e.GetAttributedChanges()
	rows := map[int]bool{}
	for _, c := range changes {
		rows[c.Row] = true
	}
	assert.True(t, rows[0])
	assert.True(t, rows[2])
	assert.False(t, rows[1])
}

func TestBareCursorMotionDefaultsToOne(t *testing.T) {
	e := New()
	e.Feed([]byte("\x1b[10;10H"))
	row, col := e.CursorPosition()
	require.Equal(t, 9, row)
	require.Equal(t, 9, col)

	e.Feed([]byte("\x1b[B"))
	row, _ = e.CursorPosition()
	assert.Equal(t, 10, row)

	e.Feed([]byte("\x1b[C"))
	_, col = e.CursorPosition()
	assert.Equal(t, 10, col)

	e.Feed([]byte("\x1b[A"))
	row, _ = e.CursorPosition()
	assert.Equal(t, 9, row)

	e.Feed([]byte("\x1b[D"))
	_, col = e.CursorPosition()
	assert.Equal(t, 9, col)

	e.Feed([]byte("\x1b[G"))
	_, col = e.CursorPosition()
	assert.Equal(t, 0, col)

	e.Feed([]byte("\x1b[d"))
	row, _ = e.CursorPosition()
	assert.Equal(t, 0, row)
}

func TestMalformedSequenceNeverPanics(t *testing.T) {
	e := New()
	assert.NotPanics(t, func() {
		e.Feed([]byte("\x1b[9999999999999999999m\x1b[?25h\x1bZtext\x1b]0;title\x07more"))
	})
}
