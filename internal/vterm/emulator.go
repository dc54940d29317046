package vterm

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

type parseState int

const (
	stateGround parseState = iota
	stateEsc
	stateCSI
	stateOSC
)

// Emulator feeds an arbitrary PTY byte stream into a fixed 40x120 grid,
// honoring the CSI/SGR subset documented in applySGR and below, and
// exposes full/delta reads of the resulting screen (spec §4.1).
//
// Honored CSI finals: H/f (cursor position), A/B/C/D (relative cursor
// motion), G (cursor horizontal absolute), d (line position absolute),
// K (erase line), J (erase display), m (SGR). Everything else is a silent
// no-op, per spec: "a focused subset suffices".
type Emulator struct {
	g *grid

	state  parseState
	params []int
	curNum int
	hasNum bool

	attr Cell // current Ch is unused; carries Color/Bold/Italic for new writes
}

// New creates an emulator with a blank 40x120 grid and default attributes.
func New() *Emulator {
	return &Emulator{
		g:    newGrid(),
		attr: emptyCell(),
	}
}

// Feed advances the grid state from raw PTY bytes. It never fails: malformed
// or unrecognized escape sequences are consumed and ignored.
func (e *Emulator) Feed(b []byte) {
	i := 0
	for i < len(b) {
		c := b[i]

		switch e.state {
		case stateGround:
			switch c {
			case 0x1b: // ESC
				e.state = stateEsc
				i++
			case '\r':
				e.g.cursor.col = 0
				i++
			case '\n':
				e.lineFeed()
				i++
			case '\b':
				if e.g.cursor.col > 0 {
					e.g.cursor.col--
				}
				i++
			case '\t':
				next := ((e.g.cursor.col / 8) + 1) * 8
				e.g.cursor.col = clampCol(next)
				i++
			default:
				if c < 0x20 {
					// Other C0 controls are silent no-ops.
					i++
					continue
				}
				r, size := utf8.DecodeRune(b[i:])
				if r == utf8.RuneError && size <= 1 {
					i++
					continue
				}
				e.writeRune(r)
				i += size
			}

		case stateEsc:
			switch c {
			case '[':
				e.state = stateCSI
				e.params = e.params[:0]
				e.curNum = 0
				e.hasNum = false
			case ']':
				e.state = stateOSC
			default:
				// Unrecognized single-char escape (e.g. ESC M, ESC 7/8): no-op.
				e.state = stateGround
			}
			i++

		case stateCSI:
			i++
			switch {
			case c >= '0' && c <= '9':
				e.curNum = e.curNum*10 + int(c-'0')
				e.hasNum = true
			case c == ';':
				e.params = append(e.params, e.curNumOrZero())
				e.curNum = 0
				e.hasNum = false
			case c >= 0x40 && c <= 0x7e:
				e.params = append(e.params, e.curNumOrZero())
				e.applyCSI(c, e.params)
				e.state = stateGround
			default:
				// Intermediate bytes (e.g. '?', ' ') are ignored positionally.
			}

		case stateOSC:
			i++
			if c == 0x07 {
				e.state = stateGround
			} else if c == 0x1b && i < len(b) && b[i] == '\\' {
				i++
				e.state = stateGround
			}
		}
	}
}

func (e *Emulator) curNumOrZero() int {
	if e.hasNum {
		return e.curNum
	}
	return 0
}

func (e *Emulator) lineFeed() {
	if e.g.cursor.row == Rows-1 {
		e.g.scrollUp()
		return
	}
	e.g.cursor.row++
}

func (e *Emulator) writeRune(r rune) {
	w := runewidth.RuneWidth(r)
	if w <= 0 {
		w = 1
	}
	if e.g.cursor.col+w > Cols {
		e.g.cursor.col = 0
		e.lineFeed()
	}
	row, col := e.g.cursor.row, e.g.cursor.col
	cell := e.attr
	cell.Ch = r
	e.g.cells[row][col] = cell
	for pad := 1; pad < w && col+pad < Cols; pad++ {
		blank := e.attr
		blank.Ch = ' '
		e.g.cells[row][col+pad] = blank
	}
	e.g.markChanged(row)
	// col+w may equal Cols: the cursor then sits past the last column and the
	// next printable rune wraps to a new line.
	e.g.cursor.col = col + w
}

func (e *Emulator) applyCSI(final byte, params []int) {
	p := func(idx, def int) int {
		if idx < len(params) && params[idx] != 0 {
			return params[idx]
		}
		return def
	}

	switch final {
	case 'H', 'f':
		row := p(0, 1) - 1
		col := 0
		if len(params) > 1 {
			col = params[1] - 1
		}
		e.g.cursor.row = clampRow(row)
		e.g.cursor.col = clampCol(col)
	case 'A':
		e.g.cursor.row = clampRow(e.g.cursor.row - p(0, 1))
	case 'B':
		e.g.cursor.row = clampRow(e.g.cursor.row + p(0, 1))
	case 'C':
		e.g.cursor.col = clampCol(e.g.cursor.col + p(0, 1))
	case 'D':
		e.g.cursor.col = clampCol(e.g.cursor.col - p(0, 1))
	case 'G':
		e.g.cursor.col = clampCol(p(0, 1) - 1)
	case 'd':
		e.g.cursor.row = clampRow(p(0, 1) - 1)
	case 'K':
		e.g.eraseLine(params0(params))
	case 'J':
		e.g.eraseDisplay(params0(params))
	case 'm':
		e.applySGR(params)
	default:
		// Unhandled CSI final: silent no-op.
	}
}

func params0(params []int) int {
	if len(params) == 0 {
		return 0
	}
	return params[0]
}

func (e *Emulator) applySGR(params []int) {
	if len(params) == 0 {
		e.attr.Color, e.attr.Bold, e.attr.Italic = ColorDefault, false, false
		return
	}
	dim := false
	for i := 0; i < len(params); i++ {
		code := params[i]
		switch {
		case code == 0:
			e.attr.Color, e.attr.Bold, e.attr.Italic = ColorDefault, false, false
			dim = false
		case code == 1:
			e.attr.Bold = true
		case code == 2:
			dim = true
		case code == 3:
			e.attr.Italic = true
		case code == 22:
			e.attr.Bold = false
			dim = false
		case code == 23:
			e.attr.Italic = false
		case code == 39:
			e.attr.Color = ColorDefault
		case code == 38 || code == 48:
			// Extended color (256/truecolor): consume its operands; a
			// foreground (38) value maps to the closest palette tag, a
			// background (48) value is dropped — fidelity beyond the closed
			// foreground palette is out of scope.
			if i+1 < len(params) && params[i+1] == 5 && i+2 < len(params) {
				if code == 38 {
					e.attr.Color = colorFrom256(params[i+2])
				}
				i += 2
			} else if i+1 < len(params) && params[i+1] == 2 && i+4 < len(params) {
				if code == 38 {
					e.attr.Color = colorFromRGB(params[i+2], params[i+3], params[i+4])
				}
				i += 4
			}
		case code >= 30 && code <= 37:
			e.attr.Color = colorFromSGR(code-30, dim)
		case code >= 90 && code <= 97:
			e.attr.Color = colorFromSGR(code-90, false)
		}
	}
}

// colorFromSGR maps a standard 8-color SGR index (0-7) to the agent's
// closed palette. Among these 8 colors, dim grey comes only from the faint
// attribute (code 2) combined with white (37), matching how the agent
// renders secondary text; 256-color and RGB greys are mapped to dim grey by
// colorFrom256 and colorFromRGB.
func colorFromSGR(idx int, dim bool) ColorTag {
	switch idx {
	case 0:
		return ColorDefault // black rarely used as foreground by the agent
	case 1:
		return ColorRed
	case 2:
		return ColorGreen
	case 3:
		return ColorYellow
	case 4:
		return ColorBlue
	case 5:
		return ColorMagenta
	case 6:
		return ColorBrightCyan
	case 7:
		if dim {
			return ColorDimGrey
		}
		return ColorDefault
	default:
		return ColorDefault
	}
}

func colorFrom256(n int) ColorTag {
	switch {
	case n == 8 || n == 244 || n == 245 || n == 246:
		return ColorDimGrey
	case n == 51 || n == 14 || n == 6:
		return ColorBrightCyan
	case n == 2 || n == 10:
		return ColorGreen
	case n == 3 || n == 11:
		return ColorYellow
	case n == 1 || n == 9:
		return ColorRed
	case n == 5 || n == 13:
		return ColorMagenta
	case n == 4 || n == 12:
		return ColorBlue
	default:
		return ColorDefault
	}
}

func colorFromRGB(r, g, b int) ColorTag {
	switch {
	case r > 180 && g < 100 && b < 100:
		return ColorRed
	case g > 150 && r < 120:
		return ColorGreen
	case r > 180 && g > 150 && b < 120:
		return ColorYellow
	case b > 150 && r < 120 && g < 150:
		return ColorBlue
	case r > 150 && b > 150 && g < 120:
		return ColorMagenta
	case g > 150 && b > 150 && r < 120:
		return ColorBrightCyan
	case r == g && g == b && r > 90 && r < 180:
		return ColorDimGrey
	default:
		return ColorDefault
	}
}

// GetFullDisplay returns a plain-text snapshot of all 40 rows, trailing
// spaces trimmed.
func (e *Emulator) GetFullDisplay() [Rows]string {
	var out [Rows]string
	for r := 0; r < Rows; r++ {
		out[r] = PlainText(spansFromRow(e.g.cells[r][:]))
	}
	return out
}

// GetFullAttributedLines returns an attributed snapshot; it does not affect
// the change tracker.
func (e *Emulator) GetFullAttributedLines() [Rows][]Span {
	var out [Rows][]Span
	for r := 0; r < Rows; r++ {
		out[r] = spansFromRow(e.g.cells[r][:])
	}
	return out
}

// RowSpans is one row's attributed content, returned by GetAttributedChanges.
type RowSpans struct {
	Row   int
	Spans []Span
}

// GetAttributedChanges returns only rows changed since the previous call, in
// row order, and atomically clears the change tracker (spec invariant I2).
func (e *Emulator) GetAttributedChanges() []RowSpans {
	var out []RowSpans
	for r := 0; r < Rows; r++ {
		if !e.g.changed[r] {
			continue
		}
		out = append(out, RowSpans{Row: r, Spans: spansFromRow(e.g.cells[r][:])})
		e.g.changed[r] = false
	}
	return out
}

// CursorPosition returns the current 0-indexed cursor row/col, useful for
// classifier heuristics that need to know where the prompt sits.
func (e *Emulator) CursorPosition() (row, col int) {
	return e.g.cursor.row, e.g.cursor.col
}
