package vterm

// Rows and Cols are the fixed dimensions the agent's TUI is run at (spec
// §4.6: the PTY is sized 120x40).
const (
	Rows = 40
	Cols = 120
)

// grid is the fixed-size cell rectangle plus cursor position. It is owned
// exclusively by Emulator (spec invariant I1); nothing outside this package
// ever touches it directly.
type grid struct {
	cells   [Rows][Cols]Cell
	cursor  struct{ row, col int }
	changed [Rows]bool
}

func newGrid() *grid {
	g := &grid{}
	g.reset()
	return g
}

func (g *grid) reset() {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			g.cells[r][c] = emptyCell()
		}
		g.changed[r] = false
	}
	g.cursor.row, g.cursor.col = 0, 0
}

func (g *grid) markChanged(row int) {
	if row >= 0 && row < Rows {
		g.changed[row] = true
	}
}

// clampRow/clampCol keep the cursor inside the grid after arithmetic that
// might otherwise run it off either edge.
func clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= Rows {
		return Rows - 1
	}
	return r
}

func clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= Cols {
		return Cols - 1
	}
	return c
}

// scrollUp shifts every row up by one, discarding row 0 and clearing the new
// bottom row. Used when a line feed occurs at the last row.
func (g *grid) scrollUp() {
	for r := 0; r < Rows-1; r++ {
		g.cells[r] = g.cells[r+1]
		g.changed[r] = true
	}
	for c := 0; c < Cols; c++ {
		g.cells[Rows-1][c] = emptyCell()
	}
	g.changed[Rows-1] = true
}

// eraseLine erases part or all of the cursor's row. mode follows the CSI K
// convention: 0=cursor-to-end, 1=start-to-cursor, 2=whole-line.
func (g *grid) eraseLine(mode int) {
	row := g.cursor.row
	start, end := 0, Cols
	switch mode {
	case 0:
		start = g.cursor.col
	case 1:
		end = g.cursor.col + 1
	case 2:
		// full line, defaults already cover it
	default:
		start = g.cursor.col
	}
	for c := start; c < end && c < Cols; c++ {
		g.cells[row][c] = emptyCell()
	}
	g.markChanged(row)
}

// eraseDisplay erases part or all of the screen. mode: 0=cursor-to-end,
// 1=start-to-cursor, 2 or 3=whole screen.
func (g *grid) eraseDisplay(mode int) {
	switch mode {
	case 0:
		g.eraseLine(0)
		for r := g.cursor.row + 1; r < Rows; r++ {
			for c := 0; c < Cols; c++ {
				g.cells[r][c] = emptyCell()
			}
			g.markChanged(r)
		}
	case 1:
		g.eraseLine(1)
		for r := 0; r < g.cursor.row; r++ {
			for c := 0; c < Cols; c++ {
				g.cells[r][c] = emptyCell()
			}
			g.markChanged(r)
		}
	default:
		for r := 0; r < Rows; r++ {
			for c := 0; c < Cols; c++ {
				g.cells[r][c] = emptyCell()
			}
			g.markChanged(r)
		}
	}
}
