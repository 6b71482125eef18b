package terminal

import (
	"strings"
)

const tabWidth = 8

// Region is a rectangular window of a Screen with its own cursor
// Cells hold single bytes; output is ASCII
type Region struct {
	sc *Screen

	rows, cols int
	y, x       int

	cells  []byte
	cy, cx int // cx == cols means a wrap is pending
	scroll bool
}

// ScrollOK sets whether a newline on the last row scrolls the region up
func (r *Region) ScrollOK(on bool) {
	r.scroll = on
}

// AddCh writes c at the cursor and advances it
// '\n' clears to end of line and moves to the next line; '\r' returns to
// column 0; '\b' moves left; '\t' advances to the next tab stop. Other
// control bytes are drawn in caret notation
// Returns ErrRegionFull when the cursor would leave a non-scrolling region
func (r *Region) AddCh(c byte) error {
	switch {
	case c == '\n':
		r.clearToEOL()
		return r.newline()
	case c == '\r':
		r.cx = 0
		return nil
	case c == '\b':
		if r.cx > 0 {
			r.cx--
		}
		return nil
	case c == '\t':
		stop := (r.cx/tabWidth + 1) * tabWidth
		for r.cx < stop && r.cx < r.cols {
			if err := r.put(' '); err != nil {
				return err
			}
		}
		return nil
	case c < 32 || c == 127:
		if err := r.put('^'); err != nil {
			return err
		}
		return r.put(c ^ 0x40)
	case c > 127:
		return r.put('?')
	default:
		return r.put(c)
	}
}

// AddString writes each byte of s
func (r *Region) AddString(s string) error {
	for i := 0; i < len(s); i++ {
		if err := r.AddCh(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Erase blanks the region and homes the cursor
func (r *Region) Erase() {
	for i := range r.cells {
		r.cells[i] = ' '
	}
	r.cy, r.cx = 0, 0
}

// NoutRefresh copies the region into the virtual screen and makes its
// cursor the one placed by the next Update
func (r *Region) NoutRefresh() {
	for row := 0; row < r.rows; row++ {
		for col := 0; col < r.cols; col++ {
			r.sc.s.SetContent(r.x+col, r.y+row, rune(r.cells[row*r.cols+col]), nil, r.sc.style)
		}
	}
	cx, cy := r.Cursor()
	r.sc.cursorX, r.sc.cursorY = r.x+cx, r.y+cy
}

// Move resizes and repositions the region, keeping the rows around the cursor
func (r *Region) Move(rows, cols, y, x int) {
	if rows < 1 || cols < 1 {
		return
	}
	r.resize(rows, cols, y, x)
}

// Lines returns the region content with trailing blanks trimmed
func (r *Region) Lines() []string {
	lines := make([]string, r.rows)
	for row := range lines {
		lines[row] = strings.TrimRight(string(r.cells[row*r.cols:(row+1)*r.cols]), " ")
	}
	return lines
}

// Cursor returns the cursor column and row within the region
func (r *Region) Cursor() (col, row int) {
	col = r.cx
	if col >= r.cols {
		col = r.cols - 1
	}
	return col, r.cy
}

// Size returns the region rows and columns
func (r *Region) Size() (rows, cols int) {
	return r.rows, r.cols
}

func (r *Region) put(c byte) error {
	if r.cx >= r.cols {
		if err := r.newline(); err != nil {
			return err
		}
	}
	r.cells[r.cy*r.cols+r.cx] = c
	r.cx++
	return nil
}

func (r *Region) newline() error {
	if r.cy+1 < r.rows {
		r.cy++
		r.cx = 0
		return nil
	}
	if !r.scroll {
		return ErrRegionFull
	}
	copy(r.cells, r.cells[r.cols:])
	last := r.cells[(r.rows-1)*r.cols:]
	for i := range last {
		last[i] = ' '
	}
	r.cx = 0
	return nil
}

func (r *Region) clearToEOL() {
	if r.cx >= r.cols {
		return
	}
	row := r.cells[r.cy*r.cols : (r.cy+1)*r.cols]
	for i := r.cx; i < r.cols; i++ {
		row[i] = ' '
	}
}

func (r *Region) resize(rows, cols, y, x int) {
	cells := make([]byte, rows*cols)
	for i := range cells {
		cells[i] = ' '
	}

	// Keep the bottom rows up to the cursor row when shrinking
	offset := 0
	if r.cy+1 > rows {
		offset = r.cy + 1 - rows
	}
	for row := 0; row+offset < r.rows && row < rows; row++ {
		src := r.cells[(row+offset)*r.cols : (row+offset+1)*r.cols]
		copy(cells[row*cols:(row+1)*cols], src)
	}

	r.cells = cells
	r.rows, r.cols = rows, cols
	r.y, r.x = y, x
	r.cy -= offset
	if r.cx > cols {
		r.cx = cols
	}
}
