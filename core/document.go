// Package core implements the tile-addressable document model: the document
// store itself, the local edit engine with undo history, and the overlay
// holding remote presentation state.
package core

import (
	"strings"

	"pkt.systems/tileboard/schema"
)

// Document is a line-oriented text buffer addressed by tiles. It always
// holds at least one line; an empty document is a single empty line.
// Columns are rune offsets, and the column one past the end of a line is a
// valid cursor position. All coordinate inputs are clamped, never rejected.
type Document struct {
	lines  []string
	cursor schema.Tile
}

// NewDocument returns a document holding text.
func NewDocument(text string) *Document {
	return &Document{lines: strings.Split(text, "\n")}
}

// Value returns the full document text.
func (d *Document) Value() string {
	return strings.Join(d.lines, "\n")
}

// LineCount returns the number of lines, always at least 1.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// Line returns the line at row, or "" if row is out of range.
func (d *Document) Line(row int) string {
	if row < 0 || row >= len(d.lines) {
		return ""
	}
	return d.lines[row]
}

// Lines returns a copy of all lines.
func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// CharCount returns the total character count including newlines.
func (d *Document) CharCount() int {
	n := len(d.lines) - 1
	for _, line := range d.lines {
		n += len([]rune(line))
	}
	return n
}

func (d *Document) lineLen(row int) int {
	if row < 0 || row >= len(d.lines) {
		return 0
	}
	return len([]rune(d.lines[row]))
}

// Clamp returns the nearest valid cursor tile to t. The column may equal
// the line length.
func (d *Document) Clamp(t schema.Tile) schema.Tile {
	if t.Row < 0 {
		t.Row = 0
	}
	if t.Row > len(d.lines)-1 {
		t.Row = len(d.lines) - 1
	}
	if t.Col < 0 {
		t.Col = 0
	}
	if n := d.lineLen(t.Row); t.Col > n {
		t.Col = n
	}
	return t
}

// Cursor returns the current cursor tile.
func (d *Document) Cursor() schema.Tile {
	return d.cursor
}

// SetCursor moves the cursor to the nearest valid position to t.
func (d *Document) SetCursor(t schema.Tile) {
	d.cursor = d.Clamp(t)
}

// CursorOffset returns the cursor position as a linear rune offset from
// the start of the document, counting newlines.
func (d *Document) CursorOffset() int {
	off := 0
	for row := 0; row < d.cursor.Row; row++ {
		off += d.lineLen(row) + 1
	}
	return off + d.cursor.Col
}

// CharAt returns the rune at t. ok is false for end-of-line and
// out-of-range tiles.
func (d *Document) CharAt(t schema.Tile) (r rune, ok bool) {
	if t.Row < 0 || t.Row >= len(d.lines) || t.Col < 0 {
		return 0, false
	}
	line := []rune(d.lines[t.Row])
	if t.Col >= len(line) {
		return 0, false
	}
	return line[t.Col], true
}

// InsertText inserts text at the cursor and moves the cursor to the end of
// the inserted text. Newlines split the current line in place.
func (d *Document) InsertText(text string) {
	parts := strings.Split(text, "\n")
	d.cursor = d.Clamp(d.cursor)
	row, col := d.cursor.Row, d.cursor.Col
	line := []rune(d.lines[row])

	if len(parts) == 1 {
		d.lines[row] = string(line[:col]) + text + string(line[col:])
		d.cursor.Col = col + len([]rune(text))
		return
	}

	before, after := string(line[:col]), string(line[col:])
	last := parts[len(parts)-1]
	out := make([]string, 0, len(d.lines)+len(parts)-1)
	out = append(out, d.lines[:row]...)
	out = append(out, before+parts[0])
	out = append(out, parts[1:len(parts)-1]...)
	out = append(out, last+after)
	out = append(out, d.lines[row+1:]...)
	d.lines = out
	d.cursor = schema.Tile{Row: row + len(parts) - 1, Col: len([]rune(last))}
}

// DeleteTiles removes the characters at the given tiles. Tiles are removed
// in descending (row, col) order so earlier removals in a row do not shift
// later offsets. End-of-line and out-of-range tiles are skipped. The cursor
// moves to the lowest tile of the set, clamped. Reports whether the set was
// non-empty.
func (d *Document) DeleteTiles(set TileSet) bool {
	if len(set) == 0 {
		return false
	}
	tiles := set.Sorted()
	for i := len(tiles) - 1; i >= 0; i-- {
		t := tiles[i]
		if t.Row < 0 || t.Row >= len(d.lines) || t.Col < 0 {
			continue
		}
		line := []rune(d.lines[t.Row])
		if t.Col < len(line) {
			d.lines[t.Row] = string(line[:t.Col]) + string(line[t.Col+1:])
		}
	}
	d.cursor = d.Clamp(tiles[0])
	return true
}

// ReplaceAll replaces the whole document with text. The cursor resets to
// the origin unless preserveCursor is set, in which case it is clamped to
// the new content.
func (d *Document) ReplaceAll(text string, preserveCursor bool) {
	d.lines = strings.Split(text, "\n")
	if preserveCursor {
		d.cursor = d.Clamp(d.cursor)
	} else {
		d.cursor = schema.Tile{}
	}
}

// Backspace removes the character before the cursor, merging with the
// previous line at column 0. Reports whether content changed.
func (d *Document) Backspace() bool {
	row, col := d.cursor.Row, d.cursor.Col
	if col > 0 {
		line := []rune(d.lines[row])
		d.lines[row] = string(line[:col-1]) + string(line[col:])
		d.cursor.Col--
		return true
	}
	if row > 0 {
		prevLen := d.lineLen(row - 1)
		d.lines[row-1] += d.lines[row]
		d.lines = append(d.lines[:row], d.lines[row+1:]...)
		d.cursor = schema.Tile{Row: row - 1, Col: prevLen}
		return true
	}
	return false
}

// DeleteForward removes the character at the cursor, merging the next line
// up at end of line. The cursor does not move. Reports whether content
// changed.
func (d *Document) DeleteForward() bool {
	row, col := d.cursor.Row, d.cursor.Col
	line := []rune(d.lines[row])
	if col < len(line) {
		d.lines[row] = string(line[:col]) + string(line[col+1:])
		return true
	}
	if row < len(d.lines)-1 {
		d.lines[row] += d.lines[row+1]
		d.lines = append(d.lines[:row+1], d.lines[row+2:]...)
		return true
	}
	return false
}

// SplitLine breaks the current line at the cursor and moves the cursor to
// the start of the new line.
func (d *Document) SplitLine() {
	d.cursor = d.Clamp(d.cursor)
	row, col := d.cursor.Row, d.cursor.Col
	line := []rune(d.lines[row])
	head, tail := string(line[:col]), string(line[col:])
	out := make([]string, 0, len(d.lines)+1)
	out = append(out, d.lines[:row]...)
	out = append(out, head, tail)
	out = append(out, d.lines[row+1:]...)
	d.lines = out
	d.cursor = schema.Tile{Row: row + 1, Col: 0}
}

// TilesInRect returns the character tiles covered by a drag from one tile
// to another, in either direction. A multi-line rect covers the trailing
// part of the first row, all interior rows, and the leading part of the
// last row. Only character positions are included, never end-of-line
// positions.
func (d *Document) TilesInRect(from, to schema.Tile) TileSet {
	set := make(TileSet)
	startRow, endRow := from.Row, to.Row
	if startRow > endRow {
		startRow, endRow = endRow, startRow
	}
	first, last := from, to
	if to.Row < from.Row {
		first, last = to, from
	}
	for row := startRow; row <= endRow; row++ {
		n := d.lineLen(row)
		var colStart, colEnd int
		switch {
		case startRow == endRow:
			colStart = min(from.Col, to.Col)
			colEnd = max(from.Col, to.Col)
		case row == startRow:
			colStart, colEnd = first.Col, n
		case row == endRow:
			colStart, colEnd = 0, last.Col
		default:
			colStart, colEnd = 0, n
		}
		if colEnd > n {
			colEnd = n
		}
		for col := colStart; col < colEnd; col++ {
			set.Add(schema.Tile{Row: row, Col: col})
		}
	}
	return set
}
