package core

import (
	"strings"
	"time"

	"pkt.systems/tileboard/schema"
)

const (
	defaultTabSize       = 3
	defaultMaxUndoLevels = 50
	defaultUndoDebounce  = 300 * time.Millisecond
)

type editorState struct {
	lines     []string
	cursor    schema.Tile
	selection TileSet
}

// Editor is the local edit engine: a document plus selection state and a
// bounded linear undo history. Rapid edits inside the debounce window
// coalesce into one undo entry. Methods are not safe for concurrent use;
// callers serialize access.
type Editor struct {
	doc    *Document
	sel    TileSet
	anchor *schema.Tile

	undoStack []editorState
	redoStack []editorState
	lastSave  time.Time

	tabSize      int
	maxUndo      int
	undoDebounce time.Duration
	now          func() time.Time

	// OnContent fires after every local content change. OnCursor and
	// OnSelection fire after cursor and selection moves. All may be nil.
	OnContent   func()
	OnCursor    func()
	OnSelection func()
}

// EditorOption configures a new Editor.
type EditorOption func(*Editor)

// WithTabSize sets the indent width in spaces.
func WithTabSize(n int) EditorOption {
	return func(e *Editor) {
		if n > 0 {
			e.tabSize = n
		}
	}
}

// WithMaxUndoLevels bounds the undo stack depth.
func WithMaxUndoLevels(n int) EditorOption {
	return func(e *Editor) {
		if n > 0 {
			e.maxUndo = n
		}
	}
}

// WithUndoDebounce sets the minimum interval between undo snapshots.
func WithUndoDebounce(d time.Duration) EditorOption {
	return func(e *Editor) { e.undoDebounce = d }
}

// WithClock injects the time source used for undo coalescing.
func WithClock(now func() time.Time) EditorOption {
	return func(e *Editor) { e.now = now }
}

// NewEditor returns an editor over the given initial text.
func NewEditor(text string, opts ...EditorOption) *Editor {
	e := &Editor{
		doc:          NewDocument(text),
		sel:          make(TileSet),
		tabSize:      defaultTabSize,
		maxUndo:      defaultMaxUndoLevels,
		undoDebounce: defaultUndoDebounce,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Document returns the underlying document.
func (e *Editor) Document() *Document {
	return e.doc
}

// Value returns the full document text.
func (e *Editor) Value() string {
	return e.doc.Value()
}

// Cursor returns the current cursor tile.
func (e *Editor) Cursor() schema.Tile {
	return e.doc.Cursor()
}

// Selection returns a copy of the selected tile set.
func (e *Editor) Selection() TileSet {
	return e.sel.Clone()
}

func (e *Editor) notifyContent() {
	if e.OnContent != nil {
		e.OnContent()
	}
}

func (e *Editor) notifyCursor() {
	if e.OnCursor != nil {
		e.OnCursor()
	}
}

func (e *Editor) notifySelection() {
	if e.OnSelection != nil {
		e.OnSelection()
	}
}

// saveUndo pushes a pre-change snapshot unless one was pushed within the
// debounce window. The previous snapshot already covers rapid follow-ups.
func (e *Editor) saveUndo() {
	now := e.now()
	if now.Sub(e.lastSave) < e.undoDebounce {
		return
	}
	e.pushUndo(e.snapshot())
	e.lastSave = now
}

func (e *Editor) snapshot() editorState {
	return editorState{
		lines:     e.doc.Lines(),
		cursor:    e.doc.Cursor(),
		selection: e.sel.Clone(),
	}
}

func (e *Editor) restore(s editorState) {
	e.doc.lines = s.lines
	e.doc.cursor = s.cursor
	e.sel = s.selection
	e.anchor = nil
}

func (e *Editor) pushUndo(s editorState) {
	e.undoStack = append(e.undoStack, s)
	if len(e.undoStack) > e.maxUndo {
		e.undoStack = e.undoStack[1:]
	}
	e.redoStack = nil
}

// deleteSelection removes the selected tiles and clears the selection.
// Reports whether anything was selected.
func (e *Editor) deleteSelection() bool {
	if len(e.sel) == 0 {
		return false
	}
	e.doc.DeleteTiles(e.sel)
	e.sel = make(TileSet)
	e.anchor = nil
	return true
}

// Type inserts typed text at the cursor, replacing any selection.
func (e *Editor) Type(text string) {
	if text == "" {
		return
	}
	e.saveUndo()
	e.deleteSelection()
	e.doc.InsertText(text)
	e.notifyContent()
}

// Paste inserts clipboard text at the cursor, replacing any selection.
func (e *Editor) Paste(text string) {
	e.Type(text)
}

// Enter splits the current line at the cursor.
func (e *Editor) Enter() {
	e.saveUndo()
	e.deleteSelection()
	e.doc.SplitLine()
	e.notifyContent()
}

// Backspace deletes the selection if any, otherwise the character before
// the cursor, merging lines at column 0.
func (e *Editor) Backspace() {
	e.saveUndo()
	if e.deleteSelection() {
		e.notifyContent()
		return
	}
	if e.doc.Backspace() {
		e.notifyContent()
	}
}

// Delete deletes the selection if any, otherwise the character at the
// cursor, merging the next line up at end of line.
func (e *Editor) Delete() {
	e.saveUndo()
	if e.deleteSelection() {
		e.notifyContent()
		return
	}
	if e.doc.DeleteForward() {
		e.notifyContent()
	}
}

// Tab inserts an indent at the cursor, replacing any selection.
func (e *Editor) Tab() {
	e.saveUndo()
	e.deleteSelection()
	e.doc.InsertText(strings.Repeat(" ", e.tabSize))
	e.notifyContent()
}

// ShiftTab removes up to one indent of leading spaces from the current
// line, shifting the cursor left by the number removed.
func (e *Editor) ShiftTab() {
	e.saveUndo()
	cur := e.doc.Cursor()
	line := e.doc.Line(cur.Row)
	removed := 0
	for removed < e.tabSize && removed < len(line) && line[removed] == ' ' {
		removed++
	}
	if removed == 0 {
		return
	}
	e.doc.lines[cur.Row] = line[removed:]
	cur.Col -= removed
	if cur.Col < 0 {
		cur.Col = 0
	}
	e.doc.cursor = cur
	e.notifyContent()
}

// MoveCursor moves the cursor by the given deltas, wrapping across line
// boundaries when moving horizontally. With extend set, the selection grows
// from the anchor to the new cursor.
func (e *Editor) MoveCursor(deltaRow, deltaCol int, extend bool) {
	cur := e.doc.Cursor()
	row, col := cur.Row+deltaRow, cur.Col+deltaCol
	if col < 0 && row > 0 {
		row--
		col = e.doc.lineLen(row)
	} else if col > e.doc.lineLen(cur.Row) && row < e.doc.LineCount()-1 {
		row++
		col = 0
	}
	e.MoveCursorTo(row, col, extend)
}

// MoveCursorTo moves the cursor to (row, col), clamped. With extend set,
// the selection grows from the anchor; otherwise the selection clears.
func (e *Editor) MoveCursorTo(row, col int, extend bool) {
	old := e.doc.Cursor()
	e.doc.SetCursor(schema.Tile{Row: row, Col: col})
	if extend {
		if e.anchor == nil {
			e.anchor = &old
		}
		e.sel = e.doc.TilesInRect(*e.anchor, e.doc.Cursor())
	} else {
		e.sel = make(TileSet)
		e.anchor = nil
	}
	e.notifyCursor()
	e.notifySelection()
}

// Home moves the cursor to the start of the current line.
func (e *Editor) Home(extend bool) {
	e.MoveCursorTo(e.doc.Cursor().Row, 0, extend)
}

// End moves the cursor to the end of the current line.
func (e *Editor) End(extend bool) {
	row := e.doc.Cursor().Row
	e.MoveCursorTo(row, e.doc.lineLen(row), extend)
}

// SelectAll selects every character tile and moves the cursor to the final
// tile of the document.
func (e *Editor) SelectAll() {
	e.sel = make(TileSet)
	for row := 0; row < e.doc.LineCount(); row++ {
		for col := 0; col < e.doc.lineLen(row); col++ {
			e.sel.Add(schema.Tile{Row: row, Col: col})
		}
	}
	e.anchor = &schema.Tile{}
	last := e.doc.LineCount() - 1
	e.doc.cursor = schema.Tile{Row: last, Col: e.doc.lineLen(last)}
	e.notifySelection()
}

// ToggleTile flips a single tile in or out of the selection.
func (e *Editor) ToggleTile(t schema.Tile) {
	e.sel.Toggle(t)
	e.notifySelection()
}

// ClearSelection drops the selection and its anchor.
func (e *Editor) ClearSelection() {
	e.sel = make(TileSet)
	e.anchor = nil
	e.notifySelection()
}

// SelectedText returns the selected characters in document order, with
// newlines for row gaps.
func (e *Editor) SelectedText() string {
	if len(e.sel) == 0 {
		return ""
	}
	tiles := e.sel.Sorted()
	var b strings.Builder
	lastRow := tiles[0].Row
	for _, t := range tiles {
		if t.Row > lastRow {
			b.WriteString(strings.Repeat("\n", t.Row-lastRow))
			lastRow = t.Row
		}
		if r, ok := e.doc.CharAt(t); ok {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Cut removes the selection and returns its text.
func (e *Editor) Cut() string {
	text := e.SelectedText()
	if text == "" {
		return ""
	}
	e.saveUndo()
	e.deleteSelection()
	e.notifyContent()
	return text
}

// Undo restores the most recent undo snapshot, pushing the current state
// onto the redo stack.
func (e *Editor) Undo() {
	if len(e.undoStack) == 0 {
		return
	}
	e.redoStack = append(e.redoStack, e.snapshot())
	last := len(e.undoStack) - 1
	e.restore(e.undoStack[last])
	e.undoStack = e.undoStack[:last]
	e.notifyContent()
}

// Redo reverses the most recent Undo.
func (e *Editor) Redo() {
	if len(e.redoStack) == 0 {
		return
	}
	e.undoStack = append(e.undoStack, e.snapshot())
	last := len(e.redoStack) - 1
	e.restore(e.redoStack[last])
	e.redoStack = e.redoStack[:last]
	e.notifyContent()
}

// SetValueOptions controls SetValue behavior.
type SetValueOptions struct {
	// PreserveCursor keeps the cursor in place, clamped to the new content.
	PreserveCursor bool
	// SkipUndo suppresses the undo snapshot. Used when resetting state that
	// should not be undoable.
	SkipUndo bool
	// SkipNotify suppresses the content callback. Used when applying remote
	// updates that must not echo back.
	SkipNotify bool
}

// SetValue replaces the whole document. The undo snapshot is taken
// immediately, bypassing the debounce, so a remote replacement is always
// undoable on its own.
func (e *Editor) SetValue(text string, opts SetValueOptions) {
	if !opts.SkipUndo {
		e.pushUndo(e.snapshot())
	}
	e.doc.ReplaceAll(text, opts.PreserveCursor)
	e.sel = make(TileSet)
	e.anchor = nil
	if !opts.SkipNotify {
		e.notifyContent()
	}
}
