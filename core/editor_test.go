package core

import (
	"testing"
	"time"

	"pkt.systems/tileboard/schema"
)

// fakeClock advances only when told to, making undo coalescing
// deterministic.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestTypeAndValue(t *testing.T) {
	e := NewEditor("")
	e.Type("hello")
	e.Enter()
	e.Type("world")
	if e.Value() != "hello\nworld" {
		t.Fatalf("Value = %q", e.Value())
	}
	if e.Cursor() != (schema.Tile{Row: 1, Col: 5}) {
		t.Fatalf("Cursor = %+v", e.Cursor())
	}
}

func TestTypeReplacesSelection(t *testing.T) {
	e := NewEditor("abcdef")
	e.MoveCursorTo(0, 1, false)
	e.MoveCursorTo(0, 4, true)
	e.Type("X")
	if e.Value() != "aXef" {
		t.Fatalf("Value = %q", e.Value())
	}
	if e.Selection().Len() != 0 {
		t.Fatal("selection must clear after typing")
	}
}

func TestUndoCoalescesRapidTyping(t *testing.T) {
	clock := newFakeClock()
	e := NewEditor("", WithClock(clock.now))
	for _, ch := range []string{"a", "b", "c", "d", "e"} {
		e.Type(ch)
		clock.advance(50 * time.Millisecond)
	}
	if got := len(e.undoStack); got != 1 {
		t.Fatalf("undo entries = %d, want 1", got)
	}
	e.Undo()
	if e.Value() != "" {
		t.Fatalf("Value after undo = %q, want empty", e.Value())
	}
}

func TestUndoSeparateEntriesForSlowTyping(t *testing.T) {
	clock := newFakeClock()
	e := NewEditor("", WithClock(clock.now))
	for _, ch := range []string{"a", "b", "c", "d", "e"} {
		e.Type(ch)
		clock.advance(400 * time.Millisecond)
	}
	if got := len(e.undoStack); got != 5 {
		t.Fatalf("undo entries = %d, want 5", got)
	}
	e.Undo()
	if e.Value() != "abcd" {
		t.Fatalf("Value after one undo = %q, want %q", e.Value(), "abcd")
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	clock := newFakeClock()
	e := NewEditor("start", WithClock(clock.now))
	e.MoveCursorTo(0, 5, false)
	e.Type(" more")
	before := e.Value()
	e.Undo()
	if e.Value() != "start" {
		t.Fatalf("Value after undo = %q", e.Value())
	}
	e.Redo()
	if e.Value() != before {
		t.Fatalf("Value after redo = %q, want %q", e.Value(), before)
	}
}

func TestRedoClearedByNewEdit(t *testing.T) {
	clock := newFakeClock()
	e := NewEditor("", WithClock(clock.now))
	e.Type("a")
	clock.advance(time.Second)
	e.Type("b")
	e.Undo()
	clock.advance(time.Second)
	e.Type("c")
	if len(e.redoStack) != 0 {
		t.Fatal("redo stack must clear on new edit")
	}
	e.Redo()
	if e.Value() != "ac" {
		t.Fatalf("Value = %q, want %q", e.Value(), "ac")
	}
}

func TestUndoStackBounded(t *testing.T) {
	clock := newFakeClock()
	e := NewEditor("", WithClock(clock.now), WithMaxUndoLevels(3))
	for i := 0; i < 10; i++ {
		e.Type("x")
		clock.advance(time.Second)
	}
	if got := len(e.undoStack); got != 3 {
		t.Fatalf("undo entries = %d, want 3", got)
	}
}

func TestBackspaceAcrossLineBoundary(t *testing.T) {
	e := NewEditor("ab\ncd")
	e.MoveCursorTo(1, 0, false)
	e.Backspace()
	if e.Value() != "abcd" {
		t.Fatalf("Value = %q", e.Value())
	}
	if e.Cursor() != (schema.Tile{Row: 0, Col: 2}) {
		t.Fatalf("Cursor = %+v", e.Cursor())
	}
}

func TestCursorWrapsAtLineEdges(t *testing.T) {
	e := NewEditor("ab\ncd")
	e.MoveCursorTo(0, 2, false)
	e.MoveCursor(0, 1, false)
	if e.Cursor() != (schema.Tile{Row: 1, Col: 0}) {
		t.Fatalf("right wrap: Cursor = %+v", e.Cursor())
	}
	e.MoveCursor(0, -1, false)
	if e.Cursor() != (schema.Tile{Row: 0, Col: 2}) {
		t.Fatalf("left wrap: Cursor = %+v", e.Cursor())
	}
}

func TestCursorClampedAtDocumentEdges(t *testing.T) {
	e := NewEditor("ab")
	e.MoveCursorTo(0, 0, false)
	e.MoveCursor(0, -1, false)
	if e.Cursor() != (schema.Tile{}) {
		t.Fatalf("Cursor = %+v", e.Cursor())
	}
	e.MoveCursorTo(0, 2, false)
	e.MoveCursor(0, 1, false)
	if e.Cursor() != (schema.Tile{Row: 0, Col: 2}) {
		t.Fatalf("Cursor = %+v", e.Cursor())
	}
}

func TestSelectAll(t *testing.T) {
	e := NewEditor("ab\ncd")
	e.SelectAll()
	if e.Selection().Len() != 4 {
		t.Fatalf("Selection len = %d, want 4", e.Selection().Len())
	}
	if e.Cursor() != (schema.Tile{Row: 1, Col: 2}) {
		t.Fatalf("Cursor = %+v", e.Cursor())
	}
}

func TestSelectedTextWithRowGaps(t *testing.T) {
	e := NewEditor("ab\ncd\nef")
	sel := NewTileSet(
		schema.Tile{Row: 0, Col: 0},
		schema.Tile{Row: 2, Col: 1},
	)
	e.sel = sel
	if got := e.SelectedText(); got != "a\n\nf" {
		t.Fatalf("SelectedText = %q, want %q", got, "a\n\nf")
	}
}

func TestCut(t *testing.T) {
	e := NewEditor("abcdef")
	e.MoveCursorTo(0, 1, false)
	e.MoveCursorTo(0, 4, true)
	got := e.Cut()
	if got != "bcd" {
		t.Fatalf("Cut = %q", got)
	}
	if e.Value() != "aef" {
		t.Fatalf("Value = %q", e.Value())
	}
}

func TestTabAndShiftTab(t *testing.T) {
	e := NewEditor("code", WithTabSize(3))
	e.Tab()
	if e.Value() != "   code" {
		t.Fatalf("Value after Tab = %q", e.Value())
	}
	e.ShiftTab()
	if e.Value() != "code" {
		t.Fatalf("Value after ShiftTab = %q", e.Value())
	}
	if e.Cursor() != (schema.Tile{Row: 0, Col: 0}) {
		t.Fatalf("Cursor = %+v", e.Cursor())
	}
}

func TestShiftTabPartialIndent(t *testing.T) {
	e := NewEditor(" x", WithTabSize(3))
	e.MoveCursorTo(0, 2, false)
	e.ShiftTab()
	if e.Value() != "x" {
		t.Fatalf("Value = %q", e.Value())
	}
	if e.Cursor() != (schema.Tile{Row: 0, Col: 1}) {
		t.Fatalf("Cursor = %+v", e.Cursor())
	}
}

func TestSetValueRemoteUpdate(t *testing.T) {
	notified := 0
	e := NewEditor("local")
	e.OnContent = func() { notified++ }
	e.MoveCursorTo(0, 3, false)
	e.SetValue("remote text", SetValueOptions{
		PreserveCursor: true,
		SkipNotify:     true,
	})
	if notified != 0 {
		t.Fatal("remote SetValue must not notify")
	}
	if e.Cursor() != (schema.Tile{Row: 0, Col: 3}) {
		t.Fatalf("Cursor = %+v", e.Cursor())
	}
	if len(e.undoStack) != 1 {
		t.Fatalf("undo entries = %d, want 1", len(e.undoStack))
	}
	e.Undo()
	if e.Value() != "local" {
		t.Fatalf("Value after undo = %q", e.Value())
	}
}

func TestSetValueSkipUndo(t *testing.T) {
	e := NewEditor("a")
	e.SetValue("b", SetValueOptions{SkipUndo: true})
	if len(e.undoStack) != 0 {
		t.Fatal("SkipUndo must not push an undo entry")
	}
}

func TestContentCallbackFires(t *testing.T) {
	fired := 0
	e := NewEditor("")
	e.OnContent = func() { fired++ }
	e.Type("a")
	e.Enter()
	e.Backspace()
	if fired != 3 {
		t.Fatalf("OnContent fired %d times, want 3", fired)
	}
}

func TestToggleTile(t *testing.T) {
	e := NewEditor("ab")
	tile := schema.Tile{Row: 0, Col: 1}
	e.ToggleTile(tile)
	if !e.Selection().Has(tile) {
		t.Fatal("tile not selected after toggle")
	}
	e.ToggleTile(tile)
	if e.Selection().Has(tile) {
		t.Fatal("tile still selected after second toggle")
	}
}
