package core

import (
	"testing"

	"pkt.systems/tileboard/schema"
)

func TestNewDocumentNeverEmpty(t *testing.T) {
	d := NewDocument("")
	if d.LineCount() != 1 {
		t.Fatalf("LineCount = %d, want 1", d.LineCount())
	}
	if d.Value() != "" {
		t.Fatalf("Value = %q, want empty", d.Value())
	}
}

func TestInsertTextSingleLine(t *testing.T) {
	d := NewDocument("hello world")
	d.SetCursor(schema.Tile{Row: 0, Col: 5})
	d.InsertText(",")
	if d.Value() != "hello, world" {
		t.Fatalf("Value = %q", d.Value())
	}
	if d.Cursor() != (schema.Tile{Row: 0, Col: 6}) {
		t.Fatalf("Cursor = %+v", d.Cursor())
	}
}

func TestInsertTextMultiLine(t *testing.T) {
	d := NewDocument("onetwo")
	d.SetCursor(schema.Tile{Row: 0, Col: 3})
	d.InsertText("A\nB\nC")
	if d.Value() != "oneA\nB\nCtwo" {
		t.Fatalf("Value = %q", d.Value())
	}
	if d.Cursor() != (schema.Tile{Row: 2, Col: 1}) {
		t.Fatalf("Cursor = %+v", d.Cursor())
	}
}

func TestDeleteTilesNonContiguous(t *testing.T) {
	d := NewDocument("ab\ncd")
	set := NewTileSet(schema.Tile{Row: 0, Col: 1}, schema.Tile{Row: 1, Col: 0})
	if !d.DeleteTiles(set) {
		t.Fatal("DeleteTiles reported no-op")
	}
	if d.Value() != "a\nd" {
		t.Fatalf("Value = %q, want %q", d.Value(), "a\nd")
	}
	if d.Cursor() != (schema.Tile{Row: 0, Col: 1}) {
		t.Fatalf("Cursor = %+v", d.Cursor())
	}
}

func TestDeleteTilesSameRowDescending(t *testing.T) {
	d := NewDocument("abcdef")
	set := NewTileSet(
		schema.Tile{Row: 0, Col: 1},
		schema.Tile{Row: 0, Col: 3},
		schema.Tile{Row: 0, Col: 5},
	)
	d.DeleteTiles(set)
	if d.Value() != "ace" {
		t.Fatalf("Value = %q, want %q", d.Value(), "ace")
	}
}

func TestDeleteTilesOutOfRangeSkipped(t *testing.T) {
	d := NewDocument("ab")
	set := NewTileSet(
		schema.Tile{Row: 0, Col: 2},
		schema.Tile{Row: 5, Col: 0},
		schema.Tile{Row: 0, Col: 0},
	)
	d.DeleteTiles(set)
	if d.Value() != "b" {
		t.Fatalf("Value = %q, want %q", d.Value(), "b")
	}
	if d.LineCount() != 1 {
		t.Fatalf("LineCount = %d", d.LineCount())
	}
}

func TestReplaceAllRoundTrip(t *testing.T) {
	texts := []string{"", "one", "one\ntwo\n", "a\n\n\nb"}
	for _, text := range texts {
		d := NewDocument(text)
		v := d.Value()
		d.ReplaceAll(v, false)
		if d.Value() != v {
			t.Fatalf("round trip changed %q to %q", v, d.Value())
		}
		if d.Cursor() != (schema.Tile{}) {
			t.Fatalf("cursor not reset: %+v", d.Cursor())
		}
	}
}

func TestReplaceAllPreserveCursorClamps(t *testing.T) {
	d := NewDocument("a long line\nanother")
	d.SetCursor(schema.Tile{Row: 1, Col: 7})
	d.ReplaceAll("x", true)
	if d.Cursor() != (schema.Tile{Row: 0, Col: 1}) {
		t.Fatalf("Cursor = %+v", d.Cursor())
	}
}

func TestBackspaceMergesLines(t *testing.T) {
	d := NewDocument("ab\ncd")
	d.SetCursor(schema.Tile{Row: 1, Col: 0})
	if !d.Backspace() {
		t.Fatal("Backspace reported no change")
	}
	if d.Value() != "abcd" {
		t.Fatalf("Value = %q", d.Value())
	}
	if d.Cursor() != (schema.Tile{Row: 0, Col: 2}) {
		t.Fatalf("Cursor = %+v", d.Cursor())
	}
}

func TestBackspaceAtOriginNoop(t *testing.T) {
	d := NewDocument("ab")
	d.SetCursor(schema.Tile{})
	if d.Backspace() {
		t.Fatal("Backspace at origin must be a no-op")
	}
	if d.Value() != "ab" {
		t.Fatalf("Value = %q", d.Value())
	}
}

func TestDeleteForwardMergesNextLine(t *testing.T) {
	d := NewDocument("ab\ncd")
	d.SetCursor(schema.Tile{Row: 0, Col: 2})
	if !d.DeleteForward() {
		t.Fatal("DeleteForward reported no change")
	}
	if d.Value() != "abcd" {
		t.Fatalf("Value = %q", d.Value())
	}
	if d.Cursor() != (schema.Tile{Row: 0, Col: 2}) {
		t.Fatalf("Cursor moved: %+v", d.Cursor())
	}
}

func TestDeleteForwardAtEndNoop(t *testing.T) {
	d := NewDocument("ab")
	d.SetCursor(schema.Tile{Row: 0, Col: 2})
	if d.DeleteForward() {
		t.Fatal("DeleteForward at end of document must be a no-op")
	}
}

func TestSplitLine(t *testing.T) {
	d := NewDocument("hello")
	d.SetCursor(schema.Tile{Row: 0, Col: 2})
	d.SplitLine()
	if d.Value() != "he\nllo" {
		t.Fatalf("Value = %q", d.Value())
	}
	if d.Cursor() != (schema.Tile{Row: 1, Col: 0}) {
		t.Fatalf("Cursor = %+v", d.Cursor())
	}
}

func TestClampNeverPanics(t *testing.T) {
	d := NewDocument("ab\ncd")
	cases := []schema.Tile{
		{Row: -5, Col: -5},
		{Row: 100, Col: 100},
		{Row: 0, Col: 99},
		{Row: 1, Col: 2},
	}
	for _, in := range cases {
		got := d.Clamp(in)
		if got.Row < 0 || got.Row >= d.LineCount() {
			t.Fatalf("Clamp(%+v) row out of range: %+v", in, got)
		}
		if got.Col < 0 || got.Col > len(d.Line(got.Row)) {
			t.Fatalf("Clamp(%+v) col out of range: %+v", in, got)
		}
	}
}

func TestTilesInRectSingleRow(t *testing.T) {
	d := NewDocument("abcdef")
	set := d.TilesInRect(schema.Tile{Row: 0, Col: 4}, schema.Tile{Row: 0, Col: 1})
	if set.Len() != 3 {
		t.Fatalf("Len = %d, want 3", set.Len())
	}
	for col := 1; col < 4; col++ {
		if !set.Has(schema.Tile{Row: 0, Col: col}) {
			t.Fatalf("missing tile col %d", col)
		}
	}
}

func TestTilesInRectMultiRowDirectionIndependent(t *testing.T) {
	d := NewDocument("abc\nde\nfgh")
	from := schema.Tile{Row: 0, Col: 1}
	to := schema.Tile{Row: 2, Col: 2}
	forward := d.TilesInRect(from, to)
	backward := d.TilesInRect(to, from)
	if forward.Len() != backward.Len() {
		t.Fatalf("direction dependent: %d vs %d", forward.Len(), backward.Len())
	}
	// Trailing part of the first row, the full interior row, the leading
	// part of the last row.
	want := []schema.Tile{
		{Row: 0, Col: 1}, {Row: 0, Col: 2},
		{Row: 1, Col: 0}, {Row: 1, Col: 1},
		{Row: 2, Col: 0}, {Row: 2, Col: 1},
	}
	for _, w := range want {
		if !forward.Has(w) {
			t.Fatalf("missing tile %+v", w)
		}
	}
	if forward.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", forward.Len(), len(want))
	}
}

func TestTilesInRectExcludesEndOfLine(t *testing.T) {
	d := NewDocument("ab\ncd")
	set := d.TilesInRect(schema.Tile{Row: 0, Col: 0}, schema.Tile{Row: 1, Col: 2})
	for tile := range set {
		if _, ok := d.CharAt(tile); !ok {
			t.Fatalf("non-character tile in rect: %+v", tile)
		}
	}
}

func TestCharAt(t *testing.T) {
	d := NewDocument("ab\ncd")
	if r, ok := d.CharAt(schema.Tile{Row: 1, Col: 1}); !ok || r != 'd' {
		t.Fatalf("CharAt = %q, %v", r, ok)
	}
	if _, ok := d.CharAt(schema.Tile{Row: 0, Col: 2}); ok {
		t.Fatal("end-of-line tile must have no character")
	}
	if _, ok := d.CharAt(schema.Tile{Row: 9, Col: 0}); ok {
		t.Fatal("out-of-range tile must have no character")
	}
}

func TestCursorOffset(t *testing.T) {
	d := NewDocument("ab\ncd\nef")
	d.SetCursor(schema.Tile{Row: 2, Col: 1})
	if got := d.CursorOffset(); got != 7 {
		t.Fatalf("CursorOffset = %d, want 7", got)
	}
}

func TestCharCount(t *testing.T) {
	d := NewDocument("ab\ncd")
	if got := d.CharCount(); got != 5 {
		t.Fatalf("CharCount = %d, want 5", got)
	}
}
