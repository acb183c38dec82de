package core

import (
	"sort"
	"sync"

	"pkt.systems/tileboard/schema"
)

// Overlay holds remote presentation state rendered on top of the local
// document: the remote cursor, highlighted tiles, the laser pointer,
// breakpoint rows, raised hands and reaction tallies. It is fed by inbound
// sync messages only and never merges into the document or its undo
// history. Safe for concurrent use.
type Overlay struct {
	mu          sync.Mutex
	cursor      *schema.Tile
	highlights  TileSet
	laser       *schema.Tile
	breakpoints map[int]struct{}
	hands       map[schema.ParticipantID]string
	reactions   map[string]int
}

// NewOverlay returns an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		highlights:  make(TileSet),
		breakpoints: make(map[int]struct{}),
		hands:       make(map[schema.ParticipantID]string),
		reactions:   make(map[string]int),
	}
}

// SetCursor records the remote cursor tile.
func (o *Overlay) SetCursor(t schema.Tile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cursor = &t
}

// ClearCursor removes the remote cursor.
func (o *Overlay) ClearCursor() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cursor = nil
}

// Cursor returns the remote cursor tile if present.
func (o *Overlay) Cursor() (schema.Tile, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cursor == nil {
		return schema.Tile{}, false
	}
	return *o.cursor, true
}

// SetHighlights replaces the highlighted tile set.
func (o *Overlay) SetHighlights(tiles []schema.Tile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.highlights = NewTileSet(tiles...)
}

// ClearHighlights removes all highlighted tiles.
func (o *Overlay) ClearHighlights() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.highlights = make(TileSet)
}

// Highlights returns the highlighted tiles in document order.
func (o *Overlay) Highlights() []schema.Tile {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.highlights.Sorted()
}

// SetLaser records the laser pointer tile. The column may point past the
// end of the line; it is stored as received.
func (o *Overlay) SetLaser(t schema.Tile) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.laser = &t
}

// ClearLaser removes the laser pointer.
func (o *Overlay) ClearLaser() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.laser = nil
}

// Laser returns the laser pointer tile if present.
func (o *Overlay) Laser() (schema.Tile, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.laser == nil {
		return schema.Tile{}, false
	}
	return *o.laser, true
}

// SetBreakpoints replaces the remote breakpoint rows.
func (o *Overlay) SetBreakpoints(rows []int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.breakpoints = make(map[int]struct{}, len(rows))
	for _, row := range rows {
		o.breakpoints[row] = struct{}{}
	}
}

// Breakpoints returns the remote breakpoint rows in ascending order.
func (o *Overlay) Breakpoints() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	rows := make([]int, 0, len(o.breakpoints))
	for row := range o.breakpoints {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}

// SetHandRaised records or clears a raised hand for a participant.
func (o *Overlay) SetHandRaised(id schema.ParticipantID, name string, raised bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if raised {
		o.hands[id] = name
	} else {
		delete(o.hands, id)
	}
}

// RaisedHands returns the names of participants with raised hands, sorted.
func (o *Overlay) RaisedHands() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.hands))
	for _, name := range o.hands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddReaction bumps the tally for an emoji.
func (o *Overlay) AddReaction(emoji string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reactions[emoji]++
}

// Reactions returns a copy of the reaction tallies.
func (o *Overlay) Reactions() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]int, len(o.reactions))
	for emoji, n := range o.reactions {
		out[emoji] = n
	}
	return out
}

// ClearReactions drops all reaction tallies.
func (o *Overlay) ClearReactions() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reactions = make(map[string]int)
}

// Reset drops all remote state. Called on disconnect and reconnect so
// stale remote artifacts never linger.
func (o *Overlay) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cursor = nil
	o.laser = nil
	o.highlights = make(TileSet)
	o.breakpoints = make(map[int]struct{})
	o.hands = make(map[schema.ParticipantID]string)
	o.reactions = make(map[string]int)
}
