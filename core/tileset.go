package core

import (
	"sort"

	"pkt.systems/tileboard/schema"
)

// TileSet is a set of tile addresses. The zero value is not usable; use
// NewTileSet or a make'd map.
type TileSet map[schema.Tile]struct{}

// NewTileSet returns a set containing the given tiles.
func NewTileSet(tiles ...schema.Tile) TileSet {
	s := make(TileSet, len(tiles))
	for _, t := range tiles {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts a tile into the set.
func (s TileSet) Add(t schema.Tile) {
	s[t] = struct{}{}
}

// Has reports whether the set contains t.
func (s TileSet) Has(t schema.Tile) bool {
	_, ok := s[t]
	return ok
}

// Toggle adds t if absent and removes it if present.
func (s TileSet) Toggle(t schema.Tile) {
	if s.Has(t) {
		delete(s, t)
	} else {
		s[t] = struct{}{}
	}
}

// Len returns the number of tiles in the set.
func (s TileSet) Len() int {
	return len(s)
}

// Clone returns a copy of the set.
func (s TileSet) Clone() TileSet {
	c := make(TileSet, len(s))
	for t := range s {
		c[t] = struct{}{}
	}
	return c
}

// Sorted returns the tiles in ascending (row, col) order.
func (s TileSet) Sorted() []schema.Tile {
	tiles := make([]schema.Tile, 0, len(s))
	for t := range s {
		tiles = append(tiles, t)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Less(tiles[j]) })
	return tiles
}
