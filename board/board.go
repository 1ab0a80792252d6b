// Package board contains the 12x10 tile grid, the freedom rule that decides
// which tiles can be picked, and pair removal, the only way a board changes
// during play.
package board

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash"

	"github.com/domino14/tilepairs/tilemapping"
)

const (
	Rows = 12
	Cols = 10
	Size = Rows * Cols
)

var (
	ErrInvalidPair = errors.New("invalid pair")
	ErrBadLayout   = errors.New("bad layout")
)

// Board is a value type. Assigning a board copies all of its squares, so
// a copy can be mutated without affecting the original.
type Board struct {
	squares [Size]tilemapping.Tile
}

// Pos returns the position index of the given row and column.
func Pos(row, col int) int {
	return row*Cols + col
}

// Row and Col decompose a position index.
func Row(p int) int { return p / Cols }
func Col(p int) int { return p % Cols }

func InBounds(p int) bool {
	return p >= 0 && p < Size
}

// FromSquares builds a board from a full array of squares.
func FromSquares(sq [Size]tilemapping.Tile) Board {
	return Board{squares: sq}
}

// FromTiles builds a board where every position not in the map is vacant.
func FromTiles(tiles map[int]tilemapping.Tile) (Board, error) {
	var b Board
	for p, t := range tiles {
		if !InBounds(p) {
			return Board{}, fmt.Errorf("%w: position %d out of range", ErrBadLayout, p)
		}
		b.squares[p] = t
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

func (b *Board) At(p int) tilemapping.Tile {
	if !InBounds(p) {
		return tilemapping.Vacant
	}
	return b.squares[p]
}

// Squares returns a copy of the squares.
func (b *Board) Squares() [Size]tilemapping.Tile {
	return b.squares
}

func (b *Board) Copy() Board {
	return *b
}

// IsFree returns true if the tile at p has a clear line of vacant slots
// to the edge of the board in at least one of the four axis directions.
// Tiles on an edge are free via that edge. Vacant slots are never free.
func (b *Board) IsFree(p int) bool {
	if !InBounds(p) || b.squares[p].IsVacant() {
		return false
	}
	row, col := Row(p), Col(p)
	// up, down, left, right
	return b.clearToEdge(row, col, -1, 0) ||
		b.clearToEdge(row, col, 1, 0) ||
		b.clearToEdge(row, col, 0, -1) ||
		b.clearToEdge(row, col, 0, 1)
}

func (b *Board) clearToEdge(row, col, dr, dc int) bool {
	for r, c := row+dr, col+dc; r >= 0 && r < Rows && c >= 0 && c < Cols; r, c = r+dr, c+dc {
		if !b.squares[Pos(r, c)].IsVacant() {
			return false
		}
	}
	return true
}

// FreePositions returns all free positions in ascending order.
func (b *Board) FreePositions() []int {
	free := make([]int, 0, 2*(Rows+Cols))
	for p := range b.squares {
		if b.squares[p].IsVacant() {
			continue
		}
		if b.IsFree(p) {
			free = append(free, p)
		}
	}
	return free
}

// RemovePair vacates positions a and c, which must hold the same tile, and
// returns the rank of that tile. The board is left untouched on error.
func (b *Board) RemovePair(a, c int) (int, error) {
	if !InBounds(a) || !InBounds(c) {
		return 0, fmt.Errorf("%w: positions %d, %d out of range", ErrInvalidPair, a, c)
	}
	if a == c {
		return 0, fmt.Errorf("%w: position %d paired with itself", ErrInvalidPair, a)
	}
	ta, tc := b.squares[a], b.squares[c]
	if ta.IsVacant() || tc.IsVacant() {
		return 0, fmt.Errorf("%w: vacant position in %d, %d", ErrInvalidPair, a, c)
	}
	if ta != tc {
		return 0, fmt.Errorf("%w: %v at %d does not match %v at %d", ErrInvalidPair, ta, a, tc, c)
	}
	b.squares[a] = tilemapping.Vacant
	b.squares[c] = tilemapping.Vacant
	return ta.Rank(), nil
}

// TilesRemaining is the number of non-vacant slots.
func (b *Board) TilesRemaining() int {
	n := 0
	for _, t := range b.squares {
		if !t.IsVacant() {
			n++
		}
	}
	return n
}

func (b *Board) IsEmpty() bool {
	return b.TilesRemaining() == 0
}

// Counts returns the number of copies of every tile on the board, indexed
// by tile code. Index 0 counts vacant slots.
func (b *Board) Counts() [tilemapping.NumTiles + 1]int {
	var counts [tilemapping.NumTiles + 1]int
	for _, t := range b.squares {
		if t.Valid() {
			counts[t]++
		}
	}
	return counts
}

// Validate makes sure the board could have come from a standard set: every
// square holds a known tile and no tile appears more than 4 times.
func (b *Board) Validate() error {
	for p, t := range b.squares {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown tile code %d at %d", ErrBadLayout, t, p)
		}
	}
	counts := b.Counts()
	for t := 1; t <= tilemapping.NumTiles; t++ {
		if counts[t] > tilemapping.CopiesPerTile {
			return fmt.Errorf("%w: %d copies of %v", ErrBadLayout, counts[t], tilemapping.Tile(t))
		}
	}
	return nil
}

// ValidateStandard checks that the board holds exactly the full set.
func (b *Board) ValidateStandard() error {
	if err := b.Validate(); err != nil {
		return err
	}
	counts := b.Counts()
	if counts[tilemapping.Vacant] != 0 {
		return fmt.Errorf("%w: %d vacant slots", ErrBadLayout, counts[tilemapping.Vacant])
	}
	for t := 1; t <= tilemapping.NumTiles; t++ {
		if counts[t] != tilemapping.CopiesPerTile {
			return fmt.Errorf("%w: %d copies of %v", ErrBadLayout, counts[t], tilemapping.Tile(t))
		}
	}
	return nil
}

// Fingerprint is a stable 64-bit digest of the board contents, suitable
// as a storage key. It does not change between runs, unlike the zobrist
// hash.
func (b *Board) Fingerprint() uint64 {
	var buf [Size]byte
	for i, t := range b.squares {
		buf[i] = byte(t)
	}
	return xxhash.Sum64(buf[:])
}
