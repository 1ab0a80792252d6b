package tilemapping

import (
	"errors"
	"fmt"
)

// A tile is internally represented by a byte.
// The 0 value is the vacant slot. A real tile is suit*MaxRank + rank, so
// the characters suit runs from 1 to 10, bamboo from 11 to 20 and circles
// from 21 to 30.
const (
	MaxRank  = 10
	NumSuits = 3
	// NumTiles is the number of distinct real tile identities.
	NumTiles = MaxRank * NumSuits
	// CopiesPerTile is how many copies of each identity a full set holds.
	CopiesPerTile = 4
	// NumTotalTiles is the size of a full set.
	NumTotalTiles = NumTiles * CopiesPerTile

	// VacantToken is the layout representation of an empty slot.
	VacantToken = '.'
	// TenToken stands for rank 10 in layouts.
	TenToken = 'T'
)

const Vacant Tile = 0

type Suit uint8

const (
	Characters Suit = iota
	Bamboo
	Circles
)

var suitTokens = [NumSuits]rune{'m', 's', 'p'}

func (s Suit) String() string {
	switch s {
	case Characters:
		return "characters"
	case Bamboo:
		return "bamboo"
	case Circles:
		return "circles"
	}
	return "unknown"
}

var ErrInvalidTile = errors.New("invalid tile")

// Tile is a machine-only representation of a (rank, suit) identity.
type Tile byte

// NewTile returns the tile for the given rank (1..10) and suit (0..2).
func NewTile(rank int, suit Suit) (Tile, error) {
	if rank < 1 || rank > MaxRank {
		return Vacant, fmt.Errorf("%w: rank %d out of range", ErrInvalidTile, rank)
	}
	if suit >= NumSuits {
		return Vacant, fmt.Errorf("%w: suit %d out of range", ErrInvalidTile, suit)
	}
	return Tile(int(suit)*MaxRank + rank), nil
}

// MustTile is NewTile for constant arguments; it panics on bad input.
func MustTile(rank int, suit Suit) Tile {
	t, err := NewTile(rank, suit)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Tile) IsVacant() bool {
	return t == Vacant
}

// Valid returns true for vacant and for every real identity.
func (t Tile) Valid() bool {
	return t <= NumTiles
}

// Rank is the point value of the tile. Vacant has rank 0.
func (t Tile) Rank() int {
	if t == Vacant {
		return 0
	}
	return (int(t)-1)%MaxRank + 1
}

func (t Tile) Suit() Suit {
	if t == Vacant {
		return 0
	}
	return Suit((int(t) - 1) / MaxRank)
}

var glyphs = [NumSuits][MaxRank]rune{
	{'🀇', '🀈', '🀉', '🀊', '🀋', '🀌', '🀍', '🀎', '🀏', '🀄'},
	{'🀐', '🀑', '🀒', '🀓', '🀔', '🀕', '🀖', '🀗', '🀘', '🀅'},
	{'🀙', '🀚', '🀛', '🀜', '🀝', '🀞', '🀟', '🀠', '🀡', '🀆'},
}

// Glyph returns the display rune for this tile; vacant is a space.
func (t Tile) Glyph() rune {
	if t == Vacant || !t.Valid() {
		return ' '
	}
	return glyphs[t.Suit()][t.Rank()-1]
}

// Token returns the layout representation of the tile, e.g. "5s" or "Tm".
func (t Tile) Token() string {
	if t == Vacant || !t.Valid() {
		return string(VacantToken)
	}
	r := rune('0' + t.Rank())
	if t.Rank() == MaxRank {
		r = TenToken
	}
	return string([]rune{r, suitTokens[t.Suit()]})
}

func (t Tile) String() string {
	if t == Vacant {
		return "vacant"
	}
	return t.Token()
}

// FromToken parses a layout token produced by Token.
func FromToken(tok string) (Tile, error) {
	runes := []rune(tok)
	if len(runes) == 1 && runes[0] == VacantToken {
		return Vacant, nil
	}
	if len(runes) != 2 {
		return Vacant, fmt.Errorf("%w: bad token %q", ErrInvalidTile, tok)
	}
	var rank int
	switch {
	case runes[0] == TenToken:
		rank = MaxRank
	case runes[0] >= '1' && runes[0] <= '9':
		rank = int(runes[0] - '0')
	default:
		return Vacant, fmt.Errorf("%w: bad rank in token %q", ErrInvalidTile, tok)
	}
	for s, st := range suitTokens {
		if st == runes[1] {
			return NewTile(rank, Suit(s))
		}
	}
	return Vacant, fmt.Errorf("%w: bad suit in token %q", ErrInvalidTile, tok)
}

// FullSet returns the canonical multiset: CopiesPerTile copies of every
// identity, ordered by rank then suit.
func FullSet() []Tile {
	tiles := make([]Tile, 0, NumTotalTiles)
	for rank := 1; rank <= MaxRank; rank++ {
		for s := Suit(0); s < NumSuits; s++ {
			t := MustTile(rank, s)
			for i := 0; i < CopiesPerTile; i++ {
				tiles = append(tiles, t)
			}
		}
	}
	return tiles
}
