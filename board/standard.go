package board

import (
	"encoding/binary"

	"lukechampine.com/frand"

	"github.com/domino14/tilepairs/tilemapping"
)

// NewStandard deals the full set onto a board in a uniformly random order.
func NewStandard() Board {
	tiles := tilemapping.FullSet()
	frand.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
	return fromSet(tiles)
}

// NewSeeded is like NewStandard but reproducible: the same seed always
// deals the same board.
func NewSeeded(seed uint64) Board {
	tiles := tilemapping.FullSet()
	rng := seededRNG(seed)
	rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
	return fromSet(tiles)
}

func seededRNG(seed uint64) *frand.RNG {
	var entropy [32]byte
	binary.LittleEndian.PutUint64(entropy[:], seed)
	return frand.NewCustom(entropy[:], 1024, 12)
}

func fromSet(tiles []tilemapping.Tile) Board {
	var b Board
	copy(b.squares[:], tiles)
	return b
}
