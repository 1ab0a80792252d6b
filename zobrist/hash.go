package zobrist

import (
	"lukechampine.com/frand"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/movegen"
	"github.com/domino14/tilepairs/tilemapping"
)

const bignum = 1<<63 - 2

// generate a zobrist hash for a board position and the side to move.
// https://en.wikipedia.org/wiki/Zobrist_hashing
type Zobrist struct {
	minimizingTurn uint64

	posTable [board.Size][tilemapping.NumTiles + 1]uint64
}

func (z *Zobrist) Initialize() {
	for i := 0; i < board.Size; i++ {
		// index 0 is the vacant tile; it never contributes to the key.
		for j := 1; j <= tilemapping.NumTiles; j++ {
			z.posTable[i][j] = frand.Uint64n(bignum) + 1
		}
	}
	z.minimizingTurn = frand.Uint64n(bignum) + 1
}

func (z *Zobrist) Hash(b *board.Board, minimizing bool) uint64 {
	key := uint64(0)
	sq := b.Squares()
	for i, t := range sq {
		if t.IsVacant() {
			continue
		}
		key ^= z.posTable[i][t]
	}
	if minimizing {
		key ^= z.minimizingTurn
	}
	return key
}

// AddPair returns the key of the position after the given pair of tiles
// is removed. Turns always alternate, so the side to move flips too.
// Applying the same pair twice restores the original key.
func (z *Zobrist) AddPair(key uint64, p movegen.Pair, t tilemapping.Tile) uint64 {
	key ^= z.posTable[p.A][t]
	key ^= z.posTable[p.B][t]
	key ^= z.minimizingTurn
	return key
}
