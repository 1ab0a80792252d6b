// Package movegen enumerates the matchable pairs on a board: two free
// positions that hold the same tile.
package movegen

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/tilemapping"
)

// Pair is an unordered pair of positions, always stored with A < B.
type Pair struct {
	A, B int
}

func NewPair(a, b int) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

func (p Pair) String() string {
	return fmt.Sprintf("%d %d", p.A, p.B)
}

// ShortDescription shows the tile being removed along with the positions.
func (p Pair) ShortDescription(b *board.Board) string {
	return fmt.Sprintf("%v@%d,%d", b.At(p.A), p.A, p.B)
}

// pairIndexes[n] holds every 2-combination of n indexes, in lexicographic
// order. A group can never exceed the number of copies of a tile.
var pairIndexes [tilemapping.CopiesPerTile + 1][][]int

func init() {
	for n := 2; n <= tilemapping.CopiesPerTile; n++ {
		pairIndexes[n] = lexicalPairs(n)
	}
}

func lexicalPairs(n int) [][]int {
	c := combin.Combinations(n, 2)
	sort.Slice(c, func(i, j int) bool {
		if c[i][0] != c[j][0] {
			return c[i][0] < c[j][0]
		}
		return c[i][1] < c[j][1]
	})
	return c
}

func combinations(n int) [][]int {
	if n < 2 {
		return nil
	}
	if n < len(pairIndexes) {
		return pairIndexes[n]
	}
	return lexicalPairs(n)
}

// GenAll returns all pairs of free positions holding identical tiles. The
// order is deterministic: by tile code, then lexicographically by
// position.
func GenAll(b *board.Board) []Pair {
	free := b.FreePositions()
	if len(free) < 2 {
		return nil
	}
	groups := lo.GroupBy(free, func(p int) tilemapping.Tile {
		return b.At(p)
	})
	pairs := make([]Pair, 0, len(free))
	for t := tilemapping.Tile(1); t <= tilemapping.NumTiles; t++ {
		group := groups[t]
		// group positions are ascending since free positions are.
		for _, c := range combinations(len(group)) {
			pairs = append(pairs, Pair{A: group[c[0]], B: group[c[1]]})
		}
	}
	return pairs
}

// NumPairs counts the pairs GenAll would return without building them.
func NumPairs(b *board.Board) int {
	var counts [tilemapping.NumTiles + 1]int
	for _, p := range b.FreePositions() {
		counts[b.At(p)]++
	}
	return lo.SumBy(counts[1:], func(n int) int {
		return n * (n - 1) / 2
	})
}
