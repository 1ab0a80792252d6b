package solver

import (
	"fmt"
	"strings"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/movegen"
)

// Credit: MIT-licensed https://github.com/algerbrex/blunder/blob/main/engine/search.go
type PVLine struct {
	Moves []movegen.Pair
}

// Clear the principal variation line.
func (pvLine *PVLine) Clear() {
	pvLine.Moves = nil
}

// Update the principal variation line with a new best move,
// and a new line of best play after the best move.
func (pvLine *PVLine) Update(m movegen.Pair, newPVLine PVLine) {
	pvLine.Clear()
	pvLine.Moves = append(pvLine.Moves, m)
	pvLine.Moves = append(pvLine.Moves, newPVLine.Moves...)
}

// Describe writes out the line as played from board b, with the side that
// plays each pair and the points it banks.
func Describe(b board.Board, turn int, moves []movegen.Pair) []string {
	desc := make([]string, 0, len(moves))
	for i, m := range moves {
		tile := b.At(m.A)
		pts, err := b.RemovePair(m.A, m.B)
		if err != nil {
			desc = append(desc, fmt.Sprintf("%d: %v (invalid)", i+1, m))
			break
		}
		side := "max"
		if (turn+i)%2 != 0 {
			side = "min"
			pts = 0
		}
		desc = append(desc, fmt.Sprintf("%d: %s %v %d,%d (%d)", i+1, side, tile, m.A, m.B, pts))
	}
	return desc
}

// NLBString is the line with no line breaks.
func NLBString(b board.Board, turn int, moves []movegen.Pair) string {
	return strings.Join(Describe(b, turn, moves), "; ")
}
