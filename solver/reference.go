package solver

import (
	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/movegen"
)

// Score is the plain exhaustive recursion: the best cumulative score the
// maximizing side can reach from b when both sides play optimally. Even
// turns maximize and bank the rank of every pair they remove; odd turns
// minimize and bank nothing. maxPlies bounds the number of plies searched
// below this call; 0 searches to the end of the game.
//
// Solver computes the same value much faster.
func Score(b board.Board, accumulated, turn, maxPlies int) int {
	return score(&b, accumulated, turn, maxPlies, 0)
}

func score(b *board.Board, accumulated, turn, maxPlies, ply int) int {
	pairs := movegen.GenAll(b)
	if len(pairs) == 0 || (maxPlies > 0 && ply >= maxPlies) {
		return accumulated
	}
	maximizing := turn%2 == 0
	best := HugeNumber
	if maximizing {
		best = -HugeNumber
	}
	for _, p := range pairs {
		child := *b
		pts, err := child.RemovePair(p.A, p.B)
		if err != nil {
			panic(err)
		}
		next := accumulated
		if maximizing {
			next += pts
		}
		v := score(&child, next, turn+1, maxPlies, ply+1)
		if maximizing {
			best = max(best, v)
		} else {
			best = min(best, v)
		}
	}
	return best
}
