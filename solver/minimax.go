package solver

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/movegen"
)

// branch is a child handed to a helper goroutine.
type branch struct {
	pair      movegen.Pair
	value     int
	exhausted bool
	pv        PVLine
}

func better(v, best int, maximizing bool) bool {
	if maximizing {
		return v > best
	}
	return v < best
}

func (s *Solver) trySplit(depth int) bool {
	if s.sem == nil || depth < s.splitDepth {
		return false
	}
	if !s.sem.TryAcquire(1) {
		return false
	}
	s.splits.Add(1)
	return true
}

// orderPairs puts the hash pair first, then higher ranks.
func orderPairs(b *board.Board, pairs []movegen.Pair, hashPair movegen.Pair, hasHashPair bool) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if hasHashPair {
			if pairs[i] == hashPair {
				return pairs[j] != hashPair
			}
			if pairs[j] == hashPair {
				return false
			}
		}
		return b.At(pairs[i].A).Rank() > b.At(pairs[j].A).Rank()
	})
}

// minimax returns the number of points the maximizer banks from this node
// onward within depth plies. The second return value is true if every
// line below ran out of pairs before depth ran out.
func (s *Solver) minimax(ctx context.Context, b *board.Board, key uint64, depth int,
	α, β int, maximizing bool, pv *PVLine) (int, bool, error) {

	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if n := s.nodes.Add(1); s.observer != nil && n%s.progressInterval == 0 {
		s.observer.Progress(s.snapshot())
	}

	var hashPair movegen.Pair
	hasHashPair := false
	if s.transpositionTableOptim {
		if entry, ok := s.ttable.lookup(key); ok {
			hashPair, hasHashPair = entry.move()
			if entry.usable(depth) {
				score := int(entry.score)
				switch entry.flag() {
				case TTExact:
					pv.Clear()
					return score, entry.exhausted(), nil
				case TTLower:
					if score >= β {
						pv.Clear()
						return score, entry.exhausted(), nil
					}
				case TTUpper:
					if score <= α {
						pv.Clear()
						return score, entry.exhausted(), nil
					}
				}
			}
		}
	}

	pairs := movegen.GenAll(b)
	if len(pairs) == 0 {
		pv.Clear()
		return 0, true, nil
	}
	if depth == 0 {
		pv.Clear()
		return 0, false, nil
	}
	orderPairs(b, pairs, hashPair, hasHashPair)

	best := HugeNumber
	if maximizing {
		best = -HugeNumber
	}
	var bestPair movegen.Pair
	exhausted := true
	cutoff := false
	lo, hi := α, β

	var g *errgroup.Group
	var gctx context.Context
	var spawned []*branch

	for _, p := range pairs {
		child := *b
		tile := b.At(p.A)
		pts, err := child.RemovePair(p.A, p.B)
		if err != nil {
			// enumerated pairs always remove cleanly.
			panic(err)
		}
		gain := 0
		if maximizing {
			gain = pts
		}
		childKey := s.zobrist.AddPair(key, p, tile)

		if s.trySplit(depth) {
			if g == nil {
				g, gctx = errgroup.WithContext(ctx)
			}
			br := &branch{pair: p}
			spawned = append(spawned, br)
			cα, cβ := lo-gain, hi-gain
			g.Go(func() error {
				defer s.sem.Release(1)
				v, ex, err := s.minimax(gctx, &child, childKey, depth-1, cα, cβ, !maximizing, &br.pv)
				br.value, br.exhausted = v+gain, ex
				return err
			})
			continue
		}

		childPV := PVLine{}
		v, ex, err := s.minimax(ctx, &child, childKey, depth-1, lo-gain, hi-gain, !maximizing, &childPV)
		if err != nil {
			if g != nil {
				g.Wait()
			}
			return 0, false, err
		}
		v += gain
		exhausted = exhausted && ex
		if better(v, best, maximizing) {
			best = v
			bestPair = p
			pv.Update(p, childPV)
		}
		if s.alphaBetaOptim {
			if maximizing {
				lo = max(lo, best)
			} else {
				hi = min(hi, best)
			}
			if lo >= hi {
				cutoff = true
				break
			}
		}
	}

	if g != nil {
		if err := g.Wait(); err != nil {
			return 0, false, err
		}
		for _, br := range spawned {
			exhausted = exhausted && br.exhausted
			if better(br.value, best, maximizing) {
				best = br.value
				bestPair = br.pair
				pv.Update(br.pair, br.pv)
			}
		}
	}
	if cutoff {
		exhausted = false
	}

	if s.transpositionTableOptim {
		var flag uint8 = TTExact
		if best <= α {
			flag = TTUpper
		} else if best >= β {
			flag = TTLower
		}
		s.ttable.store(key, newEntry(best, depth, flag, exhausted, bestPair, true))
	}
	return best, exhausted, nil
}
