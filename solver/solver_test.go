package solver

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"lukechampine.com/frand"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/movegen"
	"github.com/domino14/tilepairs/tilemapping"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	os.Exit(m.Run())
}

func seededRNG(seed uint64) *frand.RNG {
	var s [32]byte
	for i := 0; i < 8; i++ {
		s[i] = byte(seed >> (8 * i))
	}
	return frand.NewCustom(s[:], 1024, 12)
}

// smallBoard packs nTiles tiles into the top-left 4x4 corner so that some
// of them block each other. Each identity gets 2 or 4 copies.
func smallBoard(t *testing.T, seed uint64, nTiles int) board.Board {
	t.Helper()
	rng := seededRNG(seed)
	var slots []int
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			slots = append(slots, board.Pos(r, c))
		}
	}
	rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
	tiles := map[int]tilemapping.Tile{}
	placed := 0
	for placed < nTiles {
		tile := tilemapping.MustTile(rng.Intn(tilemapping.MaxRank)+1,
			tilemapping.Suit(rng.Intn(tilemapping.NumSuits)))
		copies := 2
		if nTiles-placed >= 4 && rng.Intn(3) == 0 {
			copies = 4
		}
		seen := 0
		for _, existing := range tiles {
			if existing == tile {
				seen++
			}
		}
		if seen+copies > tilemapping.CopiesPerTile {
			continue
		}
		for i := 0; i < copies; i++ {
			tiles[slots[placed]] = tile
			placed++
		}
	}
	b, err := board.FromTiles(tiles)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newTestSolver() *Solver {
	s := &Solver{}
	s.Init()
	s.SetThreads(1)
	s.SetTTSizePower(16)
	return s
}

func TestEmptyBoardKeepsAccumulated(t *testing.T) {
	is := is.New(t)
	var b board.Board
	is.Equal(Score(b, 17, 0, 0), 17)
	is.Equal(Score(b, 17, 1, 0), 17)

	s := newTestSolver()
	res, err := s.Solve(context.Background(), b, 17, 0)
	is.NoErr(err)
	is.Equal(res.Score, 17)
	is.Equal(res.Gain, 0)
	is.True(res.BestPair == nil)
	is.True(res.Complete)
}

func TestSinglePair(t *testing.T) {
	is := is.New(t)
	tile := tilemapping.MustTile(7, tilemapping.Circles)
	b, err := board.FromTiles(map[int]tilemapping.Tile{0: tile, 1: tile})
	is.NoErr(err)

	is.Equal(Score(b, 0, 0, 0), 7)
	is.Equal(Score(b, 3, 0, 0), 10)
	// the minimizer banks nothing.
	is.Equal(Score(b, 3, 1, 0), 3)

	s := newTestSolver()
	res, err := s.Solve(context.Background(), b, 3, 0)
	is.NoErr(err)
	is.Equal(res.Score, 10)
	is.Equal(res.Gain, 7)
	is.Equal(*res.BestPair, movegen.Pair{A: 0, B: 1})
	is.Equal(res.Depth, 1)
	is.True(res.Complete)

	res, err = s.Solve(context.Background(), b, 3, 1)
	is.NoErr(err)
	is.Equal(res.Score, 3)
}

type solverOptions struct {
	name      string
	alphaBeta bool
	ttable    bool
	iterative bool
	threads   int
}

var optionGrid = []solverOptions{
	{"plain", false, false, false, 1},
	{"ab", true, false, false, 1},
	{"tt", false, true, false, 1},
	{"ab-tt", true, true, false, 1},
	{"ab-tt-id", true, true, true, 1},
	{"ab-id", true, false, true, 1},
	{"ab-tt-id-threads", true, true, true, 4},
	{"plain-threads", false, false, false, 4},
}

func configured(o solverOptions) *Solver {
	s := newTestSolver()
	s.SetAlphaBeta(o.alphaBeta)
	s.SetTranspositionTable(o.ttable)
	s.SetIterativeDeepening(o.iterative)
	s.SetThreads(o.threads)
	s.SetSplitDepth(1)
	return s
}

func TestSolverMatchesReference(t *testing.T) {
	for seed := uint64(1); seed <= 12; seed++ {
		b := smallBoard(t, seed, 12)
		for _, turn := range []int{0, 1} {
			for _, plies := range []int{0, 1, 2, 3} {
				expected := Score(b, 5, turn, plies)
				for _, o := range optionGrid {
					s := configured(o)
					s.SetMaxPlies(plies)
					res, err := s.Solve(context.Background(), b, 5, turn)
					if err != nil {
						t.Fatalf("seed %d %s: %v", seed, o.name, err)
					}
					if res.Score != expected {
						t.Errorf("seed %d turn %d plies %d %s: got %d, expected %d",
							seed, turn, plies, o.name, res.Score, expected)
					}
					if !res.Complete {
						t.Errorf("seed %d %s: expected complete result", seed, o.name)
					}
				}
			}
		}
	}
}

func TestPlyBoundOnFullBoard(t *testing.T) {
	is := is.New(t)
	b := board.NewSeeded(99)

	bestRank := 0
	for _, p := range movegen.GenAll(&b) {
		bestRank = max(bestRank, b.At(p.A).Rank())
	}
	is.Equal(Score(b, 0, 0, 1), bestRank)

	for _, plies := range []int{1, 2, 3} {
		expected := Score(b, 0, 0, plies)
		for _, o := range optionGrid[3:] {
			s := configured(o)
			s.SetSplitDepth(2)
			s.SetMaxPlies(plies)
			res, err := s.Solve(context.Background(), b, 0, 0)
			is.NoErr(err)
			is.Equal(res.Score, expected)
			is.Equal(res.Depth, plies)
			is.True(res.Complete)
		}
	}
}

func TestPrincipalVariationReplays(t *testing.T) {
	is := is.New(t)
	for seed := uint64(20); seed < 26; seed++ {
		b := smallBoard(t, seed, 12)
		s := newTestSolver()
		s.SetTranspositionTable(false)
		res, err := s.Solve(context.Background(), b, 0, 0)
		is.NoErr(err)

		replay := b
		banked := 0
		for i, p := range res.PV {
			is.True(replay.IsFree(p.A))
			is.True(replay.IsFree(p.B))
			pts, err := replay.RemovePair(p.A, p.B)
			is.NoErr(err)
			if i%2 == 0 {
				banked += pts
			}
		}
		is.Equal(banked, res.Gain)
		is.Equal(len(movegen.GenAll(&replay)), 0) // line runs to the end of the game
		is.Equal(*res.BestPair, res.PV[0])
	}
}

func TestCanceledBeforeFirstIteration(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestSolver()
	_, err := s.Solve(ctx, board.NewSeeded(3), 0, 0)
	is.True(errors.Is(err, ErrNoSolution))
	is.True(errors.Is(err, context.Canceled))
}

func TestInterruptedSolveFallsBack(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestSolver()
	s.SetProgressInterval(1000)
	s.SetObserver(ObserverFunc(func(st Stats) {
		if st.Nodes >= 50000 {
			cancel()
		}
	}))
	res, err := s.Solve(ctx, board.NewSeeded(3), 4, 0)
	is.NoErr(err)
	is.True(!res.Complete)
	is.True(res.Depth >= 1)
	is.True(res.BestPair != nil)
	is.True(res.Score >= 4)
}

func TestObserverSeesProgress(t *testing.T) {
	is := is.New(t)
	var calls atomic.Int64
	s := newTestSolver()
	s.SetThreads(3)
	s.SetSplitDepth(1)
	s.SetProgressInterval(10)
	s.SetObserver(ObserverFunc(func(st Stats) {
		calls.Add(1)
	}))
	b := smallBoard(t, 7, 14)
	res, err := s.Solve(context.Background(), b, 0, 0)
	is.NoErr(err)
	is.True(calls.Load() > 0)
	is.True(res.Stats.Nodes >= uint64(calls.Load())*10)
}

func TestLogStream(t *testing.T) {
	is := is.New(t)
	var sb strings.Builder
	s := newTestSolver()
	s.SetLogStream(&sb)
	b := smallBoard(t, 11, 12)
	res, err := s.Solve(context.Background(), b, 0, 0)
	is.NoErr(err)

	var entries []iterationLog
	is.NoErr(yaml.Unmarshal([]byte(sb.String()), &entries))
	is.Equal(len(entries), res.Depth)
	last := entries[len(entries)-1]
	is.Equal(last.Score, res.Score)
	is.Equal(len(last.PV), len(res.PV))
}

func TestOrderPairs(t *testing.T) {
	is := is.New(t)
	low := tilemapping.MustTile(2, tilemapping.Bamboo)
	high := tilemapping.MustTile(9, tilemapping.Bamboo)
	b, err := board.FromTiles(map[int]tilemapping.Tile{0: low, 1: low, 2: high, 3: high, 4: low, 5: low})
	is.NoErr(err)
	pairs := movegen.GenAll(&b)
	orderPairs(&b, pairs, movegen.Pair{}, false)
	is.Equal(pairs[0], movegen.Pair{A: 2, B: 3})

	hash := movegen.Pair{A: 1, B: 5}
	orderPairs(&b, pairs, hash, true)
	is.Equal(pairs[0], hash)
	is.Equal(pairs[1], movegen.Pair{A: 2, B: 3})
}
