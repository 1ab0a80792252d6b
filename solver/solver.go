// Package solver computes the best cumulative score the maximizing side can
// reach from a position when both sides play optimally.
package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/movegen"
	"github.com/domino14/tilepairs/zobrist"
)

const (
	// HugeNumber is larger than any reachable score.
	HugeNumber = 1 << 20

	DefaultSplitDepth       = 4
	DefaultProgressInterval = 1000000
)

var ErrNoSolution = errors.New("no solution found")

// Result is what Solve found.
type Result struct {
	Score    int
	Gain     int
	BestPair *movegen.Pair
	PV       []movegen.Pair
	Depth    int
	// Complete is false when the search stopped early and the result comes
	// from a shallower iteration.
	Complete bool
	Stats    Stats
}

type Solver struct {
	zobrist *zobrist.Zobrist
	ttable  *TranspositionTable

	alphaBetaOptim          bool
	transpositionTableOptim bool
	iterativeDeepeningOptim bool

	threads          int
	splitDepth       int
	maxPlies         int
	ttSizePower      int
	ttFractionOfMem  float64
	progressInterval uint64
	observer         Observer
	logStream        io.Writer

	sem *semaphore.Weighted

	nodes  atomic.Uint64
	splits atomic.Uint64
	tstart time.Time
}

// Init sets up the solver with default settings. It must be called before
// the first Solve.
func (s *Solver) Init() {
	s.zobrist = &zobrist.Zobrist{}
	s.zobrist.Initialize()
	s.ttable = &TranspositionTable{}
	s.alphaBetaOptim = true
	s.transpositionTableOptim = true
	s.iterativeDeepeningOptim = true
	s.threads = max(1, runtime.NumCPU()-1)
	s.splitDepth = DefaultSplitDepth
	s.ttSizePower = DefaultTTPower
	s.progressInterval = DefaultProgressInterval
}

func (s *Solver) SetAlphaBeta(b bool)          { s.alphaBetaOptim = b }
func (s *Solver) SetTranspositionTable(b bool) { s.transpositionTableOptim = b }
func (s *Solver) SetIterativeDeepening(b bool) { s.iterativeDeepeningOptim = b }

func (s *Solver) SetThreads(threads int) {
	s.threads = max(1, threads)
}

// SetSplitDepth sets the smallest remaining depth at which children may be
// handed to helper goroutines.
func (s *Solver) SetSplitDepth(d int) {
	s.splitDepth = max(1, d)
}

// SetMaxPlies bounds the number of plies searched. 0 searches to the end
// of the game.
func (s *Solver) SetMaxPlies(p int) {
	s.maxPlies = max(0, p)
}

func (s *Solver) SetTTSizePower(p int) {
	s.ttSizePower = p
}

// SetTTFractionOfMem sizes the table from system memory on the next solve.
// 0 falls back to the size power.
func (s *Solver) SetTTFractionOfMem(f float64) {
	s.ttFractionOfMem = f
}

func (s *Solver) SetObserver(o Observer) {
	s.observer = o
}

func (s *Solver) SetProgressInterval(n uint64) {
	if n == 0 {
		n = DefaultProgressInterval
	}
	s.progressInterval = n
}

// SetLogStream makes the solver write a YAML document per completed
// iteration to w.
func (s *Solver) SetLogStream(w io.Writer) {
	s.logStream = w
}

func (s *Solver) Threads() int  { return s.threads }
func (s *Solver) MaxPlies() int { return s.maxPlies }

func (s *Solver) TranspositionTable() *TranspositionTable {
	return s.ttable
}

func (s *Solver) resetTable() {
	if s.ttFractionOfMem > 0 {
		s.ttable.Reset(s.ttFractionOfMem)
		return
	}
	if s.ttable.table != nil && s.ttable.sizePowerOf2 == s.ttSizePower {
		s.ttable.Clear()
		return
	}
	s.ttable.ResetToPower(s.ttSizePower)
}

func (s *Solver) plyLimit(b *board.Board) int {
	full := b.TilesRemaining() / 2
	if s.maxPlies > 0 && s.maxPlies < full {
		return s.maxPlies
	}
	return full
}

func (s *Solver) snapshot() Stats {
	st := Stats{
		Nodes:   s.nodes.Load(),
		Splits:  s.splits.Load(),
		Elapsed: time.Since(s.tstart),
	}
	if s.transpositionTableOptim {
		st.TTLookups = s.ttable.lookups.Load()
		st.TTHits = s.ttable.hits.Load()
		st.TTCreated = s.ttable.created.Load()
		st.TTCollisions = s.ttable.t2collisions.Load()
	}
	return st
}

// Solve searches b with the side on turn given by turn's parity (even
// turns maximize) and accumulated points already banked by the maximizer.
// If ctx ends before the search finishes, the deepest completed iteration
// is returned with Complete set to false.
func (s *Solver) Solve(ctx context.Context, b board.Board, accumulated, turn int) (*Result, error) {
	if s.zobrist == nil {
		s.Init()
	}
	s.tstart = time.Now()
	s.nodes.Store(0)
	s.splits.Store(0)
	if s.transpositionTableOptim {
		s.resetTable()
	}
	s.sem = nil
	if s.threads > 1 {
		s.sem = semaphore.NewWeighted(int64(s.threads - 1))
	}

	maximizing := turn%2 == 0
	limit := s.plyLimit(&b)
	log.Debug().
		Int("accumulated", accumulated).
		Int("turn", turn).
		Int("ply-limit", limit).
		Int("threads", s.threads).
		Bool("alpha-beta", s.alphaBetaOptim).
		Bool("ttable", s.transpositionTableOptim).
		Bool("iterative-deepening", s.iterativeDeepeningOptim).
		Msg("solve-starting")

	if limit == 0 {
		return &Result{Score: accumulated, Complete: true, Stats: s.snapshot()}, nil
	}

	rootKey := s.zobrist.Hash(&b, !maximizing)
	start := limit
	if s.iterativeDeepeningOptim {
		start = 1
	}

	var last *Result
	for d := start; d <= limit; d++ {
		log.Debug().Int("plies", d).Msg("deepening-iteratively")
		pv := PVLine{}
		gain, exhausted, err := s.minimax(ctx, &b, rootKey, d, -HugeNumber, HugeNumber, maximizing, &pv)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if last != nil {
					last.Complete = false
					last.Stats = s.snapshot()
					log.Info().Int("depth", last.Depth).Int("score", last.Score).
						Msg("solve-interrupted")
					return last, nil
				}
				return nil, fmt.Errorf("%w: %w", ErrNoSolution, err)
			}
			return nil, err
		}
		last = &Result{
			Score:    accumulated + gain,
			Gain:     gain,
			PV:       pv.Moves,
			Depth:    d,
			Complete: d == limit || exhausted,
		}
		if len(pv.Moves) > 0 {
			bp := pv.Moves[0]
			last.BestPair = &bp
		}
		log.Debug().Int("plies", d).Int("gain", gain).Bool("exhausted", exhausted).
			Str("pv", NLBString(b, turn, pv.Moves)).
			Uint64("nodes", s.nodes.Load()).
			Msg("iteration-complete")
		if err := s.writeIteration(b, turn, last); err != nil {
			log.Err(err).Msg("log-stream-write")
		}
		if exhausted {
			// The game ends inside the bound on every line, so deeper
			// iterations would find the same value.
			last.Complete = true
			break
		}
	}
	last.Stats = s.snapshot()
	log.Info().
		Int("score", last.Score).
		Int("depth", last.Depth).
		Uint64("nodes", last.Stats.Nodes).
		Uint64("splits", last.Stats.Splits).
		Uint64("ttable-hits", last.Stats.TTHits).
		Dur("elapsed", last.Stats.Elapsed).
		Msg("solve-returning")
	return last, nil
}

type iterationLog struct {
	Depth      int      `yaml:"depth"`
	Score      int      `yaml:"score"`
	Gain       int      `yaml:"gain"`
	PV         []string `yaml:"pv"`
	Nodes      uint64   `yaml:"nodes"`
	ElapsedSec float64  `yaml:"elapsed_sec"`
}

func (s *Solver) writeIteration(b board.Board, turn int, r *Result) error {
	if s.logStream == nil {
		return nil
	}
	entry := iterationLog{
		Depth:      r.Depth,
		Score:      r.Score,
		Gain:       r.Gain,
		PV:         Describe(b, turn, r.PV),
		Nodes:      s.nodes.Load(),
		ElapsedSec: time.Since(s.tstart).Seconds(),
	}
	// Written as a one-element sequence so the whole stream reads as a list.
	out, err := yaml.Marshal([]iterationLog{entry})
	if err != nil {
		return err
	}
	_, err = s.logStream.Write(out)
	return err
}
