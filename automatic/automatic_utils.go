package automatic

// Data collection for automatic games.

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/tilepairs/stats"
)

var (
	CVCCounter *expvar.Int
	IsPlaying  *expvar.Int
)

func init() {
	CVCCounter = expvar.NewInt("cvcCounter")
	IsPlaying = expvar.NewInt("isPlaying")
}

var ErrAlreadyPlaying = errors.New("games are already being played, please wait till complete")

const turnLogHeader = "playerType,gameID,turn,tile,pair,points,totalpoints,tilesremaining\n"

type Options struct {
	NumGames int
	// Threads is the number of games played at once.
	Threads  int
	Seed     uint64
	Players  [2]string
	MaxPlies int
	// SolveTimeout bounds each solver move; 0 means none.
	SolveTimeout time.Duration
	TTSizePower  int
	// TurnLog receives one CSV line per turn if set.
	TurnLog io.Writer
}

const (
	histogramBins  = 10
	histogramWidth = 40
)

// Summary aggregates the outcomes of a batch of games.
type Summary struct {
	Games      int
	Points     [2]stats.Statistic
	Spread     stats.Statistic
	TilesLeft  stats.Statistic
	Wins       [2]int
	Ties       int
	Cleared    int
	Players    [2]string
	Incomplete int
	// Fallbacks counts solver moves that timed out and were played greedily.
	Fallbacks int

	spreads   []float64
	tilesLeft []float64
}

func (s *Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Games played: %d (cleared the board: %d)\n", s.Games, s.Cleared)
	for i := 0; i < 2; i++ {
		fmt.Fprintf(&sb, "p%d (%s): wins %d, points %s\n", i+1, s.Players[i], s.Wins[i], s.Points[i].String())
	}
	fmt.Fprintf(&sb, "Ties: %d\n", s.Ties)
	fmt.Fprintf(&sb, "Spread (p1-p2): %s\n", s.Spread.String())
	fprintHistogram(&sb, &s.Spread, s.spreads)
	fmt.Fprintf(&sb, "Tiles left: %s\n", s.TilesLeft.String())
	fprintHistogram(&sb, &s.TilesLeft, s.tilesLeft)
	if s.Fallbacks > 0 {
		fmt.Fprintf(&sb, "Solver moves out of time: %d\n", s.Fallbacks)
	}
	if s.Incomplete > 0 {
		fmt.Fprintf(&sb, "Stopped before finishing: %d\n", s.Incomplete)
	}
	return sb.String()
}

// fprintHistogram draws vals when they are not all the same.
func fprintHistogram(w io.Writer, st *stats.Statistic, vals []float64) {
	if len(vals) < 2 || st.Min() == st.Max() {
		return
	}
	hist := histogram.Hist(histogramBins, vals)
	if err := histogram.Fprint(w, hist, histogram.Linear(histogramWidth)); err != nil {
		log.Err(err).Msg("histogram")
	}
}

// StartCompVComp plays opts.NumGames games, game i on the board seeded
// with opts.Seed+i, and returns once all of them are done or ctx ends.
// Games cut short by ctx are counted as incomplete.
func StartCompVComp(ctx context.Context, opts Options) (*Summary, error) {
	if IsPlaying.Value() > 0 {
		return nil, ErrAlreadyPlaying
	}
	threads := max(1, opts.Threads)
	log.Debug().Msgf("Starting %v games, %v threads", opts.NumGames, threads)

	CVCCounter.Set(0)
	IsPlaying.Add(1)
	defer IsPlaying.Add(-1)

	var logChan chan string
	loggerDone := make(chan struct{})
	if opts.TurnLog != nil {
		logChan = make(chan string, 100)
		go func() {
			defer close(loggerDone)
			io.WriteString(opts.TurnLog, turnLogHeader)
			for msg := range logChan {
				io.WriteString(opts.TurnLog, msg)
			}
		}()
	} else {
		close(loggerDone)
	}

	seeds := make(chan uint64)
	partials := make([]*Summary, threads)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < threads; w++ {
		partial := &Summary{Players: opts.Players}
		partials[w] = partial
		g.Go(func() error {
			r, err := NewGameRunner(opts.Players, opts.MaxPlies, opts.TTSizePower, opts.SolveTimeout, logChan)
			if err != nil {
				return err
			}
			for seed := range seeds {
				r.StartGame(seed)
				err := r.PlayFull(gctx)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					partial.Incomplete++
					continue
				} else if err != nil {
					return err
				}
				partial.record(r)
				CVCCounter.Add(1)
			}
			return nil
		})
	}

feed:
	for i := 0; i < opts.NumGames; i++ {
		select {
		case seeds <- opts.Seed + uint64(i):
		case <-gctx.Done():
			log.Info().Msg("Got stop signal, exiting soon...")
			break feed
		}
	}
	close(seeds)

	err := g.Wait()
	if logChan != nil {
		close(logChan)
	}
	<-loggerDone
	if err != nil {
		return nil, err
	}
	summary := &Summary{Players: opts.Players}
	for _, p := range partials {
		summary.merge(p)
	}
	log.Info().Int("games", summary.Games).Int("incomplete", summary.Incomplete).
		Msg("all-games-finished")
	return summary, nil
}

func (s *Summary) record(r *GameRunner) {
	g := r.Game()
	p1, p2 := g.PointsFor(0), g.PointsFor(1)
	b := g.Board()
	left := b.TilesRemaining()
	s.Games++
	s.Points[0].Push(float64(p1))
	s.Points[1].Push(float64(p2))
	s.Spread.Push(float64(p1 - p2))
	s.TilesLeft.Push(float64(left))
	s.spreads = append(s.spreads, float64(p1-p2))
	s.tilesLeft = append(s.tilesLeft, float64(left))
	s.Fallbacks += r.fallbacks
	if left == 0 {
		s.Cleared++
	}
	switch {
	case p1 > p2:
		s.Wins[0]++
	case p2 > p1:
		s.Wins[1]++
	default:
		s.Ties++
	}
}

// merge folds the games of o into s.
func (s *Summary) merge(o *Summary) {
	s.Games += o.Games
	s.Points[0].Merge(&o.Points[0])
	s.Points[1].Merge(&o.Points[1])
	s.Spread.Merge(&o.Spread)
	s.TilesLeft.Merge(&o.TilesLeft)
	s.Wins[0] += o.Wins[0]
	s.Wins[1] += o.Wins[1]
	s.Ties += o.Ties
	s.Cleared += o.Cleared
	s.Incomplete += o.Incomplete
	s.Fallbacks += o.Fallbacks
	s.spreads = append(s.spreads, o.spreads...)
	s.tilesLeft = append(s.tilesLeft, o.tilesLeft...)
}
