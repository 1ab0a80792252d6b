// Package automatic plays computer vs computer games to the end, for
// measuring how the engine fares against simpler players.
package automatic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/game"
	"github.com/domino14/tilepairs/movegen"
	"github.com/domino14/tilepairs/solver"
)

const (
	SolverPlayer = "solver"
	RandomPlayer = "random"
	GreedyPlayer = "greedy"
)

// GameRunner plays one game at a time between two computer players.
type GameRunner struct {
	game     *game.Game
	players  [2]string
	solvers  [2]*solver.Solver
	rng      *frand.RNG
	timeout  time.Duration
	logchan  chan string
	gameID   string
	gameSeed uint64

	// fallbacks counts solver moves this game that ran out of time.
	fallbacks int
}

// NewGameRunner makes a runner whose solver players search maxPlies deep
// with a single thread each.
func NewGameRunner(players [2]string, maxPlies, ttSizePower int, timeout time.Duration, logchan chan string) (*GameRunner, error) {
	r := &GameRunner{players: players, timeout: timeout, logchan: logchan}
	for idx, p := range players {
		switch p {
		case SolverPlayer:
			s := &solver.Solver{}
			s.Init()
			s.SetThreads(1)
			s.SetMaxPlies(maxPlies)
			s.SetTTSizePower(ttSizePower)
			r.solvers[idx] = s
		case RandomPlayer, GreedyPlayer:
		default:
			return nil, fmt.Errorf("unknown player type %q", p)
		}
	}
	return r, nil
}

func rngFor(seed uint64) *frand.RNG {
	var s [32]byte
	for i := 0; i < 8; i++ {
		s[i] = byte(seed >> (8 * i))
	}
	s[8] = 'r'
	return frand.NewCustom(s[:], 1024, 12)
}

// StartGame sets up a fresh game on the board for seed.
func (r *GameRunner) StartGame(seed uint64) {
	r.gameSeed = seed
	r.gameID = fmt.Sprintf("g%d", seed)
	r.fallbacks = 0
	r.game = game.NewGame(board.NewSeeded(seed))
	r.game.SetNickname(0, "p1-"+r.players[0])
	r.game.SetNickname(1, "p2-"+r.players[1])
	r.rng = rngFor(seed)
}

func (r *GameRunner) Game() *game.Game {
	return r.game
}

func greedyPair(b *board.Board, pairs []movegen.Pair) movegen.Pair {
	best := pairs[0]
	for _, p := range pairs[1:] {
		if b.At(p.A).Rank() > b.At(best.A).Rank() {
			best = p
		}
	}
	return best
}

func (r *GameRunner) choosePair(ctx context.Context, playerIdx int) (movegen.Pair, error) {
	pairs := r.game.LegalPairs()
	b := r.game.Board()
	switch r.players[playerIdx] {
	case RandomPlayer:
		return pairs[r.rng.Intn(len(pairs))], nil
	case GreedyPlayer:
		return greedyPair(&b, pairs), nil
	}
	solveCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	res, err := r.game.EnginePair(solveCtx, r.solvers[playerIdx])
	if errors.Is(err, solver.ErrNoSolution) && ctx.Err() == nil {
		// The move timed out before one ply was searched.
		r.fallbacks++
		log.Debug().Str("game-id", r.gameID).Int("turn", r.game.Turn()).
			Msg("solve-timed-out-playing-greedy")
		return greedyPair(&b, pairs), nil
	}
	if err != nil {
		return movegen.Pair{}, err
	}
	return *res.BestPair, nil
}

// PlayTurn has the player on turn pick a pair and plays it.
func (r *GameRunner) PlayTurn(ctx context.Context) error {
	playerIdx := r.game.PlayerOnTurn()
	b := r.game.Board()
	tilesRemaining := b.TilesRemaining()
	p, err := r.choosePair(ctx, playerIdx)
	if err != nil {
		return err
	}
	turn, err := r.game.PlayPair(p.A, p.B)
	if err != nil {
		return err
	}
	if r.logchan != nil {
		r.logchan <- fmt.Sprintf("%v,%v,%v,%v,%v,%v,%v,%v\n",
			r.players[playerIdx],
			r.gameID,
			r.game.Turn(),
			turn.Tile.Token(),
			turn.Pair,
			turn.Points,
			r.game.PointsFor(playerIdx),
			tilesRemaining)
	}
	return nil
}

// PlayFull plays the current game until no pairs remain.
func (r *GameRunner) PlayFull(ctx context.Context) error {
	for r.game.Playing() == game.Playing {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.PlayTurn(ctx); err != nil {
			return err
		}
	}
	b := r.game.Board()
	log.Debug().Str("game-id", r.gameID).
		Int("p1", r.game.PointsFor(0)).Int("p2", r.game.PointsFor(1)).
		Int("tiles-left", b.TilesRemaining()).
		Msg("game-over")
	return nil
}
