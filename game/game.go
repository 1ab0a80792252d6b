// Package game keeps the state of a live two-player session over one
// board: points per player, the side on turn, and the turns played so far.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/movegen"
	"github.com/domino14/tilepairs/solver"
	"github.com/domino14/tilepairs/tilemapping"
)

var (
	ErrGameOver      = errors.New("game is over")
	ErrTileNotFree   = errors.New("tile is not free")
	ErrNothingToUndo = errors.New("nothing to undo")
)

type PlayState int

const (
	Playing PlayState = iota
	GameOver
)

func (p PlayState) String() string {
	if p == GameOver {
		return "game over"
	}
	return "playing"
}

// Turn is one removed pair.
type Turn struct {
	Player int
	Pair   movegen.Pair
	Tile   tilemapping.Tile
	Points int
}

// Game is safe for concurrent use; moves are applied one at a time.
type Game struct {
	mu sync.RWMutex

	board   board.Board
	initial board.Board
	players [2]*playerState
	onturn  int
	turnnum int
	turns   []Turn
	playing PlayState
}

// NewGame starts a session on b. Player 0 moves first and is the side the
// solver maximizes for.
func NewGame(b board.Board) *Game {
	g := &Game{
		board:   b,
		initial: b,
		players: [2]*playerState{newPlayerState("player1"), newPlayerState("player2")},
	}
	g.updatePlayState()
	return g
}

// Must hold the lock.
func (g *Game) updatePlayState() {
	if movegen.NumPairs(&g.board) == 0 {
		g.playing = GameOver
	} else {
		g.playing = Playing
	}
}

// PlayPair removes the tiles at a and b for the player on turn, credits
// that player with the rank and passes the turn.
func (g *Game) PlayPair(a, b int) (Turn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.playing == GameOver {
		return Turn{}, ErrGameOver
	}
	cp := g.board
	tile := cp.At(a)
	pts, err := cp.RemovePair(a, b)
	if err != nil {
		return Turn{}, err
	}
	for _, p := range []int{a, b} {
		if !g.board.IsFree(p) {
			return Turn{}, fmt.Errorf("%w: position %d", ErrTileNotFree, p)
		}
	}
	g.board = cp
	t := Turn{Player: g.onturn, Pair: movegen.NewPair(a, b), Tile: tile, Points: pts}
	g.players[g.onturn].points += pts
	g.players[g.onturn].turns++
	g.turns = append(g.turns, t)
	g.onturn = otherPlayer(g.onturn)
	g.turnnum++
	g.updatePlayState()
	log.Debug().Int("player", t.Player).Str("pair", t.Pair.String()).
		Int("points", pts).Int("turn", g.turnnum).Msg("played-pair")
	return t, nil
}

// UnplayLastTurn puts the last removed pair back and gives the turn back.
func (g *Game) UnplayLastTurn() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.turns) == 0 {
		return ErrNothingToUndo
	}
	t := g.turns[len(g.turns)-1]
	g.turns = g.turns[:len(g.turns)-1]
	sq := g.board.Squares()
	sq[t.Pair.A] = t.Tile
	sq[t.Pair.B] = t.Tile
	g.board = board.FromSquares(sq)
	g.players[t.Player].points -= t.Points
	g.players[t.Player].turns--
	g.onturn = t.Player
	g.turnnum--
	g.updatePlayState()
	return nil
}

// Engine finds the best line from a position. Even turns maximize.
type Engine interface {
	Solve(ctx context.Context, b board.Board, accumulated, turn int) (*solver.Result, error)
}

// EnginePair asks e for the best pair for the side on turn. The result's
// Score is player 0's projected final total.
func (g *Game) EnginePair(ctx context.Context, e Engine) (*solver.Result, error) {
	g.mu.RLock()
	b := g.board
	accumulated := g.players[0].points
	turn := g.turnnum
	over := g.playing == GameOver
	g.mu.RUnlock()
	if over {
		return nil, ErrGameOver
	}
	return e.Solve(ctx, b, accumulated, turn)
}

func (g *Game) LegalPairs() []movegen.Pair {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return movegen.GenAll(&g.board)
}

func (g *Game) Playing() PlayState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.playing
}

func (g *Game) PlayerOnTurn() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.onturn
}

func (g *Game) PointsFor(playerIdx int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.players[playerIdx].points
}

func (g *Game) SpreadFor(playerIdx int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.players[playerIdx].points - g.players[otherPlayer(playerIdx)].points
}

// Turn is the number of turns played so far. Even turns belong to player 0.
func (g *Game) Turn() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.turnnum
}

// Board returns a copy of the live board.
func (g *Game) Board() board.Board {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.board
}

func (g *Game) InitialBoard() board.Board {
	return g.initial
}

// History returns a copy of the turns played so far.
func (g *Game) History() []Turn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Turn(nil), g.turns...)
}

func (g *Game) SetNickname(playerIdx int, nick string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.players[playerIdx].nickname = nick
}

// Copy returns an independent session in the same state.
func (g *Game) Copy() *Game {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cp := &Game{
		board:   g.board,
		initial: g.initial,
		onturn:  g.onturn,
		turnnum: g.turnnum,
		turns:   append([]Turn(nil), g.turns...),
		playing: g.playing,
	}
	for i, p := range g.players {
		pc := *p
		cp.players[i] = &pc
	}
	return cp
}

func otherPlayer(idx int) int {
	return (idx + 1) % 2
}
