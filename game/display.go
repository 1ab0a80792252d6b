package game

import (
	"fmt"
	"strings"
)

func addText(lines []string, row int, hpad int, text string) {
	if row >= len(lines) {
		return
	}
	lines[row] = lines[row] + strings.Repeat(" ", hpad) + text
}

func (t Turn) summary() string {
	return fmt.Sprintf("player%d removed %v at %d,%d for %d", t.Player+1, t.Tile, t.Pair.A, t.Pair.B, t.Points)
}

// ToDisplayText turns the current state of the game into a displayable
// string.
func (g *Game) ToDisplayText() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	bts := strings.Split(g.board.ToDisplayText(), "\n")
	hpadding := 3
	vpadding := 3

	for pi := 0; pi < 2; pi++ {
		addText(bts, vpadding+pi, hpadding,
			g.players[pi].stateString(g.playing == Playing && g.onturn == pi))
	}
	addText(bts, vpadding+3, hpadding, fmt.Sprintf("Tiles left: %d", g.board.TilesRemaining()))
	addText(bts, vpadding+5, hpadding, fmt.Sprintf("Turn %d:", g.turnnum))
	if len(g.turns) > 0 {
		addText(bts, vpadding+6, hpadding, g.turns[len(g.turns)-1].summary())
	}
	if g.playing == GameOver {
		addText(bts, vpadding+8, hpadding, "Game is over.")
	}
	return strings.Join(bts, "\n")
}
