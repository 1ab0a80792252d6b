package board

import (
	"fmt"
	"strings"

	"github.com/domino14/tilepairs/tilemapping"
)

// ToDisplayText renders the board as a grid of tile glyphs. Each row is
// labeled with the position index of its first column, so the position of
// a tile is its row label plus its column header.
func (b *Board) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString("\n     ")
	for c := 0; c < Cols; c++ {
		fmt.Fprintf(&sb, "%-3d", c)
	}
	sb.WriteString("\n    ")
	sb.WriteString(strings.Repeat("-", Cols*3+1))
	sb.WriteString("\n")
	for r := 0; r < Rows; r++ {
		fmt.Fprintf(&sb, "%3d| ", Pos(r, 0))
		for c := 0; c < Cols; c++ {
			sb.WriteRune(b.squares[Pos(r, c)].Glyph())
			sb.WriteString("  ")
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("    ")
	sb.WriteString(strings.Repeat("-", Cols*3+1))
	sb.WriteString("\n")
	return sb.String()
}

// ToLayout returns the compact textual form of the board: rows separated
// by slashes, each tile written as rank and suit ("5s", "Tm"), vacant
// slots as dots.
func (b *Board) ToLayout() string {
	var sb strings.Builder
	for r := 0; r < Rows; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		for c := 0; c < Cols; c++ {
			sb.WriteString(b.squares[Pos(r, c)].Token())
		}
	}
	return sb.String()
}

// FromLayout parses a string produced by ToLayout.
func FromLayout(layout string) (Board, error) {
	var b Board
	rows := strings.Split(strings.TrimSpace(layout), "/")
	if len(rows) != Rows {
		return Board{}, fmt.Errorf("%w: expected %d rows, got %d", ErrBadLayout, Rows, len(rows))
	}
	for r, row := range rows {
		runes := []rune(row)
		c := 0
		for i := 0; i < len(runes); {
			if c >= Cols {
				return Board{}, fmt.Errorf("%w: row %d is too long", ErrBadLayout, r)
			}
			tokLen := 2
			if runes[i] == tilemapping.VacantToken {
				tokLen = 1
			}
			if i+tokLen > len(runes) {
				return Board{}, fmt.Errorf("%w: truncated token in row %d", ErrBadLayout, r)
			}
			t, err := tilemapping.FromToken(string(runes[i : i+tokLen]))
			if err != nil {
				return Board{}, fmt.Errorf("%w: row %d: %w", ErrBadLayout, r, err)
			}
			b.squares[Pos(r, c)] = t
			c++
			i += tokLen
		}
		if c != Cols {
			return Board{}, fmt.Errorf("%w: row %d has %d columns", ErrBadLayout, r, c)
		}
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}
