package board

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/tilepairs/tilemapping"
)

// matchOf returns another position holding the same tile as p.
func matchOf(b *Board, p int) int {
	for q := 0; q < Size; q++ {
		if q != p && b.At(q) == b.At(p) {
			return q
		}
	}
	return -1
}

func isEdge(p int) bool {
	return Row(p) == 0 || Row(p) == Rows-1 || Col(p) == 0 || Col(p) == Cols-1
}

func TestStandardBoardHasFullSet(t *testing.T) {
	is := is.New(t)
	for i := 0; i < 20; i++ {
		b := NewStandard()
		is.NoErr(b.ValidateStandard())
		is.Equal(b.TilesRemaining(), Size)
	}
	b := NewSeeded(42)
	is.NoErr(b.ValidateStandard())
}

func TestSeededIsReproducible(t *testing.T) {
	is := is.New(t)
	b1 := NewSeeded(1234)
	b2 := NewSeeded(1234)
	b3 := NewSeeded(1235)
	is.Equal(b1, b2)
	is.True(b1 != b3)
}

func TestEdgesAreFree(t *testing.T) {
	is := is.New(t)
	for seed := uint64(0); seed < 10; seed++ {
		b := NewSeeded(seed)
		// knock out a few pairs to get a more interesting board.
		for p := 0; p < Size && b.TilesRemaining() > 80; p++ {
			for q := p + 1; q < Size; q++ {
				if b.At(p) == b.At(q) && !b.At(p).IsVacant() {
					_, err := b.RemovePair(p, q)
					is.NoErr(err)
					break
				}
			}
		}
		for p := 0; p < Size; p++ {
			if isEdge(p) && !b.At(p).IsVacant() {
				is.True(b.IsFree(p))
			}
		}
		for _, p := range b.FreePositions() {
			is.True(!b.At(p).IsVacant())
		}
	}
}

func TestFullBoardOnlyPerimeterFree(t *testing.T) {
	is := is.New(t)
	b := NewSeeded(7)
	free := b.FreePositions()
	is.Equal(len(free), 2*Rows+2*Cols-4)
	for _, p := range free {
		is.True(isEdge(p))
	}
}

func TestFreedomLineOfSight(t *testing.T) {
	is := is.New(t)
	one := tilemapping.MustTile(1, tilemapping.Characters)
	two := tilemapping.MustTile(2, tilemapping.Characters)
	// A tile in the middle, boxed in on all sides by blockers that are
	// themselves some distance away.
	center := Pos(5, 5)
	b, err := FromTiles(map[int]tilemapping.Tile{
		center:    one,
		Pos(1, 5): two, // up
		Pos(9, 5): two, // down
		Pos(5, 2): two, // left
		Pos(5, 8): one, // right
	})
	is.NoErr(err)
	is.True(!b.IsFree(center))

	// open up the right side.
	b2, err := FromTiles(map[int]tilemapping.Tile{
		center:    one,
		Pos(1, 5): two,
		Pos(9, 5): two,
		Pos(5, 2): two,
	})
	is.NoErr(err)
	is.True(b2.IsFree(center))
	// the blockers themselves all see an edge.
	is.True(b2.IsFree(Pos(1, 5)))
	is.True(b2.IsFree(Pos(9, 5)))
	is.True(b2.IsFree(Pos(5, 2)))

	is.True(!b2.IsFree(Pos(0, 0))) // vacant
	is.True(!b2.IsFree(-1))
	is.True(!b2.IsFree(Size))
}

func TestRemovePair(t *testing.T) {
	is := is.New(t)
	seven := tilemapping.MustTile(7, tilemapping.Bamboo)
	b, err := FromTiles(map[int]tilemapping.Tile{0: seven, 1: seven})
	is.NoErr(err)

	pts, err := b.RemovePair(0, 1)
	is.NoErr(err)
	is.Equal(pts, 7)
	is.True(b.IsEmpty())
	is.True(b.At(0).IsVacant())
	is.True(b.At(1).IsVacant())
}

func TestRemovePairInvalid(t *testing.T) {
	is := is.New(t)
	b := NewSeeded(99)
	a, c := 0, 1
	// find two differing tiles.
	for b.At(c) == b.At(a) {
		c++
	}
	before := b
	type tc struct {
		a, b int
	}
	cases := []tc{
		{a, c},    // differing identities
		{a, a},    // same position
		{-1, 3},   // out of range
		{3, Size}, // out of range
	}
	for _, cs := range cases {
		_, err := b.RemovePair(cs.a, cs.b)
		is.True(errors.Is(err, ErrInvalidPair))
		is.Equal(b, before)
	}

	// vacant slots.
	d := matchOf(&b, 0)
	_, err := b.RemovePair(0, d)
	is.NoErr(err)
	after := b
	_, err = b.RemovePair(0, d)
	is.True(errors.Is(err, ErrInvalidPair))
	is.Equal(b, after)
}

func TestCopyIsIndependent(t *testing.T) {
	is := is.New(t)
	b := NewSeeded(3)
	cp := b.Copy()
	_, err := cp.RemovePair(0, matchOf(&b, 0))
	is.NoErr(err)
	is.Equal(b.TilesRemaining(), Size)
	is.Equal(cp.TilesRemaining(), Size-2)
	is.True(b.Fingerprint() != cp.Fingerprint())
	again := NewSeeded(3)
	is.Equal(b.Fingerprint(), again.Fingerprint())
}

func TestLayoutRoundTrip(t *testing.T) {
	is := is.New(t)
	b := NewSeeded(11)
	_, err := b.RemovePair(0, matchOf(&b, 0))
	is.NoErr(err)

	layout := b.ToLayout()
	is.Equal(len(strings.Split(layout, "/")), Rows)
	back, err := FromLayout(layout)
	is.NoErr(err)
	is.Equal(back, b)

	empty, err := FromLayout(strings.Repeat("........../", Rows-1) + "..........")
	is.NoErr(err)
	is.True(empty.IsEmpty())
}

func TestBadLayouts(t *testing.T) {
	is := is.New(t)
	emptyRow := ".........."
	rows := func(first string) string {
		r := []string{first}
		for i := 1; i < Rows; i++ {
			r = append(r, emptyRow)
		}
		return strings.Join(r, "/")
	}
	bad := []string{
		"",
		emptyRow,
		rows("........."),       // short row
		rows("..........."),     // long row
		rows("5s5s5s5s5s....."), // 5 copies
		rows("9x........"),      // bad suit
		rows(".........5"),      // truncated token
	}
	for _, l := range bad {
		_, err := FromLayout(l)
		is.True(errors.Is(err, ErrBadLayout))
	}
}

func TestDisplayText(t *testing.T) {
	is := is.New(t)
	b := NewSeeded(5)
	txt := b.ToDisplayText()
	lines := strings.Split(strings.Trim(txt, "\n"), "\n")
	// header, two rules and twelve rows
	is.Equal(len(lines), Rows+3)
	is.True(strings.HasPrefix(strings.TrimSpace(lines[2]), "0|"))
	is.True(strings.Contains(lines[2], string(b.At(0).Glyph())))

	var empty Board
	is.True(!strings.ContainsAny(empty.ToDisplayText(), "🀇🀐🀙"))
}
