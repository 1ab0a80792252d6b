package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/bot"
	"github.com/domino14/tilepairs/config"
	"github.com/domino14/tilepairs/game"
	"github.com/domino14/tilepairs/tilemapping"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	os.Exit(m.Run())
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"autoplay -log /path/to/log.txt",
			&shellcmd{"autoplay", nil, CmdOptions{"log": {"/path/to/log.txt"}}},
			nil},
		{"remove 3 17",
			&shellcmd{"remove", []string{"3", "17"}, CmdOptions{}},
			nil},
		{"solve -plies 3 -noab -timeout 2s ",
			&shellcmd{"solve", nil, CmdOptions{
				"plies": {"3"}, "noab": {"true"}, "timeout": {"2s"}}},
			nil},
		{"solve -nott",
			&shellcmd{"solve", nil, CmdOptions{"nott": {"true"}}},
			nil},
		{`load "1m 2m"`,
			&shellcmd{"load", []string{"1m 2m"}, CmdOptions{}},
			nil},
		{"solve -plies", nil, errWrongOptionSyntax},
	}
	for _, tc := range cases {
		cmd, err := extractFields(tc.line)
		is.Equal(cmd, tc.expCmd)
		is.Equal(err, tc.expErr)
	}
}

func testController(t *testing.T) (*ShellController, chan os.Signal) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigThreads, 1)
	cfg.Set(config.ConfigTTSizePower, 12)
	return newController(cfg, &bytes.Buffer{}), make(chan os.Signal, 1)
}

// the center tile at 55 is boxed in by 45, 54, 56 and 65.
func plusLayout(t *testing.T) string {
	t.Helper()
	five := tilemapping.MustTile(5, tilemapping.Characters)
	two := tilemapping.MustTile(2, tilemapping.Bamboo)
	nine := tilemapping.MustTile(9, tilemapping.Circles)
	b, err := board.FromTiles(map[int]tilemapping.Tile{
		54: five, 55: two, 56: five, 45: two, 65: nine, 57: nine,
	})
	if err != nil {
		t.Fatal(err)
	}
	return b.ToLayout()
}

func run(t *testing.T, sc *ShellController, sig chan os.Signal, line string) (string, error) {
	t.Helper()
	resp, err := sc.standardModeSwitch(line, sig)
	if err != nil {
		return "", err
	}
	return resp.message, nil
}

func TestNoGame(t *testing.T) {
	is := is.New(t)
	sc, sig := testController(t)
	for _, line := range []string{"show", "pairs", "free", "remove 1 2", "undo", "solve", "layout"} {
		_, err := run(t, sc, sig, line)
		is.Equal(err, errNoGame)
	}
}

func TestRemoveAndUndo(t *testing.T) {
	is := is.New(t)
	sc, sig := testController(t)
	layout := plusLayout(t)

	out, err := run(t, sc, sig, "load "+layout)
	is.NoErr(err)
	is.True(strings.Contains(out, "Tiles left: 6"))

	out, err = run(t, sc, sig, "layout")
	is.NoErr(err)
	is.Equal(out, layout)

	out, err = run(t, sc, sig, "pairs")
	is.NoErr(err)
	is.True(strings.Contains(out, "54 56"))
	is.True(!strings.Contains(out, "45 55"))

	_, err = run(t, sc, sig, "remove 45 55")
	is.True(errors.Is(err, game.ErrTileNotFree))
	_, err = run(t, sc, sig, "remove 54 200")
	is.True(errors.Is(err, board.ErrInvalidPair))
	_, err = run(t, sc, sig, "remove x 3")
	is.True(err != nil)
	_, err = run(t, sc, sig, "remove 54")
	is.True(err != nil)

	out, err = run(t, sc, sig, "rm 54 56")
	is.NoErr(err)
	is.True(strings.Contains(out, "player1 removed 5m@54,56 for 5"))

	out, err = run(t, sc, sig, "free")
	is.NoErr(err)
	is.True(strings.Contains(out, "4 free tiles"))

	_, err = run(t, sc, sig, "undo")
	is.NoErr(err)
	is.Equal(sc.game.Turn(), 0)
	_, err = run(t, sc, sig, "undo")
	is.True(errors.Is(err, game.ErrNothingToUndo))
}

func TestSolveCommands(t *testing.T) {
	is := is.New(t)
	sc, sig := testController(t)
	_, err := run(t, sc, sig, "load "+plusLayout(t))
	is.NoErr(err)

	out, err := run(t, sc, sig, "solve -plies 1")
	is.NoErr(err)
	is.True(strings.Contains(out, "Depth: 1 plies, complete: true"))
	is.True(strings.Contains(out, "Best score for player1: 9"))
	// the configured bound is back after the command.
	is.Equal(sc.solver.MaxPlies(), 0)

	out, err = run(t, sc, sig, "solve -noab -nott -noid")
	is.NoErr(err)
	is.True(strings.Contains(out, "Principal variation"))

	_, err = run(t, sc, sig, "solve -timeout soon")
	is.True(err != nil)

	out, err = run(t, sc, sig, "hint")
	is.NoErr(err)
	is.True(strings.Contains(out, "Suggested"))

	for {
		out, err = run(t, sc, sig, "engine")
		is.NoErr(err)
		if sc.game.Playing() == game.GameOver {
			break
		}
	}
	is.True(strings.Contains(out, "No pairs remain"))
	_, err = run(t, sc, sig, "engine")
	is.True(errors.Is(err, game.ErrGameOver))
}

func TestSolveUsesStore(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigThreads, 1)
	cfg.Set(config.ConfigTTSizePower, 12)
	cfg.Set(config.ConfigSolutionDBPath, ":memory:")
	sc := newController(cfg, &bytes.Buffer{})
	defer sc.Cleanup()
	is.True(sc.store != nil)
	sig := make(chan os.Signal, 1)

	_, err := run(t, sc, sig, "load "+plusLayout(t))
	is.NoErr(err)
	first, err := run(t, sc, sig, "hint")
	is.NoErr(err)
	second, err := run(t, sc, sig, "hint")
	is.NoErr(err)
	is.Equal(first, second)

	n, err := sc.store.Count(context.Background())
	is.NoErr(err)
	is.Equal(n, 1)
}

func TestNewAndHelp(t *testing.T) {
	is := is.New(t)
	sc, sig := testController(t)

	out, err := run(t, sc, sig, "new 42")
	is.NoErr(err)
	is.True(strings.Contains(out, "Tiles left: 120"))
	is.Equal(sc.game.Board(), board.NewSeeded(42))
	_, err = run(t, sc, sig, "new soon")
	is.True(err != nil)

	out, err = run(t, sc, sig, "help")
	is.NoErr(err)
	is.True(strings.Contains(out, "Usage"))
	out, err = run(t, sc, sig, "help solve")
	is.NoErr(err)
	is.True(strings.Contains(out, "-noab"))
	_, err = run(t, sc, sig, "help nonsense")
	is.True(err != nil)

	_, err = run(t, sc, sig, "frobnicate")
	is.True(err != nil)
}

func TestAutoplay(t *testing.T) {
	is := is.New(t)
	sc, sig := testController(t)
	out, err := run(t, sc, sig, "autoplay -games 2 -plies 1 -threads 2 -seed 3 -opponent greedy")
	is.NoErr(err)
	is.True(strings.Contains(out, "Games played: 2"))
	is.True(strings.Contains(out, "greedy"))
}

func TestExit(t *testing.T) {
	is := is.New(t)
	sc, sig := testController(t)
	_, err := sc.standardModeSwitch("exit", sig)
	is.True(err != nil)
	is.Equal(<-sig, syscall.SIGINT)
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	sc, sig := testController(t)
	c := NewShellCompleter(sc)

	matches, n := c.Do([]rune("sol"), 3)
	is.Equal(n, 3)
	is.Equal(matches, [][]rune{[]rune("ve")})

	matches, _ = c.Do([]rune("solve -no"), 9)
	is.Equal(len(matches), 3)

	matches, _ = c.Do([]rune("autoplay -opponent g"), 20)
	is.Equal(matches, [][]rune{[]rune("reedy")})

	matches, _ = c.Do([]rune("solve -l"), 8)
	is.Equal(matches, [][]rune{[]rune("og"), []rune("ambda")})

	matches, n = c.Do([]rune("help au"), 7)
	is.Equal(n, 2)
	is.Equal(matches, [][]rune{[]rune("toplay")})

	_, err := run(t, sc, sig, "load "+plusLayout(t))
	is.NoErr(err)
	matches, _ = c.Do([]rune("rm 5"), 4)
	// 54, 56 and 57 are free; 55 is not.
	is.Equal(len(matches), 3)
}

type cannedRemote struct {
	resp  *bot.SolveResponse
	plies int
	calls int
}

func (c *cannedRemote) RequestSolve(ctx context.Context, b board.Board, accumulated, turn, plies int) (*bot.SolveResponse, error) {
	c.calls++
	c.plies = plies
	return c.resp, nil
}

func TestSolveWithLambda(t *testing.T) {
	is := is.New(t)
	sc, sig := testController(t)
	_, err := run(t, sc, sig, "load "+plusLayout(t))
	is.NoErr(err)

	_, err = run(t, sc, sig, "solve -lambda")
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "lambda-function"))

	remote := &cannedRemote{resp: &bot.SolveResponse{
		Score: 9, Gain: 9, Best: []int{54, 56}, PV: [][2]int{{54, 56}},
		Complete: true, Depth: 1,
	}}
	sc.lambdaClient = remote
	out, err := run(t, sc, sig, "solve -lambda -plies 1")
	is.NoErr(err)
	is.Equal(remote.calls, 1)
	is.Equal(remote.plies, 1)
	is.True(strings.Contains(out, "Best score for player1: 9"))
	is.True(strings.Contains(out, "Depth: 1 plies, complete: true"))
}
