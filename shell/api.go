package shell

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/domino14/tilepairs/automatic"
	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/bot"
	"github.com/domino14/tilepairs/config"
	"github.com/domino14/tilepairs/game"
	"github.com/domino14/tilepairs/solver"
	"github.com/domino14/tilepairs/tilemapping"
)

const (
	defaultAutoplayGames = 10
	defaultAutoplayPlies = 2
	// each concurrent autoplay game gets its own table.
	maxAutoplayTTPower = 16
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) DurationDefault(key string, defaultD time.Duration) (time.Duration, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultD, nil
	}
	return time.ParseDuration(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return usage("standard")
	}
	return usageTopic(cmd.args[0])
}

func (sc *ShellController) startGame(b board.Board) *Response {
	sc.game = game.NewGame(b)
	return msg(sc.game.ToDisplayText())
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return sc.startGame(board.NewStandard()), nil
	}
	seed, err := strconv.ParseUint(cmd.args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad seed %q: %w", cmd.args[0], err)
	}
	return sc.startGame(board.NewSeeded(seed)), nil
}

func (sc *ShellController) load(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: load <layout>")
	}
	b, err := board.FromLayout(cmd.args[0])
	if err != nil {
		return nil, err
	}
	return sc.startGame(b), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	return msg(sc.game.ToDisplayText()), nil
}

func (sc *ShellController) layout(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	b := sc.game.Board()
	return msg(b.ToLayout()), nil
}

func (sc *ShellController) free(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	b := sc.game.Board()
	free := b.FreePositions()
	byTile := lo.GroupBy(free, func(p int) tilemapping.Tile { return b.At(p) })
	tiles := lo.Keys(byTile)
	sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d free tiles:\n", len(free))
	for _, t := range tiles {
		positions := lo.Map(byTile[t], func(p int, _ int) string { return strconv.Itoa(p) })
		fmt.Fprintf(&sb, "  %c %-3s %s\n", t.Glyph(), t.Token(), strings.Join(positions, " "))
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

func (sc *ShellController) pairs(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	b := sc.game.Board()
	pairs := sc.game.LegalPairs()
	if len(pairs) == 0 {
		return msg("No pairs available."), nil
	}
	var sb strings.Builder
	sb.WriteString("     Pair      Tile  Points\n")
	for idx, p := range pairs {
		t := b.At(p.A)
		fmt.Fprintf(&sb, "%3d: %-10s%c %-3s %d\n", idx+1, p.String(), t.Glyph(), t.Token(), t.Rank())
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

func parsePosition(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a position", s)
	}
	if !board.InBounds(p) {
		return 0, fmt.Errorf("%w: position %d is off the board", board.ErrInvalidPair, p)
	}
	return p, nil
}

func (sc *ShellController) afterMove(t game.Turn) *Response {
	b := sc.game.Board()
	var sb strings.Builder
	sb.WriteString(sc.game.ToDisplayText())
	fmt.Fprintf(&sb, "\nplayer%d removed %v@%d,%d for %d", t.Player+1, t.Tile, t.Pair.A, t.Pair.B, t.Points)
	if sc.game.Playing() == game.GameOver {
		fmt.Fprintf(&sb, "\nNo pairs remain. Final score: %d - %d (%d tiles left)",
			sc.game.PointsFor(0), sc.game.PointsFor(1), b.TilesRemaining())
	}
	return msg(sb.String())
}

func (sc *ShellController) remove(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	if len(cmd.args) != 2 {
		return nil, errors.New("usage: remove <position> <position>")
	}
	a, err := parsePosition(cmd.args[0])
	if err != nil {
		return nil, err
	}
	b, err := parsePosition(cmd.args[1])
	if err != nil {
		return nil, err
	}
	t, err := sc.game.PlayPair(a, b)
	if err != nil {
		return nil, err
	}
	return sc.afterMove(t), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	if err := sc.game.UnplayLastTurn(); err != nil {
		return nil, err
	}
	return msg(sc.game.ToDisplayText()), nil
}

// applySolveOptions sets up the solver for one command. The returned
// function puts the configured settings back.
func (sc *ShellController) applySolveOptions(opts CmdOptions) (func(), error) {
	restore := func() {
		sc.solver.Configure(sc.config)
		sc.solver.SetLogStream(nil)
	}
	plies, err := opts.IntDefault("plies", sc.config.GetInt(config.ConfigMaxPlies))
	if err != nil {
		return nil, err
	}
	threads, err := opts.IntDefault("threads", sc.config.GetInt(config.ConfigThreads))
	if err != nil {
		return nil, err
	}
	var logfile *os.File
	if fn := opts.String("log"); fn != "" {
		logfile, err = os.Create(fn)
		if err != nil {
			return nil, err
		}
		sc.solver.SetLogStream(logfile)
	}
	sc.solver.SetMaxPlies(plies)
	sc.solver.SetThreads(threads)
	if opts.Bool("noab") {
		sc.solver.SetAlphaBeta(false)
	}
	if opts.Bool("nott") {
		sc.solver.SetTranspositionTable(false)
	}
	if opts.Bool("noid") {
		sc.solver.SetIterativeDeepening(false)
	}
	return func() {
		restore()
		if logfile != nil {
			logfile.Close()
		}
	}, nil
}

func (sc *ShellController) solveContext(opts CmdOptions) (context.Context, context.CancelFunc, error) {
	timeout, err := opts.DurationDefault("timeout", sc.config.GetDuration(config.ConfigSolveTimeout))
	if err != nil {
		return nil, nil, err
	}
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	return ctx, cancel, nil
}

func (sc *ShellController) remoteClient(ctx context.Context) (*bot.Client, error) {
	if sc.botClient != nil {
		return sc.botClient, nil
	}
	nc, err := bot.Connect(ctx, sc.config.GetString(config.ConfigNatsURL))
	if err != nil {
		return nil, err
	}
	sc.nc = nc
	sc.botClient = bot.NewClient(nc, sc.config.GetString(config.ConfigNatsChannel))
	return sc.botClient, nil
}

// remoteSolver is a solver reached over the network.
type remoteSolver interface {
	RequestSolve(ctx context.Context, b board.Board, accumulated, turn, plies int) (*bot.SolveResponse, error)
}

func (sc *ShellController) lambdaSolver(ctx context.Context) (remoteSolver, error) {
	if sc.lambdaClient != nil {
		return sc.lambdaClient, nil
	}
	function := sc.config.GetString(config.ConfigLambdaFunction)
	if function == "" {
		return nil, errors.New("set lambda-function to solve with -lambda")
	}
	c, err := bot.NewLambdaClient(ctx, function)
	if err != nil {
		return nil, err
	}
	sc.lambdaClient = c
	return c, nil
}

// runSolve solves the live position with the command's options.
func (sc *ShellController) runSolve(opts CmdOptions) (*solver.Result, error) {
	if sc.game == nil {
		return nil, errNoGame
	}
	if sc.game.Playing() == game.GameOver {
		return nil, game.ErrGameOver
	}
	ctx, cancel, err := sc.solveContext(opts)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if opts.Bool("remote") || opts.Bool("lambda") {
		plies, err := opts.IntDefault("plies", 0)
		if err != nil {
			return nil, err
		}
		var client remoteSolver
		if opts.Bool("lambda") {
			client, err = sc.lambdaSolver(ctx)
		} else {
			client, err = sc.remoteClient(ctx)
		}
		if err != nil {
			return nil, err
		}
		resp, err := client.RequestSolve(ctx, sc.game.Board(), sc.game.PointsFor(0), sc.game.Turn(), plies)
		if err != nil {
			return nil, err
		}
		return resp.Result(), nil
	}

	restore, err := sc.applySolveOptions(opts)
	if err != nil {
		return nil, err
	}
	defer restore()
	return sc.game.EnginePair(ctx, sc.engine)
}

func resultText(b board.Board, turn int, res *solver.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Best score for player1: %d (gain %d)\n", res.Score, res.Gain)
	if res.BestPair != nil {
		fmt.Fprintf(&sb, "Best pair: %s\n", res.BestPair.ShortDescription(&b))
	}
	fmt.Fprintf(&sb, "Depth: %d plies, complete: %v\n", res.Depth, res.Complete)
	fmt.Fprintf(&sb, "Nodes: %d (%.0f/s), ttable hits: %d, elapsed: %v\n",
		res.Stats.Nodes, res.Stats.NodesPerSecond(), res.Stats.TTHits,
		res.Stats.Elapsed.Round(time.Millisecond))
	if len(res.PV) > 0 {
		sb.WriteString("Principal variation:\n")
		for _, line := range solver.Describe(b, turn, res.PV) {
			sb.WriteString("  " + line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	res, err := sc.runSolve(cmd.options)
	if err != nil {
		return nil, err
	}
	return msg(resultText(sc.game.Board(), sc.game.Turn(), res)), nil
}

func (sc *ShellController) hint(cmd *shellcmd) (*Response, error) {
	res, err := sc.runSolve(cmd.options)
	if err != nil {
		return nil, err
	}
	if res.BestPair == nil {
		return nil, solver.ErrNoSolution
	}
	b := sc.game.Board()
	return msg(fmt.Sprintf("Suggested: %s (player1 ends with %d)",
		res.BestPair.ShortDescription(&b), res.Score)), nil
}

func (sc *ShellController) enginePlay(cmd *shellcmd) (*Response, error) {
	res, err := sc.runSolve(cmd.options)
	if err != nil {
		return nil, err
	}
	if res.BestPair == nil {
		return nil, solver.ErrNoSolution
	}
	t, err := sc.game.PlayPair(res.BestPair.A, res.BestPair.B)
	if err != nil {
		return nil, err
	}
	return sc.afterMove(t), nil
}

func (sc *ShellController) autoplay(cmd *shellcmd) (*Response, error) {
	games, err := cmd.options.IntDefault("games", defaultAutoplayGames)
	if err != nil {
		return nil, err
	}
	plies, err := cmd.options.IntDefault("plies", defaultAutoplayPlies)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.GetInt(config.ConfigThreads))
	if err != nil {
		return nil, err
	}
	seed := frand.Uint64n(math.MaxUint32)
	if s := cmd.options.String("seed"); s != "" {
		seed, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, err
		}
	}
	opponent := cmd.options.String("opponent")
	if opponent == "" {
		opponent = automatic.RandomPlayer
	}
	opts := automatic.Options{
		NumGames:     games,
		Threads:      threads,
		Seed:         seed,
		Players:      [2]string{automatic.SolverPlayer, opponent},
		MaxPlies:     plies,
		SolveTimeout: sc.config.GetDuration(config.ConfigSolveTimeout),
		TTSizePower:  min(sc.config.GetInt(config.ConfigTTSizePower), maxAutoplayTTPower),
	}
	if fn := cmd.options.String("log"); fn != "" {
		f, err := os.Create(fn)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		opts.TurnLog = f
	}
	log.Info().Int("games", games).Int("plies", plies).Uint64("seed", seed).
		Str("opponent", opponent).Msg("autoplay-starting")
	summary, err := automatic.StartCompVComp(context.Background(), opts)
	if err != nil {
		return nil, err
	}
	return msg(strings.TrimRight(summary.String(), "\n")), nil
}

// freePositions feeds position completion.
func (sc *ShellController) freePositions() []int {
	if sc.game == nil {
		return nil
	}
	b := sc.game.Board()
	return b.FreePositions()
}
