package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/tilepairs/bot"
	"github.com/domino14/tilepairs/config"
	"github.com/domino14/tilepairs/game"
	"github.com/domino14/tilepairs/solver"
	"github.com/domino14/tilepairs/store"
)

var (
	errNoData            = errors.New("no data in line")
	errWrongOptionSyntax = errors.New("wrong format for option")
	errNoGame            = errors.New("please start a game first with the `new` or `load` command")
)

type ShellController struct {
	l *readline.Instance
	// out is where command output goes.
	out io.Writer

	config     *config.Config
	execPath   string
	gitVersion string

	game   *game.Game
	solver *solver.Solver
	store  *store.SolutionStore
	engine game.Engine

	nc           *nats.Conn
	botClient    *bot.Client
	lambdaClient remoteSolver
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func writeln(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// newController sets up everything except the terminal.
func newController(cfg *config.Config, out io.Writer) *ShellController {
	sc := &ShellController{config: cfg, out: out}
	sc.solver = solver.NewFromConfig(cfg)
	sc.engine = sc.solver
	if path := cfg.GetString(config.ConfigSolutionDBPath); path != "" {
		st, err := store.Open(context.Background(), path)
		if err != nil {
			log.Err(err).Str("path", path).Msg("could-not-open-solution-store")
		} else {
			sc.store = st
			sc.engine = &store.CachedSolver{Solver: sc.solver, Store: st}
		}
	}
	return sc
}

func NewShellController(cfg *config.Config, execPath, gitVersion string) *ShellController {
	prompt := "tilepairs"
	sc := newController(cfg, os.Stderr)
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31m" + prompt + ">\033[0m ",
		HistoryFile:     "/tmp/tilepairs-readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(sc),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	sc.execPath = execPath
	sc.gitVersion = gitVersion
	return sc
}

func (sc *ShellController) showMessage(msg string) {
	writeln(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	// Options are -name value. A -name followed by another option or by
	// nothing is a switch and reads as true.
	for idx := 1; idx < len(fields); idx++ {
		f := fields[idx]
		if !strings.HasPrefix(f, "-") || len(f) == 1 || isNumber(f) {
			args = append(args, f)
			continue
		}
		name := f[1:]
		if idx+1 < len(fields) && (!strings.HasPrefix(fields[idx+1], "-") || isNumber(fields[idx+1])) {
			options[name] = append(options[name], fields[idx+1])
			idx++
			continue
		}
		if _, ok := switches[name]; !ok {
			return nil, errWrongOptionSyntax
		}
		options[name] = append(options[name], "true")
	}
	return &shellcmd{
		cmd:     cmd,
		args:    args,
		options: options,
	}, nil
}

// switches are the options that take no value.
var switches = map[string]struct{}{
	"noab":   {},
	"nott":   {},
	"noid":   {},
	"remote": {},
	"lambda": {},
}

func (sc *ShellController) standardModeSwitch(line string, sig chan os.Signal) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "bye":
		sig <- syscall.SIGINT
		return nil, errors.New("sending quit signal")
	case "help":
		return sc.help(cmd)
	case "new":
		return sc.newGame(cmd)
	case "load":
		return sc.load(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "layout":
		return sc.layout(cmd)
	case "free":
		return sc.free(cmd)
	case "pairs":
		return sc.pairs(cmd)
	case "remove", "rm":
		return sc.remove(cmd)
	case "undo":
		return sc.undo(cmd)
	case "engine":
		return sc.enginePlay(cmd)
	case "hint":
		return sc.hint(cmd)
	case "solve":
		return sc.solve(cmd)
	case "autoplay":
		return sc.autoplay(cmd)
	default:
		log.Debug().Msgf("you said: %v", line)
		return nil, fmt.Errorf("unrecognized command %q; type `help` for a list", cmd.cmd)
	}
}

// Execute runs a single command line, such as one given on the command
// line of the program.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	resp, err := sc.standardModeSwitch(line, sig)
	if err != nil {
		sc.showError(err)
		return
	}
	if resp != nil {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "bye" {
			sig <- syscall.SIGINT
			break
		}
		resp, err := sc.standardModeSwitch(line, sig)
		if err != nil {
			sc.showError(err)
			continue
		}
		if resp != nil {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// Cleanup closes whatever the shell opened.
func (sc *ShellController) Cleanup() {
	if sc.store != nil {
		if err := sc.store.Close(); err != nil {
			log.Err(err).Msg("closing-solution-store")
		}
	}
	if sc.nc != nil {
		sc.nc.Close()
	}
}
