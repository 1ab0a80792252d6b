package shell

import (
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"
)

// ShellCompleter completes command names, options, help topics and the
// free positions of the live board.
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

var solveOptions = []string{
	"-plies", "-threads", "-timeout", "-noab", "-nott", "-noid", "-log", "-remote", "-lambda",
}

var commandOptions = map[string][]string{
	"solve":    solveOptions,
	"engine":   solveOptions,
	"hint":     solveOptions,
	"autoplay": {"-games", "-plies", "-threads", "-opponent", "-seed", "-log"},
}

var commandNames = []string{
	"help", "new", "load", "show", "layout", "free", "pairs", "remove", "rm",
	"undo", "engine", "hint", "solve", "autoplay", "exit", "bye",
}

var helpTopics = []string{"solve", "autoplay", "remove"}

var opponents = []string{"random", "greedy", "solver"}

// candidates lists what may follow the finished fields of a line.
func (c *ShellCompleter) candidates(done []string) []string {
	if len(done) == 0 {
		return commandNames
	}
	if done[len(done)-1] == "-opponent" {
		return opponents
	}
	switch done[0] {
	case "remove", "rm":
		return lo.Map(c.sc.freePositions(), func(p int, _ int) string { return strconv.Itoa(p) })
	case "help":
		return helpTopics
	}
	return commandOptions[done[0]]
}

// Do implements readline.AutoCompleter.
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields, err := shellquote.Split(text)
	if err != nil {
		// an open quote; complete on plain words.
		fields = strings.Fields(text)
	}
	var prefix string
	if len(fields) > 0 && !strings.HasSuffix(text, " ") {
		prefix = fields[len(fields)-1]
		fields = fields[:len(fields)-1]
	}
	var matches [][]rune
	for _, cand := range c.candidates(fields) {
		if rest, ok := strings.CutPrefix(cand, prefix); ok {
			matches = append(matches, []rune(rest))
		}
	}
	return matches, len(prefix)
}
