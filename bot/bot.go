// Package bot serves solves over NATS request/reply.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/config"
	"github.com/domino14/tilepairs/solver"
	"github.com/domino14/tilepairs/store"
)

type Bot struct {
	config *config.Config

	// a solver is not safe for concurrent solves.
	sync.Mutex
	solver   *solver.Solver
	cached   *store.CachedSolver
	maxPlies int
}

// NewBot makes a bot that solves with the settings in cfg. st may be nil.
func NewBot(cfg *config.Config, st *store.SolutionStore) *Bot {
	s := solver.NewFromConfig(cfg)
	return &Bot{
		config:   cfg,
		solver:   s,
		cached:   &store.CachedSolver{Solver: s, Store: st},
		maxPlies: s.MaxPlies(),
	}
}

func errorResponse(message string, err error) *SolveResponse {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return &SolveResponse{Error: msg}
}

// Handle solves one request.
func (bot *Bot) Handle(ctx context.Context, req SolveRequest) *SolveResponse {
	b, err := board.FromLayout(req.Layout)
	if err != nil {
		return errorResponse("could not parse layout", err)
	}
	if req.Turn < 0 || req.Accumulated < 0 {
		return errorResponse("turn and accumulated must not be negative", nil)
	}
	timeout := bot.config.GetDuration(config.ConfigSolveTimeout)
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	bot.Lock()
	defer bot.Unlock()
	// The solve time limit starts once the solver is ours.
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	plies := bot.maxPlies
	if req.Plies > 0 {
		plies = req.Plies
	}
	bot.solver.SetMaxPlies(plies)
	res, err := bot.cached.Solve(ctx, b, req.Accumulated, req.Turn)
	if err != nil {
		return errorResponse("solve failed", err)
	}
	log.Info().Int("score", res.Score).Int("depth", res.Depth).
		Bool("complete", res.Complete).Msg("bot-solved")
	return responseFromResult(res)
}

// HandleBytes decodes a JSON request, solves it and encodes the response.
func (bot *Bot) HandleBytes(ctx context.Context, data []byte) []byte {
	var req SolveRequest
	var resp *SolveResponse
	if err := json.Unmarshal(data, &req); err != nil {
		resp = errorResponse("could not parse request", err)
	} else {
		resp = bot.Handle(ctx, req)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		// Should never happen, ideally, but we need to do something sensible here.
		return []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return out
}

// Connect dials the NATS server, retrying a few times so the bot can start
// before the server does.
func Connect(ctx context.Context, url string) (*nats.Conn, error) {
	var nc *nats.Conn
	err := retry.Do(
		func() error {
			var err error
			nc, err = nats.Connect(url)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			log.Err(err).Uint("n", n).Str("url", url).Msg("nats-connect-try-again")
		}),
	)
	return nc, err
}

// Main answers requests on channel until ctx ends.
func Main(ctx context.Context, nc *nats.Conn, channel string, bot *Bot) error {
	sub, err := nc.Subscribe(channel, func(m *nats.Msg) {
		log.Info().Msgf("RECV: %d bytes", len(m.Data))
		if err := m.Respond(bot.HandleBytes(ctx, m.Data)); err != nil {
			log.Err(err).Msg("bot-respond")
		}
	})
	if err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Msgf("Listening on [%s]", channel)

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		log.Err(err).Msg("unsubscribe")
	}
	return nil
}
