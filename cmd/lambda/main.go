package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/tilepairs/bot"
	"github.com/domino14/tilepairs/config"
)

var cfg *config.Config
var nc *nats.Conn
var tpbot *bot.Bot

const HardTimeLimit = 180 * time.Second // max time per solve

// publisher is the part of a NATS connection used to hand back results.
type publisher interface {
	Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error)
}

func HandleRequest(ctx context.Context, evt bot.LambdaEvent) (string, error) {
	// Return something but we have to block till we're done.
	logger := log.With().
		Str("requestID", evt.RequestID).
		Logger()

	timeout := HardTimeLimit
	if evt.TimeoutMS > 0 {
		timeout = min(timeout, time.Duration(evt.TimeoutMS)*time.Millisecond)
	}
	evt.TimeoutMS = int(timeout / time.Millisecond)

	resp := tpbot.Handle(ctx, evt.SolveRequest)
	if resp.Error != "" {
		return "", fmt.Errorf("solve failed: %s", resp.Error)
	}
	logger.Info().Int("score", resp.Score).Int("depth", resp.Depth).
		Bool("complete", resp.Complete).Msg("solved")

	data, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	if evt.ReplyChannel != "" && nc != nil {
		logger.Info().Msg("solve-success-sending-via-nats")
		if err := sendReply(ctx, nc, evt.ReplyChannel, data); err != nil {
			logger.Err(err).Msg("bot-reply-failed")
		}
	}
	logger.Info().Msg("exiting-fn")
	return string(data), nil
}

func sendReply(ctx context.Context, p publisher, channel string, data []byte) error {
	return retry.Do(
		func() error {
			// We're just waiting for an acknowledgement. The actual
			// data doesn't matter.
			_, err := p.Request(channel, data, 3*time.Second)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(4),
		retry.Delay(200*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			log.Err(err).Uint("n", n).Msg("did-not-receive-ack-try-again")
		}),
	)
}

func main() {
	cfg = &config.Config{}
	if _, err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}
	log.Info().Msgf("Loaded config: %v", cfg.SanitizedSettings())
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	tpbot = bot.NewBot(cfg, nil)

	var err error
	nc, err = bot.Connect(context.Background(), cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().AnErr("natsConnectErr", err).Msg(":(")
	}

	lambda.Start(HandleRequest)
}
