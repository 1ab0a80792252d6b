package bot

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/tilepairs/board"
)

type Client struct {
	// NATS connection
	nc      *nats.Conn
	channel string
}

func NewClient(nc *nats.Conn, channel string) *Client {
	return &Client{nc: nc, channel: channel}
}

func newSolveRequest(b board.Board, accumulated, turn, plies int) SolveRequest {
	return SolveRequest{
		Layout:      b.ToLayout(),
		Accumulated: accumulated,
		Turn:        turn,
		Plies:       plies,
	}
}

func MakeRequest(b board.Board, accumulated, turn, plies int) ([]byte, error) {
	return json.Marshal(newSolveRequest(b, accumulated, turn, plies))
}

// RequestSolve sends a position to the bot and waits for its answer.
func (c *Client) RequestSolve(ctx context.Context, b board.Board, accumulated, turn, plies int) (*SolveResponse, error) {
	data, err := MakeRequest(b, accumulated, turn, plies)
	if err != nil {
		return nil, err
	}
	res, err := c.nc.RequestWithContext(ctx, c.channel, data)
	if err != nil {
		if c.nc.LastError() != nil {
			log.Error().Msgf("%v for request", c.nc.LastError())
		}
		log.Error().Msgf("%v for request", err)
		return nil, err
	}
	log.Debug().Msgf("res: %v", string(res.Data))
	return decodeResponse(res.Data)
}

func decodeResponse(data []byte) (*SolveResponse, error) {
	resp := &SolveResponse{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, errors.New("bot returned: " + resp.Error)
	}
	return resp, nil
}
