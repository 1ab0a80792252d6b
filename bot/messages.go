package bot

import (
	"github.com/domino14/tilepairs/movegen"
	"github.com/domino14/tilepairs/solver"
)

// SolveRequest asks the bot for the best line from a position.
type SolveRequest struct {
	Layout      string `json:"layout"`
	Accumulated int    `json:"accumulated"`
	Turn        int    `json:"turn"`
	// Plies overrides the bot's configured ply bound when positive.
	Plies     int `json:"plies"`
	TimeoutMS int `json:"timeout_ms"`
}

type SolveResponse struct {
	Score    int      `json:"score"`
	Gain     int      `json:"gain"`
	Best     []int    `json:"best,omitempty"`
	PV       [][2]int `json:"pv"`
	Complete bool     `json:"complete"`
	Depth    int      `json:"depth"`
	Nodes    uint64   `json:"nodes"`
	Error    string   `json:"error,omitempty"`
}

// LambdaEvent is the payload of a serverless invocation. The response is
// published on ReplyChannel when set.
type LambdaEvent struct {
	SolveRequest
	RequestID    string `json:"request_id"`
	ReplyChannel string `json:"reply_channel"`
}

func responseFromResult(res *solver.Result) *SolveResponse {
	resp := &SolveResponse{
		Score:    res.Score,
		Gain:     res.Gain,
		PV:       make([][2]int, 0, len(res.PV)),
		Complete: res.Complete,
		Depth:    res.Depth,
		Nodes:    res.Stats.Nodes,
	}
	if res.BestPair != nil {
		resp.Best = []int{res.BestPair.A, res.BestPair.B}
	}
	for _, p := range res.PV {
		resp.PV = append(resp.PV, [2]int{p.A, p.B})
	}
	return resp
}

// PVPair returns the i-th pair of the principal variation.
func (r *SolveResponse) PVPair(i int) movegen.Pair {
	return movegen.NewPair(r.PV[i][0], r.PV[i][1])
}

// BestPair returns the suggested pair, if any.
func (r *SolveResponse) BestPair() (movegen.Pair, bool) {
	if len(r.Best) != 2 {
		return movegen.Pair{}, false
	}
	return movegen.NewPair(r.Best[0], r.Best[1]), true
}

// Result converts the response back into a solver result.
func (r *SolveResponse) Result() *solver.Result {
	res := &solver.Result{
		Score:    r.Score,
		Gain:     r.Gain,
		PV:       make([]movegen.Pair, 0, len(r.PV)),
		Depth:    r.Depth,
		Complete: r.Complete,
		Stats:    solver.Stats{Nodes: r.Nodes},
	}
	if p, ok := r.BestPair(); ok {
		res.BestPair = &p
	}
	for i := range r.PV {
		res.PV = append(res.PV, r.PVPair(i))
	}
	return res
}
