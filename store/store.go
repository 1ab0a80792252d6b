// Package store caches solved positions in a sqlite database, keyed by
// the board fingerprint, the parity of the turn and the ply bound.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/domino14/tilepairs/board"
	"github.com/domino14/tilepairs/movegen"
	"github.com/domino14/tilepairs/solver"
)

var ErrNotFound = errors.New("solution not found")

const schema = `
CREATE TABLE IF NOT EXISTS solutions (
	fingerprint INTEGER NOT NULL,
	parity INTEGER NOT NULL,
	plies INTEGER NOT NULL,
	layout TEXT NOT NULL,
	gain INTEGER NOT NULL,
	best_a INTEGER,
	best_b INTEGER,
	pv TEXT NOT NULL,
	depth INTEGER NOT NULL,
	nodes INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (fingerprint, parity, plies)
)`

// Solution is a stored solve. Gain excludes any points banked before the
// position was reached.
type Solution struct {
	Layout   string
	Gain     int
	BestPair *movegen.Pair
	PV       []movegen.Pair
	Depth    int
	Nodes    uint64
	Created  time.Time
}

type SolutionStore struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(ctx context.Context, path string) (*SolutionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway, and every connection to
	// ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("opened-solution-store")
	return &SolutionStore{db: db}, nil
}

func (s *SolutionStore) Close() error {
	return s.db.Close()
}

// Save stores a complete result. Incomplete results are not worth caching
// and are skipped.
func (s *SolutionStore) Save(ctx context.Context, b board.Board, turn, plies int, res *solver.Result) error {
	if !res.Complete {
		log.Debug().Int("depth", res.Depth).Msg("not-saving-incomplete-solution")
		return nil
	}
	pv, err := json.Marshal(res.PV)
	if err != nil {
		return err
	}
	var bestA, bestB sql.NullInt64
	if res.BestPair != nil {
		bestA = sql.NullInt64{Int64: int64(res.BestPair.A), Valid: true}
		bestB = sql.NullInt64{Int64: int64(res.BestPair.B), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO solutions
		(fingerprint, parity, plies, layout, gain, best_a, best_b, pv, depth, nodes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(b.Fingerprint()), turn%2, plies, b.ToLayout(), res.Gain,
		bestA, bestB, string(pv), res.Depth, int64(res.Stats.Nodes), time.Now().UTC())
	return err
}

// Load returns the stored solution for b, or ErrNotFound. The layout is
// compared too, so a fingerprint collision reads as a miss.
func (s *SolutionStore) Load(ctx context.Context, b board.Board, turn, plies int) (*Solution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT layout, gain, best_a, best_b, pv, depth, nodes, created_at
		FROM solutions WHERE fingerprint = ? AND parity = ? AND plies = ?`,
		int64(b.Fingerprint()), turn%2, plies)

	var sol Solution
	var bestA, bestB sql.NullInt64
	var pv string
	var nodes int64
	err := row.Scan(&sol.Layout, &sol.Gain, &bestA, &bestB, &pv, &sol.Depth, &nodes, &sol.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	if sol.Layout != b.ToLayout() {
		log.Warn().Uint64("fingerprint", b.Fingerprint()).Msg("fingerprint-collision")
		return nil, ErrNotFound
	}
	if bestA.Valid && bestB.Valid {
		sol.BestPair = &movegen.Pair{A: int(bestA.Int64), B: int(bestB.Int64)}
	}
	if err := json.Unmarshal([]byte(pv), &sol.PV); err != nil {
		return nil, fmt.Errorf("decoding pv: %w", err)
	}
	sol.Nodes = uint64(nodes)
	return &sol, nil
}

// Result turns a stored solution back into a solver result for a position
// reached with accumulated points.
func (sol *Solution) Result(accumulated int) *solver.Result {
	return &solver.Result{
		Score:    accumulated + sol.Gain,
		Gain:     sol.Gain,
		BestPair: sol.BestPair,
		PV:       sol.PV,
		Depth:    sol.Depth,
		Complete: true,
		Stats:    solver.Stats{Nodes: sol.Nodes},
	}
}

// Count returns the number of stored solutions.
func (s *SolutionStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solutions`).Scan(&n)
	return n, err
}

// CachedSolver consults the store before solving and saves what it solves.
type CachedSolver struct {
	Solver *solver.Solver
	Store  *SolutionStore
}

func (c *CachedSolver) Solve(ctx context.Context, b board.Board, accumulated, turn int) (*solver.Result, error) {
	plies := c.Solver.MaxPlies()
	if c.Store != nil {
		sol, err := c.Store.Load(ctx, b, turn, plies)
		if err == nil {
			log.Debug().Int("gain", sol.Gain).Msg("solution-cache-hit")
			return sol.Result(accumulated), nil
		} else if !errors.Is(err, ErrNotFound) {
			log.Err(err).Msg("solution-cache-load")
		}
	}
	res, err := c.Solver.Solve(ctx, b, accumulated, turn)
	if err != nil {
		return nil, err
	}
	if c.Store != nil {
		if err := c.Store.Save(ctx, b, turn, plies, res); err != nil {
			log.Err(err).Msg("solution-cache-save")
		}
	}
	return res, nil
}
