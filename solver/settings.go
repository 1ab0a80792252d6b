package solver

import (
	"github.com/domino14/tilepairs/config"
)

// NewFromConfig returns an initialized solver with the search settings
// from cfg. It logs progress every progress-interval nodes.
func NewFromConfig(cfg *config.Config) *Solver {
	s := &Solver{}
	s.Init()
	s.Configure(cfg)
	s.SetObserver(LogObserver{})
	return s
}

// Configure applies the search settings from cfg. The observer and log
// stream are left alone.
func (s *Solver) Configure(cfg *config.Config) {
	s.SetThreads(cfg.GetInt(config.ConfigThreads))
	s.SetMaxPlies(cfg.GetInt(config.ConfigMaxPlies))
	s.SetSplitDepth(cfg.GetInt(config.ConfigSplitDepth))
	s.SetTTSizePower(cfg.GetInt(config.ConfigTTSizePower))
	s.SetTTFractionOfMem(cfg.GetFloat64(config.ConfigTTFractionOfMem))
	s.SetAlphaBeta(cfg.GetBool(config.ConfigAlphaBeta))
	s.SetTranspositionTable(cfg.GetBool(config.ConfigTranspositionTable))
	s.SetIterativeDeepening(cfg.GetBool(config.ConfigIterativeDeepening))
	s.SetProgressInterval(uint64(cfg.GetInt(config.ConfigProgressInterval)))
}
