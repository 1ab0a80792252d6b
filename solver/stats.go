package solver

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Stats describes the work a solve did.
type Stats struct {
	Nodes        uint64
	Splits       uint64
	TTLookups    uint64
	TTHits       uint64
	TTCreated    uint64
	TTCollisions uint64
	Elapsed      time.Duration
}

func (s Stats) NodesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Nodes) / s.Elapsed.Seconds()
}

// An Observer receives periodic progress reports during a solve. It may be
// called from several goroutines at once.
type Observer interface {
	Progress(Stats)
}

type ObserverFunc func(Stats)

func (f ObserverFunc) Progress(s Stats) {
	f(s)
}

// LogObserver reports progress through the global logger.
type LogObserver struct{}

func (LogObserver) Progress(s Stats) {
	log.Info().
		Uint64("nodes", s.Nodes).
		Uint64("splits", s.Splits).
		Uint64("ttable-hits", s.TTHits).
		Float64("nps", s.NodesPerSecond()).
		Dur("elapsed", s.Elapsed).
		Msg("solver-progress")
}
