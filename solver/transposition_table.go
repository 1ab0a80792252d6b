package solver

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/tilepairs/movegen"
)

const (
	TTExact = 0x01
	TTLower = 0x02
	TTUpper = 0x03
)

const entrySize = 16

const (
	flagMask      = 0x03
	exhaustedFlag = 0x04
	noPair        = 0xFF
)

const (
	DefaultTTPower = 20
	// minTTPower keeps tiny tables usable for tests.
	minTTPower = 10
	maxTTPower = 32
	numStripes = 64
)

// 16 bytes (entrySize)
type TableEntry struct {
	fullHash uint64
	score    int16
	depth    uint8
	// the bottom 2 bits are the bound flag; the exhausted bit says the
	// subtree ran out of pairs before reaching the ply limit anywhere, so
	// the score holds for any deeper limit too.
	flags uint8
	pairA uint8
	pairB uint8
}

func newEntry(score, depth int, flag uint8, exhausted bool, best movegen.Pair, hasBest bool) TableEntry {
	e := TableEntry{
		score: int16(score),
		depth: uint8(depth),
		flags: flag,
		pairA: noPair,
		pairB: noPair,
	}
	if exhausted {
		e.flags |= exhaustedFlag
	}
	if hasBest {
		e.pairA = uint8(best.A)
		e.pairB = uint8(best.B)
	}
	return e
}

func (t TableEntry) flag() uint8 {
	return t.flags & flagMask
}

func (t TableEntry) exhausted() bool {
	return t.flags&exhaustedFlag != 0
}

func (t TableEntry) valid() bool {
	// a table flag is 1, 2, or 3.
	return t.flag() != 0
}

// usable returns true if this entry's score can stand in for a search of
// the given remaining depth.
func (t TableEntry) usable(depth int) bool {
	if int(t.depth) == depth {
		return true
	}
	return t.exhausted() && int(t.depth) <= depth
}

func (t TableEntry) move() (movegen.Pair, bool) {
	if t.pairA == noPair {
		return movegen.Pair{}, false
	}
	return movegen.Pair{A: int(t.pairA), B: int(t.pairB)}, true
}

// TranspositionTable is shared by all search goroutines. Buckets are
// guarded by a fixed number of striped locks.
type TranspositionTable struct {
	table        []TableEntry
	stripes      [numStripes]sync.RWMutex
	sizePowerOf2 int
	sizeMask     uint64

	created atomic.Uint64
	lookups atomic.Uint64
	hits    atomic.Uint64
	// "type 2" collisions. A type 2 collision happens when two positions share
	// the same bucket. A type 1 collision happens when two positions share the
	// same overall hash. We don't have a super easy way to detect the latter,
	// but it should be much less common.
	t2collisions atomic.Uint64
}

func (t *TranspositionTable) stripe(idx uint64) *sync.RWMutex {
	return &t.stripes[idx%numStripes]
}

func (t *TranspositionTable) lookup(zval uint64) (TableEntry, bool) {
	t.lookups.Add(1)
	idx := zval & t.sizeMask
	mu := t.stripe(idx)
	mu.RLock()
	entry := t.table[idx]
	mu.RUnlock()
	if !entry.valid() {
		return TableEntry{}, false
	}
	if entry.fullHash != zval {
		// There is another unrelated node at this position.
		t.t2collisions.Add(1)
		return TableEntry{}, false
	}
	t.hits.Add(1)
	return entry, true
}

func (t *TranspositionTable) store(zval uint64, tentry TableEntry) {
	idx := zval & t.sizeMask
	tentry.fullHash = zval
	mu := t.stripe(idx)
	mu.Lock()
	// just overwrite whatever is there for now.
	t.table[idx] = tentry
	mu.Unlock()
	t.created.Add(1)
}

// Reset sizes the table to the biggest power of two that fits in the given
// fraction of system memory, and clears it.
func (t *TranspositionTable) Reset(fractionOfMemory float64) {
	totalMem := memory.TotalMemory()
	desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entrySize))
	power := minTTPower
	if desiredNElems >= 1 {
		// find biggest power of 2 lower than desired.
		power = int(math.Log2(desiredNElems))
	}
	log.Debug().Float64("desired-num-elems", desiredNElems).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("transposition-table-memory")
	t.ResetToPower(power)
}

// ResetToPower sizes the table to 2^power entries and clears it.
func (t *TranspositionTable) ResetToPower(power int) {
	power = max(minTTPower, min(power, maxTTPower))
	for i := range t.stripes {
		t.stripes[i].Lock()
	}
	defer func() {
		for i := range t.stripes {
			t.stripes[i].Unlock()
		}
	}()
	numElems := 1 << power
	reset := false
	if t.table != nil && len(t.table) == numElems {
		reset = true
		clear(t.table)
	} else {
		t.table = make([]TableEntry, numElems)
	}
	t.sizePowerOf2 = power
	t.sizeMask = uint64(numElems - 1)

	log.Debug().Int("num-elems", numElems).
		Int("estimated-total-memory-bytes", numElems*entrySize).
		Bool("reset", reset).
		Msg("transposition-table-size")

	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.t2collisions.Store(0)
}

// Clear wipes all entries, keeping the current size.
func (t *TranspositionTable) Clear() {
	if t.table == nil {
		t.ResetToPower(DefaultTTPower)
		return
	}
	t.ResetToPower(t.sizePowerOf2)
}

func (t *TranspositionTable) Size() int {
	return len(t.table)
}
