// reclaim.go — Reclaimer (C6)
//
// A reclamation attempt is a short-lived typestate chain: Start ->
// EpochsLoaded -> (ReclaimReady | ReclaimBlocked). Each stage is a
// distinct Go type so TryReclaim can only be called on a ReclaimReady,
// never on a bare Start or a Blocked outcome.
package reclaim

import (
	"sync/atomic"
	"unsafe"

	"debra/limbo"
	"debra/slot"
)

// Start begins a reclamation attempt against table, using globalEpoch as
// the source of truth for E_g.
type Start struct {
	table       *slot.Table
	globalEpoch *uint64
}

// NewStart constructs the initial Start state.
func NewStart(table *slot.Table, globalEpoch *uint64) Start {
	return Start{table: table, globalEpoch: globalEpoch}
}

// LoadEpochs computes the safe epoch: the global epoch, lowered by the
// observed_epoch of every currently pinned slot (spec §4.6, step 1-2).
func (s Start) LoadEpochs() EpochsLoaded {
	safe := atomic.LoadUint64(s.globalEpoch)
	for i := 0; i < s.table.MaxThreads(); i++ {
		c := s.table.Cell(i)
		if atomic.LoadUint32(&c.Pinned) == 0 {
			continue
		}
		if e := atomic.LoadUint64(&c.ObservedEpoch); e < safe {
			safe = e
		}
	}
	return EpochsLoaded{table: s.table, globalEpoch: s.globalEpoch, safe: safe}
}

// EpochsLoaded holds the computed safe epoch, awaiting the safety check.
type EpochsLoaded struct {
	table       *slot.Table
	globalEpoch *uint64
	safe        uint64
}

// SafeEpoch returns the computed safe epoch, mostly useful for tests and
// diagnostics.
func (e EpochsLoaded) SafeEpoch() uint64 { return e.safe }

// Outcome is the tagged-union result of CheckSafe: ReclaimReady or
// ReclaimBlocked.
type Outcome interface {
	reclaimOutcome()
}

func (ReclaimReady) reclaimOutcome()   {}
func (ReclaimBlocked) reclaimOutcome() {}

// CheckSafe applies spec §4.6's safety threshold: safe <= 1 means nothing
// can be reclaimed yet (the initial E_g=1 with no advances always blocks).
func (e EpochsLoaded) CheckSafe() Outcome {
	if e.safe <= 1 {
		return ReclaimBlocked{table: e.table, globalEpoch: e.globalEpoch}
	}
	return ReclaimReady{table: e.table, threshold: e.safe - 1}
}

// ReclaimBlocked means no bag can safely be freed on this pass. The caller
// may retry later or call AdvanceEpoch to shift the reclamation window
// without pinning anyone (spec §4.6 "Progress").
type ReclaimBlocked struct {
	table       *slot.Table
	globalEpoch *uint64
}

// AdvanceEpoch performs the plain fetch-add(1) spec §4.6 describes as safe
// even with nobody pinned, and returns the new global epoch.
func (b ReclaimBlocked) AdvanceEpoch() uint64 {
	return atomic.AddUint64(b.globalEpoch, 1)
}

// ReclaimReady carries the threshold epoch: bags whose epoch is strictly
// below threshold are safe to destroy.
type ReclaimReady struct {
	table     *slot.Table
	threshold uint64
}

// Threshold returns the epoch cutoff this ReclaimReady was computed for.
func (r ReclaimReady) Threshold() uint64 { return r.threshold }

// TryReclaim walks every registered slot's bag list and destroys the
// reclaimable suffix — the run of bags nearest the tail whose epoch is
// below threshold. Returns the total count of destroyed retirements.
//
// Bag lists are singly-linked from head (newest) to tail (oldest); spec
// §4.6 describes the walk as proceeding "tail toward head" because that is
// the order in which the safety cutoff becomes true, but the only pointer
// available is head-to-tail. Since invariant 3 guarantees a thread's bag
// epochs are non-increasing from head to tail, a single head-to-tail walk
// that skips bags failing the epoch test and then treats everything from
// the first passing bag down to the tail as reclaimable removes exactly
// the same set of bags a literal tail-first walk would, in one O(n) pass
// instead of requiring back-links.
func (r ReclaimReady) TryReclaim() int {
	total := 0
	for i := 0; i < r.table.MaxThreads(); i++ {
		total += reclaimSuffix(r.table.Cell(i), r.threshold, false)
	}
	return total
}

// reclaimSuffix detaches and destroys the trailing run of c's bag list
// whose epoch is below threshold, recycling each freed bag onto the
// slot's free ring (spec §4.11) instead of releasing it to the allocator.
func reclaimSuffix(c *slot.Cell, threshold uint64, swallowPanics bool) int {
	var prev *limbo.Bag
	cur := c.HeadBag
	for cur != nil && cur.Epoch >= threshold {
		prev = cur
		cur = cur.Next
	}
	if cur == nil {
		return 0 // nothing in this slot's list is old enough yet
	}

	if prev == nil {
		c.HeadBag = nil
		c.CurrentBag = nil
	} else {
		prev.Next = nil
	}
	c.TailBag = prev

	destroyed := 0
	for b := cur; b != nil; {
		next := b.Next
		if swallowPanics {
			destroyed += b.ReclaimSwallowingPanics()
		} else {
			destroyed += b.Reclaim()
		}
		if c.FreeRing == nil || !c.FreeRing.Push(unsafe.Pointer(b)) {
			// Free ring absent or full: b is simply garbage collected.
		}
		b = next
	}
	return destroyed
}

// DrainAll unconditionally reclaims every bag on every registered slot,
// swallowing destructor panics per bag so one broken destructor does not
// stop the drain of the rest. Used only by manager.Shutdown (spec §4.8).
func DrainAll(table *slot.Table) int {
	total := 0
	for i := 0; i < table.MaxThreads(); i++ {
		total += DrainSlot(table, i)
	}
	return total
}

// DrainSlot unconditionally reclaims every bag belonging to slot idx,
// swallowing destructor panics per bag. Used by manager.Deregister to
// empty a single slot's bag list before releasing it back to the table
// (spec §3's Draining state, resolved in SPEC_FULL.md §9(a) as reachable
// mid-lifetime, not just at process shutdown).
func DrainSlot(table *slot.Table, idx int) int {
	c := table.Cell(idx)
	chain := c.HeadBag
	c.HeadBag, c.CurrentBag, c.TailBag = nil, nil, nil
	total := 0
	for b := chain; b != nil; {
		next := b.Next
		total += b.ReclaimSwallowingPanics()
		b = next
	}
	return total
}
