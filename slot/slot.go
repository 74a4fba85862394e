// slot.go — Thread Slot Table (C2)
//
// Fixed array of per-thread state cells, claimed and released via a CAS
// loop against a bitmask of occupied slots. Each cell's hot fields sit on
// their own cache line so one thread's pin/unpin traffic never bounces a
// neighbor's line — the same false-sharing discipline the teacher's ring
// buffer uses for its head/tail split.
//
// Ownership rules (see spec §5 "Shared-resource policy"):
//   - ObservedEpoch, Pinned: written only by the owning thread, read by
//     anyone (the reclaimer, the neutralizer).
//   - Neutralized: written by the owning thread (acknowledge/pin) or by
//     the neutralizer acting on this slot's behalf (never any other
//     slot's).
//   - ThreadID: written once on claim, once on release.
//   - CurrentBag/HeadBag/TailBag: single-writer, owned by the thread
//     except while the slot is Draining, when the releasing/draining
//     caller holds exclusive logical ownership because the thread is
//     gone.
package slot

import (
	"sync/atomic"

	"debra/limbo"
	"debra/ring"
	"debra/types"
)

// Cell is one registered thread's state. The struct is padded to a full
// cache line so adjacent cells in the table never share a line.
//
//go:align 64
type Cell struct {
	ObservedEpoch uint64 // 0 == never pinned
	Pinned        uint32 // atomic bool
	Neutralized   uint32 // atomic bool
	ThreadID      int32  // types.ThreadID, atomic
	OSThreadID    int32  // unix.Gettid() of a LockOSThread'd registrant, or 0

	// Single-writer bag list (spec §3): owned exclusively by this slot's
	// thread except during Draining, when the releasing caller holds
	// exclusive logical ownership because the thread is gone.
	CurrentBag, HeadBag, TailBag *limbo.Bag

	// FreeRing recycles bag storage between the reclaimer (producer) and
	// this slot's owning thread (sole consumer); see spec §4.11.
	FreeRing *ring.Ring

	_ [8]byte // pad the fixed-width fields out toward a cache line
}

// freeRingSize is the per-slot recycle pool depth. It is independent of
// limbo.Capacity: a handful of recycled bags is enough to absorb the
// gap between a reclaim pass freeing a bag and the same thread's next
// retire call needing one.
const freeRingSize = 16

// Table is the fixed-capacity, contiguous array of thread slots.
type Table struct {
	// activeMask is an array of machine words, one bit per slot; bit i
	// set iff slot i is claimed. A single word suffices for the default
	// MaxThreads=64; larger tables spill into more words.
	activeMask []uint64
	cells      []Cell
	maxThreads int
}

// NewTable allocates a slot table with room for maxThreads concurrent
// registrations. Every cell starts Free (ThreadID = InvalidThreadID).
func NewTable(maxThreads int) *Table {
	if maxThreads <= 0 {
		panic("slot: maxThreads must be > 0")
	}
	words := (maxThreads + 63) / 64
	t := &Table{
		activeMask: make([]uint64, words),
		cells:      make([]Cell, maxThreads),
		maxThreads: maxThreads,
	}
	for i := range t.cells {
		t.cells[i].ThreadID = int32(types.InvalidThreadID)
	}
	return t
}

// MaxThreads returns the table's fixed capacity.
func (t *Table) MaxThreads() int { return t.maxThreads }

// Cell returns a pointer to the cell at idx. Callers are expected to have
// already claimed idx (via Claim) or to be a reclaimer/neutralizer with
// read-only intentions.
func (t *Table) Cell(idx int) *Cell { return &t.cells[idx] }

// Claim scans for the first free slot and atomically marks it occupied,
// publishing tid with a release store. Returns (-1, false) if every slot
// is occupied — the caller surfaces this as RegistrationFull.
//
// Algorithm follows spec §4.2: for each candidate slot, retry the CAS
// against freshly reloaded expectations as long as the bit is observed
// clear; if a racing thread claims the bit first, advance to the next
// slot instead of retrying forever on one bit.
func (t *Table) Claim(tid types.ThreadID) (int, bool) {
	for i := 0; i < t.maxThreads; i++ {
		word, bit := i/64, uint64(1)<<uint(i%64)
		for {
			old := atomic.LoadUint64(&t.activeMask[word])
			if old&bit != 0 {
				break // another thread holds this slot; try the next one
			}
			if atomic.CompareAndSwapUint64(&t.activeMask[word], old, old|bit) {
				c := &t.cells[i]
				c.ObservedEpoch = 0
				atomic.StoreUint32(&c.Pinned, 0)
				atomic.StoreUint32(&c.Neutralized, 0)
				atomic.StoreInt32(&c.OSThreadID, 0)
				if c.FreeRing == nil {
					c.FreeRing = ring.New(freeRingSize)
				}
				atomic.StoreInt32(&c.ThreadID, int32(tid)) // release publish
				return i, true
			}
			// CAS lost the race on this exact bit; reload and retry.
		}
	}
	return -1, false
}

// Release clears idx's occupied bit and resets its thread id to the
// invalid sentinel. The caller must have already drained the slot's bag
// list (spec §3's Draining state) before calling Release.
func (t *Table) Release(idx int) {
	word, bit := idx/64, uint64(1)<<uint(idx%64)
	c := &t.cells[idx]
	atomic.StoreInt32(&c.ThreadID, int32(types.InvalidThreadID))
	atomic.StoreUint32(&c.Pinned, 0)
	atomic.StoreUint32(&c.Neutralized, 0)
	atomic.StoreInt32(&c.OSThreadID, 0)
	for {
		old := atomic.LoadUint64(&t.activeMask[word])
		if atomic.CompareAndSwapUint64(&t.activeMask[word], old, old&^bit) {
			return
		}
	}
}

// ActiveCount returns the population count of the active mask across all
// words — the number of currently claimed slots.
func (t *Table) ActiveCount() int {
	n := 0
	for _, w := range t.activeMask {
		n += popcount64(atomic.LoadUint64(&w))
	}
	return n
}

// SetOSThreadID publishes the calling thread's OS-level id for idx's slot,
// making it reachable by a directed signal (spec's escape hatch discussed
// in SPEC_FULL.md §4.10). Callers that want this guarantee must call
// runtime.LockOSThread before registering and pass unix.Gettid() here;
// slots that never call this keep the zero sentinel and are simply
// skipped by the neutralizer's Tgkill step.
func (t *Table) SetOSThreadID(idx int, tid int32) {
	atomic.StoreInt32(&t.cells[idx].OSThreadID, tid)
}

// IsActive reports whether idx's bit is currently set.
func (t *Table) IsActive(idx int) bool {
	word, bit := idx/64, uint64(1)<<uint(idx%64)
	return atomic.LoadUint64(&t.activeMask[word])&bit != 0
}

//go:nosplit
//go:inline
func popcount64(x uint64) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}
