// bag.go — Limbo Bag (C1)
//
// A fixed-capacity batch of retirements sharing one epoch, linked into a
// per-thread list. Bags are prepended at the head and reclaimed from the
// tail (spec invariant 3: non-increasing epoch order head-to-tail).
package limbo

import (
	"debra/types"
)

// Capacity is the default number of (ptr, destructor) pairs a bag holds.
// It is a plain constant rather than a per-Bag field because every bag
// allocated by New shares it — the reclaimer never needs to ask a bag
// how large it is, only how many of its slots are filled.
const Capacity = 64

// Bag is a node in a singly-linked list owned by one thread. Zero value
// is not directly usable — construct with New.
type Bag struct {
	Objects [Capacity]types.Retirement
	Count   int
	Epoch   uint64
	Next    *Bag
}

// New allocates a zero-initialized bag stamped with epoch. Zero
// initialization is required so that unused Objects slots hold a nil
// destructor (a permitted no-op per spec §3).
func New(epoch uint64) *Bag {
	return &Bag{Epoch: epoch}
}

// Full reports whether the bag has no remaining capacity.
//
//go:nosplit
//go:inline
func (b *Bag) Full() bool { return b.Count >= Capacity }

// Append writes r into the next free slot. The caller must have already
// checked Full(); Append does not itself allocate a successor bag —
// that decision belongs to the retire path (package pin), which owns
// the list pointers.
//
//go:nosplit
//go:inline
func (b *Bag) Append(r types.Retirement) {
	b.Objects[b.Count] = r
	b.Count++
}

// Reclaim invokes each entry's destructor (skipping nil destructors per
// spec §3) and then resets the bag to an empty, unstamped state so it
// can be recycled by the free ring (spec §4.11) instead of returned to
// the allocator. Reclaim never runs a destructor twice: after this call
// Count is 0, so a second Reclaim on the same bag is a no-op.
func (b *Bag) Reclaim() (destroyed int) {
	for i := 0; i < b.Count; i++ {
		b.Objects[i].Run()
		b.Objects[i] = types.Retirement{}
		destroyed++
	}
	b.Count = 0
	b.Next = nil
	b.Epoch = 0
	return destroyed
}

// ReclaimSwallowingPanics behaves like Reclaim but recovers a panicking
// destructor so the drain of the remaining entries in the bag — and of
// the rest of a thread's bag list — continues. It is used only by the
// drain paths, manager shutdown and deregistration (spec §4.8, §9(b)):
// normal reclamation propagates a destructor panic to try_reclaim's
// caller instead.
func (b *Bag) ReclaimSwallowingPanics() (destroyed int) {
	for i := 0; i < b.Count; i++ {
		func() {
			defer func() { recover() }()
			b.Objects[i].Run()
		}()
		b.Objects[i] = types.Retirement{}
		destroyed++
	}
	b.Count = 0
	b.Next = nil
	b.Epoch = 0
	return destroyed
}
