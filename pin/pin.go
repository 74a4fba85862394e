// pin.go — Epoch Guard (C4) and Retire Path (C5)
//
// Each pin-context state is its own Go type; a transition method takes the
// previous state by value and returns the next one, so a PinnedGuard has no
// Pin method and an UnpinnedGuard has no Retire method — calling the wrong
// operation on the wrong state is a compile error, not a runtime check
// (spec §9(a)). Unpin is the one transition with two possible destinations,
// so it returns the small UnpinOutcome tagged union instead of forcing a
// single nominal type on a genuinely branching result (spec §9(b), hybrid
// option).
package pin

import (
	"sync/atomic"
	"unsafe"

	"debra/limbo"
	"debra/slot"
	"debra/types"
)

// UnpinnedGuard is the initial and resting state of a registered thread's
// pin context: not inside a critical section.
type UnpinnedGuard struct {
	table *slot.Table
	idx   int
}

// NewUnpinnedGuard wraps a freshly claimed slot as an Unpinned handle. Only
// package manager should call this, immediately after slot.Table.Claim.
func NewUnpinnedGuard(table *slot.Table, idx int) UnpinnedGuard {
	return UnpinnedGuard{table: table, idx: idx}
}

// SlotIndex reports the underlying slot table index this handle owns.
func (u UnpinnedGuard) SlotIndex() int { return u.idx }

// Pin transitions Unpinned to Pinned, publishing the thread's observed
// epoch. Follows spec §4.4's exact ordering: the acquire load of the global
// epoch happens first, neutralized is cleared before observed_epoch is
// written, and pinned is stored last so any observer that sees pinned=true
// also sees the matching observed_epoch.
//
//go:nosplit
func (u UnpinnedGuard) Pin(globalEpoch *uint64) PinnedGuard {
	c := u.table.Cell(u.idx)
	e := atomic.LoadUint64(globalEpoch)
	atomic.StoreUint32(&c.Neutralized, 0)
	atomic.StoreUint64(&c.ObservedEpoch, e)
	atomic.StoreUint32(&c.Pinned, 1) // must be last write
	return PinnedGuard{table: u.table, idx: u.idx}
}

// PinnedGuard is held for the duration of a critical section. Between Pin
// and Unpin the owning thread may retire objects (RetireReady/Retire) and
// perform atomic loads/CAS against shared containers; it must not block,
// sleep, do I/O, or loop unboundedly (spec §4.4's critical-section rules —
// doing so does not break safety but invites neutralization).
type PinnedGuard struct {
	table *slot.Table
	idx   int
}

// SlotIndex reports the underlying slot table index this handle owns.
func (p PinnedGuard) SlotIndex() int { return p.idx }

// UnpinOutcome is the tagged-union result of Unpin: exactly one of
// UnpinnedGuard (the common case) or NeutralizedGuard (the thread was
// force-unpinned by the signal handler while it was pinned).
type UnpinOutcome interface {
	unpinOutcome()
}

func (UnpinnedGuard) unpinOutcome()    {}
func (NeutralizedGuard) unpinOutcome() {}

// Unpin transitions Pinned to Unpinned or Neutralized. Follows spec §4.4:
// pinned is cleared first (release) so a concurrent signal handler racing
// to set neutralized can never be missed by the subsequent load.
//
//go:nosplit
func (p PinnedGuard) Unpin() UnpinOutcome {
	c := p.table.Cell(p.idx)
	atomic.StoreUint32(&c.Pinned, 0)
	if atomic.LoadUint32(&c.Neutralized) != 0 {
		return NeutralizedGuard{table: p.table, idx: p.idx}
	}
	return UnpinnedGuard{table: p.table, idx: p.idx}
}

// RetireReady authorizes calls to Retire; it is obtained from a PinnedGuard
// and is consumed by Retire, which produces a Retired token from which
// another RetireReady can be recovered — allowing multiple retirements per
// critical section (spec §4.5).
func (p PinnedGuard) RetireReady() RetireReady {
	return RetireReady{table: p.table, idx: p.idx}
}

// RetireReady is the C5 capability token: possession proves the caller is
// currently pinned on this slot.
type RetireReady struct {
	table *slot.Table
	idx   int
}

// SlotIndex reports the underlying slot table index this handle owns.
func (r RetireReady) SlotIndex() int { return r.idx }

// Retire appends (ptr, destroy) to the calling thread's current limbo bag.
// Per spec §4.5: if current_bag is nil or full, a new bag is linked in
// ahead of it before the entry is written. Bag storage is recycled from
// the slot's free ring (spec §4.11) before falling back to a fresh heap
// allocation via limbo.New. The bag list is single-writer, so no atomics
// are used here.
func (r RetireReady) Retire(ptr unsafe.Pointer, destroy types.Destructor) Retired {
	c := r.table.Cell(r.idx)
	if c.CurrentBag == nil || c.CurrentBag.Full() {
		next := c.CurrentBag
		nb := recycleBag(c, r.table.Cell(r.idx).ObservedEpoch)
		nb.Next = next
		c.CurrentBag = nb
		c.HeadBag = nb // head always tracks the newest bag
		if c.TailBag == nil {
			c.TailBag = nb
		}
	}
	c.CurrentBag.Append(types.Retirement{Ptr: ptr, Destroy: destroy})
	return Retired{table: r.table, idx: r.idx}
}

// recycleBag pops a freed bag from the slot's free ring and re-stamps it
// with epoch, falling back to a fresh allocation when the ring is empty or
// not yet initialized.
func recycleBag(c *slot.Cell, epoch uint64) *limbo.Bag {
	if c.FreeRing != nil {
		if p := c.FreeRing.Pop(); p != nil {
			nb := (*limbo.Bag)(p)
			nb.Epoch = epoch
			return nb
		}
	}
	return limbo.New(epoch)
}

// Retired is produced by Retire. RetireReadyOf recovers a fresh RetireReady
// from it, letting the caller retire again within the same critical
// section without returning to Pinned first.
type Retired struct {
	table *slot.Table
	idx   int
}

// SlotIndex reports the underlying slot table index this handle owns.
func (r Retired) SlotIndex() int { return r.idx }

// RetireReadyOf recovers the RetireReady capability from a Retired token.
func (r Retired) RetireReadyOf() RetireReady {
	return RetireReady{table: r.table, idx: r.idx}
}

// NeutralizedGuard is reached when Unpin observes that the signal handler
// force-unpinned this slot during the critical section. The only legal
// next step is Acknowledge; there is no Pin method on this type.
type NeutralizedGuard struct {
	table *slot.Table
	idx   int
}

// SlotIndex reports the underlying slot table index this handle owns.
func (n NeutralizedGuard) SlotIndex() int { return n.idx }

// Acknowledge clears neutralized and returns a fresh UnpinnedGuard (spec
// §4.4's Neutralized → Unpinned transition).
func (n NeutralizedGuard) Acknowledge() UnpinnedGuard {
	c := n.table.Cell(n.idx)
	atomic.StoreUint32(&c.Neutralized, 0)
	return UnpinnedGuard{table: n.table, idx: n.idx}
}
