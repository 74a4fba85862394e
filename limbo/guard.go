// guard.go — Double-retire diagnostic ring (spec §4.13, supplements C1)
//
// Adapted from the teacher's Deduper: a small, L1-resident fingerprint
// ring that flags a pointer retired twice while its first entry is still
// within the window. This is strictly a debug aid — the core "never
// logs" per spec §7, so a hit increments a counter rather than printing
// or panicking, and attaching a guard changes no reclamation behavior.
//
// ⚠️ Single-writer only: a RetireGuard must be driven from one thread's
// retire path at a time, exactly like the bag list it watches over.
package limbo

import (
	"unsafe"

	"debra/utils"
)

// guardSlot is one fingerprint entry: 32 bytes, two per cache line.
type guardSlot struct {
	ptr   uintptr
	epoch uint64
	seen  uint64 // monotonic retire sequence number this slot was last set at
	_     uint64
}

// RetireGuard is a fixed-size, power-of-two-sized ring of recently
// retired pointer fingerprints.
type RetireGuard struct {
	buf      []guardSlot
	mask     uint64
	seq      uint64
	Doubles  uint64 // count of detected double-retires; read-only for callers
	Window   uint64 // how many retire calls a fingerprint stays "recent"
}

// NewRetireGuard builds a guard with size slots (rounded up to a power of
// two) and a detection window of the same size.
func NewRetireGuard(size int) *RetireGuard {
	n := 1
	for n < size {
		n <<= 1
	}
	if n == 0 {
		n = 1
	}
	return &RetireGuard{
		buf:    make([]guardSlot, n),
		mask:   uint64(n - 1),
		Window: uint64(n),
	}
}

// Check records ptr's retirement at epoch and reports whether it looks
// like a double-retire: the same pointer address seen again before its
// prior entry aged out of the window. False negatives are possible by
// design (a wraparound can evict the earlier entry); false positives are
// not, since the exact pointer and epoch must both match.
//
//go:nosplit
func (g *RetireGuard) Check(ptr unsafe.Pointer, epoch uint64) bool {
	key := uintptr(ptr)
	i := utils.Mix64(uint64(key)) & g.mask
	slot := &g.buf[i]

	g.seq++
	stale := g.seq-slot.seen > g.Window
	match := !stale && slot.ptr == key && slot.epoch == epoch

	slot.ptr = key
	slot.epoch = epoch
	slot.seen = g.seq

	if match {
		g.Doubles++
	}
	return match
}
