// neutralize.go — Signal Handler (C3) and Neutralizer (C7)
//
// The Go runtime gives no way to install a sigaction-style handler that
// runs synchronously on the interrupted OS thread's own stack the way the
// specification's original handler does; os/signal.Notify only delivers to
// a runtime-chosen goroutine. This is exactly the situation spec.md's own
// design notes anticipate for "platforms lacking a thread-directed
// asynchronous signal": a polled cancellation flag, layered underneath a
// real directed signal used only to interrupt a thread blocked in a
// syscall. See SPEC_FULL.md §4.10 for the full rationale.
//
// Grounded on the teacher's setupSignalHandling (main.go) for the
// Notify/goroutine shape and on ring.PinnedConsumer's runtime.LockOSThread
// discipline for why a thread must lock itself to be Tgkill-reachable.
package neutralize

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"debra/debug"
	"debra/slot"
)

var installOnce sync.Once

// InstallHandler starts the background goroutine that drains sig so the
// process does not terminate on an unhandled signal delivery. It is
// idempotent — a second call is a no-op, matching spec §6.1's
// "install_signal_handler() — idempotent."
//
// The goroutine does no allocation, I/O, or cross-thread writes of its
// own beyond draining the channel: the actual slot mutation (spec §4.3's
// "handler") already happened synchronously in Neutralizer.NeutralizeStalled
// before the signal was ever sent, so there is nothing left for this
// goroutine to do except keep signal.Notify's channel from filling up.
func InstallHandler(sig os.Signal) {
	installOnce.Do(func() {
		ch := make(chan os.Signal, 8)
		signal.Notify(ch, sig)
		go func() {
			for range ch {
			}
		}()
	})
}

// Neutralizer scans a slot table and force-unpins threads that have been
// pinned for more than epochsBeforeNeutralize epochs (spec §4.7).
type Neutralizer struct {
	table       *slot.Table
	globalEpoch *uint64
	signal      unix.Signal
	selfTID     int32 // Gettid of the neutralizer's own OS thread; never signaled
}

// NewNeutralizer builds a Neutralizer over table, reading E_g from
// globalEpoch and delivering sig to stalled threads' OS thread ids.
func NewNeutralizer(table *slot.Table, globalEpoch *uint64, sig unix.Signal) *Neutralizer {
	return &Neutralizer{
		table:       table,
		globalEpoch: globalEpoch,
		signal:      sig,
		selfTID:     int32(unix.Gettid()),
	}
}

// NeutralizeStalled implements spec §4.7: compute cutoff = max(0, E -
// epochsBeforeNeutralize), then for every slot pinned at an epoch older
// than cutoff, mutate its (pinned, neutralized) pair directly — the same
// two writes the specification's own signal handler performs — and only
// then send an OS-level directed signal, purely to interrupt a thread
// that might be blocked in a syscall. Returns the delivery count.
func (n *Neutralizer) NeutralizeStalled(epochsBeforeNeutralize uint64) int {
	e := atomic.LoadUint64(n.globalEpoch)
	var cutoff uint64
	if e > epochsBeforeNeutralize {
		cutoff = e - epochsBeforeNeutralize
	}

	delivered := 0
	for i := 0; i < n.table.MaxThreads(); i++ {
		c := n.table.Cell(i)
		if atomic.LoadUint32(&c.Pinned) == 0 {
			continue
		}
		observed := atomic.LoadUint64(&c.ObservedEpoch)
		if observed >= cutoff {
			continue
		}
		tid := atomic.LoadInt32(&c.ThreadID)
		if tid < 0 {
			continue // slot mid-release; nothing to signal
		}

		// Invariant 6: the handler (here, performed by the neutralizer on
		// the target's behalf) only writes this one slot's pinned and
		// neutralized fields.
		atomic.StoreUint32(&c.Pinned, 0)
		atomic.StoreUint32(&c.Neutralized, 1)
		delivered++

		osTID := atomic.LoadInt32(&c.OSThreadID)
		if osTID == 0 || osTID == n.selfTID {
			continue // no captured OS thread, or would be self-signaling
		}
		if err := unix.Tgkill(os.Getpid(), int(osTID), n.signal); err != nil {
			debug.DropError("neutralize: tgkill failed", err)
		}
	}
	return delivered
}
