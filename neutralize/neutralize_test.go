package neutralize

import (
	"sync/atomic"
	"testing"

	"golang.org/x/sys/unix"

	"debra/pin"
	"debra/slot"
)

// TestNeutralizationCycle mirrors spec scenario S4.
func TestNeutralizationCycle(t *testing.T) {
	tbl := slot.NewTable(4)
	var globalEpoch uint64 = 1

	idx, ok := tbl.Claim(1)
	if !ok {
		t.Fatal("register failed")
	}
	p := pin.NewUnpinnedGuard(tbl, idx).Pin(&globalEpoch)

	atomic.StoreUint64(&globalEpoch, 10)

	n := NewNeutralizer(tbl, &globalEpoch, unix.SIGUSR1)
	delivered := n.NeutralizeStalled(2) // cutoff = 8, observed = 1 < 8
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}

	c := tbl.Cell(idx)
	if atomic.LoadUint32(&c.Pinned) != 0 {
		t.Fatal("target slot should be force-unpinned")
	}
	if atomic.LoadUint32(&c.Neutralized) != 1 {
		t.Fatal("target slot should be neutralized")
	}

	outcome := p.Unpin()
	if _, ok := outcome.(pin.NeutralizedGuard); !ok {
		t.Fatal("Unpin should yield NeutralizedGuard after neutralization")
	}
	neutralized := outcome.(pin.NeutralizedGuard)
	u := neutralized.Acknowledge()
	_ = u
	if atomic.LoadUint32(&c.Neutralized) != 0 {
		t.Fatal("neutralized should be cleared by Acknowledge")
	}
}

func TestNeutralizeStalledNeverSendsToUnpinnedSlots(t *testing.T) {
	tbl := slot.NewTable(2)
	var globalEpoch uint64 = 10
	tbl.Claim(1) // registered, never pinned

	n := NewNeutralizer(tbl, &globalEpoch, unix.SIGUSR1)
	if got := n.NeutralizeStalled(2); got != 0 {
		t.Fatalf("delivered = %d, want 0", got)
	}
}

func TestNeutralizeStalledSkipsFreshlyPinnedSlots(t *testing.T) {
	tbl := slot.NewTable(2)
	var globalEpoch uint64 = 3
	idx, _ := tbl.Claim(1)
	pin.NewUnpinnedGuard(tbl, idx).Pin(&globalEpoch) // observed_epoch = 3

	n := NewNeutralizer(tbl, &globalEpoch, unix.SIGUSR1)
	// cutoff = max(0, 3-2) = 1; observed=3 is not < 1, so no delivery.
	if got := n.NeutralizeStalled(2); got != 0 {
		t.Fatalf("delivered = %d, want 0", got)
	}
}

func TestInstallHandlerIsIdempotent(t *testing.T) {
	InstallHandler(unix.SIGUSR1)
	InstallHandler(unix.SIGUSR1) // must not panic or double-install
}
