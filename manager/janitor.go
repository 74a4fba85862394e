// janitor.go — background reclamation goroutine (spec §6.5, SPEC_FULL.md §4.6)
//
// Adapted from ring.PinnedConsumer's hot-spin/cold-spin shape: a dedicated
// goroutine locks itself to an OS thread, optionally pins to a CPU core,
// and loops driving reclaim_start → load_epochs → check_safe → try_reclaim
// (falling back to AdvanceEpoch when blocked) until told to stop. Unlike
// the teacher's consumer, this loop is not latency-critical, so it ticks
// on a timer instead of busy-spinning: "hot" here means "poll every tick
// without the cooldown-driven back-off", which the Coordinator's urgent
// flag can still shorten via the retire path signaling pressure.
package manager

import (
	"runtime"
	"sync/atomic"
	"time"

	"debra/ring"
)

// StartJanitor launches the background reclamation goroutine, ticking
// every interval. It is a no-op if a janitor has already been started for
// this Manager, including one that has since been stopped. affinityCore pins the goroutine's OS thread when >= 0; pass -1
// to leave scheduling to the runtime.
func (m *Manager) StartJanitor(interval time.Duration, affinityCore int) {
	if m.janitorDone != nil {
		return
	}
	done := make(chan struct{})
	m.janitorDone = done
	stopPtr, urgentPtr := m.coord.Flags()

	go func() {
		runtime.LockOSThread()
		if affinityCore >= 0 {
			ring.PinCurrentThread(affinityCore)
		}
		defer func() {
			runtime.UnlockOSThread()
			close(done)
		}()

		const hotInterval = 1 * time.Millisecond
		wait := interval

		for {
			timer := time.NewTimer(wait)
			<-timer.C
			timer.Stop()

			if atomic.LoadUint32(stopPtr) != 0 {
				return
			}

			if _, ok := m.TryReclaim(); !ok {
				m.AdvanceEpoch()
			}
			m.coord.PollCooldown(interval)

			// Retirement pressure (Coordinator.SignalUrgent, called from the
			// retire path when a bag fills) shortens the next wait so a
			// burst of retires gets reclaimed sooner than the steady-state
			// tick would allow.
			if atomic.LoadUint32(urgentPtr) != 0 {
				wait = hotInterval
			} else {
				wait = interval
			}
		}
	}()
}

// StopJanitor requests the janitor goroutine to exit after its current
// tick and waits for it to do so. A no-op if no janitor is running.
func (m *Manager) StopJanitor() {
	if m.janitorDone == nil {
		return
	}
	m.janitorOnce.Do(func() {
		m.coord.Shutdown()
		<-m.janitorDone
	})
}
