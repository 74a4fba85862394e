// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Global reclamation tunables
//
// Purpose:
//   - Defines the recognized configuration options from the reclamation core's
//     external interface: slot table size, bag capacity, neutralization
//     staleness threshold, and the OS signal used to direct neutralization.
//
// Notes:
//   - The slot table size, neutralization threshold and signal are
//     defaults that manager.Config may override at construction time; the
//     bag capacity must match limbo.Capacity, and the epoch sentinels are
//     fixed. A zero-value Config makes manager.New use these defaults.
//
// ⚠️ No runtime logic here — all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

import "golang.org/x/sys/unix"

// ───────────────────────────── Slot Table ──────────────────────────────

const (
	// DefaultMaxThreads bounds concurrent registered threads. 64 lets the
	// active mask fit in a single machine word for a cheap CAS-based claim.
	DefaultMaxThreads = 64

	// MaxThreadsHardCap is the largest slot table this package will build;
	// beyond this the active mask would need to spill into multiple words.
	MaxThreadsHardCap = 1024
)

// ───────────────────────────── Limbo Bags ──────────────────────────────

const (
	// DefaultBagCapacity is the number of (ptr, destructor) pairs a single
	// limbo bag holds before a fresh bag is allocated.
	DefaultBagCapacity = 64
)

// ─────────────────────────── Neutralization ─────────────────────────────

const (
	// DefaultEpochsBeforeNeutralize is the staleness tolerance, in epochs,
	// before a pinned thread becomes eligible for neutralization.
	DefaultEpochsBeforeNeutralize = 2
)

// DefaultNeutralizationSignal is the directed per-thread signal the
// neutralizer delivers to a stalled thread. SIGUSR1 is chosen over a
// realtime signal because os/signal.Notify only observes standard Unix
// signals reliably across platforms; the signal carries no payload, it is
// purely a wake-up nudge (see the neutralize package for the actual
// state mutation, which happens without waiting for the signal to run).
var DefaultNeutralizationSignal = unix.SIGUSR1

// ────────────────────────── Global Epoch ──────────────────────────────

const (
	// EpochNeverObserved is the sentinel `observed_epoch` value meaning "this
	// slot has never pinned".
	EpochNeverObserved = 0

	// InitialGlobalEpoch is the value E_g takes immediately after
	// init_manager; epoch 0 is reserved so it can serve as the "never
	// observed" sentinel.
	InitialGlobalEpoch = 1
)
