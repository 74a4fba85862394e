// manager.go — Manager / Lifecycle (spec §4.8)
//
// Manager owns the slot table and global epoch. SetProcessManager
// publishes one Manager as the process-wide instance (spec §6.1's
// set_process_manager); the installed signal-drain goroutine does not read
// that pointer, since neutralization writes slot flags directly through
// Manager.Neutralizer. Grounded on the teacher's control/main.go
// initialization-then-shutdown shape, generalized from one hardcoded
// global orchestrator into a value any number of independent managers can
// own.
package manager

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"debra/control"
	"debra/hooks"
	"debra/limbo"
	"debra/neutralize"
	"debra/pin"
	"debra/reclaim"
	"debra/slot"
	"debra/types"
)

// ErrRegistrationFull is returned by Register when every slot is occupied.
// No slot is consumed and no side effect occurs (spec §4.9).
var ErrRegistrationFull = errors.New("manager: registration full")

// Manager is the top-level handle for one independent DEBRA+ instance. A
// process may run more than one — each owns its own slot table, epoch, and
// coordinator, so nothing here is package-level state.
type Manager struct {
	table       *slot.Table
	globalEpoch uint64

	cfg   Config
	coord *control.Coordinator
	hooks hooks.Fanout
	guard *limbo.RetireGuard

	nextThreadID int64

	janitorDone chan struct{}
	janitorOnce sync.Once
}

// New initializes a Manager per spec §4.8: E_g := 1, all slot fields
// zeroed, active mask cleared. cfg's zero value is DefaultConfig.
func New(cfg Config) *Manager {
	if cfg.MaxThreads == 0 {
		cfg = DefaultConfig()
	}
	return &Manager{
		table:       slot.NewTable(cfg.MaxThreads),
		globalEpoch: 1,
		cfg:         cfg,
		coord:       control.NewCoordinator(),
	}
}

// WithRetireGuard attaches a double-retire diagnostic ring of the given
// size (spec §4.13, SPEC_FULL.md §4.13). Purely observational: it changes
// no reclamation behavior, only Manager's Doubles counter.
func (m *Manager) WithRetireGuard(size int) *Manager {
	m.guard = limbo.NewRetireGuard(size)
	return m
}

// Doubles reports the double-retire diagnostic counter, or 0 if no guard
// is attached.
func (m *Manager) Doubles() uint64 {
	if m.guard == nil {
		return 0
	}
	return m.guard.Doubles
}

// Subscribe registers fn to run after every TryReclaim call that reaches
// the Ready state (spec §4.12); a Blocked call notifies no one.
func (m *Manager) Subscribe(fn hooks.Subscriber) {
	m.hooks.Subscribe(fn)
}

var processManager atomic.Pointer[Manager]

// SetProcessManager publishes m as the process-wide manager, readable
// through ProcessManager (spec §6.1's set_process_manager). The goroutine
// started by InstallSignalHandler only drains signals and does not read
// this pointer; neutralization acts through Manager.Neutralizer whether or
// not a process manager is set.
func SetProcessManager(m *Manager) {
	processManager.Store(m)
}

// ProcessManager returns the manager last published via SetProcessManager,
// or nil.
func ProcessManager() *Manager {
	return processManager.Load()
}

// InstallSignalHandler starts the idempotent background goroutine that
// keeps the process alive across neutralization signal deliveries (spec
// §6.1's install_signal_handler).
func (m *Manager) InstallSignalHandler() {
	neutralize.InstallHandler(m.cfg.NeutralizationSignal)
}

// Register claims a slot for the calling goroutine and returns an
// Unpinned guard, or ErrRegistrationFull if the table is at capacity.
// The slot's OS thread id is left at the invalid sentinel: an ordinary
// goroutine can migrate OS threads between calls, so recording
// unix.Gettid() here would let the neutralizer's directed Tgkill
// (SPEC_FULL.md §4.10) reach a thread this goroutine has since left.
// Callers that want that directed-signal guarantee must call
// RegisterLocked instead.
func (m *Manager) Register() (pin.UnpinnedGuard, error) {
	tid := types.ThreadID(atomic.AddInt64(&m.nextThreadID, 1))
	idx, ok := m.table.Claim(tid)
	if !ok {
		return pin.UnpinnedGuard{}, ErrRegistrationFull
	}
	return pin.NewUnpinnedGuard(m.table, idx), nil
}

// RegisterLocked is Register for a goroutine that has already called
// runtime.LockOSThread and intends to keep the lock for the lifetime of
// its registration. It captures unix.Gettid() so the neutralizer can
// direct a Tgkill at this exact OS thread (SPEC_FULL.md §4.10).
// Registering this way without holding the lock defeats the guarantee:
// the runtime remains free to move an unlocked goroutine to a different
// OS thread, after which Tgkill would signal whatever unrelated thread
// picked up the captured id.
func (m *Manager) RegisterLocked() (pin.UnpinnedGuard, error) {
	u, err := m.Register()
	if err != nil {
		return u, err
	}
	m.table.SetOSThreadID(u.SlotIndex(), int32(unix.Gettid()))
	return u, nil
}

// Deregister releases a slot back to the table after draining its
// remaining bags (spec §9(a)'s resolved Open Question — slots ARE
// releasable mid-lifetime, moving Active → Draining → Free per spec §3).
// The handle must be Unpinned; the caller loses access to it afterward.
func (m *Manager) Deregister(u pin.UnpinnedGuard) {
	idx := u.SlotIndex()
	reclaim.DrainSlot(m.table, idx)
	m.table.Release(idx)
}

// GlobalEpoch returns the current E_g (acquire load).
func (m *Manager) GlobalEpoch() uint64 {
	return atomic.LoadUint64(&m.globalEpoch)
}

// AdvanceEpoch performs the same fetch-add(1) reclaim.ReclaimBlocked
// exposes, for callers that want to shift the reclamation window without
// going through a blocked reclamation attempt first.
func (m *Manager) AdvanceEpoch() uint64 {
	return atomic.AddUint64(&m.globalEpoch, 1)
}

// StartReclaim begins a reclamation attempt against this manager's table
// and epoch (spec §4.6's Start state).
func (m *Manager) StartReclaim() reclaim.Start {
	return reclaim.NewStart(m.table, &m.globalEpoch)
}

// TryReclaim runs the full reclaim_start → load_epochs → check_safe chain
// and, if ready, performs the reclamation pass, notifying any subscribed
// hooks afterward (spec §4.12). Returns (0, false) when reclamation was
// Blocked.
func (m *Manager) TryReclaim() (reclaimed int, ok bool) {
	outcome := m.StartReclaim().LoadEpochs().CheckSafe()
	ready, isReady := outcome.(reclaim.ReclaimReady)
	if !isReady {
		return 0, false
	}
	n := ready.TryReclaim()
	m.hooks.Notify(hooks.Event{Threshold: ready.Threshold(), Reclaimed: n})
	return n, true
}

// Neutralizer returns a fresh neutralize.Neutralizer bound to this
// manager's table and epoch. A caller invokes
// NeutralizeStalled(m.cfg.EpochsBeforeNeutralize) on it periodically; the
// janitor started by StartJanitor does not do this.
func (m *Manager) Neutralizer() *neutralize.Neutralizer {
	return neutralize.NewNeutralizer(m.table, &m.globalEpoch, m.cfg.NeutralizationSignal)
}

// Coordinator exposes the janitor coordination flags (spec §6.5) for
// callers that drive their own retire path directly through package pin
// instead of through Retire below.
func (m *Manager) Coordinator() *control.Coordinator {
	return m.coord
}

// Pin is a convenience wrapper around u.Pin that supplies this manager's
// global epoch pointer, so callers outside package manager never need
// direct access to the unexported epoch field.
func (m *Manager) Pin(u pin.UnpinnedGuard) pin.PinnedGuard {
	return u.Pin(&m.globalEpoch)
}

// Retire is a convenience wrapper around ready.Retire that also signals
// the janitor coordinator urgent when the retirement fills the slot's
// current bag, so a burst of retires gets reclaimed sooner than the
// janitor's steady-state tick would allow (spec §6.5, SPEC_FULL.md
// §4.6). Calling pin.RetireReady.Retire directly skips this signal — it
// remains correct, just not urgent-prioritized.
func (m *Manager) Retire(ready pin.RetireReady, ptr unsafe.Pointer, destroy types.Destructor) pin.Retired {
	if m.guard != nil {
		m.guard.Check(ptr, m.GlobalEpoch())
	}
	r := ready.Retire(ptr, destroy)
	if c := m.table.Cell(ready.SlotIndex()); c.CurrentBag != nil && c.CurrentBag.Full() {
		m.coord.SignalUrgent()
	}
	return r
}

// Shutdown drains every remaining limbo bag on every slot, swallowing
// destructor panics per bag (spec §4.8), and stops the janitor if one is
// running.
func (m *Manager) Shutdown() int {
	m.StopJanitor()
	return reclaim.DrainAll(m.table)
}
