// ════════════════════════════════════════════════════════════════════════════════════════════════
// debractl - Reclamation Core Exercise & Audit Tool
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Component: Command-Line Entry Point
//
// Description:
//   Exercises the reclamation core end to end for manual inspection: registers a
//   handful of synthetic threads, runs a configurable number of pin/retire/unpin
//   cycles driven by a background janitor, and optionally appends one row per
//   reclamation pass to a local SQLite database for offline trend inspection.
//
// Architecture:
//   - Phase 0: Flag parsing and manager construction
//   - Phase 1: Synthetic thread registration and churn
//   - Phase 2: Janitor-driven reclamation in the background, audited if requested
//   - Phase 3: Signal-driven shutdown, final drain, summary
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	_ "github.com/mattn/go-sqlite3"

	"debra/debug"
	"debra/hooks"
	"debra/manager"
	"debra/pin"
	"debra/utils"
)

func main() {
	threads := flag.Int("threads", 4, "number of synthetic threads to register")
	cycles := flag.Int("cycles", 1000, "pin/retire/unpin cycles per thread")
	tick := flag.Duration("tick", 5*time.Millisecond, "janitor reclaim interval")
	auditPath := flag.String("audit-db", "", "optional sqlite3 path to log each reclamation pass to")
	flag.Parse()

	debug.DropMessage("INIT", "starting debractl with "+utils.Itoa(int64(*threads))+" threads")

	var audit *auditLog
	if *auditPath != "" {
		a, err := openAuditLog(*auditPath)
		if err != nil {
			debug.DropError("AUDIT_OPEN", err)
		} else {
			audit = a
			defer audit.Close()
		}
	}

	m := manager.New(manager.DefaultConfig())
	m.WithRetireGuard(256)
	manager.SetProcessManager(m)
	m.InstallSignalHandler()

	if audit != nil {
		m.Subscribe(func(ev hooks.Event) {
			if err := audit.Append(m.GlobalEpoch(), ev.Threshold, ev.Reclaimed); err != nil {
				debug.DropError("AUDIT_WRITE", err)
			}
		})
	}

	m.StartJanitor(*tick, -1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		<-sigCh
		debug.DropMessage("SIGNAL", "received interrupt, shutting down")
		close(stop)
	}()

	debug.DropMessage("READY", "registering synthetic threads")

	var wg sync.WaitGroup
	for i := 0; i < *threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(m, *cycles, stop)
		}()
	}
	wg.Wait()

	reclaimed := m.Shutdown()
	doubles := m.Doubles()
	debug.DropMessage("SHUTDOWN", "drained "+utils.Itoa(int64(reclaimed))+" retirements, "+utils.Itoa(int64(doubles))+" double-retire diagnostics")
}

// runWorker locks itself to its OS thread and registers with
// RegisterLocked, so the neutralizer's directed signal (SPEC_FULL.md
// §4.10) can reach this exact worker if it stalls. It then drives
// cycles pin/retire/unpin iterations, deregistering (draining any
// remaining bag) once done or once stop fires.
func runWorker(m *manager.Manager, cycles int, stop <-chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	u, err := m.RegisterLocked()
	if err != nil {
		debug.DropError("REGISTER", err)
		return
	}

	payload := new(int)
	for i := 0; i < cycles; i++ {
		select {
		case <-stop:
			m.Deregister(u)
			return
		default:
		}

		p := m.Pin(u)
		m.Retire(p.RetireReady(), unsafe.Pointer(payload), noopDestroy)

		switch outcome := p.Unpin().(type) {
		case pin.UnpinnedGuard:
			u = outcome
		case pin.NeutralizedGuard:
			u = outcome.Acknowledge()
		}
	}

	m.Deregister(u)
}

// noopDestroy stands in for a real resource's cleanup; debractl retires
// freshly allocated scratch ints purely to exercise the reclamation path.
func noopDestroy(unsafe.Pointer) {}

type auditLog struct {
	db *sql.DB
}

func openAuditLog(path string) (*auditLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS reclaim_passes (
		ts INTEGER NOT NULL,
		global_epoch INTEGER NOT NULL,
		safe_threshold INTEGER NOT NULL,
		reclaimed INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &auditLog{db: db}, nil
}

func (a *auditLog) Append(globalEpoch, threshold uint64, reclaimed int) error {
	_, err := a.db.Exec(
		`INSERT INTO reclaim_passes (ts, global_epoch, safe_threshold, reclaimed) VALUES (?, ?, ?, ?)`,
		time.Now().UnixNano(), globalEpoch, threshold, reclaimed,
	)
	return err
}

func (a *auditLog) Close() error {
	return a.db.Close()
}
