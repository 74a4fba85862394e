// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — zero-alloc cold-path logging helper
//
// Purpose:
//   - Reports the reclamation core's cold-path events without introducing
//     heap pressure: a failed registration, a reclamation pass that came
//     back Blocked, a neutralization signal delivered to a stalled slot.
//   - Never called from inside a pinned critical section or from the
//     retire/reclaim hot paths themselves.
//
// Notes:
//   - Avoids fmt.Sprintf to minimize footprint and latency.
//   - Uses a stackless logging model: no alloc, no interfaces.
//   - Aggressively inlined and nosplit.
//
// ⚠️ Never invoke while pinned — use only in failure diagnostics.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "debra/utils"

// DropError reports a cold-path failure alongside its cause, writing
// directly to stderr through utils.PrintWarning so the call site never
// allocates. A nil err still logs prefix alone, which lets callers use
// DropError as a uniform sink for both "this failed: <reason>" and
// "this happened, no reason to give" notices (e.g. a Blocked
// reclamation pass has no error value, only a prefix).
//
//go:nosplit
//go:inline
//go:registerparams
func DropError(prefix string, err error) {
	if err == nil {
		utils.PrintWarning(prefix + "\n")
		return
	}
	utils.PrintWarning(prefix + ": " + err.Error() + "\n")
}

// DropMessage reports a cold-path event that carries no error value of
// its own — a registration slot count, a neutralization delivery count,
// a janitor state transition — using the same alloc-free strategy as
// DropError.
//
//go:nosplit
//go:inline
//go:registerparams
func DropMessage(prefix, message string) {
	utils.PrintWarning(prefix + ": " + message + "\n")
}
