package types

import "unsafe"

// ============================================================================
// SHARED CROSS-PACKAGE IDENTITY TYPES
// ============================================================================

// ThreadID is an opaque identifier for a registered thread, assigned by
// the manager from a per-manager counter at registration time. It is not
// an OS thread id: the gettid(2) value of a runtime.LockOSThread'd
// registrant, used to direct a neutralization signal, is kept separately
// in slot.Cell.OSThreadID.
type ThreadID int32

// InvalidThreadID is the sentinel meaning "no registered thread" — the
// slot is free (never claimed, or released).
const InvalidThreadID ThreadID = -1

// Destructor releases the resource identified by ptr. A nil destructor
// paired with a nil ptr is a permitted no-op placeholder, used in tests.
type Destructor func(ptr unsafe.Pointer)

// Retirement is an opaque (pointer, destructor) pair handed to the
// reclaimer by the retire path. It carries no epoch of its own — the
// enclosing limbo bag stamps a single epoch shared by every retirement
// it holds.
type Retirement struct {
	Ptr     unsafe.Pointer
	Destroy Destructor
}

// Run invokes the destructor if present, per spec: a nil destructor is a
// permitted no-op regardless of Ptr.
//
//go:nosplit
//go:inline
func (r Retirement) Run() {
	if r.Destroy != nil {
		r.Destroy(r.Ptr)
	}
}
