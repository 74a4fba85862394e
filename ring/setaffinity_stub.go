//go:build !linux || tinygo

// setaffinity_stub.go
//
// Portable fallback for platforms without sched_setaffinity (or under
// TinyGo, which cannot use the raw syscall path). The janitor still
// runs; it just is not pinned to a specific core.

package ring

func setAffinity(cpu int) {}
