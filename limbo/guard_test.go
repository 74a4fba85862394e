package limbo

import (
	"testing"
	"unsafe"
)

func TestRetireGuardDetectsDoubleRetire(t *testing.T) {
	g := NewRetireGuard(8)
	var x int
	p := unsafe.Pointer(&x)

	if g.Check(p, 5) {
		t.Fatal("first retirement should not be flagged")
	}
	if !g.Check(p, 5) {
		t.Fatal("same pointer/epoch retired twice should be flagged")
	}
	if g.Doubles != 1 {
		t.Fatalf("Doubles = %d, want 1", g.Doubles)
	}
}

func TestRetireGuardDifferentEpochNotFlagged(t *testing.T) {
	g := NewRetireGuard(8)
	var x int
	p := unsafe.Pointer(&x)

	g.Check(p, 1)
	if g.Check(p, 2) {
		t.Fatal("same pointer retired under a different epoch is a legitimate reuse, not a double-retire")
	}
}

func TestRetireGuardRoundsToPowerOfTwo(t *testing.T) {
	g := NewRetireGuard(5)
	if len(g.buf) != 8 {
		t.Fatalf("buf len = %d, want 8", len(g.buf))
	}
}
