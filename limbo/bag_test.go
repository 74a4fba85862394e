package limbo

import (
	"testing"
	"unsafe"

	"debra/types"
)

func TestBagAppendAndFull(t *testing.T) {
	b := New(3)
	if b.Full() {
		t.Fatal("fresh bag should not be full")
	}
	for i := 0; i < Capacity; i++ {
		b.Append(types.Retirement{})
	}
	if !b.Full() {
		t.Fatal("bag should be full after Capacity appends")
	}
	if b.Epoch != 3 {
		t.Fatalf("epoch = %d, want 3", b.Epoch)
	}
}

func TestBagReclaimInvokesDestructorsOnce(t *testing.T) {
	b := New(1)
	count := 0
	var x int
	for i := 0; i < 5; i++ {
		b.Append(types.Retirement{
			Ptr: unsafe.Pointer(&x),
			Destroy: func(unsafe.Pointer) {
				count++
			},
		})
	}
	n := b.Reclaim()
	if n != 5 || count != 5 {
		t.Fatalf("reclaimed %d, destructor ran %d times, want 5/5", n, count)
	}
	if b.Count != 0 {
		t.Fatalf("Count after Reclaim = %d, want 0", b.Count)
	}
	// A second Reclaim on the same (now empty) bag must not re-invoke.
	if n2 := b.Reclaim(); n2 != 0 {
		t.Fatalf("second Reclaim destroyed %d, want 0", n2)
	}
	if count != 5 {
		t.Fatalf("destructor ran %d times after double Reclaim, want 5", count)
	}
}

func TestBagReclaimSkipsNilDestructor(t *testing.T) {
	b := New(1)
	b.Append(types.Retirement{Ptr: nil, Destroy: nil})
	n := b.Reclaim()
	if n != 1 {
		t.Fatalf("Reclaim = %d, want 1 (no-op entries still count as reclaimed)", n)
	}
}

func TestBagReclaimSwallowingPanicsContinues(t *testing.T) {
	b := New(1)
	var ran []int
	b.Append(types.Retirement{Destroy: func(unsafe.Pointer) { ran = append(ran, 1); panic("boom") }})
	b.Append(types.Retirement{Destroy: func(unsafe.Pointer) { ran = append(ran, 2) }})
	n := b.ReclaimSwallowingPanics()
	if n != 2 {
		t.Fatalf("destroyed = %d, want 2", n)
	}
	if len(ran) != 2 {
		t.Fatalf("both destructors should have run despite the panic, got %v", ran)
	}
}

func TestBagReclaimPropagatesPanic(t *testing.T) {
	b := New(1)
	b.Append(types.Retirement{Destroy: func(unsafe.Pointer) { panic("boom") }})
	defer func() {
		if recover() == nil {
			t.Fatal("expected Reclaim to propagate the destructor panic")
		}
	}()
	b.Reclaim()
}
