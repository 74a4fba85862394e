package ring

import (
	"sync"
	"testing"
	"unsafe"
)

func TestNewPanicsOnBadSize(t *testing.T) {
	bad := []int{0, -1, 3, 1000}
	for _, sz := range bad {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%d) should panic", sz)
				}
			}()
			_ = New(sz)
		}()
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	r := New(8)
	var payload int
	p := unsafe.Pointer(&payload)

	if !r.Push(p) {
		t.Fatal("first push must succeed")
	}
	got := r.Pop()
	if got != p {
		t.Fatalf("got %v, want %v", got, p)
	}
	if r.Pop() != nil {
		t.Fatal("ring should now be empty")
	}
}

func TestPushFailsWhenFull(t *testing.T) {
	r := New(4)
	var payload int
	p := unsafe.Pointer(&payload)
	for i := 0; i < 4; i++ {
		if !r.Push(p) {
			t.Fatalf("push %d unexpectedly failed", i)
		}
	}
	if r.Push(p) {
		t.Fatal("push into full ring should return false")
	}
}

func TestPopNil(t *testing.T) {
	r := New(4)
	if r.Pop() != nil {
		t.Fatal("Pop on empty ring returned non-nil")
	}
}

func TestWrapAround(t *testing.T) {
	const size = 4
	r := New(size)
	items := make([]int, 10)
	for i := range items {
		items[i] = i
		p := unsafe.Pointer(&items[i])
		if !r.Push(p) {
			t.Fatalf("push %d failed unexpectedly", i)
		}
		got := r.Pop()
		if got != p {
			t.Fatalf("iteration %d: got %v, want %v", i, got, p)
		}
	}
}

// TestSPSCConcurrent exercises the ring under its intended access pattern:
// exactly one producer, one consumer, as used by the reclaimer/retire-path
// bag recycling pool.
func TestSPSCConcurrent(t *testing.T) {
	const n = 100000
	r := New(256)
	items := make([]int, n)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() { // producer
		defer wg.Done()
		for i := 0; i < n; i++ {
			items[i] = i
			p := unsafe.Pointer(&items[i])
			for !r.Push(p) {
			}
		}
	}()

	sum := 0
	go func() { // consumer
		defer wg.Done()
		for i := 0; i < n; i++ {
			var p unsafe.Pointer
			for p == nil {
				p = r.Pop()
			}
			sum += *(*int)(p)
		}
	}()

	wg.Wait()
	want := n * (n - 1) / 2
	if sum != want {
		t.Fatalf("sum = %d, want %d", sum, want)
	}
}
