package slot

import (
	"sync"
	"testing"

	"debra/types"
)

func TestClaimAssignsDistinctIndices(t *testing.T) {
	tbl := NewTable(4)
	seen := map[int]bool{}
	for i := 0; i < 4; i++ {
		idx, ok := tbl.Claim(types.ThreadID(100 + i))
		if !ok {
			t.Fatalf("claim %d failed unexpectedly", i)
		}
		if seen[idx] {
			t.Fatalf("index %d claimed twice", idx)
		}
		seen[idx] = true
	}
	if tbl.ActiveCount() != 4 {
		t.Fatalf("ActiveCount = %d, want 4", tbl.ActiveCount())
	}
}

func TestClaimFullReturnsFalse(t *testing.T) {
	tbl := NewTable(2)
	if _, ok := tbl.Claim(1); !ok {
		t.Fatal("first claim should succeed")
	}
	if _, ok := tbl.Claim(2); !ok {
		t.Fatal("second claim should succeed")
	}
	if _, ok := tbl.Claim(3); ok {
		t.Fatal("third claim on a table of size 2 should fail")
	}
	if tbl.ActiveCount() != 2 {
		t.Fatalf("ActiveCount = %d, want 2 (failed claim must not consume a slot)", tbl.ActiveCount())
	}
}

func TestReleaseFreesSlotForReuse(t *testing.T) {
	tbl := NewTable(1)
	idx, ok := tbl.Claim(1)
	if !ok {
		t.Fatal("claim should succeed")
	}
	tbl.Release(idx)
	if tbl.IsActive(idx) {
		t.Fatal("slot should be inactive after Release")
	}
	if _, ok := tbl.Claim(2); !ok {
		t.Fatal("released slot should be claimable again")
	}
}

func TestReleaseResetsThreadID(t *testing.T) {
	tbl := NewTable(1)
	idx, _ := tbl.Claim(42)
	tbl.Release(idx)
	c := tbl.Cell(idx)
	if types.ThreadID(c.ThreadID) != types.InvalidThreadID {
		t.Fatalf("ThreadID after Release = %d, want InvalidThreadID", c.ThreadID)
	}
}

// TestConcurrentClaim mirrors spec scenario S6: N threads racing to claim
// slots on a table sized exactly N all succeed with distinct indices.
func TestConcurrentClaim(t *testing.T) {
	const n = 4
	tbl := NewTable(n)
	var wg, barrier sync.WaitGroup
	barrier.Add(1)
	results := make([]int, n)
	oks := make([]bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			barrier.Wait()
			results[i], oks[i] = tbl.Claim(types.ThreadID(i))
		}(i)
	}
	barrier.Done()
	wg.Wait()

	seen := map[int]bool{}
	for i := 0; i < n; i++ {
		if !oks[i] {
			t.Fatalf("thread %d failed to claim a slot", i)
		}
		if seen[results[i]] {
			t.Fatalf("index %d claimed by more than one thread", results[i])
		}
		seen[results[i]] = true
	}
	if tbl.ActiveCount() != n {
		t.Fatalf("ActiveCount = %d, want %d", tbl.ActiveCount(), n)
	}
}
