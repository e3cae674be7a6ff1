package collection

import (
	"fmt"
	"testing"
)

func TestAppendEvictsOldestAtCapacity(t *testing.T) {
	l := New[int](3, nil)
	for i := 1; i <= 5; i++ {
		if !l.Append(i) {
			t.Fatalf("append %d rejected", i)
		}
	}

	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}
	got := l.Snapshot()
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot = %v, want %v", got, want)
		}
	}

	_, dropped, evicted := l.Stats()
	if dropped != 0 || evicted != 2 {
		t.Fatalf("stats dropped=%d evicted=%d, want 0 and 2", dropped, evicted)
	}
}

func TestAppendManyKeepsMostRecentN(t *testing.T) {
	const cap = 50
	l := New[int](cap, nil)
	for i := 0; i < 500; i++ {
		l.Append(i)
	}

	if l.Len() != cap {
		t.Fatalf("len = %d, want %d", l.Len(), cap)
	}
	snap := l.Snapshot()
	for i, v := range snap {
		if v != 450+i {
			t.Fatalf("snapshot[%d] = %d, want %d", i, v, 450+i)
		}
	}
}

func TestPausedCaptureDropsAppends(t *testing.T) {
	l := New[string](10, nil)
	l.Append("kept")

	l.SetCapturing(false)
	if l.Append("dropped") {
		t.Fatalf("append succeeded while paused")
	}
	if l.Len() != 1 {
		t.Fatalf("len = %d, want 1", l.Len())
	}

	l.SetCapturing(true)
	if !l.Append("after-resume") {
		t.Fatalf("append rejected after resume")
	}
	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
}

func TestDedupRejectsMatches(t *testing.T) {
	l := New(10, func(existing, candidate int) bool { return existing == candidate })

	if !l.Append(7) {
		t.Fatalf("first append rejected")
	}
	if l.Append(7) {
		t.Fatalf("duplicate append accepted")
	}
	if !l.Append(8) {
		t.Fatalf("distinct append rejected")
	}
	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
}

func TestClearSemantics(t *testing.T) {
	t.Run("clear_always_empties", func(t *testing.T) {
		l := New[int](5, nil)
		l.Append(1)
		l.Append(2)
		l.Clear()
		if l.Len() != 0 {
			t.Fatalf("len after clear = %d, want 0", l.Len())
		}
	})

	t.Run("clear_if_not_preserved", func(t *testing.T) {
		l := New[int](5, nil)
		l.Append(1)

		l.ClearIfNotPreserved(true)
		if l.Len() != 1 {
			t.Fatalf("preserved collection was cleared")
		}

		l.ClearIfNotPreserved(false)
		if l.Len() != 0 {
			t.Fatalf("unpreserved collection was not cleared")
		}
	})
}

func TestListenersFireOnMutation(t *testing.T) {
	l := New[int](5, nil)
	var calls int
	l.AddListener(func() { calls++ })

	l.Append(1)
	l.Append(2)
	l.Clear()

	if calls != 3 {
		t.Fatalf("listener calls = %d, want 3", calls)
	}

	l.SetCapturing(false)
	l.Append(3)
	if calls != 3 {
		t.Fatalf("rejected append must not notify, calls = %d", calls)
	}
}

func TestFilterAndCount(t *testing.T) {
	l := New[int](100, nil)
	for i := 0; i < 10; i++ {
		l.Append(i)
	}

	even := func(v int) bool { return v%2 == 0 }
	got := l.Filter(even)
	if len(got) != 5 {
		t.Fatalf("filter returned %d entries, want 5", len(got))
	}
	if n := l.CountMatching(even); n != 5 {
		t.Fatalf("count = %d, want 5", n)
	}
	if n := l.CountMatching(nil); n != 10 {
		t.Fatalf("nil predicate count = %d, want 10", n)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l := New[int](5, nil)
	l.Append(1)

	snap := l.Snapshot()
	snap[0] = 99

	if l.Snapshot()[0] != 1 {
		t.Fatalf("snapshot mutation leaked into the collection")
	}
}

func TestCapacityFloor(t *testing.T) {
	l := New[int](0, nil)
	if l.Capacity() != 1 {
		t.Fatalf("capacity = %d, want floor of 1", l.Capacity())
	}
	l.Append(1)
	l.Append(2)
	if l.Len() != 1 {
		t.Fatalf("len = %d, want 1", l.Len())
	}
}

func TestAppendOrderPreserved(t *testing.T) {
	l := New[string](1000, nil)
	for i := 0; i < 3; i++ {
		l.Append(fmt.Sprintf("e%d", i))
	}
	snap := l.Snapshot()
	for i, v := range snap {
		if v != fmt.Sprintf("e%d", i) {
			t.Fatalf("snapshot[%d] = %q, out of order", i, v)
		}
	}
}
