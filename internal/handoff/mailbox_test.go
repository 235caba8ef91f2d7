package handoff

import (
	"sync"
	"testing"
	"time"
)

func TestMailbox_EmptyTryTake(t *testing.T) {
	mb := New[int]()

	if v, ok := mb.TryTake(); ok {
		t.Errorf("TryTake() on empty mailbox = %v, true", v)
	}
	if mb.Pending() {
		t.Error("Pending() = true on empty mailbox")
	}
}

func TestMailbox_PutThenTake(t *testing.T) {
	mb := New[string]()

	if replaced := mb.Put("first"); replaced {
		t.Error("Put() into empty mailbox reported replaced")
	}
	if !mb.Pending() {
		t.Error("Pending() = false after Put")
	}

	v, ok := mb.TryTake()
	if !ok || v != "first" {
		t.Errorf("TryTake() = %q, %v; want first, true", v, ok)
	}
	if _, ok := mb.TryTake(); ok {
		t.Error("second TryTake() returned a value")
	}
}

// TestMailbox_OverwriteLatest verifies that two puts before a drain leave only
// the second value visible.
func TestMailbox_OverwriteLatest(t *testing.T) {
	mb := New[int]()

	mb.Put(1)
	if replaced := mb.Put(2); !replaced {
		t.Error("second Put() did not report replaced")
	}

	v, ok := mb.TryTake()
	if !ok || v != 2 {
		t.Fatalf("TryTake() = %d, %v; want 2, true", v, ok)
	}
	if _, ok := mb.TryTake(); ok {
		t.Error("stale value still queued after overwrite")
	}

	stats := mb.Stats()
	if stats.Puts != 2 || stats.Drops != 1 {
		t.Errorf("Stats() = %+v, want Puts=2 Drops=1", stats)
	}
}

// TestMailbox_PutNeverBlocks verifies a producer is never stalled by a
// consumer that is not reading.
func TestMailbox_PutNeverBlocks(t *testing.T) {
	mb := New[int]()
	done := make(chan struct{})

	go func() {
		for i := 0; i < 10000; i++ {
			mb.Put(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Put() blocked with no consumer")
	}

	v, ok := mb.TryTake()
	if !ok || v != 9999 {
		t.Errorf("TryTake() = %d, %v; want 9999, true", v, ok)
	}
}

func TestMailbox_SelectOnC(t *testing.T) {
	mb := New[int]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		mb.Put(42)
	}()

	select {
	case v := <-mb.C():
		if v != 42 {
			t.Errorf("received %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("C() did not deliver value")
	}
}

// TestMailbox_ConcurrentProducerConsumer checks that a consumer racing a
// producer always observes values in increasing order and sees the last one.
func TestMailbox_ConcurrentProducerConsumer(t *testing.T) {
	mb := New[int]()
	const n = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			mb.Put(i)
		}
	}()

	last := 0
	deadline := time.After(5 * time.Second)
	for last != n {
		select {
		case v := <-mb.C():
			if v <= last {
				t.Fatalf("received %d after %d: values must only move forward", v, last)
			}
			last = v
		case <-deadline:
			t.Fatalf("timed out, last received %d", last)
		}
	}
	wg.Wait()

	stats := mb.Stats()
	if stats.Puts != n {
		t.Errorf("Puts = %d, want %d", stats.Puts, n)
	}
}
