package keylock

import (
	"sync"
	"testing"
)

func TestSerializesSameKey(t *testing.T) {
	k := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock("tab-1")
			counter++
			k.Unlock("tab-1")
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("expected 100 increments, got %d", counter)
	}
}

func TestIndependentKeys(t *testing.T) {
	k := New()

	k.Lock("a")
	done := make(chan struct{})
	go func() {
		k.Lock("b")
		k.Unlock("b")
		close(done)
	}()
	<-done
	k.Unlock("a")
}

func TestEntriesAreReclaimed(t *testing.T) {
	k := New()

	k.Lock("x")
	k.Unlock("x")
	k.Lock("y")
	k.Unlock("y")

	k.mu.Lock()
	n := len(k.locks)
	k.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected empty lock map, got %d entries", n)
	}
}
