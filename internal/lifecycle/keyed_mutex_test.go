package lifecycle

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := newKeyedMutex()
	unlock := km.Lock("alice")

	acquired := make(chan struct{})
	go func() {
		u := km.Lock("alice")
		close(acquired)
		u()
	}()

	// Another key is independent.
	other := km.Lock("bob")
	other()

	select {
	case <-acquired:
		t.Fatal("second lock on the same key acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	km := newKeyedMutex()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("alice")()
		}()
	}
	wg.Wait()
	if n := km.size(); n != 0 {
		t.Fatalf("expected no retained keys, got %d", n)
	}
}
