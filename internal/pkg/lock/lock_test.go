package lock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameUser(t *testing.T) {
	ul := NewUserLock()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ul.Lock(42)
			counter++
			ul.Unlock(42)
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("expected 100 increments, got %d", counter)
	}
}

func TestTryLock(t *testing.T) {
	ul := NewUserLock()

	if !ul.TryLock(1) {
		t.Fatal("TryLock on free lock should succeed")
	}
	if ul.TryLock(1) {
		t.Fatal("TryLock on held lock should fail")
	}
	// A different user's lock is independent
	if !ul.TryLock(2) {
		t.Fatal("TryLock on other user should succeed")
	}
	ul.Unlock(1)
	ul.Unlock(2)

	if !ul.TryLock(1) {
		t.Fatal("TryLock after Unlock should succeed")
	}
	ul.Unlock(1)
}

func TestWithLock(t *testing.T) {
	ul := NewUserLock()

	err := ul.WithLock(7, func() error {
		if ul.TryLock(7) {
			t.Fatal("lock should be held inside WithLock")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !ul.TryLock(7) {
		t.Fatal("lock should be released after WithLock")
	}
	ul.Unlock(7)
}
