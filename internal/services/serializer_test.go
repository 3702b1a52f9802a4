package services

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWithSenderLock_ReturnsFnError(t *testing.T) {
	locks := NewSenderLocks()
	want := errors.New("boom")
	if got := locks.WithSenderLock("alice", func() error { return want }); !errors.Is(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := locks.WithSenderLock("alice", func() error { return nil }); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestWithSenderLock_SerializesSameSender(t *testing.T) {
	locks := NewSenderLocks()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locks.WithSenderLock("alice", func() error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("observed %d concurrent executions for one sender, want 1", maxInside)
	}
}

func TestWithSenderLock_DifferentSendersRunConcurrently(t *testing.T) {
	locks := NewSenderLocks()

	release := make(chan struct{})
	aliceHeld := make(chan struct{})

	go func() {
		_ = locks.WithSenderLock("alice", func() error {
			close(aliceHeld)
			<-release
			return nil
		})
	}()

	<-aliceHeld
	done := make(chan struct{})
	go func() {
		_ = locks.WithSenderLock("bob", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bob blocked behind alice's lock")
	}
	close(release)
}

func TestWithSenderLock_ReleasedOnPanic(t *testing.T) {
	locks := NewSenderLocks()

	func() {
		defer func() { _ = recover() }()
		_ = locks.WithSenderLock("alice", func() error { panic("kaboom") })
	}()

	done := make(chan struct{})
	go func() {
		_ = locks.WithSenderLock("alice", func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock not released after panic")
	}
}

func TestSenderLocks_LenCountsDistinctSenders(t *testing.T) {
	locks := NewSenderLocks()
	for _, s := range []string{"a", "b", "a", "c"} {
		_ = locks.WithSenderLock(s, func() error { return nil })
	}
	if got := locks.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
}
