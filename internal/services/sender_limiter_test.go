package services

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fixedClock returns a clock seam that advances only when told to.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(limit int, window time.Duration) (*SenderLimiter, *fixedClock) {
	clk := newFixedClock()
	rl := NewSenderLimiter(limit, window)
	rl.now = clk.Now
	return rl, clk
}

func TestIsLimited_AdmitsUpToLimitThenRejects(t *testing.T) {
	rl, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if rl.IsLimited("alice") {
			t.Fatalf("attempt %d should be admitted", i+1)
		}
	}
	if !rl.IsLimited("alice") {
		t.Fatal("sixth attempt inside the window should be rejected")
	}
}

func TestIsLimited_WindowExpiryReadmits(t *testing.T) {
	rl, clk := newTestLimiter(2, time.Minute)

	if rl.IsLimited("alice") || rl.IsLimited("alice") {
		t.Fatal("first two attempts should be admitted")
	}
	if !rl.IsLimited("alice") {
		t.Fatal("third attempt should be rejected")
	}

	clk.Advance(61 * time.Second)
	if rl.IsLimited("alice") {
		t.Fatal("attempt after the window expired should be admitted")
	}
}

func TestIsLimited_RejectedAttemptsKeepWindowFull(t *testing.T) {
	rl, clk := newTestLimiter(2, time.Minute)

	rl.IsLimited("alice")
	rl.IsLimited("alice")
	// Hammer while limited; each rejected attempt is recorded too.
	for i := 0; i < 3; i++ {
		clk.Advance(10 * time.Second)
		if !rl.IsLimited("alice") {
			t.Fatalf("attempt during full window should stay rejected (i=%d)", i)
		}
	}

	// 30s after the last rejected attempt the window still holds its
	// most recent entries, so admission stays blocked.
	clk.Advance(30 * time.Second)
	if !rl.IsLimited("alice") {
		t.Fatal("window refreshed by rejected attempts should still block")
	}
}

func TestIsLimited_SendersAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)

	if rl.IsLimited("alice") {
		t.Fatal("alice's first attempt should be admitted")
	}
	if rl.IsLimited("bob") {
		t.Fatal("bob's first attempt should be admitted despite alice's usage")
	}
	if !rl.IsLimited("alice") {
		t.Fatal("alice's second attempt should be rejected")
	}
}

func TestIsLimited_WindowMemoryIsCapped(t *testing.T) {
	rl, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 50; i++ {
		rl.IsLimited("alice")
	}
	rl.mu.Lock()
	n := len(rl.windows["alice"])
	rl.mu.Unlock()
	if n > 3 {
		t.Fatalf("retained %d timestamps, want at most 3", n)
	}
}

func TestIsLimited_ConcurrentAccess(t *testing.T) {
	rl, _ := newTestLimiter(100, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			sender := fmt.Sprintf("sender-%d", g%4)
			for i := 0; i < 100; i++ {
				rl.IsLimited(sender)
			}
		}(g)
	}
	wg.Wait()
}
