// Sliding-window admission control per sender, checked before the expensive
// completion-service call. This is deliberately not a token bucket: the
// contract is "exactly Limit admissions per rolling window", with the
// limit-exceeded signal firing on the (Limit+1)th attempt, which requires
// counting retained timestamps before appending the current one.
//
// The HTTP edge has a separate token-bucket limiter (see http/middleware);
// this one protects the downstream model call per conversation partner.

package services

import (
	"sync"
	"time"
)

// RateLimitWarning is the fixed reply sent to a sender whose message was
// rejected by the limiter.
const RateLimitWarning = "⚠️ Please wait before sending more messages. Try again in a minute."

// SenderLimiter tracks recent admission timestamps per sender over a sliding
// window. Windows are pruned on every check and capped at Limit entries, so
// per-sender memory is O(Limit). Sender keys are retained for the process
// lifetime, under the same bounded-cardinality assumption as SenderLocks.
//
// Safe for concurrent use.
type SenderLimiter struct {
	// Limit is the number of admissions allowed per rolling window.
	Limit int
	// Window is the sliding window length.
	Window time.Duration

	mu      sync.Mutex
	windows map[string][]time.Time

	// now is a clock seam for tests; defaults to time.Now.
	now func() time.Time
}

// NewSenderLimiter constructs a limiter allowing limit admissions per window.
func NewSenderLimiter(limit int, window time.Duration) *SenderLimiter {
	return &SenderLimiter{
		Limit:   limit,
		Window:  window,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// IsLimited records an attempt by sender and reports whether it exceeds the
// limit. The decision uses the count of timestamps still inside the window
// *before* the current attempt is appended, so the first Limit attempts in a
// window are admitted and the (Limit+1)th is rejected. Rejected attempts are
// recorded too: hammering during a full window keeps it full.
func (rl *SenderLimiter) IsLimited(sender string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.Window)

	recent := rl.windows[sender][:0:len(rl.windows[sender])]
	for _, ts := range rl.windows[sender] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	limited := len(recent) >= rl.Limit

	recent = append(recent, now)
	if len(recent) > rl.Limit {
		recent = recent[len(recent)-rl.Limit:]
	}
	rl.windows[sender] = recent

	return limited
}
