// Per-sender mutual exclusion for the relay pipeline. Webhook deliveries for
// the same sender can race (redeliveries, rapid typing, provider fan-out);
// serializing per sender keeps dedup checks and store/send side effects from
// interleaving, while messages from different senders run fully concurrently.

package services

import "sync"

// SenderLocks maps sender identities to exclusive-execution locks. Locks are
// created lazily on first use and kept for the process lifetime; memory is
// bounded by the number of distinct senders seen, which is small for this
// workload.
//
// The zero value is not usable; construct with NewSenderLocks.
type SenderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSenderLocks constructs an empty lock registry.
func NewSenderLocks() *SenderLocks {
	return &SenderLocks{locks: make(map[string]*sync.Mutex)}
}

// lockFor returns the mutex for sender, creating it if absent.
func (s *SenderLocks) lockFor(sender string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[sender]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[sender] = l
	return l
}

// WithSenderLock runs fn while holding the exclusive lock for sender. Calls
// sharing a sender key execute one at a time in lock-acquisition order; calls
// for different senders do not block each other. The lock is released on
// every exit path, including panics inside fn.
//
// There is no acquisition timeout: a stuck execution delays later messages
// from that sender only.
func (s *SenderLocks) WithSenderLock(sender string, fn func() error) error {
	l := s.lockFor(sender)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Len reports the number of distinct senders that have acquired a lock.
func (s *SenderLocks) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
