package partitioning

import "sync"

// A SynchronizedPolicy serializes all the calls to a policy. Use it when the
// state of a cache's policy is read from more than one goroutine, for example
// by a monitor. One SynchronizedPolicy must guard exactly one cache.
type SynchronizedPolicy struct {
	mu     sync.Mutex
	policy Policy
}

// NewSynchronizedPolicy wraps p.
func NewSynchronizedPolicy(p Policy) *SynchronizedPolicy {
	return &SynchronizedPolicy{policy: p}
}

// Unwrap returns the guarded policy.
func (s *SynchronizedPolicy) Unwrap() Policy {
	return s.policy
}

// Do calls f with the guarded policy while the lock is held. f must not keep
// the policy.
func (s *SynchronizedPolicy) Do(f func(p Policy)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f(s.policy)
}

// Name returns the name of the guarded policy.
func (s *SynchronizedPolicy) Name() string {
	return s.policy.Name()
}

// FilterCandidates forwards to the guarded policy.
func (s *SynchronizedPolicy) FilterCandidates(id PartitionID, ways []int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.policy.FilterCandidates(id, ways)
}

// NotifyAllocate forwards to the guarded policy.
func (s *SynchronizedPolicy) NotifyAllocate(id PartitionID, way int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policy.NotifyAllocate(id, way)
}

// NotifyEvict forwards to the guarded policy.
func (s *SynchronizedPolicy) NotifyEvict(id PartitionID, way int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policy.NotifyEvict(id, way)
}

// AcceptHook registers the hook with the guarded policy. Hooks run while the
// lock is held.
func (s *SynchronizedPolicy) AcceptHook(hook Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.policy.(Hookable); ok {
		h.AcceptHook(hook)
	}
}

// Usage returns the usage of the guarded policy, or nil if it does not report
// usage.
func (s *SynchronizedPolicy) Usage() []PartitionUsage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.policy.(UsageReporter); ok {
		return r.Usage()
	}

	return nil
}

var (
	_ Policy        = (*SynchronizedPolicy)(nil)
	_ UsageReporter = (*SynchronizedPolicy)(nil)
	_ Hookable      = (*SynchronizedPolicy)(nil)
)
