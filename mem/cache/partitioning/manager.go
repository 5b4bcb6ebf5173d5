package partitioning

// A Manager installs several policies on one cache. A way is eligible only if
// every policy accepts it. Notifications reach every policy. A Manager without
// policies does not restrict anything.
type Manager struct {
	name     string
	policies []Policy
}

// NewManager creates a Manager that applies the policies in order.
func NewManager(name string, policies ...Policy) *Manager {
	m := &Manager{
		name:     name,
		policies: make([]Policy, 0, len(policies)),
	}

	for _, p := range policies {
		if p == nil {
			continue
		}

		m.policies = append(m.policies, p)
	}

	return m
}

// Name returns the name of the manager.
func (m *Manager) Name() string {
	return m.name
}

// Policies returns the installed policies.
func (m *Manager) Policies() []Policy {
	return m.policies
}

// FilterCandidates passes ways through every installed policy.
func (m *Manager) FilterCandidates(id PartitionID, ways []int) []int {
	eligible := copyWays(ways)

	for _, p := range m.policies {
		if len(eligible) == 0 {
			break
		}

		eligible = p.FilterCandidates(id, eligible)
	}

	return eligible
}

// NotifyAllocate forwards the allocation to every installed policy.
func (m *Manager) NotifyAllocate(id PartitionID, way int) {
	for _, p := range m.policies {
		p.NotifyAllocate(id, way)
	}
}

// NotifyEvict forwards the eviction to every installed policy.
func (m *Manager) NotifyEvict(id PartitionID, way int) {
	for _, p := range m.policies {
		p.NotifyEvict(id, way)
	}
}

// AcceptHook registers the hook with every installed policy that accepts
// hooks.
func (m *Manager) AcceptHook(hook Hook) {
	for _, p := range m.policies {
		if h, ok := p.(Hookable); ok {
			h.AcceptHook(hook)
		}
	}
}

// Usage concatenates the usage of the installed policies.
func (m *Manager) Usage() []PartitionUsage {
	var rows []PartitionUsage

	for _, p := range m.policies {
		if r, ok := p.(UsageReporter); ok {
			rows = append(rows, r.Usage()...)
		}
	}

	return rows
}

type violationCounter interface {
	Violations() uint64
}

// Violations sums the invariant violations detected by the installed
// policies.
func (m *Manager) Violations() uint64 {
	var n uint64

	for _, p := range m.policies {
		if c, ok := p.(violationCounter); ok {
			n += c.Violations()
		}
	}

	return n
}

var (
	_ Policy        = (*Manager)(nil)
	_ UsageReporter = (*Manager)(nil)
	_ Hookable      = (*Manager)(nil)
)
