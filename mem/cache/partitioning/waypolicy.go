package partitioning

import "sort"

// A WayPolicy restricts each partition to a fixed set of ways.
type WayPolicy struct {
	policyBase

	associativity     int
	allowUnconfigured bool
	allowed           map[PartitionID][]bool
	usage             *UsageTable
}

// FilterCandidates returns the ways in ways that are allocated to the
// partition. Unconfigured partitions get no way unless AllowUnconfigured is
// set.
func (p *WayPolicy) FilterCandidates(id PartitionID, ways []int) []int {
	allowed, ok := p.allowed[id]
	if !ok {
		if p.allowUnconfigured {
			return copyWays(ways)
		}

		return []int{}
	}

	eligible := make([]int, 0, len(ways))
	for _, w := range ways {
		if p.isAllowed(allowed, w) {
			eligible = append(eligible, w)
		}
	}

	return eligible
}

func (p *WayPolicy) isAllowed(allowed []bool, way int) bool {
	return way >= 0 && way < len(allowed) && allowed[way]
}

// NotifyAllocate counts the block for diagnostics.
func (p *WayPolicy) NotifyAllocate(id PartitionID, way int) {
	allowed, ok := p.allowed[id]

	approved := p.isAllowed(allowed, way) || (!ok && p.allowUnconfigured)
	if !approved {
		p.violate(p, ViolationUnapprovedAllocation, id, way, p.usage.Get(id))
	}

	p.usage.Increment(id)

	p.notify(p, HookPosAllocate, Event{
		Policy:    p.name,
		Partition: id,
		Way:       way,
		Usage:     p.usage.Get(id),
	})
}

// NotifyEvict uncounts the block.
func (p *WayPolicy) NotifyEvict(id PartitionID, way int) {
	if !p.usage.Decrement(id) {
		p.violate(p, ViolationUnderflow, id, way, 0)
		return
	}

	p.notify(p, HookPosEvict, Event{
		Policy:    p.name,
		Partition: id,
		Way:       way,
		Usage:     p.usage.Get(id),
	})
}

// Associativity returns the number of ways per set the policy is built for.
func (p *WayPolicy) Associativity() int {
	return p.associativity
}

// ConfiguredWays returns the ways allocated to the partition in ascending
// order. It returns false if the partition is not configured.
func (p *WayPolicy) ConfiguredWays(id PartitionID) ([]int, bool) {
	allowed, ok := p.allowed[id]
	if !ok {
		return nil, false
	}

	ways := make([]int, 0, len(allowed))
	for w, a := range allowed {
		if a {
			ways = append(ways, w)
		}
	}

	return ways, true
}

// Partitions returns the configured partitions in ascending order.
func (p *WayPolicy) Partitions() []PartitionID {
	ids := make([]PartitionID, 0, len(p.allowed))
	for id := range p.allowed {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Usage returns the number of blocks held by each known partition.
func (p *WayPolicy) Usage() []PartitionUsage {
	rows := make([]PartitionUsage, 0, len(p.allowed))
	for _, id := range mergeIDs(p.Partitions(), p.usage.Partitions()) {
		blocks, _ := p.usage.Lookup(id)
		ways, _ := p.ConfiguredWays(id)

		rows = append(rows, PartitionUsage{
			Policy:    p.name,
			Partition: id,
			Blocks:    blocks,
			Ways:      ways,
		})
	}

	return rows
}

// Blocks returns the number of blocks the policy attributes to the
// partition.
func (p *WayPolicy) Blocks(id PartitionID) uint64 {
	blocks, _ := p.usage.Lookup(id)
	return blocks
}

func mergeIDs(a, b []PartitionID) []PartitionID {
	seen := make(map[PartitionID]bool, len(a)+len(b))
	merged := make([]PartitionID, 0, len(a)+len(b))

	for _, ids := range [][]PartitionID{a, b} {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				merged = append(merged, id)
			}
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })

	return merged
}

var (
	_ Policy        = (*WayPolicy)(nil)
	_ UsageReporter = (*WayPolicy)(nil)
	_ Hookable      = (*WayPolicy)(nil)
)
