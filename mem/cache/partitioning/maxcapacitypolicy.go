package partitioning

import "sort"

// A MaxCapacityPolicy limits the number of blocks each partition may hold,
// regardless of the ways the blocks are stored in. Partitions without an
// allocation are not limited.
type MaxCapacityPolicy struct {
	policyBase

	totalBlocks uint64
	quotas      map[PartitionID]uint64
	usage       *UsageTable
}

// FilterCandidates returns no way if the partition has reached its quota and
// all of ways otherwise.
func (p *MaxCapacityPolicy) FilterCandidates(id PartitionID, ways []int) []int {
	limit, ok := p.quotas[id]
	if !ok {
		return copyWays(ways)
	}

	held, _ := p.usage.Lookup(id)
	if held >= limit {
		return []int{}
	}

	return copyWays(ways)
}

// NotifyAllocate adds one block to the usage of the partition.
func (p *MaxCapacityPolicy) NotifyAllocate(id PartitionID, way int) {
	held := p.usage.Get(id)
	if limit, ok := p.quotas[id]; ok && held >= limit {
		p.violate(p, ViolationUnapprovedAllocation, id, way, held)
	}

	p.usage.Increment(id)

	p.notify(p, HookPosAllocate, Event{
		Policy:    p.name,
		Partition: id,
		Way:       way,
		Usage:     held + 1,
	})
}

// NotifyEvict removes one block from the usage of the partition.
func (p *MaxCapacityPolicy) NotifyEvict(id PartitionID, way int) {
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

// TotalBlocks returns the number of blocks in the cache.
func (p *MaxCapacityPolicy) TotalBlocks() uint64 {
	return p.totalBlocks
}

// Quota returns the maximum number of blocks of the partition. It returns
// false if the partition is not limited.
func (p *MaxCapacityPolicy) Quota(id PartitionID) (uint64, bool) {
	limit, ok := p.quotas[id]
	return limit, ok
}

// Blocks returns the number of blocks held by the partition.
func (p *MaxCapacityPolicy) Blocks(id PartitionID) uint64 {
	held, _ := p.usage.Lookup(id)
	return held
}

// Partitions returns the limited partitions in ascending order.
func (p *MaxCapacityPolicy) Partitions() []PartitionID {
	ids := make([]PartitionID, 0, len(p.quotas))
	for id := range p.quotas {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Usage returns the blocks and the quota of each known partition.
func (p *MaxCapacityPolicy) Usage() []PartitionUsage {
	rows := make([]PartitionUsage, 0, len(p.quotas))
	for _, id := range mergeIDs(p.Partitions(), p.usage.Partitions()) {
		held, _ := p.usage.Lookup(id)
		limit, limited := p.quotas[id]

		rows = append(rows, PartitionUsage{
			Policy:    p.name,
			Partition: id,
			Blocks:    held,
			Quota:     limit,
			HasQuota:  limited,
		})
	}

	return rows
}

var (
	_ Policy        = (*MaxCapacityPolicy)(nil)
	_ UsageReporter = (*MaxCapacityPolicy)(nil)
	_ Hookable      = (*MaxCapacityPolicy)(nil)
)
