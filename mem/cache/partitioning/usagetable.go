package partitioning

import "sort"

// A UsageTable counts the blocks attributed to each partition. Counters never
// go below zero.
type UsageTable struct {
	counts map[PartitionID]uint64
}

// NewUsageTable creates an empty UsageTable.
func NewUsageTable() *UsageTable {
	return &UsageTable{counts: make(map[PartitionID]uint64)}
}

// Get returns the counter of the partition. Unseen partitions are registered
// with a zero counter.
func (t *UsageTable) Get(id PartitionID) uint64 {
	count, ok := t.counts[id]
	if !ok {
		t.counts[id] = 0
	}

	return count
}

// Lookup returns the counter of the partition without registering it.
func (t *UsageTable) Lookup(id PartitionID) (count uint64, registered bool) {
	count, registered = t.counts[id]
	return count, registered
}

// Increment adds one to the counter of the partition.
func (t *UsageTable) Increment(id PartitionID) {
	t.counts[id]++
}

// Decrement subtracts one from the counter of the partition. If the counter
// is already zero, it stays at zero and Decrement returns false.
func (t *UsageTable) Decrement(id PartitionID) bool {
	count := t.counts[id]
	if count == 0 {
		t.counts[id] = 0
		return false
	}

	t.counts[id] = count - 1

	return true
}

// Partitions returns the registered partitions in ascending order.
func (t *UsageTable) Partitions() []PartitionID {
	ids := make([]PartitionID, 0, len(t.counts))
	for id := range t.counts {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}
