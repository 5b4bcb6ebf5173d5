package partitioning

// PartitionID names a logical owner of cache capacity. IDs do not need to be
// contiguous.
type PartitionID uint64

// Policy is the contract between a cache and a partitioning policy.
type Policy interface {
	// Name returns the name of the policy instance.
	Name() string

	// FilterCandidates returns the subset of ways that the partition may
	// allocate into. The order of ways is preserved. It never changes the
	// policy state.
	FilterCandidates(id PartitionID, ways []int) []int

	// NotifyAllocate records that a block in way has been committed to the
	// partition. The way must have been returned by FilterCandidates.
	NotifyAllocate(id PartitionID, way int)

	// NotifyEvict records that a block in way has been released by the
	// partition.
	NotifyEvict(id PartitionID, way int)
}

// PartitionUsage is a snapshot of what a policy knows about a partition.
type PartitionUsage struct {
	Policy    string      `json:"policy"`
	Partition PartitionID `json:"partition"`
	Blocks    uint64      `json:"blocks"`
	Quota     uint64      `json:"quota"`
	HasQuota  bool        `json:"has_quota"`
	Ways      []int       `json:"ways,omitempty"`
}

// A UsageReporter can list the live usage of the partitions it tracks.
type UsageReporter interface {
	Usage() []PartitionUsage
}

// NoPolicy is used when no partitioning is installed. Every way is eligible
// for every partition.
type NoPolicy struct{}

// Name returns "NoPolicy".
func (NoPolicy) Name() string { return "NoPolicy" }

// FilterCandidates returns a copy of ways.
func (NoPolicy) FilterCandidates(_ PartitionID, ways []int) []int {
	return copyWays(ways)
}

// NotifyAllocate does nothing.
func (NoPolicy) NotifyAllocate(PartitionID, int) {}

// NotifyEvict does nothing.
func (NoPolicy) NotifyEvict(PartitionID, int) {}

func copyWays(ways []int) []int {
	eligible := make([]int, len(ways))
	copy(eligible, ways)

	return eligible
}

var _ Policy = NoPolicy{}
