package partitioning

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the concrete policy described by a PolicySpec.
type Kind int

const (
	KindNone Kind = iota
	KindWay
	KindMaxCapacity
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindWay:
		return "way"
	case KindMaxCapacity:
		return "max_capacity"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts the textual name of a policy kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return KindNone, nil
	case "way":
		return KindWay, nil
	case "max_capacity", "maxcapacity":
		return KindMaxCapacity, nil
	default:
		return KindNone, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// WayAllocation gives a partition a set of ways. Ways may be shared with
// other partitions.
type WayAllocation struct {
	Partition PartitionID
	Ways      []int
}

// WaySpec holds the configuration of a WayPolicy.
type WaySpec struct {
	Name        string
	Allocations []WayAllocation

	// AllowUnconfigured lets partitions without an allocation use every way.
	// By default they cannot use any way.
	AllowUnconfigured bool
}

// Validate checks the allocations against the associativity of the cache.
func (s WaySpec) Validate(associativity int) error {
	name := s.nameOrDefault()

	if associativity <= 0 {
		return geometryError(name,
			fmt.Sprintf("associativity must be > 0, got %d", associativity))
	}

	seen := make(map[PartitionID]bool, len(s.Allocations))
	for _, a := range s.Allocations {
		if seen[a.Partition] {
			return partitionError(name, a.Partition, ErrDuplicatePartition,
				"configured more than once")
		}

		seen[a.Partition] = true

		for _, w := range a.Ways {
			if w < 0 || w >= associativity {
				return partitionError(name, a.Partition, ErrWayOutOfRange,
					"way %d, associativity %d", w, associativity)
			}
		}
	}

	return nil
}

func (s WaySpec) nameOrDefault() string {
	if s.Name == "" {
		return "WayPolicy"
	}

	return s.Name
}

// CapacityAllocation limits a partition to a fraction of the cache blocks.
type CapacityAllocation struct {
	Partition PartitionID
	Capacity  float64
}

// MaxCapacitySpec holds the configuration of a MaxCapacityPolicy. The sum of
// the capacities may exceed 1.
type MaxCapacitySpec struct {
	Name        string
	Allocations []CapacityAllocation
}

// Validate checks that every capacity is in [0, 1] and that no partition is
// configured twice.
func (s MaxCapacitySpec) Validate() error {
	name := s.nameOrDefault()

	seen := make(map[PartitionID]bool, len(s.Allocations))
	for _, a := range s.Allocations {
		if seen[a.Partition] {
			return partitionError(name, a.Partition, ErrDuplicatePartition,
				"configured more than once")
		}

		seen[a.Partition] = true

		if math.IsNaN(a.Capacity) || a.Capacity < 0 || a.Capacity > 1 {
			return partitionError(name, a.Partition, ErrCapacityOutOfRange,
				"capacity %v", a.Capacity)
		}
	}

	return nil
}

func (s MaxCapacitySpec) nameOrDefault() string {
	if s.Name == "" {
		return "MaxCapacityPolicy"
	}

	return s.Name
}

// PolicySpec describes one policy to install. Only the field that matches
// Kind is used.
type PolicySpec struct {
	Kind        Kind
	Way         WaySpec
	MaxCapacity MaxCapacitySpec
}

// quota returns floor(capacity * totalBlocks).
func quota(capacity float64, totalBlocks uint64) uint64 {
	return uint64(math.Floor(capacity * float64(totalBlocks)))
}
