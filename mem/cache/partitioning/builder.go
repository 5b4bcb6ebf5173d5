package partitioning

import (
	"fmt"

	"github.com/sarchlab/cachepart/internal/logging"
	"github.com/sirupsen/logrus"
)

// Builder creates policies for one cache. The cache geometry is passed
// explicitly by the owner of the cache.
type Builder struct {
	wayAssociativity int
	cacheByteSize    uint64
	blockByteSize    uint64
	strict           bool
	logger           *logrus.Logger
}

// MakeBuilder creates a builder for a 16KB, 4-way cache with 64B blocks.
func MakeBuilder() Builder {
	return Builder{
		wayAssociativity: 4,
		cacheByteSize:    16 * 1024,
		blockByteSize:    64,
	}
}

// WithWayAssociativity sets the number of ways per set.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithCacheByteSize sets the capacity of the cache in bytes.
func (b Builder) WithCacheByteSize(cacheByteSize uint64) Builder {
	b.cacheByteSize = cacheByteSize
	return b
}

// WithBlockByteSize sets the size of a cache block in bytes.
func (b Builder) WithBlockByteSize(blockByteSize uint64) Builder {
	b.blockByteSize = blockByteSize
	return b
}

// WithStrictInvariants makes the policies panic on invariant violations
// instead of logging and clamping.
func (b Builder) WithStrictInvariants(strict bool) Builder {
	b.strict = strict
	return b
}

// WithLogger sets the logger that reports invariant violations.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// TotalBlocks returns the number of blocks of the configured cache.
func (b Builder) TotalBlocks() uint64 {
	if b.blockByteSize == 0 {
		return 0
	}

	return b.cacheByteSize / b.blockByteSize
}

func (b Builder) validateGeometry(policy string) error {
	if b.wayAssociativity <= 0 {
		return geometryError(policy,
			fmt.Sprintf("associativity must be > 0, got %d", b.wayAssociativity))
	}

	if b.blockByteSize == 0 {
		return geometryError(policy, "block size must be > 0")
	}

	if b.cacheByteSize == 0 || b.cacheByteSize%b.blockByteSize != 0 {
		return geometryError(policy, fmt.Sprintf(
			"cache size %d is not a positive multiple of block size %d",
			b.cacheByteSize, b.blockByteSize))
	}

	if b.TotalBlocks()%uint64(b.wayAssociativity) != 0 {
		return geometryError(policy, fmt.Sprintf(
			"%d blocks cannot form %d-way sets",
			b.TotalBlocks(), b.wayAssociativity))
	}

	return nil
}

func (b Builder) loggerOrDefault() *logrus.Logger {
	if b.logger == nil {
		return logging.GetLogger()
	}

	return b.logger
}

// BuildWayPolicy validates the given WaySpec and creates a WayPolicy.
func (b Builder) BuildWayPolicy(spec WaySpec) (*WayPolicy, error) {
	name := spec.nameOrDefault()

	if err := b.validateGeometry(name); err != nil {
		return nil, err
	}

	if err := spec.Validate(b.wayAssociativity); err != nil {
		return nil, err
	}

	p := &WayPolicy{
		policyBase:        newPolicyBase(name, b.strict, b.loggerOrDefault()),
		associativity:     b.wayAssociativity,
		allowUnconfigured: spec.AllowUnconfigured,
		allowed:           make(map[PartitionID][]bool, len(spec.Allocations)),
		usage:             NewUsageTable(),
	}

	for _, a := range spec.Allocations {
		allowed := make([]bool, b.wayAssociativity)
		for _, w := range a.Ways {
			allowed[w] = true
		}

		p.allowed[a.Partition] = allowed
	}

	return p, nil
}

// BuildMaxCapacityPolicy validates the given MaxCapacitySpec and creates a
// MaxCapacityPolicy. Quotas are rounded down to whole blocks.
func (b Builder) BuildMaxCapacityPolicy(
	spec MaxCapacitySpec,
) (*MaxCapacityPolicy, error) {
	name := spec.nameOrDefault()

	if err := b.validateGeometry(name); err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	p := &MaxCapacityPolicy{
		policyBase:  newPolicyBase(name, b.strict, b.loggerOrDefault()),
		totalBlocks: b.TotalBlocks(),
		quotas:      make(map[PartitionID]uint64, len(spec.Allocations)),
		usage:       NewUsageTable(),
	}

	for _, a := range spec.Allocations {
		p.quotas[a.Partition] = quota(a.Capacity, p.totalBlocks)
	}

	return p, nil
}

// Build creates a Manager that applies the described policies in order.
// Specs of KindNone are skipped. Nothing is created if any spec is invalid.
//
// Policy names are prefixed with the name of the manager, so that a policy
// named "Way" of manager "L2.Partitioning" is named "L2.Partitioning.Way".
// Policies of different caches can then share hooks and metrics.
func (b Builder) Build(name string, specs ...PolicySpec) (*Manager, error) {
	if err := b.validateGeometry(name); err != nil {
		return nil, err
	}

	policies := make([]Policy, 0, len(specs))

	for _, s := range specs {
		switch s.Kind {
		case KindNone:
			continue
		case KindWay:
			spec := s.Way
			spec.Name = name + "." + spec.nameOrDefault()

			p, err := b.BuildWayPolicy(spec)
			if err != nil {
				return nil, err
			}

			policies = append(policies, p)
		case KindMaxCapacity:
			spec := s.MaxCapacity
			spec.Name = name + "." + spec.nameOrDefault()

			p, err := b.BuildMaxCapacityPolicy(spec)
			if err != nil {
				return nil, err
			}

			policies = append(policies, p)
		default:
			return nil, fmt.Errorf("%s: %w: %v", name, ErrUnknownKind, s.Kind)
		}
	}

	return NewManager(name, policies...), nil
}
