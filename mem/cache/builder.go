package cache

import (
	"github.com/sarchlab/cachepart/mem/cache/internal/tagging"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
	"github.com/sirupsen/logrus"
)

// Builder can build caches.
type Builder struct {
	log2BlockSize    int
	wayAssociativity int
	byteSize         uint64
	replaceStrategy  string
	strict           bool
	logger           *logrus.Logger

	policy       partitioning.Policy
	policySpecs  []partitioning.PolicySpec
	synchronized bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		log2BlockSize:    6,
		wayAssociativity: 4,
		byteSize:         16 * 1024,
		replaceStrategy:  "lru",
	}
}

// WithLog2BlockSize sets the log2 of the cache line size of the builder.
func (b Builder) WithLog2BlockSize(log2BlockSize int) Builder {
	b.log2BlockSize = log2BlockSize
	return b
}

// WithWayAssociativity sets the way associativity of the builder.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithByteSize sets the capacity of the cache.
func (b Builder) WithByteSize(byteSize uint64) Builder {
	b.byteSize = byteSize
	return b
}

// WithReplaceStrategy sets how victims are chosen among the eligible ways.
// Only "lru" is supported.
func (b Builder) WithReplaceStrategy(replaceStrategy string) Builder {
	b.replaceStrategy = replaceStrategy
	return b
}

// WithPartitioningPolicy installs an already built policy. It takes
// precedence over WithPartitioningSpecs.
func (b Builder) WithPartitioningPolicy(policy partitioning.Policy) Builder {
	b.policy = policy
	return b
}

// WithPartitioningSpecs lets the builder create the policies from their
// specs, using the geometry of the cache.
func (b Builder) WithPartitioningSpecs(
	specs ...partitioning.PolicySpec,
) Builder {
	b.policySpecs = specs
	return b
}

// WithStrictInvariants makes policies created from specs panic on invariant
// violations.
func (b Builder) WithStrictInvariants(strict bool) Builder {
	b.strict = strict
	return b
}

// WithLogger sets the logger of the policies created from specs.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// WithSynchronizedPolicy guards the policy with a mutex so that its usage
// can be read while the cache runs.
func (b Builder) WithSynchronizedPolicy(synchronized bool) Builder {
	b.synchronized = synchronized
	return b
}

// PartitioningBuilder returns a policy builder that matches the geometry of
// the cache.
func (b Builder) PartitioningBuilder() partitioning.Builder {
	return partitioning.MakeBuilder().
		WithWayAssociativity(b.wayAssociativity).
		WithCacheByteSize(b.byteSize).
		WithBlockByteSize(uint64(1) << b.log2BlockSize).
		WithStrictInvariants(b.strict).
		WithLogger(b.logger)
}

// Build builds a cache. Invalid partitioning specs are reported as errors.
func (b Builder) Build(name string) (*Comp, error) {
	blockSize := 1 << b.log2BlockSize
	numWays := b.wayAssociativity
	b.mustBeFullSets(b.byteSize, blockSize, numWays)
	setSize := uint64(blockSize * numWays)
	numSets := int(b.byteSize / setSize)

	policy, err := b.createPolicy(name)
	if err != nil {
		return nil, err
	}

	comp := &Comp{
		HookableBase:  partitioning.NewHookableBase(),
		name:          name,
		log2BlockSize: b.log2BlockSize,
		tags:          tagging.NewTagArray(numSets, numWays, blockSize),
		victimFinder:  b.createVictimFinder(),
		policy:        policy,
		stats:         make(map[partitioning.PartitionID]*PartitionStats),
	}

	return comp, nil
}

func (b Builder) createPolicy(name string) (partitioning.Policy, error) {
	var policy partitioning.Policy

	switch {
	case b.policy != nil:
		policy = b.policy
	case len(b.policySpecs) > 0:
		m, err := b.PartitioningBuilder().Build(name+".Partitioning", b.policySpecs...)
		if err != nil {
			return nil, err
		}

		policy = m
	default:
		policy = partitioning.NoPolicy{}
	}

	if b.synchronized {
		if _, ok := policy.(*partitioning.SynchronizedPolicy); !ok {
			policy = partitioning.NewSynchronizedPolicy(policy)
		}
	}

	return policy, nil
}

func (b Builder) createVictimFinder() tagging.VictimFinder {
	var victimFinder tagging.VictimFinder

	switch b.replaceStrategy {
	case "lru":
		victimFinder = tagging.NewLRUVictimFinder()
	default:
		panic("unknown replace strategy: " + b.replaceStrategy)
	}

	return victimFinder
}

func (b Builder) mustBeFullSets(cacheByteSize uint64, blockSize, numWays int) {
	if numWays <= 0 || blockSize <= 0 {
		panic("cache must have at least one way and a positive block size")
	}

	setSize := uint64(blockSize * numWays)
	if cacheByteSize == 0 || cacheByteSize%setSize != 0 {
		panic("cache must have a integer number of sets")
	}
}
