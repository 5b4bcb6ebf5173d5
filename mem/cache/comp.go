// Package cache provides a functional set-associative cache that shares its
// ways among partitions.
//
// The cache only tracks which block is stored where. It does not store data
// and does not model timing. Every fill is approved by a
// partitioning.Policy.
package cache

import (
	"fmt"

	"github.com/sarchlab/cachepart/mem/cache/internal/tagging"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
)

// AccessResult tells how an access has been served.
type AccessResult int

const (
	// Hit means the block was already in the cache.
	Hit AccessResult = iota

	// MissFilled means the block has been brought into the cache.
	MissFilled

	// MissStarved means the partition could not use any way of the set and
	// the block has not been cached.
	MissStarved
)

func (r AccessResult) String() string {
	switch r {
	case Hit:
		return "hit"
	case MissFilled:
		return "miss"
	case MissStarved:
		return "starved"
	default:
		return fmt.Sprintf("AccessResult(%d)", int(r))
	}
}

// PartitionStats counts how the accesses of a partition have been served.
type PartitionStats struct {
	Hits             uint64
	Misses           uint64
	Starved          uint64
	SelfReplacements uint64
}

// A Comp implements a cache.
type Comp struct {
	*partitioning.HookableBase

	name          string
	log2BlockSize int

	tags         tagging.TagArray
	victimFinder tagging.VictimFinder
	policy       partitioning.Policy
	stats        map[partitioning.PartitionID]*PartitionStats
}

// Name returns the name of the cache.
func (c *Comp) Name() string {
	return c.name
}

// Policy returns the partitioning policy installed in the cache.
func (c *Comp) Policy() partitioning.Policy {
	return c.policy
}

// NumSets returns the number of sets.
func (c *Comp) NumSets() int {
	return c.tags.NumSets()
}

// NumWays returns the associativity.
func (c *Comp) NumWays() int {
	return c.tags.NumWays()
}

// BlockSize returns the size of a block in bytes.
func (c *Comp) BlockSize() uint64 {
	return 1 << c.log2BlockSize
}

// Invalidate removes the block that holds addr. It returns false if the
// block is not cached or is pinned.
func (c *Comp) Invalidate(addr uint64) bool {
	block, ok := c.tags.Lookup(c.alignAddrToBlock(addr))
	if !ok || block.IsLocked {
		return false
	}

	c.evict(block)

	return true
}

// Pin prevents the block that holds addr from being evicted.
func (c *Comp) Pin(addr uint64) bool {
	block, ok := c.tags.Lookup(c.alignAddrToBlock(addr))
	if !ok {
		return false
	}

	c.tags.Lock(block.SetID, block.WayID)

	return true
}

// Unpin lets the block that holds addr be evicted again.
func (c *Comp) Unpin(addr uint64) bool {
	block, ok := c.tags.Lookup(c.alignAddrToBlock(addr))
	if !ok {
		return false
	}

	c.tags.Unlock(block.SetID, block.WayID)

	return true
}

// Reset empties the cache, reporting every eviction to the policy.
func (c *Comp) Reset() {
	c.forEachBlock(func(b tagging.Block) {
		if b.IsValid {
			c.policy.NotifyEvict(b.Partition, b.WayID)
		}
	})

	c.tags.Reset()
}

// Occupancy counts the valid blocks of each partition.
func (c *Comp) Occupancy() map[partitioning.PartitionID]int {
	occupancy := make(map[partitioning.PartitionID]int)

	c.forEachBlock(func(b tagging.Block) {
		if b.IsValid {
			occupancy[b.Partition]++
		}
	})

	return occupancy
}

// Stats returns a copy of the access statistics of each partition.
func (c *Comp) Stats() map[partitioning.PartitionID]PartitionStats {
	stats := make(map[partitioning.PartitionID]PartitionStats, len(c.stats))
	for id, s := range c.stats {
		stats[id] = *s
	}

	return stats
}

func (c *Comp) statsOf(id partitioning.PartitionID) *PartitionStats {
	s, ok := c.stats[id]
	if !ok {
		s = &PartitionStats{}
		c.stats[id] = s
	}

	return s
}

func (c *Comp) forEachBlock(f func(b tagging.Block)) {
	for setID := 0; setID < c.tags.NumSets(); setID++ {
		set, _ := c.tags.GetSet(uint64(setID) << c.log2BlockSize)
		for _, b := range set.Blocks {
			f(b)
		}
	}
}

func (c *Comp) evict(block tagging.Block) {
	c.policy.NotifyEvict(block.Partition, block.WayID)

	block.IsValid = false
	c.tags.Update(block)
}

func (c *Comp) alignAddrToBlock(addr uint64) uint64 {
	return addr & ^((uint64(1) << c.log2BlockSize) - 1)
}

var _ partitioning.Hookable = (*Comp)(nil)
