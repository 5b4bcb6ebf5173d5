package cache

import (
	"github.com/sarchlab/cachepart/mem/cache/internal/tagging"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
)

// Access serves an access of the partition to addr. On a miss, the block is
// filled into a way approved by the partitioning policy.
func (c *Comp) Access(id partitioning.PartitionID, addr uint64) AccessResult {
	alignedAddr := c.alignAddrToBlock(addr)

	block, ok := c.tags.Lookup(alignedAddr)
	if ok {
		return c.handleHit(id, block)
	}

	return c.handleMiss(id, alignedAddr)
}

func (c *Comp) handleHit(
	id partitioning.PartitionID,
	block tagging.Block,
) AccessResult {
	c.statsOf(id).Hits++
	c.tags.Visit(block)

	return Hit
}

func (c *Comp) handleMiss(
	id partitioning.PartitionID,
	alignedAddr uint64,
) AccessResult {
	stats := c.statsOf(id)
	stats.Misses++

	set, _ := c.tags.GetSet(alignedAddr)

	candidates := c.policy.FilterCandidates(id, set.Ways())
	if len(candidates) == 0 {
		candidates = c.replaceOwnBlock(id, set)
	}

	victim, ok := c.victimFinder.FindVictim(set, candidates)
	if !ok {
		stats.Starved++
		c.traceStarve(id, alignedAddr)

		return MissStarved
	}

	if victim.IsValid {
		c.policy.NotifyEvict(victim.Partition, victim.WayID)
	}

	victim.Partition = id
	victim.Tag = alignedAddr
	victim.IsValid = true

	c.tags.Update(victim)
	c.tags.Visit(victim)
	c.policy.NotifyAllocate(id, victim.WayID)

	return MissFilled
}

// replaceOwnBlock frees the oldest block of the partition in the set so that
// a partition at its limit can still make progress, and asks the policy
// again.
func (c *Comp) replaceOwnBlock(
	id partitioning.PartitionID,
	set *tagging.Set,
) []int {
	own, ok := c.victimFinder.FindOwnedVictim(set, id)
	if !ok {
		return nil
	}

	c.evict(own)
	c.statsOf(id).SelfReplacements++

	return c.policy.FilterCandidates(id, set.Ways())
}
