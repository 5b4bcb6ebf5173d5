package tagging

import (
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
)

// A VictimFinder decides which block should be evicted.
type VictimFinder interface {
	// FindVictim chooses among the ways listed in candidates.
	FindVictim(set *Set, candidates []int) (Block, bool)

	// FindOwnedVictim chooses among the blocks held by the partition.
	FindOwnedVictim(set *Set, id partitioning.PartitionID) (Block, bool)
}

// LRUVictimFinder evicts the least recently used block to evict
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the least recently used candidate block in a set. Empty
// blocks are preferred.
func (e *LRUVictimFinder) FindVictim(set *Set, candidates []int) (Block, bool) {
	eligible := make([]bool, len(set.Blocks))
	for _, w := range candidates {
		if w >= 0 && w < len(eligible) {
			eligible[w] = true
		}
	}

	for _, wayID := range set.LRUQueue {
		block := set.Blocks[wayID]

		if eligible[wayID] && !block.IsValid && !block.IsLocked {
			return block, true
		}
	}

	for _, wayID := range set.LRUQueue {
		block := set.Blocks[wayID]
		if eligible[wayID] && !block.IsLocked {
			return block, true
		}
	}

	return Block{}, false
}

// FindOwnedVictim returns the least recently used valid block of the set
// that belongs to the partition.
func (e *LRUVictimFinder) FindOwnedVictim(
	set *Set,
	id partitioning.PartitionID,
) (Block, bool) {
	for _, wayID := range set.LRUQueue {
		block := set.Blocks[wayID]
		if block.IsValid && !block.IsLocked && block.Partition == id {
			return block, true
		}
	}

	return Block{}, false
}
