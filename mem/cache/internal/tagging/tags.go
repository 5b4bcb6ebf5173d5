package tagging

import (
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
)

// A TagArray keeps track of which block is stored in which way.
type TagArray interface {
	Lookup(reqAddr uint64) (Block, bool)
	Update(block Block)
	Visit(block Block)
	GetSet(reqAddr uint64) (set *Set, setID int)
	Lock(setID, wayID int)
	Unlock(setID, wayID int)
	NumSets() int
	NumWays() int
	Reset()
}

// NewTagArray creates a tag array with all blocks invalid.
func NewTagArray(
	numSets int,
	numWays int,
	blockSize int,
) TagArray {
	t := &tagArrayImpl{
		numSets:   numSets,
		numWays:   numWays,
		blockSize: blockSize,
		Sets:      []Set{},
	}

	t.Reset()

	return t
}

// A Block of a cache is the information that is associated with a cache line
type Block struct {
	Partition partitioning.PartitionID
	Tag       uint64
	WayID     int
	SetID     int
	IsValid   bool
	IsLocked  bool
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks   []Block
	LRUQueue []int
}

// Ways returns the indices of all the ways of the set.
func (s *Set) Ways() []int {
	ways := make([]int, len(s.Blocks))
	for i := range s.Blocks {
		ways[i] = i
	}

	return ways
}

type tagArrayImpl struct {
	numSets   int
	numWays   int
	blockSize int
	Sets      []Set
}

func (d *tagArrayImpl) NumSets() int {
	return d.numSets
}

func (d *tagArrayImpl) NumWays() int {
	return d.numWays
}

// GetSet returns the set that a certain address should store at
func (d *tagArrayImpl) GetSet(reqAddr uint64) (set *Set, setID int) {
	setID = int(reqAddr / uint64(d.blockSize) % uint64(d.numSets))
	set = &d.Sets[setID]

	return
}

// Lookup finds the block that holds the block-aligned reqAddr, regardless of
// the partition that brought it in.
func (d *tagArrayImpl) Lookup(reqAddr uint64) (Block, bool) {
	set, _ := d.GetSet(reqAddr)
	for _, block := range set.Blocks {
		if block.IsValid && block.Tag == reqAddr {
			return block, true
		}
	}

	return Block{}, false
}

// Update updates the block information
func (d *tagArrayImpl) Update(block Block) {
	d.Sets[block.SetID].Blocks[block.WayID] = block
}

// Visit moves the block to the end of the LRUQueue
func (d *tagArrayImpl) Visit(block Block) {
	set := &d.Sets[block.SetID]
	newLRUQueue := make([]int, 0, len(set.LRUQueue))

	for _, b := range set.LRUQueue {
		if b != block.WayID {
			newLRUQueue = append(newLRUQueue, b)
		}
	}

	newLRUQueue = append(newLRUQueue, block.WayID)

	set.LRUQueue = newLRUQueue
}

// Reset will mark all the blocks in the directory invalid
func (d *tagArrayImpl) Reset() {
	d.Sets = make([]Set, d.numSets)
	for i := 0; i < d.numSets; i++ {
		for j := 0; j < d.numWays; j++ {
			block := Block{
				IsValid: false,
				SetID:   i,
				WayID:   j,
			}

			d.Sets[i].Blocks = append(d.Sets[i].Blocks, block)
			d.Sets[i].LRUQueue = append(d.Sets[i].LRUQueue, j)
		}
	}
}

func (d *tagArrayImpl) Lock(setID, wayID int) {
	d.Sets[setID].Blocks[wayID].IsLocked = true
}

func (d *tagArrayImpl) Unlock(setID, wayID int) {
	d.Sets[setID].Blocks[wayID].IsLocked = false
}
