package cache

import (
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
)

func (c *Comp) traceStarve(id partitioning.PartitionID, addr uint64) {
	if c.NumHooks() == 0 {
		return
	}

	ctx := partitioning.HookCtx{
		Domain: c,
		Pos:    partitioning.HookPosStarve,
		Item: partitioning.Event{
			Policy:    c.policy.Name(),
			Partition: id,
			Way:       -1,
		},
		Detail: addr,
	}

	c.InvokeHook(ctx)
}
