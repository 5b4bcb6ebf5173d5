package partitioning

import (
	"github.com/sirupsen/logrus"
)

// policyBase holds what the concrete policies share: the name, the hooks and
// the handling of invariant violations.
type policyBase struct {
	*HookableBase

	name       string
	strict     bool
	logger     *logrus.Logger
	violations uint64
}

func newPolicyBase(name string, strict bool, logger *logrus.Logger) policyBase {
	return policyBase{
		HookableBase: NewHookableBase(),
		name:         name,
		strict:       strict,
		logger:       logger,
	}
}

// Name returns the name of the policy.
func (b *policyBase) Name() string {
	return b.name
}

// Violations returns the number of invariant violations detected so far. A
// non-zero value means that the usage counters cannot be trusted.
func (b *policyBase) Violations() uint64 {
	return b.violations
}

func (b *policyBase) notify(domain Hookable, pos *HookPos, item Event) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{
		Domain: domain,
		Pos:    pos,
		Item:   item,
	})
}

// violate panics in strict mode. Otherwise, it logs the violation and lets
// the caller clamp the state.
func (b *policyBase) violate(
	domain Hookable,
	kind ViolationKind,
	id PartitionID,
	way int,
	usage uint64,
) {
	v := &InvariantViolation{
		Policy:    b.name,
		Partition: id,
		Way:       way,
		Kind:      kind,
	}

	if b.strict {
		panic(v)
	}

	b.violations++

	b.logger.WithFields(logrus.Fields{
		"policy":    b.name,
		"partition": id,
		"way":       way,
		"kind":      kind.String(),
		"usage":     usage,
	}).Error("partition accounting out of sync with cache, usage is suspect")

	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{
		Domain: domain,
		Pos:    HookPosViolation,
		Item: Event{
			Policy:    b.name,
			Partition: id,
			Way:       way,
			Usage:     usage,
		},
		Detail: v,
	})
}
