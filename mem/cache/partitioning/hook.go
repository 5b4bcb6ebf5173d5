package partitioning

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookPosAllocate triggers after a policy records an allocation.
var HookPosAllocate = &HookPos{Name: "Allocate"}

// HookPosEvict triggers after a policy records an eviction.
var HookPosEvict = &HookPos{Name: "Evict"}

// HookPosViolation triggers when a policy detects an invariant violation. The
// Detail of the HookCtx is the *InvariantViolation.
var HookPosViolation = &HookPos{Name: "Violation"}

// HookPosStarve triggers when a fill finds no eligible way. It is raised by
// the cache, not by policies.
var HookPosStarve = &HookPos{Name: "Starve"}

// Event describes what happened to a partition.
type Event struct {
	Policy    string
	Partition PartitionID
	Way       int

	// Usage is the number of blocks the policy attributes to the partition
	// after the event.
	Usage uint64
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   Event
	Detail any
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook. Hooks must be registered before the cache
	// starts serving accesses.
	AcceptHook(hook Hook)
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx HookCtx)

// Func calls f(ctx).
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	hooks []Hook
}

// NewHookableBase creates a HookableBase object.
func NewHookableBase() *HookableBase {
	return &HookableBase{hooks: make([]Hook, 0)}
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook triggers the registered hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
