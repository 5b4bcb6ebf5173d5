// Package trace records partitioning events into a database.
package trace

import (
	"sync"

	"github.com/rs/xid"
	"github.com/sarchlab/cachepart/datarecording"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
)

// EventTable is the table that holds allocations, evictions and starved
// fills.
const EventTable = "partition_events"

// ViolationTable is the table that holds invariant violations.
const ViolationTable = "partition_violations"

type eventEntry struct {
	ID          string
	Seq         uint64
	Location    string
	What        string
	Policy      string
	PartitionID uint64
	Way         int
	Usage       uint64
	Address     uint64
}

type violationEntry struct {
	ID          string
	Seq         uint64
	Location    string
	Policy      string
	PartitionID uint64
	Way         int
	Kind        string
}

type named interface {
	Name() string
}

// A DBTracer is a hook that records the events of policies and caches into
// a database using the data recorder. Events are numbered in the order they
// are received. A DBTracer can be shared by caches that run in parallel.
type DBTracer struct {
	sync.Mutex

	dataRecorder datarecording.DataRecorder
	seq          uint64
}

// NewDBTracer creates a tracer and the tables it writes to.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(EventTable, eventEntry{})
	t.dataRecorder.CreateTable(ViolationTable, violationEntry{})

	return t
}

// Flush writes the buffered events into the database.
func (t *DBTracer) Flush() {
	t.Lock()
	defer t.Unlock()

	t.dataRecorder.Flush()
}

// Func records the event carried by ctx.
func (t *DBTracer) Func(ctx partitioning.HookCtx) {
	t.Lock()
	defer t.Unlock()

	t.seq++

	switch ctx.Pos {
	case partitioning.HookPosAllocate,
		partitioning.HookPosEvict,
		partitioning.HookPosStarve:
		t.recordEvent(ctx)
	case partitioning.HookPosViolation:
		t.recordViolation(ctx)
	}
}

// NumEvents returns the number of hook invocations received.
func (t *DBTracer) NumEvents() uint64 {
	t.Lock()
	defer t.Unlock()

	return t.seq
}

func (t *DBTracer) recordEvent(ctx partitioning.HookCtx) {
	entry := eventEntry{
		ID:          xid.New().String(),
		Seq:         t.seq,
		Location:    location(ctx.Domain),
		What:        ctx.Pos.Name,
		Policy:      ctx.Item.Policy,
		PartitionID: uint64(ctx.Item.Partition),
		Way:         ctx.Item.Way,
		Usage:       ctx.Item.Usage,
	}

	if addr, ok := ctx.Detail.(uint64); ok {
		entry.Address = addr
	}

	t.dataRecorder.InsertData(EventTable, entry)
}

func (t *DBTracer) recordViolation(ctx partitioning.HookCtx) {
	entry := violationEntry{
		ID:          xid.New().String(),
		Seq:         t.seq,
		Location:    location(ctx.Domain),
		Policy:      ctx.Item.Policy,
		PartitionID: uint64(ctx.Item.Partition),
		Way:         ctx.Item.Way,
	}

	if v, ok := ctx.Detail.(*partitioning.InvariantViolation); ok {
		entry.Kind = v.Kind.String()
	}

	t.dataRecorder.InsertData(ViolationTable, entry)
}

func location(domain partitioning.Hookable) string {
	if n, ok := domain.(named); ok {
		return n.Name()
	}

	return ""
}
