// Package prom exports partitioning events as Prometheus metrics.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/cachepart/mem/cache"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
)

// Adapter is a partitioning hook that exports Prometheus counters and
// gauges. Safe for concurrent use; all Prometheus metric types are
// goroutine-safe.
type Adapter struct {
	accesses    *prometheus.CounterVec
	allocations *prometheus.CounterVec
	evictions   *prometheus.CounterVec
	violations  *prometheus.CounterVec
	starvations *prometheus.CounterVec
	usage       *prometheus.GaugeVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(
	reg prometheus.Registerer,
	ns, sub string,
	constLabels prometheus.Labels,
) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        name,
				Help:        help,
				ConstLabels: constLabels,
			},
			labels,
		)
	}

	a := &Adapter{
		accesses: counter("accesses_total",
			"Cache accesses by result", "cache", "partition", "result"),
		allocations: counter("allocations_total",
			"Blocks allocated to partitions", "policy", "partition"),
		evictions: counter("evictions_total",
			"Blocks released by partitions", "policy", "partition"),
		violations: counter("violations_total",
			"Accounting invariant violations by kind",
			"policy", "partition", "kind"),
		starvations: counter("starvations_total",
			"Fills that found no eligible way", "cache", "partition"),
		usage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "usage_blocks",
				Help:        "Blocks a policy attributes to a partition",
				ConstLabels: constLabels,
			},
			[]string{"policy", "partition"},
		),
	}

	reg.MustRegister(
		a.accesses,
		a.allocations,
		a.evictions,
		a.violations,
		a.starvations,
		a.usage,
	)

	return a
}

// Func updates the metrics according to the event carried by ctx.
func (a *Adapter) Func(ctx partitioning.HookCtx) {
	item := ctx.Item
	partition := partitionLabel(item.Partition)

	switch ctx.Pos {
	case partitioning.HookPosAllocate:
		a.allocations.WithLabelValues(item.Policy, partition).Inc()
		a.usage.WithLabelValues(item.Policy, partition).Set(float64(item.Usage))
	case partitioning.HookPosEvict:
		a.evictions.WithLabelValues(item.Policy, partition).Inc()
		a.usage.WithLabelValues(item.Policy, partition).Set(float64(item.Usage))
	case partitioning.HookPosViolation:
		a.violations.WithLabelValues(
			item.Policy, partition, violationKind(ctx.Detail)).Inc()
	case partitioning.HookPosStarve:
		a.starvations.WithLabelValues(domainName(ctx.Domain), partition).Inc()
	}
}

// ObserveAccess counts an access served by the named cache.
func (a *Adapter) ObserveAccess(
	cacheName string,
	id partitioning.PartitionID,
	result cache.AccessResult,
) {
	a.accesses.WithLabelValues(cacheName, partitionLabel(id), result.String()).
		Inc()
}

func partitionLabel(id partitioning.PartitionID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func violationKind(detail any) string {
	if v, ok := detail.(*partitioning.InvariantViolation); ok {
		return v.Kind.String()
	}

	return "unknown"
}

func domainName(domain partitioning.Hookable) string {
	if n, ok := domain.(interface{ Name() string }); ok {
		return n.Name()
	}

	return ""
}

// Compile-time check: ensure Adapter implements partitioning.Hook.
var _ partitioning.Hook = (*Adapter)(nil)
