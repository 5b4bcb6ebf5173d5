// Package resctrl exports way policies as Intel RDT cache allocation
// classes, so that a partitioning studied in the functional cache can be
// applied to a real last-level cache through resctrl.
package resctrl

import (
	"errors"
	"fmt"

	"github.com/intel/goresctrl/pkg/rdt"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoWays is returned when a partition has no way to export.
	ErrNoWays = errors.New("no ways allocated")

	// ErrNotContiguous is returned when the ways of a partition do not form
	// a contiguous range, which CAT capacity bitmasks require.
	ErrNotContiguous = errors.New("ways are not contiguous")

	// ErrTooManyWays is returned when the ways do not fit in a bitmask.
	ErrTooManyWays = errors.New("way index does not fit in a bitmask")
)

// DefaultCacheID applies an allocation to every cache instance.
const DefaultCacheID = "all"

// ClassName returns the resctrl class name of a partition.
func ClassName(id partitioning.PartitionID) string {
	return fmt.Sprintf("part%d", id)
}

// Mask converts a set of ways into a hexadecimal capacity bitmask.
func Mask(ways []int) (rdt.CacheProportion, error) {
	if len(ways) == 0 {
		return "", ErrNoWays
	}

	var mask uint64

	for _, w := range ways {
		if w < 0 || w >= 64 {
			return "", fmt.Errorf("%w: %d", ErrTooManyWays, w)
		}

		mask |= 1 << w
	}

	if !isContiguousMask(mask) {
		return "", fmt.Errorf("%w: 0x%x", ErrNotContiguous, mask)
	}

	return rdt.CacheProportion(fmt.Sprintf("0x%x", mask)), nil
}

// isContiguousMask checks if a non-zero bitmask has a single run of ones.
func isContiguousMask(mask uint64) bool {
	if mask == 0 {
		return false
	}

	for mask&1 == 0 {
		mask >>= 1
	}

	return mask&(mask+1) == 0
}

// CatConfigs returns the L3 allocation of each configured partition of the
// policy.
func CatConfigs(
	p *partitioning.WayPolicy,
	cacheID string,
) (map[partitioning.PartitionID]rdt.CatConfig, error) {
	configs := make(map[partitioning.PartitionID]rdt.CatConfig)

	for _, id := range p.Partitions() {
		ways, _ := p.ConfiguredWays(id)

		mask, err := Mask(ways)
		if err != nil {
			return nil, fmt.Errorf("%s: partition %d: %w", p.Name(), id, err)
		}

		configs[id] = rdt.CatConfig{
			cacheID: rdt.CacheIdCatConfig{Unified: mask},
		}
	}

	return configs, nil
}

type catEntry struct {
	Unified rdt.CacheProportion `yaml:"unified"`
}

type class struct {
	L3Allocation map[string]catEntry `yaml:"l3Allocation"`
}

type partition struct {
	L3Allocation map[string]catEntry `yaml:"l3Allocation"`
	Classes      map[string]class    `yaml:"classes"`
}

type document struct {
	Partitions map[string]partition `yaml:"partitions"`
}

func toEntries(config rdt.CatConfig) map[string]catEntry {
	entries := make(map[string]catEntry, len(config))
	for cacheID, c := range config {
		entries[cacheID] = catEntry{Unified: c.Unified}
	}

	return entries
}

// MarshalYAML renders the policy as a resctrl configuration with one class
// per partition. The resctrl partition owns all the ways of the cache.
func MarshalYAML(p *partitioning.WayPolicy, cacheID string) ([]byte, error) {
	if cacheID == "" {
		cacheID = DefaultCacheID
	}

	configs, err := CatConfigs(p, cacheID)
	if err != nil {
		return nil, err
	}

	allWays := make([]int, p.Associativity())
	for i := range allWays {
		allWays[i] = i
	}

	full, err := Mask(allWays)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}

	part := partition{
		L3Allocation: toEntries(rdt.CatConfig{
			cacheID: rdt.CacheIdCatConfig{Unified: full},
		}),
		Classes: make(map[string]class, len(configs)),
	}

	for id, config := range configs {
		part.Classes[ClassName(id)] = class{L3Allocation: toEntries(config)}
	}

	return yaml.Marshal(document{
		Partitions: map[string]partition{"default": part},
	})
}
