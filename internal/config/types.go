package config

// Config describes one partitioned cache.
type Config struct {
	Name     string         `yaml:"name"`
	Cache    CacheConfig    `yaml:"cache"`
	Strict   bool           `yaml:"strict"`
	Policies []PolicyConfig `yaml:"policies"`
}

// CacheConfig is the geometry of the cache.
type CacheConfig struct {
	Associativity int    `yaml:"associativity"`
	Size          uint64 `yaml:"size"`
	BlockSize     uint64 `yaml:"block_size"`
}

// PolicyConfig describes one policy. Policies are applied in order.
type PolicyConfig struct {
	Name              string             `yaml:"name"`
	Kind              string             `yaml:"kind"`
	AllowUnconfigured bool               `yaml:"allow_unconfigured"`
	Allocations       []AllocationConfig `yaml:"allocations"`
}

// AllocationConfig gives a partition ways or a capacity fraction, depending
// on the kind of the policy.
type AllocationConfig struct {
	Partition uint64   `yaml:"partition"`
	Ways      []int    `yaml:"ways"`
	Capacity  *float64 `yaml:"capacity"`
}
