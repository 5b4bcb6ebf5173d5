// Package config loads partitioned cache configurations from YAML files.
package config

import (
	"errors"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sarchlab/cachepart/internal/logging"
	"github.com/sarchlab/cachepart/mem/cache"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation error of this package.
var ErrInvalidConfig = errors.New("invalid config")

// LoadConfig reads the configuration file at path and validates it.
func LoadConfig(path string) (*Config, error) {
	config, _, err := LoadConfigWithContent(path)
	return config, err
}

// LoadConfigWithContent also returns the file content as written, before
// environment variables are expanded.
func LoadConfigWithContent(path string) (*Config, string, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithField("filepath", path).WithError(err).
			Error("Failed to read config file")
		return nil, "", err
	}

	originalContent := string(data)

	config, err := Parse([]byte(expandEnvVars(originalContent)))
	if err != nil {
		logger.WithField("filepath", path).WithError(err).
			Error("Failed to parse config file")
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}

	if config.Name == "" {
		config.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return config, originalContent, nil
}

// Parse decodes and validates a configuration.
func Parse(data []byte) (*Config, error) {
	var config Config

	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

// LoadEnv loads the variables of the given .env files. Missing files are
// skipped.
func LoadEnv(files ...string) {
	logger := logging.GetLogger()

	for _, envFile := range files {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}

		if err := godotenv.Load(envFile); err != nil {
			logger.WithField("file", envFile).WithError(err).
				Warn("Error loading .env file")
			continue
		}

		logger.WithField("file", envFile).Debug("Loaded environment variables")
	}
}

func validateConfig(config *Config) error {
	c := config.Cache

	if c.Associativity <= 0 {
		return fmt.Errorf("%w: cache.associativity must be > 0", ErrInvalidConfig)
	}

	if c.BlockSize == 0 || bits.OnesCount64(c.BlockSize) != 1 {
		return fmt.Errorf("%w: cache.block_size must be a power of two, got %d",
			ErrInvalidConfig, c.BlockSize)
	}

	if c.Size == 0 || c.Size%(c.BlockSize*uint64(c.Associativity)) != 0 {
		return fmt.Errorf(
			"%w: cache.size must be a multiple of block_size * associativity",
			ErrInvalidConfig)
	}

	specs, err := config.PolicySpecs()
	if err != nil {
		return err
	}

	_, err = config.PartitioningBuilder().Build(config.ManagerName(), specs...)

	return err
}

// ManagerName returns the name of the policy manager of the cache.
func (c *Config) ManagerName() string {
	return c.Name + ".Partitioning"
}

// Log2BlockSize returns log2 of the block size.
func (c *Config) Log2BlockSize() int {
	return bits.TrailingZeros64(c.Cache.BlockSize)
}

// PartitioningBuilder returns a policy builder with the geometry of the
// cache.
func (c *Config) PartitioningBuilder() partitioning.Builder {
	return partitioning.MakeBuilder().
		WithWayAssociativity(c.Cache.Associativity).
		WithCacheByteSize(c.Cache.Size).
		WithBlockByteSize(c.Cache.BlockSize).
		WithStrictInvariants(c.Strict).
		WithLogger(logging.GetLogger())
}

// CacheBuilder returns a cache builder with the geometry and the policies of
// the configuration.
func (c *Config) CacheBuilder() (cache.Builder, error) {
	specs, err := c.PolicySpecs()
	if err != nil {
		return cache.Builder{}, err
	}

	return cache.MakeBuilder().
		WithWayAssociativity(c.Cache.Associativity).
		WithLog2BlockSize(c.Log2BlockSize()).
		WithByteSize(c.Cache.Size).
		WithStrictInvariants(c.Strict).
		WithLogger(logging.GetLogger()).
		WithPartitioningSpecs(specs...), nil
}

// PolicySpecs converts the policies into partitioning specs.
func (c *Config) PolicySpecs() ([]partitioning.PolicySpec, error) {
	specs := make([]partitioning.PolicySpec, 0, len(c.Policies))

	for i, p := range c.Policies {
		spec, err := p.toSpec()
		if err != nil {
			return nil, fmt.Errorf("%w: policies[%d]: %w", ErrInvalidConfig, i, err)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func (p PolicyConfig) toSpec() (partitioning.PolicySpec, error) {
	kind, err := partitioning.ParseKind(p.Kind)
	if err != nil {
		return partitioning.PolicySpec{}, err
	}

	spec := partitioning.PolicySpec{Kind: kind}

	switch kind {
	case partitioning.KindNone:
		if len(p.Allocations) > 0 || p.AllowUnconfigured {
			return spec, errors.New("a policy without kind cannot have " +
				"allocations or allow_unconfigured")
		}
	case partitioning.KindWay:
		spec.Way = partitioning.WaySpec{
			Name:              p.Name,
			AllowUnconfigured: p.AllowUnconfigured,
		}

		for _, a := range p.Allocations {
			if a.Capacity != nil {
				return spec, fmt.Errorf(
					"partition %d: capacity is not allowed in a way policy",
					a.Partition)
			}

			spec.Way.Allocations = append(spec.Way.Allocations,
				partitioning.WayAllocation{
					Partition: partitioning.PartitionID(a.Partition),
					Ways:      a.Ways,
				})
		}
	case partitioning.KindMaxCapacity:
		spec.MaxCapacity = partitioning.MaxCapacitySpec{Name: p.Name}

		for _, a := range p.Allocations {
			if a.Capacity == nil || len(a.Ways) > 0 {
				return spec, fmt.Errorf(
					"partition %d: a max_capacity policy needs a capacity "+
						"and no ways", a.Partition)
			}

			spec.MaxCapacity.Allocations = append(spec.MaxCapacity.Allocations,
				partitioning.CapacityAllocation{
					Partition: partitioning.PartitionID(a.Partition),
					Capacity:  *a.Capacity,
				})
		}
	}

	return spec, nil
}
