package partitioning

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

var _ = Describe("MaxCapacityPolicy", func() {
	var (
		builder Builder
		logger  *logrus.Logger
		policy  *MaxCapacityPolicy
	)

	BeforeEach(func() {
		logger, _ = logtest.NewNullLogger()
		builder = MakeBuilder().
			WithWayAssociativity(4).
			WithCacheByteSize(1024).
			WithBlockByteSize(64).
			WithLogger(logger)

		var err error
		policy, err = builder.BuildMaxCapacityPolicy(MaxCapacitySpec{
			Allocations: []CapacityAllocation{
				{Partition: 0, Capacity: 0.5},
				{Partition: 1, Capacity: 0.25},
				{Partition: 2, Capacity: 0},
				{Partition: 3, Capacity: 1},
			},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should derive quotas from the cache size", func() {
		Expect(policy.TotalBlocks()).To(Equal(uint64(16)))

		q, ok := policy.Quota(0)
		Expect(ok).To(BeTrue())
		Expect(q).To(Equal(uint64(8)))

		q, _ = policy.Quota(1)
		Expect(q).To(Equal(uint64(4)))

		q, _ = policy.Quota(3)
		Expect(q).To(Equal(uint64(16)))

		_, ok = policy.Quota(9)
		Expect(ok).To(BeFalse())
	})

	DescribeTable("quota rounding",
		func(capacity float64, totalBlocks uint64, expected uint64) {
			Expect(quota(capacity, totalBlocks)).To(Equal(expected))
		},
		Entry("half of 8", 0.5, uint64(8), uint64(4)),
		Entry("a third of 8", 0.33, uint64(8), uint64(2)),
		Entry("nothing", 0.0, uint64(8), uint64(0)),
		Entry("everything", 1.0, uint64(8), uint64(8)),
		Entry("less than a block", 0.1, uint64(8), uint64(0)),
	)

	It("should round down when built", func() {
		p, err := builder.WithCacheByteSize(512).
			BuildMaxCapacityPolicy(MaxCapacitySpec{
				Allocations: []CapacityAllocation{
					{Partition: 0, Capacity: 0.33},
				},
			})
		Expect(err).NotTo(HaveOccurred())

		q, _ := p.Quota(0)
		Expect(q).To(Equal(uint64(2)))
	})

	It("should stop a partition at its quota", func() {
		for i := 0; i < 8; i++ {
			Expect(policy.FilterCandidates(0, allWays(4))).
				To(Equal(allWays(4)))
			policy.NotifyAllocate(0, i%4)
		}

		Expect(policy.FilterCandidates(0, allWays(4))).To(BeEmpty())
		Expect(policy.FilterCandidates(1, allWays(4))).To(Equal(allWays(4)))

		policy.NotifyEvict(0, 2)

		Expect(policy.FilterCandidates(0, allWays(4))).NotTo(BeEmpty())
		Expect(policy.Violations()).To(BeZero())
	})

	It("should never hold more than the quota when following the filter", func() {
		ops := []bool{true, true, true, false, true, true, true, true, false,
			true, true, true, true}

		for _, allocate := range ops {
			if !allocate {
				policy.NotifyEvict(1, 0)
				continue
			}

			if len(policy.FilterCandidates(1, allWays(4))) > 0 {
				policy.NotifyAllocate(1, 0)
			}

			Expect(policy.Blocks(1)).To(BeNumerically("<=", 4))
		}

		Expect(policy.Violations()).To(BeZero())
	})

	It("should leave usage unchanged after allocate then evict", func() {
		policy.NotifyAllocate(1, 0)
		before := policy.Blocks(1)

		policy.NotifyAllocate(1, 3)
		policy.NotifyEvict(1, 3)

		Expect(policy.Blocks(1)).To(Equal(before))
	})

	It("should starve a partition with no capacity", func() {
		Expect(policy.FilterCandidates(2, allWays(4))).To(BeEmpty())
	})

	It("should not limit unconfigured partitions", func() {
		for i := 0; i < 32; i++ {
			policy.NotifyAllocate(7, 0)
		}

		Expect(policy.FilterCandidates(7, allWays(4))).To(Equal(allWays(4)))
		Expect(policy.Violations()).To(BeZero())
	})

	It("should clamp underflow and flag it", func() {
		policy.NotifyEvict(0, 1)

		Expect(policy.Blocks(0)).To(Equal(uint64(0)))
		Expect(policy.Violations()).To(Equal(uint64(1)))
	})

	It("should flag allocations over the quota but keep counting", func() {
		policy.NotifyAllocate(2, 0)

		Expect(policy.Violations()).To(Equal(uint64(1)))
		Expect(policy.Blocks(2)).To(Equal(uint64(1)))
	})

	It("should report usage", func() {
		policy.NotifyAllocate(1, 0)
		policy.NotifyAllocate(5, 0)

		Expect(policy.Usage()).To(ConsistOf(
			PartitionUsage{Policy: "MaxCapacityPolicy", Partition: 0,
				Quota: 8, HasQuota: true},
			PartitionUsage{Policy: "MaxCapacityPolicy", Partition: 1,
				Blocks: 1, Quota: 4, HasQuota: true},
			PartitionUsage{Policy: "MaxCapacityPolicy", Partition: 2,
				HasQuota: true},
			PartitionUsage{Policy: "MaxCapacityPolicy", Partition: 3,
				Quota: 16, HasQuota: true},
			PartitionUsage{Policy: "MaxCapacityPolicy", Partition: 5,
				Blocks: 1},
		))
	})

	It("should panic in strict mode", func() {
		p, err := builder.WithStrictInvariants(true).
			BuildMaxCapacityPolicy(MaxCapacitySpec{})
		Expect(err).NotTo(HaveOccurred())

		Expect(func() { p.NotifyEvict(0, 0) }).To(Panic())
	})

	Context("when the configuration is invalid", func() {
		DescribeTable("capacity out of range",
			func(capacity float64) {
				_, err := builder.BuildMaxCapacityPolicy(MaxCapacitySpec{
					Allocations: []CapacityAllocation{
						{Partition: 0, Capacity: capacity},
					},
				})

				Expect(err).To(MatchError(ErrCapacityOutOfRange))
			},
			Entry("negative", -0.1),
			Entry("above one", 1.5),
			Entry("NaN", math.NaN()),
		)

		It("should reject duplicated partitions", func() {
			_, err := builder.BuildMaxCapacityPolicy(MaxCapacitySpec{
				Allocations: []CapacityAllocation{
					{Partition: 1, Capacity: 0.1},
					{Partition: 1, Capacity: 0.2},
				},
			})

			Expect(err).To(MatchError(ErrDuplicatePartition))
		})

		It("should accept over-subscription", func() {
			_, err := builder.BuildMaxCapacityPolicy(MaxCapacitySpec{
				Allocations: []CapacityAllocation{
					{Partition: 0, Capacity: 0.8},
					{Partition: 1, Capacity: 0.8},
				},
			})

			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("bad geometry",
			func(b Builder) {
				_, err := b.BuildMaxCapacityPolicy(MaxCapacitySpec{})

				Expect(err).To(MatchError(ErrInvalidGeometry))
			},
			Entry("zero block size", MakeBuilder().WithBlockByteSize(0)),
			Entry("zero cache size", MakeBuilder().WithCacheByteSize(0)),
			Entry("partial block",
				MakeBuilder().WithCacheByteSize(1000).WithBlockByteSize(64)),
			Entry("partial set",
				MakeBuilder().WithCacheByteSize(192).WithWayAssociativity(4)),
		)
	})
})
