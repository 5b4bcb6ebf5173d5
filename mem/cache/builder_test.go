package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

var _ = Describe("Builder", func() {
	var builder Builder

	BeforeEach(func() {
		logger, _ := logtest.NewNullLogger()
		builder = MakeBuilder().WithLogger(logger)
	})

	It("should build the default geometry", func() {
		comp, err := builder.Build("L1")
		Expect(err).NotTo(HaveOccurred())

		Expect(comp.Name()).To(Equal("L1"))
		Expect(comp.NumWays()).To(Equal(4))
		Expect(comp.NumSets()).To(Equal(64))
		Expect(comp.BlockSize()).To(Equal(uint64(64)))
		Expect(comp.Policy()).To(Equal(partitioning.NoPolicy{}))
	})

	It("should panic if the sets are not full", func() {
		Expect(func() {
			_, _ = builder.WithByteSize(100).Build("L1")
		}).To(Panic())
	})

	It("should panic on unknown replace strategies", func() {
		Expect(func() {
			_, _ = builder.WithReplaceStrategy("random").Build("L1")
		}).To(Panic())
	})

	It("should report invalid partitioning specs", func() {
		comp, err := builder.
			WithPartitioningSpecs(partitioning.PolicySpec{
				Kind: partitioning.KindWay,
				Way: partitioning.WaySpec{
					Allocations: []partitioning.WayAllocation{
						{Partition: 0, Ways: []int{4}},
					},
				},
			}).
			Build("L1")

		Expect(err).To(MatchError(partitioning.ErrWayOutOfRange))
		Expect(comp).To(BeNil())
	})

	It("should pass the geometry to the policies", func() {
		comp, err := builder.
			WithByteSize(1024).
			WithPartitioningSpecs(partitioning.PolicySpec{
				Kind: partitioning.KindMaxCapacity,
				MaxCapacity: partitioning.MaxCapacitySpec{
					Allocations: []partitioning.CapacityAllocation{
						{Partition: 0, Capacity: 0.5},
					},
				},
			}).
			Build("L1")
		Expect(err).NotTo(HaveOccurred())

		m := comp.Policy().(*partitioning.Manager)
		capacity := m.Policies()[0].(*partitioning.MaxCapacityPolicy)
		Expect(capacity.TotalBlocks()).To(Equal(uint64(16)))
	})

	It("should synchronize the policy on request", func() {
		comp, err := builder.WithSynchronizedPolicy(true).Build("L1")
		Expect(err).NotTo(HaveOccurred())

		s, ok := comp.Policy().(*partitioning.SynchronizedPolicy)
		Expect(ok).To(BeTrue())
		Expect(s.Unwrap()).To(Equal(partitioning.NoPolicy{}))
	})
})
