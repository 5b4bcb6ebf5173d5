package partitioning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

var _ = Describe("Spec", func() {
	DescribeTable("ParseKind",
		func(s string, expected Kind) {
			k, err := ParseKind(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(expected))
			Expect(ParseKind(k.String())).To(Equal(expected))
		},
		Entry("empty", "", KindNone),
		Entry("none", "none", KindNone),
		Entry("way", "Way", KindWay),
		Entry("max capacity", "max_capacity", KindMaxCapacity),
		Entry("max capacity without underscore", "MaxCapacity", KindMaxCapacity),
	)

	It("should reject unknown kinds", func() {
		_, err := ParseKind("lru")
		Expect(err).To(MatchError(ErrUnknownKind))
	})

	It("should describe configuration errors", func() {
		err := WaySpec{
			Name: "l2.way",
			Allocations: []WayAllocation{
				{Partition: 3, Ways: []int{9}},
			},
		}.Validate(8)

		Expect(err).To(MatchError(
			"l2.way: way index out of range (partition 3): way 9, associativity 8"))
	})

	It("should describe invariant violations", func() {
		v := &InvariantViolation{
			Policy:    "p",
			Partition: 2,
			Way:       1,
			Kind:      ViolationUnderflow,
		}

		Expect(v.Error()).To(Equal(
			"p: invariant violation underflow: partition 2, way 1"))
	})
})

var _ = Describe("End-to-end scenarios", func() {
	It("should split an 8-way cache between two partitions", func() {
		logger, _ := logtest.NewNullLogger()
		p, err := MakeBuilder().
			WithWayAssociativity(8).
			WithLogger(logger).
			BuildWayPolicy(WaySpec{
				Allocations: []WayAllocation{
					{Partition: 0, Ways: []int{0, 1, 2, 3}},
					{Partition: 1, Ways: []int{4, 5, 6, 7}},
				},
			})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.FilterCandidates(0, allWays(8))).To(Equal([]int{0, 1, 2, 3}))
		Expect(p.FilterCandidates(1, allWays(8))).To(Equal([]int{4, 5, 6, 7}))
		Expect(p.FilterCandidates(2, allWays(8))).To(BeEmpty())
	})

	It("should cap two partitions of a 16-block cache", func() {
		logger, _ := logtest.NewNullLogger()
		p, err := MakeBuilder().
			WithCacheByteSize(1024).
			WithBlockByteSize(64).
			WithLogger(logger).
			BuildMaxCapacityPolicy(MaxCapacitySpec{
				Allocations: []CapacityAllocation{
					{Partition: 0, Capacity: 0.5},
					{Partition: 1, Capacity: 0.25},
				},
			})
		Expect(err).NotTo(HaveOccurred())

		q0, _ := p.Quota(0)
		q1, _ := p.Quota(1)
		Expect(q0).To(Equal(uint64(8)))
		Expect(q1).To(Equal(uint64(4)))

		for i := 0; i < 8; i++ {
			p.NotifyAllocate(0, i%4)
		}

		Expect(p.FilterCandidates(0, []int{1, 3})).To(BeEmpty())

		p.NotifyEvict(0, 0)

		Expect(p.FilterCandidates(0, []int{1, 3})).To(Equal([]int{1, 3}))
	})
})
