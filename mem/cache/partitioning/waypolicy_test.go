package partitioning

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/mock/gomock"
)

var _ = Describe("WayPolicy", func() {
	var (
		mockCtrl *gomock.Controller
		builder  Builder
		logger   *logrus.Logger
		logHook  *logtest.Hook
		policy   *WayPolicy
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		logger, logHook = logtest.NewNullLogger()
		builder = MakeBuilder().
			WithWayAssociativity(8).
			WithLogger(logger)

		var err error
		policy, err = builder.BuildWayPolicy(WaySpec{
			Allocations: []WayAllocation{
				{Partition: 0, Ways: []int{0, 1, 2, 3}},
				{Partition: 1, Ways: []int{4, 5, 6, 7}},
				{Partition: 2, Ways: []int{}},
				{Partition: 3, Ways: []int{3, 4}},
			},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should split the ways between two partitions", func() {
		Expect(policy.FilterCandidates(0, allWays(8))).
			To(Equal([]int{0, 1, 2, 3}))
		Expect(policy.FilterCandidates(1, allWays(8))).
			To(Equal([]int{4, 5, 6, 7}))
	})

	It("should not give any way to unconfigured partitions", func() {
		Expect(policy.FilterCandidates(42, allWays(8))).To(BeEmpty())
	})

	It("should starve partitions with no way", func() {
		Expect(policy.FilterCandidates(2, allWays(8))).To(BeEmpty())
		Expect(policy.FilterCandidates(2, []int{0})).To(BeEmpty())
	})

	It("should intersect with any subset of the ways", func() {
		Expect(policy.FilterCandidates(0, []int{7, 3, 5, 1})).
			To(Equal([]int{3, 1}))
		Expect(policy.FilterCandidates(1, []int{0, 1})).To(BeEmpty())
		Expect(policy.FilterCandidates(0, []int{})).To(BeEmpty())
	})

	It("should allow shared ways", func() {
		Expect(policy.FilterCandidates(3, allWays(8))).To(Equal([]int{3, 4}))
		Expect(policy.FilterCandidates(0, []int{3})).To(Equal([]int{3}))
	})

	It("should not change state when filtering", func() {
		policy.FilterCandidates(0, allWays(8))
		policy.FilterCandidates(99, allWays(8))

		Expect(policy.Blocks(0)).To(Equal(uint64(0)))
		Expect(policy.Usage()).To(HaveLen(4))
	})

	It("should give every way to unconfigured partitions if allowed", func() {
		p, err := builder.BuildWayPolicy(WaySpec{
			AllowUnconfigured: true,
			Allocations: []WayAllocation{
				{Partition: 0, Ways: []int{0}},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.FilterCandidates(5, allWays(8))).To(Equal(allWays(8)))
		Expect(p.FilterCandidates(0, allWays(8))).To(Equal([]int{0}))
	})

	It("should count blocks for diagnostics", func() {
		policy.NotifyAllocate(0, 1)
		policy.NotifyAllocate(0, 2)
		policy.NotifyEvict(0, 1)

		Expect(policy.Blocks(0)).To(Equal(uint64(1)))
		Expect(policy.Violations()).To(BeZero())
	})

	It("should report configured ways", func() {
		ways, ok := policy.ConfiguredWays(3)
		Expect(ok).To(BeTrue())
		Expect(ways).To(Equal([]int{3, 4}))

		_, ok = policy.ConfiguredWays(10)
		Expect(ok).To(BeFalse())

		Expect(policy.Partitions()).To(Equal([]PartitionID{0, 1, 2, 3}))
	})

	It("should invoke hooks", func() {
		hook := NewMockHook(mockCtrl)
		policy.AcceptHook(hook)

		hook.EXPECT().Func(HookCtx{
			Domain: policy,
			Pos:    HookPosAllocate,
			Item:   Event{Policy: "WayPolicy", Partition: 1, Way: 5, Usage: 1},
		})
		hook.EXPECT().Func(HookCtx{
			Domain: policy,
			Pos:    HookPosEvict,
			Item:   Event{Policy: "WayPolicy", Partition: 1, Way: 5, Usage: 0},
		})

		policy.NotifyAllocate(1, 5)
		policy.NotifyEvict(1, 5)
	})

	Context("when the cache and the policy disagree", func() {
		It("should flag allocations outside the partition's ways", func() {
			policy.NotifyAllocate(0, 6)

			Expect(policy.Violations()).To(Equal(uint64(1)))
			Expect(policy.Blocks(0)).To(Equal(uint64(1)))
			Expect(logHook.LastEntry().Level).To(Equal(logrus.ErrorLevel))
			Expect(logHook.LastEntry().Data["kind"]).
				To(Equal("unapproved_allocation"))
		})

		It("should clamp underflow", func() {
			hook := NewMockHook(mockCtrl)
			policy.AcceptHook(hook)

			hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosViolation))

				var v *InvariantViolation
				Expect(errors.As(ctx.Detail.(error), &v)).To(BeTrue())
				Expect(v.Kind).To(Equal(ViolationUnderflow))
			})

			policy.NotifyEvict(1, 4)

			Expect(policy.Blocks(1)).To(Equal(uint64(0)))
			Expect(policy.Violations()).To(Equal(uint64(1)))
		})

		It("should panic in strict mode", func() {
			p, err := builder.WithStrictInvariants(true).
				BuildWayPolicy(WaySpec{})
			Expect(err).NotTo(HaveOccurred())

			Expect(func() { p.NotifyEvict(0, 0) }).
				To(PanicWith(BeAssignableToTypeOf(&InvariantViolation{})))
		})
	})

	Context("when the configuration is invalid", func() {
		It("should reject ways out of range", func() {
			_, err := builder.BuildWayPolicy(WaySpec{
				Allocations: []WayAllocation{
					{Partition: 0, Ways: []int{0, 8}},
				},
			})

			Expect(err).To(MatchError(ErrWayOutOfRange))

			var cfgErr *ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Partition).To(Equal(PartitionID(0)))
			Expect(cfgErr.HasPartition).To(BeTrue())
		})

		It("should reject negative ways", func() {
			_, err := builder.BuildWayPolicy(WaySpec{
				Allocations: []WayAllocation{
					{Partition: 0, Ways: []int{-1}},
				},
			})

			Expect(err).To(MatchError(ErrWayOutOfRange))
		})

		It("should reject duplicated partitions", func() {
			_, err := builder.BuildWayPolicy(WaySpec{
				Allocations: []WayAllocation{
					{Partition: 4, Ways: []int{0}},
					{Partition: 4, Ways: []int{1}},
				},
			})

			Expect(err).To(MatchError(ErrDuplicatePartition))
		})

		It("should reject a zero associativity", func() {
			_, err := builder.WithWayAssociativity(0).BuildWayPolicy(WaySpec{})

			Expect(err).To(MatchError(ErrInvalidGeometry))
		})
	})
})
