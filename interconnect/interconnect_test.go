package interconnect_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/podsim/interconnect"
)

var _ = Describe("Oracles", func() {
	It("should compute the number of stages", func() {
		Expect(interconnect.Stages(1)).To(Equal(1))
		Expect(interconnect.Stages(2)).To(Equal(1))
		Expect(interconnect.Stages(4)).To(Equal(2))
		Expect(interconnect.Stages(5)).To(Equal(3))
	})

	It("should parse topology names", func() {
		t, err := interconnect.ParseType("benes_vanilla")
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(interconnect.TypeBenes))

		_, err = interconnect.ParseType("torus")
		Expect(err).To(HaveOccurred())
	})

	Context("crossbar", func() {
		var o interconnect.Oracle

		BeforeEach(func() {
			o = interconnect.New(interconnect.TypeCrossbar, 4)
		})

		It("should route any free unit", func() {
			p := interconnect.NewPermutation(4)
			p.Set(0, 1)
			Expect(o.ApplyPermute(p)).To(BeTrue())

			Expect(o.IsRouteFree(2, 0)).To(BeTrue())
			Expect(o.IsRouteFree(0, 2)).To(BeTrue())
			Expect(o.IsRouteFree(3, 1)).To(BeFalse())
		})

		It("should derive its latencies", func() {
			Expect(o.Latency()).To(Equal(1))
			Expect(o.DataReqLatency()).To(Equal(1))
			Expect(o.DataReadLatency()).To(Equal(2))
			Expect(o.DataWriteLatency()).To(Equal(1))
		})
	})

	Context("benes", func() {
		It("should be rearrangeable with a longer latency", func() {
			o := interconnect.New(interconnect.TypeBenes, 8)
			Expect(o.Latency()).To(Equal(5))
			Expect(o.IsRouteFree(7, 0)).To(BeTrue())
		})
	})

	Context("banyan", func() {
		var o interconnect.Oracle

		BeforeEach(func() {
			o = interconnect.New(interconnect.TypeBanyan, 4)
		})

		It("should block on a shared internal link", func() {
			p := interconnect.NewPermutation(4)
			p.Set(0, 1)
			Expect(o.ApplyPermute(p)).To(BeTrue())

			Expect(o.IsRouteFree(2, 0)).To(BeFalse())
			Expect(o.IsRouteFree(1, 0)).To(BeTrue())
		})

		It("should allow one bank to fan out", func() {
			p := interconnect.NewPermutation(4)
			p.Set(0, 0)
			Expect(o.ApplyPermute(p)).To(BeTrue())

			Expect(o.IsRouteFree(0, 1)).To(BeTrue())
		})

		It("should reject permutations it cannot route", func() {
			p := interconnect.NewPermutation(4)
			p.Set(0, 1)
			p.Set(2, 0)

			Expect(o.ApplyPermute(p)).To(BeFalse())
		})

		It("should not let clones share state", func() {
			c := o.Clone()

			p := interconnect.NewPermutation(4)
			p.Set(0, 1)
			c.ApplyPermute(p)

			Expect(c.IsRouteFree(2, 0)).To(BeFalse())
			Expect(o.IsRouteFree(2, 0)).To(BeTrue())
		})

		It("should use one cycle per stage", func() {
			Expect(o.Latency()).To(Equal(2))
		})
	})

	It("should panic when a unit is fed twice", func() {
		p := interconnect.NewPermutation(2)
		p.Set(0, 1)
		p.Set(0, 1)
		Expect(func() { p.Set(1, 1) }).To(Panic())
	})
})

var _ = Describe("Interconnects", func() {
	It("should derive the round trips", func() {
		ic := interconnect.NewInterconnects(interconnect.TypeCrossbar, 4)

		Expect(ic.SRAMRoundTrip()).To(Equal(4))
		Expect(ic.PPLatencyOffset()).To(Equal(4))

		ic = interconnect.NewInterconnects(interconnect.TypeBanyan, 8)
		Expect(ic.SRAMRoundTrip()).To(Equal(10))
	})
})
