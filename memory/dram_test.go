package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/memory"
)

var _ = Describe("Dram", func() {
	var (
		a     *graph.Arena
		banks *memory.Banks
		dram  *memory.Dram
	)

	BeforeEach(func() {
		a = graph.NewArena()
		banks = memory.NewBanks(1, 64, a, nil)
		dram = memory.NewDram(4, 2, a, banks, nil)
	})

	It("should serve loads in order within the bandwidth", func() {
		t1 := newBoundTile(a, 8, 0)
		t2 := newBoundTile(a, 8, 0)
		bank := banks.Get(graph.KindX, 0)
		bank.Alloc(0, t1)
		bank.Alloc(0, t2)
		dram.Load(0, t1)
		dram.Load(0, t2)

		Expect(dram.Update(0)).To(Equal(4.0))
		Expect(a.Tile(t1).Resident()).To(BeFalse())
		Expect(a.Tile(t2).Transferred()).To(Equal(0.0))

		dram.Update(0)
		Expect(a.Tile(t1).Resident()).To(BeTrue())
		Expect(a.Tile(t2).Transferred()).To(Equal(0.0))

		dram.Update(0)
		Expect(a.Tile(t2).Resident()).To(BeFalse())

		dram.Update(0)
		Expect(a.Tile(t2).Resident()).To(BeTrue())
		Expect(dram.Pending()).To(Equal(0))
		Expect(dram.Bytes(graph.KindX)).To(Equal(16.0))
	})

	It("should not load beyond the prefetch limit", func() {
		t1 := newBoundTile(a, 4, 3)
		banks.Get(graph.KindX, 0).Alloc(3, t1)
		dram.Load(3, t1)

		Expect(dram.Update(0)).To(Equal(0.0))
		Expect(dram.Update(1)).To(Equal(4.0))
		Expect(a.Tile(t1).Resident()).To(BeTrue())
	})

	It("should skip resident tiles and extend their retention", func() {
		t1 := newBoundTile(a, 4, 0)
		bank := banks.Get(graph.KindX, 0)
		bank.Alloc(0, t1)
		dram.Load(0, t1)
		dram.Update(0)

		dram.Load(2, t1)
		Expect(dram.Update(0)).To(Equal(0.0))
		Expect(dram.Pending()).To(Equal(0))

		key, _ := bank.RetentionKey(t1)
		Expect(key).To(Equal(2))
	})

	It("should stall when the bank is full", func() {
		big := newBoundTile(a, 64, 0)
		small := newBoundTile(a, 4, 1)
		bank := banks.Get(graph.KindX, 0)
		bank.Alloc(0, big)
		dram.Load(1, small)

		Expect(dram.Update(1)).To(Equal(0.0))
		Expect(dram.Stalls()).To(Equal(1))

		a.Retire(a.Tile(big).Consumers[0])
		Expect(dram.Update(1)).To(Equal(4.0))
		Expect(a.Tile(small).Resident()).To(BeTrue())
	})
})
