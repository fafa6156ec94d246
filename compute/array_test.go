package compute_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/podsim/compute"
	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/interconnect"
)

// makeResident allocates and fills a tile without going through a bank.
func makeResident(a *graph.Arena, id graph.TileID) {
	t := a.Tile(id)
	t.MarkAllocated()
	t.MarkFilled()
}

func newMultOp(a *graph.Arena, j int) graph.OpID {
	x := a.NewTile("fc", graph.KindX, [3]int{0, j, 0}, 4, 4, 1)
	w := a.NewTile("fc", graph.KindW, [3]int{j, 0, 0}, 4, 4, 1)

	return a.NewMultOp("fc", [3]int{0, j, 0}, x, w)
}

func makeOpResident(a *graph.Arena, id graph.OpID) {
	op := a.Op(id)
	makeResident(a, op.Mult.X)
	makeResident(a, op.Mult.W)
	makeResident(a, op.Pout)
}

var _ = Describe("Array", func() {
	var (
		a     *graph.Arena
		array *compute.Array
	)

	BeforeEach(func() {
		a = graph.NewArena()
		array = compute.NewBuilder().
			WithArena(a).
			WithArraySize(4, 4).
			BuildArray(0)
	})

	It("should treat an empty round as ready and done", func() {
		Expect(array.IsWeightBuffered(0)).To(BeTrue())
		Expect(array.InitWeightBuffering(0)).To(BeTrue())

		array.InitTileOp(0)
		Expect(array.IsTileOpDone(0)).To(BeTrue())
		Expect(array.Update()).To(BeFalse())
	})

	It("should buffer for four cycles and execute for four cycles", func() {
		op := newMultOp(a, 0)
		makeOpResident(a, op)
		array.Assign(0, op)

		Expect(array.InitWeightBuffering(0)).To(BeTrue())
		Expect(array.BufferState()).To(Equal(compute.BufferBuffering))

		for i := 0; i < 3; i++ {
			array.Update()
			Expect(array.IsWeightBuffered(0)).To(BeFalse())
		}
		array.Update()
		Expect(array.IsWeightBuffered(0)).To(BeTrue())

		array.InitTileOp(0)
		Expect(array.ExecState()).To(Equal(compute.ExecProcessing))
		Expect(array.BufferState()).To(Equal(compute.BufferEmpty))

		for i := 0; i < 3; i++ {
			array.Update()
			Expect(array.IsTileOpDone(0)).To(BeFalse())
		}
		array.Update()
		Expect(array.IsTileOpDone(0)).To(BeTrue())
		Expect(a.Op(op).Retired()).To(BeTrue())

		Expect(array.Ops).To(Equal(64))
		Expect(array.SRAMReadBytes).To(Equal(32))
		Expect(array.SRAMWriteBytes).To(Equal(16))
		Expect(array.BusyCycles).To(Equal(4))
	})

	It("should not buffer a weight tile that is not resident", func() {
		op := newMultOp(a, 0)
		array.Assign(0, op)

		Expect(array.InitWeightBuffering(0)).To(BeFalse())
		Expect(array.BufferState()).To(Equal(compute.BufferEmpty))
	})

	It("should buffer the next round while processing", func() {
		op0 := newMultOp(a, 0)
		op1 := newMultOp(a, 1)
		makeOpResident(a, op0)
		makeOpResident(a, op1)
		array.Assign(0, op0)
		array.Assign(1, op1)

		array.InitWeightBuffering(0)
		for i := 0; i < 4; i++ {
			array.Update()
		}
		array.InitTileOp(0)

		Expect(array.InitWeightBuffering(1)).To(BeTrue())
		for i := 0; i < 4; i++ {
			array.Update()
		}

		Expect(array.IsTileOpDone(0)).To(BeTrue())
		Expect(array.IsWeightBuffered(1)).To(BeTrue())
	})

	It("should panic when re-entering processing", func() {
		op0 := newMultOp(a, 0)
		op1 := newMultOp(a, 1)
		makeOpResident(a, op0)
		makeOpResident(a, op1)
		array.Assign(0, op0)
		array.Assign(1, op1)

		array.InitWeightBuffering(0)
		for i := 0; i < 4; i++ {
			array.Update()
		}
		array.InitTileOp(0)

		Expect(func() { array.InitTileOp(1) }).To(Panic())
	})

	It("should panic when starting without buffered weights", func() {
		op := newMultOp(a, 0)
		makeOpResident(a, op)
		array.Assign(0, op)

		Expect(func() { array.InitTileOp(0) }).To(Panic())
	})

	Context("while processing", func() {
		var op0, op1 graph.OpID

		BeforeEach(func() {
			op0 = newMultOp(a, 0)
			op1 = newMultOp(a, 1)
			makeOpResident(a, op0)
			makeOpResident(a, op1)
			a.SetPin(op1, op0)
			array.Assign(0, op1)

			array.InitWeightBuffering(0)
			for i := 0; i < 4; i++ {
				array.Update()
			}
			array.InitTileOp(0)
		})

		It("should panic when the current weights are released", func() {
			a.Tile(a.Op(op1).Mult.W).MarkReleased()

			Expect(func() { array.Update() }).To(Panic())
		})

		It("should panic when the pin tile is released", func() {
			a.Tile(a.Op(op0).Pout).MarkReleased()

			Expect(func() { array.Update() }).To(Panic())
		})

		It("should run while every tile stays allocated", func() {
			Expect(array.Update()).To(BeTrue())
		})
	})

	It("should panic when a round is assigned twice", func() {
		array.Assign(2, newMultOp(a, 0))

		Expect(array.LastRound()).To(Equal(2))
		Expect(func() { array.Assign(2, newMultOp(a, 1)) }).To(Panic())
	})
})

var _ = Describe("Arrays", func() {
	var (
		a      *graph.Arena
		arrays *compute.Arrays
	)

	BeforeEach(func() {
		a = graph.NewArena()
		arrays = compute.NewBuilder().
			WithArena(a).
			WithArraySize(4, 4).
			BuildArrays(3)
	})

	It("should list available arrays", func() {
		arrays.Get(1).Assign(0, newMultOp(a, 0))

		Expect(arrays.Available(0)).To(Equal([]int{0, 2}))
		Expect(arrays.Available(1)).To(Equal([]int{0, 1, 2}))
	})

	It("should build permutations from bound tiles", func() {
		op := newMultOp(a, 0)
		a.Tile(a.Op(op).Mult.X).BindBank(2)
		arrays.Get(1).Assign(0, op)

		p := arrays.Permute(0, interconnect.NetX, 4)
		Expect([]int(p)).To(Equal([]int{-1, 2, -1, -1}))

		p = arrays.Permute(0, interconnect.NetW, 4)
		Expect(p.Banks()).To(BeEmpty())
	})

	It("should detect bank conflicts between different tiles", func() {
		op0 := newMultOp(a, 0)
		op1 := newMultOp(a, 1)
		x0 := a.Op(op0).Mult.X
		x1 := a.Op(op1).Mult.X
		a.Tile(x0).BindBank(0)
		a.Tile(x1).BindBank(0)
		arrays.Get(0).Assign(0, op0)

		Expect(arrays.CheckBankConflict(0, interconnect.NetX, x1)).To(BeTrue())
		Expect(arrays.CheckBankConflict(0, interconnect.NetX, x0)).To(BeFalse())
		Expect(arrays.CheckBankConflict(1, interconnect.NetX, x1)).To(BeFalse())
	})
})
