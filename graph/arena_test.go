package graph_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/podsim/graph"
)

var _ = Describe("Arena", func() {
	var (
		a    *graph.Arena
		x, w graph.TileID
	)

	BeforeEach(func() {
		a = graph.NewArena()
		x = a.NewTile("fc", graph.KindX, [3]int{0, 0, 0}, 4, 8, 1)
		w = a.NewTile("fc", graph.KindW, [3]int{0, 0, 0}, 8, 2, 1)
	})

	It("should create a multiply op with a fresh output tile", func() {
		id := a.NewMultOp("fc", [3]int{0, 0, 0}, x, w)

		op := a.Op(id)
		Expect(op.Kind).To(Equal(graph.OpMultiply))
		Expect(op.IsPlaced()).To(BeFalse())
		Expect(op.HasPin()).To(BeFalse())

		p := a.Tile(op.Pout)
		Expect(p.Kind).To(Equal(graph.KindP))
		Expect(p.Rows).To(Equal(4))
		Expect(p.Cols).To(Equal(2))
		Expect(p.Producer).To(Equal(id))
		Expect(p.IsBound()).To(BeFalse())
		Expect(a.Tile(x).Consumers).To(ConsistOf(id))
	})

	It("should panic on mismatched operand shapes", func() {
		w2 := a.NewTile("fc", graph.KindW, [3]int{0, 0, 0}, 4, 2, 1)
		Expect(func() { a.NewMultOp("fc", [3]int{}, x, w2) }).To(Panic())
	})

	It("should panic when an op is placed twice", func() {
		id := a.NewMultOp("fc", [3]int{}, x, w)
		a.Place(id, 0, 1)

		Expect(a.Op(id).Round).To(Equal(0))
		Expect(a.Op(id).Unit).To(Equal(1))
		Expect(func() { a.Place(id, 1, 1) }).To(Panic())
	})

	Context("with aggregate ops", func() {
		var op1, op2 graph.OpID

		BeforeEach(func() {
			x2 := a.NewTile("fc", graph.KindX, [3]int{0, 1, 0}, 4, 8, 1)
			w2 := a.NewTile("fc", graph.KindW, [3]int{1, 0, 0}, 8, 2, 1)
			op1 = a.NewMultOp("fc", [3]int{0, 0, 0}, x, w)
			op2 = a.NewMultOp("fc", [3]int{0, 1, 0}, x2, w2)
		})

		It("should create twins with their own outputs", func() {
			first, twin := a.NewAggrOp(op1, op2)

			Expect(a.Op(first).Pout).NotTo(Equal(a.Op(twin).Pout))
			Expect(a.Tile(a.Op(first).Pout).Producer).To(Equal(first))
			Expect(a.Tile(a.Op(twin).Pout).Producer).To(Equal(twin))
			Expect(a.Tile(a.Op(op1).Pout).Consumers).To(ConsistOf(first, twin))
			Expect(a.Op(first).Aggr.Twin).To(Equal(twin))
			Expect(a.Op(twin).Aggr.Flip).To(BeTrue())

			o1, o2 := a.Operands(first)
			Expect(o1).To(Equal(op1))
			Expect(o2).To(Equal(op2))

			o1, o2 = a.Operands(twin)
			Expect(o1).To(Equal(op2))
			Expect(o2).To(Equal(op1))
		})

		It("should report the latest operand round", func() {
			first, _ := a.NewAggrOp(op1, op2)
			a.Place(op1, 3, 0)
			a.Place(op2, 5, 1)

			Expect(a.MaxOperandRound(first)).To(Equal(5))
		})

		It("should place both twins", func() {
			first, twin := a.NewAggrOp(op1, op2)
			a.Place(op1, 0, 0)
			a.Place(op2, 0, 1)
			a.Place(first, 1, 0)
			a.Place(twin, 2, 1)

			Expect(a.Op(first).IsPlaced()).To(BeTrue())
			Expect(a.Op(twin).IsPlaced()).To(BeTrue())
			Expect(a.ReadyRound(first)).To(Equal(2))
			Expect(func() { a.Place(twin, 3, 0) }).To(Panic())
		})

		It("should keep a tile alive until both twins retire", func() {
			first, twin := a.NewAggrOp(op1, op2)
			p1 := a.Op(op1).Pout

			Expect(a.IsTileDead(p1)).To(BeFalse())

			a.Place(first, 1, 0)
			a.Place(twin, 1, 1)
			a.Retire(first)
			Expect(a.Settled(twin)).To(BeFalse())
			Expect(a.IsTileDead(p1)).To(BeFalse())

			a.Retire(twin)
			Expect(a.IsTileDead(p1)).To(BeTrue())
			Expect(a.IsOutput(a.Op(first).Pout)).To(BeTrue())
			Expect(a.IsOutput(a.Op(twin).Pout)).To(BeTrue())
		})
	})

	It("should link a pin and track the consumer", func() {
		x2 := a.NewTile("fc", graph.KindX, [3]int{0, 1, 0}, 4, 8, 1)
		w2 := a.NewTile("fc", graph.KindW, [3]int{1, 0, 0}, 8, 2, 1)
		op1 := a.NewMultOp("fc", [3]int{0, 0, 0}, x, w)
		op2 := a.NewMultOp("fc", [3]int{0, 1, 0}, x2, w2)

		a.SetPin(op2, op1)

		Expect(a.PinTile(op2)).To(Equal(a.Op(op1).Pout))
		Expect(a.Tile(a.Op(op1).Pout).Consumers).To(ConsistOf(op2))
		Expect(func() { a.SetPin(op2, op1) }).To(Panic())
	})
})

var _ = Describe("Tile", func() {
	It("should become resident after all bytes arrive", func() {
		a := graph.NewArena()
		t := a.Tile(a.NewTile("fc", graph.KindX, [3]int{}, 2, 2, 2))

		Expect(t.MemorySize()).To(Equal(8))

		t.MarkAllocated()
		Expect(t.Resident()).To(BeFalse())
		Expect(t.Transfer(5)).To(Equal(5.0))
		Expect(t.Transfer(5)).To(Equal(3.0))
		Expect(t.Resident()).To(BeTrue())

		t.MarkReleased()
		Expect(t.Allocated()).To(BeFalse())
		Expect(t.Transferred()).To(Equal(0.0))
	})

	It("should refuse to bind to a second bank", func() {
		a := graph.NewArena()
		t := a.Tile(a.NewTile("fc", graph.KindW, [3]int{}, 2, 2, 1))

		t.BindBank(1)
		t.BindBank(1)
		Expect(func() { t.BindBank(2) }).To(Panic())
	})
})
