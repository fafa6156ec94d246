package compiler_test

import (
	"log/slog"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/podsim/compiler"
	"github.com/sarchlab/podsim/config"
	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/interconnect"
	"github.com/sarchlab/podsim/search"
	"github.com/sarchlab/podsim/workload"
)

func gemmModel(m, k, n int) *workload.Model {
	l, err := workload.NewGEMMLayer("fc", m, k, n, 4, 4)
	Expect(err).NotTo(HaveOccurred())

	return workload.NewModel("net", 1, l)
}

var _ = Describe("Compiler", func() {
	var (
		p *config.Platform
		c *compiler.Compiler
	)

	build := func(cfg config.Config) {
		p = newPlatform(cfg)
		c = compiler.Builder{}.WithPlatform(p).Build("Compiler")
	}

	It("should place a single op at round 0", func() {
		build(newConfig(1))

		model := gemmModel(4, 4, 4)
		Expect(c.Compile(model)).To(Succeed())

		layer := c.ModelLayers("net")[0]
		op := p.Arena.Op(layer.MultOp(0, 0, 0))

		Expect(op.Round).To(Equal(0))
		Expect(op.Unit).To(Equal(0))
		Expect(p.Arena.Tile(op.Mult.X).Bank).To(Equal(0))
		Expect(c.NoMainRounds()).To(Equal(1))
		Expect(c.NoPostRounds()).To(Equal(0))
		Expect(layer.Output(0, 0)).To(Equal(op.ID))
	})

	It("should bind operand tiles to banks round-robin", func() {
		build(newConfig(4))
		Expect(c.Compile(gemmModel(8, 8, 12))).To(Succeed())

		layer := c.ModelLayers("net")[0]
		n := 0

		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				for k := 0; k < 3; k++ {
					op := p.Arena.Op(layer.MultOp(i, j, k))
					Expect(p.Arena.Tile(op.Mult.X).Bank).To(Equal(n % 4))
					Expect(p.Arena.Tile(op.Mult.W).Bank).To(Equal(n % 4))
					n++
				}
			}
		}

		a, b := p.Arena.Op(layer.MultOp(0, 0, 0)), p.Arena.Op(layer.MultOp(0, 0, 1))
		Expect(a.Mult.X).NotTo(Equal(b.Mult.X))
		Expect(p.Arena.Tile(a.Mult.X).Index).To(Equal(p.Arena.Tile(b.Mult.X).Index))
	})

	Context("when two ops want the same X bank", func() {
		var op1, op2 graph.OpID

		BeforeEach(func() {
			build(newConfig(2))

			a := p.Arena
			w := a.NewTile("l", graph.KindW, [3]int{}, 4, 4, 1)
			x1 := a.NewTile("l", graph.KindX, [3]int{0, 0, 0}, 4, 4, 1)
			x2 := a.NewTile("l", graph.KindX, [3]int{1, 0, 0}, 4, 4, 1)
			op1 = a.NewMultOp("l", [3]int{0, 0, 0}, x1, w)
			op2 = a.NewMultOp("l", [3]int{1, 0, 0}, x2, w)

			a.Tile(x1).BindBank(0)
		})

		It("should move the second op to the next round", func() {
			p.Arena.Tile(p.Arena.Op(op2).Mult.X).BindBank(0)

			Expect(c.OpPlacement(0, op1)).To(BeTrue())
			Expect(c.OpPlacement(0, op2)).To(BeFalse())
			Expect(c.OpPlacement(1, op2)).To(BeTrue())

			Expect(p.Arena.Op(op2).Round).To(Equal(1))
		})

		It("should pick another X bank if one is free", func() {
			Expect(c.OpPlacement(0, op1)).To(BeTrue())
			Expect(c.OpPlacement(0, op2)).To(BeTrue())

			o1, o2 := p.Arena.Op(op1), p.Arena.Op(op2)
			Expect(o2.Round).To(Equal(0))
			Expect(o2.Unit).NotTo(Equal(o1.Unit))
			Expect(p.Arena.Tile(o2.Mult.X).Bank).To(Equal(1))
			Expect(p.Arena.Tile(o2.Mult.W).Bank).To(Equal(p.Arena.Tile(o1.Mult.W).Bank))
			Expect(p.Arena.Tile(o2.Pout).Bank).NotTo(Equal(p.Arena.Tile(o1.Pout).Bank))
		})

		It("should never place an op twice", func() {
			Expect(c.OpPlacement(0, op1)).To(BeTrue())
			Expect(func() { c.OpPlacement(1, op1) }).To(Panic())
		})
	})

	It("should let a later op accumulate an earlier one", func() {
		build(newConfig(1))
		Expect(c.Compile(gemmModel(4, 8, 4))).To(Succeed())

		layer := c.ModelLayers("net")[0]
		first := p.Arena.Op(layer.MultOp(0, 0, 0))
		second := p.Arena.Op(layer.MultOp(0, 1, 0))

		Expect(first.Round).To(Equal(0))
		Expect(second.Round).To(Equal(1))
		Expect(second.HasPin()).To(BeTrue())
		Expect(second.Mult.Pin).To(Equal(first.ID))
		Expect(layer.AggrOps()).To(BeEmpty())
		Expect(layer.Output(0, 0)).To(Equal(second.ID))
	})

	It("should reduce ops of the same round on post-processors", func() {
		build(newConfig(2))
		Expect(c.Compile(gemmModel(4, 8, 4))).To(Succeed())

		layer := c.ModelLayers("net")[0]
		Expect(layer.AggrOps()).To(HaveLen(2))

		first := p.Arena.Op(layer.AggrOps()[0])
		twin := p.Arena.Op(layer.AggrOps()[1])

		Expect(first.Aggr.Twin).To(Equal(twin.ID))
		Expect(twin.Aggr.Flip).To(BeTrue())
		Expect(first.IsPlaced()).To(BeTrue())
		Expect(twin.IsPlaced()).To(BeTrue())
		Expect(first.Pout).NotTo(Equal(twin.Pout))
		Expect(first.Round).To(Equal(1))
		Expect(twin.Round).To(Equal(1))
		Expect(twin.Unit).NotTo(Equal(first.Unit))
		Expect(p.Arena.Tile(twin.Pout).Bank).NotTo(Equal(p.Arena.Tile(first.Pout).Bank))
		Expect(c.NoPostRounds()).To(Equal(2))
		Expect(layer.Output(0, 0)).To(Equal(first.ID))
	})

	It("should place every aggregate op after its operands", func() {
		build(newConfig(4))
		Expect(c.Compile(gemmModel(8, 16, 8))).To(Succeed())

		layer := c.ModelLayers("net")[0]
		Expect(layer.AggrOps()).NotTo(BeEmpty())

		placed := 0
		for _, id := range layer.AggrOps() {
			op := p.Arena.Op(id)
			Expect(op.IsPlaced()).To(BeTrue())
			Expect(op.Round).To(BeNumerically(">", p.Arena.MaxOperandRound(id)))

			o1, o2 := p.Arena.Operands(id)
			Expect(o1).NotTo(Equal(op.Aggr.Twin))
			Expect(o2).NotTo(Equal(op.Aggr.Twin))
			placed++
		}

		Expect(placed).To(Equal(len(layer.AggrOps())))
		Expect(p.Arena.Op(layer.Output(0, 0)).Aggr.Flip).To(BeFalse())
	})

	It("should copy both aggregate twins when duplicating", func() {
		build(newConfig(2))

		model := gemmModel(4, 8, 4)
		Expect(c.Compile(model)).To(Succeed())
		c.DuplicateSchedule(model, 2)

		orig, dup := c.Layers()[0], c.Layers()[1]
		Expect(dup.AggrOps()).To(HaveLen(len(orig.AggrOps())))

		for i, id := range dup.AggrOps() {
			o := p.Arena.Op(orig.AggrOps()[i])
			d := p.Arena.Op(id)
			Expect(d.IsPlaced()).To(BeTrue())
			Expect(d.Unit).To(Equal(o.Unit))
			Expect(d.Aggr.Flip).To(Equal(o.Aggr.Flip))
			Expect(d.Round - o.Round).To(Equal(dup.InitRound - orig.InitRound))
			Expect(p.Arena.Tile(d.Pout).Bank).To(Equal(p.Arena.Tile(o.Pout).Bank))
		}
	})

	It("should start a layer after its dependencies", func() {
		build(newConfig(2))

		fc1, err := workload.NewGEMMLayer("fc1", 4, 8, 4, 4, 4)
		Expect(err).NotTo(HaveOccurred())
		act := &workload.Layer{Name: "act", Type: "Activation", Deps: []string{"fc1"}}
		fc2, err := workload.NewGEMMLayer("fc2", 4, 4, 4, 4, 4, "act")
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Compile(workload.NewModel("net", 1, fc2, act, fc1))).To(Succeed())

		layers := c.ModelLayers("net")
		Expect(layers).To(HaveLen(2))
		Expect(layers[0].Name).To(Equal("fc1"))
		Expect(layers[1].InitRound).To(Equal(layers[0].EndRound + 1))
		Expect(p.Arena.Op(layers[1].MultOp(0, 0, 0)).Round).
			To(BeNumerically(">", layers[0].EndRound))
	})

	It("should duplicate the schedule after its end", func() {
		build(newConfig(1))

		model := gemmModel(4, 4, 4)
		Expect(c.Compile(model)).To(Succeed())
		c.DuplicateSchedule(model, 3)

		Expect(c.Layers()).To(HaveLen(3))
		Expect(c.NoMainRounds()).To(Equal(3))

		for i, l := range c.Layers() {
			op := p.Arena.Op(l.MultOp(0, 0, 0))
			Expect(l.Copy).To(Equal(i))
			Expect(op.Copy).To(Equal(i))
			Expect(op.Round).To(Equal(i))
			Expect(op.Unit).To(Equal(0))
		}

		orig := p.Arena.Op(c.Layers()[0].MultOp(0, 0, 0))
		dup := p.Arena.Op(c.Layers()[1].MultOp(0, 0, 0))
		Expect(dup.Mult.X).NotTo(Equal(orig.Mult.X))
		Expect(p.Arena.Tile(dup.Mult.X).Bank).To(Equal(p.Arena.Tile(orig.Mult.X).Bank))
	})

	It("should replay the compiled schedule", func() {
		build(newConfig(1))

		model := gemmModel(4, 4, 4)
		Expect(c.Compile(model)).To(Succeed())

		res, err := c.RunCycleModel()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.NoCycles).To(Equal(8))
		Expect(res.NoLayers).To(Equal(1))
		Expect(res.TotalGEMMOps).To(Equal(1))
		Expect(res.NoOps).To(Equal(2 * 4 * 4 * 4))
	})

	It("should produce the same schedule with a parallel search", func() {
		cfg := newConfig(4)
		cfg.Interconnect = string(interconnect.TypeBanyan)

		seqP := newPlatform(cfg)
		seq := compiler.Builder{}.WithPlatform(seqP).Build("Seq")
		Expect(seq.Compile(gemmModel(16, 16, 16))).To(Succeed())

		parP := newPlatform(cfg)
		par := compiler.Builder{}.
			WithPlatform(parP).
			WithSearcher(search.NewParallel(4).WithChunkSize(2)).
			Build("Par")
		Expect(par.Compile(gemmModel(16, 16, 16))).To(Succeed())

		Expect(parP.Arena.NumOps()).To(Equal(seqP.Arena.NumOps()))
		for i, op := range seqP.Arena.Ops() {
			other := parP.Arena.Op(graph.OpID(i))
			Expect(other.Round).To(Equal(op.Round))
			Expect(other.Unit).To(Equal(op.Unit))
			Expect(parP.Arena.Tile(other.Pout).Bank).
				To(Equal(seqP.Arena.Tile(op.Pout).Bank))

			if op.Kind == graph.OpMultiply {
				Expect(parP.Arena.Tile(other.Mult.X).Bank).
					To(Equal(seqP.Arena.Tile(op.Mult.X).Bank))
				Expect(parP.Arena.Tile(other.Mult.W).Bank).
					To(Equal(seqP.Arena.Tile(op.Mult.W).Bank))
			}
		}
	})
})

var _ = Describe("Compiler with mocked networks", func() {
	var (
		mockCtrl *gomock.Controller
		nets     []*MockOracle
		p        *config.Platform
		c        *compiler.Compiler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		nets = nil
		oracles := make([]interconnect.Oracle, 7)
		for i := range oracles {
			n := NewMockOracle(mockCtrl)
			n.EXPECT().NumPorts().Return(2).AnyTimes()
			n.EXPECT().ApplyPermute(gomock.Any()).Return(true).AnyTimes()
			nets = append(nets, n)
			oracles[i] = n
		}

		cfg := newConfig(2)
		cfg.MaxPlacementRounds = 4
		p = config.PlatformBuilder{}.
			WithConfig(cfg).
			WithInterconnects(interconnect.NewInterconnectsFrom(oracles...)).
			WithLogger(slog.New(slog.DiscardHandler)).
			Build("Pod")
		c = compiler.Builder{}.WithPlatform(p).Build("Compiler")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should skip units the network cannot reach", func() {
		nets[interconnect.NetX].EXPECT().IsRouteFree(gomock.Any(), 0).Return(false).AnyTimes()
		for _, n := range nets {
			n.EXPECT().IsRouteFree(gomock.Any(), gomock.Any()).Return(true).AnyTimes()
		}

		Expect(c.Compile(gemmModel(4, 4, 4))).To(Succeed())

		op := p.Arena.Op(c.ModelLayers("net")[0].MultOp(0, 0, 0))
		Expect(op.Round).To(Equal(0))
		Expect(op.Unit).To(Equal(1))
	})

	It("should give up after the configured number of rounds", func() {
		nets[interconnect.NetW].EXPECT().IsRouteFree(gomock.Any(), gomock.Any()).Return(false).AnyTimes()
		for _, n := range nets {
			n.EXPECT().IsRouteFree(gomock.Any(), gomock.Any()).Return(true).AnyTimes()
		}

		err := c.Compile(gemmModel(4, 4, 4))
		Expect(err).To(MatchError(compiler.ErrPlacementInfeasible))
	})
})
