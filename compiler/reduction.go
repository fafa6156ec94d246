package compiler

import (
	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/interconnect"
	"github.com/sarchlab/podsim/trace"
)

// CreatePinShortcuts lets later multiply ops of output tile (i, k) accumulate
// the result of earlier ones directly. Pairing is first fit in j order. It
// returns the ops whose results still need a reduction, in j order.
func (c *Compiler) CreatePinShortcuts(layer *Layer, i, k int) []graph.OpID {
	nj := layer.Source.GEMM.NoTiles[1]

	unconsumed := make([]graph.OpID, 0, nj)
	for j := 0; j < nj; j++ {
		unconsumed = append(unconsumed, layer.MultOp(i, j, k))
	}

	for j1 := 0; j1 < nj; j1++ {
		op1 := c.arena.Op(layer.MultOp(i, j1, k))

		for j2 := 0; j2 < nj; j2++ {
			op2 := c.arena.Op(layer.MultOp(i, j2, k))
			if op2.HasPin() || op2.Round <= op1.Round {
				continue
			}

			if c.arrays.CheckBankConflict(op2.Round, interconnect.NetPin, op1.Pout) {
				continue
			}

			pin := c.ic.Get(interconnect.NetPin)
			if !pin.ApplyPermute(c.arrays.Permute(op2.Round, interconnect.NetPin, c.ports)) {
				continue
			}

			if !pin.IsRouteFree(c.arena.Tile(op1.Pout).Bank, op2.Unit) {
				continue
			}

			c.arena.SetPin(op2.ID, op1.ID)
			unconsumed = remove(unconsumed, op1.ID)

			trace.Log(c.logger, "PinShortcut",
				"layer", layer.Name, "from", op1.ID, "to", op2.ID, "round", op2.Round)

			break
		}
	}

	return unconsumed
}

func remove(ops []graph.OpID, op graph.OpID) []graph.OpID {
	for i, o := range ops {
		if o == op {
			return append(ops[:i], ops[i+1:]...)
		}
	}

	return ops
}

// BuildReductionTree pairs the unconsumed ops of output tile (i, k) in
// insertion order until one result is left. Both ops of each pair are placed
// after their operands and the unflipped one feeds the next level.
func (c *Compiler) BuildReductionTree(
	layer *Layer,
	i, k int,
	unconsumed []graph.OpID,
) error {
	var aggrs []graph.OpID

	for len(unconsumed) >= 2 {
		op1, op2 := unconsumed[0], unconsumed[1]
		unconsumed = unconsumed[2:]

		first, twin := c.arena.NewAggrOp(op1, op2)
		unconsumed = append(unconsumed, first)
		aggrs = append(aggrs, first, twin)
		layer.aggrOps = append(layer.aggrOps, first, twin)
	}

	for _, id := range aggrs {
		r := c.arena.MaxOperandRound(id) + 1
		if err := c.placeFrom(r, id, c.PostOpPlacement); err != nil {
			return err
		}

		op := c.arena.Op(id)
		layer.extend(op.Round)

		trace.Log(c.logger, "AggrTree",
			"layer", layer.Name, "i", i, "k", k,
			"op", id, "flip", op.Aggr.Flip, "round", op.Round)
	}

	if len(unconsumed) == 1 {
		layer.outputs[[2]int{i, k}] = unconsumed[0]
	}

	return nil
}
