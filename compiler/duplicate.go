package compiler

import (
	"fmt"

	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/workload"
)

// DuplicateSchedule appends n-1 copies of a compiled model after the current
// end of the schedule. Every copy gets fresh tiles and ops that keep the bank,
// unit and relative round of the first copy.
func (c *Compiler) DuplicateSchedule(model *workload.Model, n int) {
	c.duplicate(c.models[model.Name], n)
}

func (c *Compiler) duplicate(layers []*Layer, n int) {
	if len(layers) == 0 {
		return
	}

	first := layers[0].InitRound
	for _, l := range layers {
		first = min(first, c.firstRound(l))
	}

	for copyIdx := 1; copyIdx < n; copyIdx++ {
		offset := max(c.NoMainRounds(), c.NoPostRounds()) - first

		d := &duplicator{
			c:      c,
			copy:   copyIdx,
			offset: offset,
			tiles:  make(map[graph.TileID]graph.TileID),
			ops:    make(map[graph.OpID]graph.OpID),
		}

		for _, l := range layers {
			c.layers = append(c.layers, d.layer(l))
		}

		c.logger.Debug("ScheduleDuplicated", "copy", copyIdx, "offset", offset)
	}
}

// firstRound returns the earliest round of any placed op of a layer.
func (c *Compiler) firstRound(l *Layer) int {
	first := l.EndRound
	for _, op := range l.multOps {
		first = min(first, c.arena.Op(op).Round)
	}

	return first
}

type duplicator struct {
	c      *Compiler
	copy   int
	offset int
	tiles  map[graph.TileID]graph.TileID
	ops    map[graph.OpID]graph.OpID
}

func (d *duplicator) tile(id graph.TileID) graph.TileID {
	if t, ok := d.tiles[id]; ok {
		return t
	}

	t := d.c.arena.CloneTile(id)
	d.tiles[id] = t

	return t
}

func (d *duplicator) layer(l *Layer) *Layer {
	arena := d.c.arena

	nl := newLayer(l.Source, l.InitRound+d.offset)
	nl.Copy = d.copy
	nl.EndRound = l.EndRound + d.offset

	for _, id := range l.multOps {
		op := arena.Op(id)

		nid := arena.NewMultOp(op.Layer, op.Mult.Index,
			d.tile(op.Mult.X), d.tile(op.Mult.W))
		arena.Tile(arena.Op(nid).Pout).BindBank(arena.Tile(op.Pout).Bank)
		arena.Op(nid).Copy = d.copy

		d.ops[id] = nid
		nl.addMultOp(op.Mult.Index, nid)
		d.c.arrays.Get(op.Unit).Assign(op.Round+d.offset, nid)
	}

	for _, id := range l.multOps {
		if op := arena.Op(id); op.HasPin() {
			arena.SetPin(d.ops[id], d.ops[op.Mult.Pin])
		}
	}

	for i := 0; i < len(l.aggrOps); i += 2 {
		first, twin := l.aggrOps[i], l.aggrOps[i+1]
		agg := arena.Op(first).Aggr

		nFirst, nTwin := arena.NewAggrOp(d.ops[agg.Operand1], d.ops[agg.Operand2])
		arena.Op(nFirst).Copy = d.copy
		arena.Op(nTwin).Copy = d.copy
		d.ops[first] = nFirst
		d.ops[twin] = nTwin
		nl.aggrOps = append(nl.aggrOps, nFirst, nTwin)

		d.placeAggr(l, first, nFirst)
		d.placeAggr(l, twin, nTwin)
	}

	for key, out := range l.outputs {
		nl.outputs[key] = d.ops[out]
	}

	return nl
}

// placeAggr puts the copy of an aggregate op on the unit and bank of id.
func (d *duplicator) placeAggr(l *Layer, id, nid graph.OpID) {
	arena := d.c.arena

	op := arena.Op(id)
	if !op.IsPlaced() {
		panic(fmt.Sprintf("aggregate op %d of layer %s is not placed", id, l.Name))
	}

	arena.Tile(arena.Op(nid).Pout).BindBank(arena.Tile(op.Pout).Bank)
	d.c.pps.Get(op.Unit).Assign(op.Round+d.offset, nid)
}
