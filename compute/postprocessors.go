package compute

import (
	"fmt"

	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/interconnect"
)

// PostProcessors is the set of post-processors of a platform.
type PostProcessors struct {
	arena *graph.Arena
	pps   []*PostProcessor
}

// Count returns the number of post-processors.
func (ps *PostProcessors) Count() int {
	return len(ps.pps)
}

// Get returns one post-processor.
func (ps *PostProcessors) Get(id int) *PostProcessor {
	return ps.pps[id]
}

// All returns every post-processor.
func (ps *PostProcessors) All() []*PostProcessor {
	return ps.pps
}

// Available returns the post-processors with no op in round r.
func (ps *PostProcessors) Available(r int) []int {
	var avail []int
	for _, p := range ps.pps {
		if p.IsScheduleEmpty(r) {
			avail = append(avail, p.ID)
		}
	}

	return avail
}

// Ops returns the ops placed in round r.
func (ps *PostProcessors) Ops(r int) []graph.OpID {
	var ops []graph.OpID
	for _, p := range ps.pps {
		if op, ok := p.Op(r); ok {
			ops = append(ops, op)
		}
	}

	return ops
}

// OperandTile returns the tile an aggregate op exchanges over a network.
func (ps *PostProcessors) OperandTile(op graph.OpID, net interconnect.Network) graph.TileID {
	in1, in2 := ps.arena.Inputs(op)

	switch net {
	case interconnect.NetPPIn1:
		return in1
	case interconnect.NetPPIn2:
		return in2
	case interconnect.NetPPOut:
		return ps.arena.Op(op).Pout
	default:
		panic(fmt.Sprintf("post-processors do not use network %s", net))
	}
}

// Permute returns which bank feeds which post-processor over net in round r.
func (ps *PostProcessors) Permute(r int, net interconnect.Network, ports int) interconnect.Permutation {
	p := interconnect.NewPermutation(ports)

	for _, pp := range ps.pps {
		op, ok := pp.Op(r)
		if !ok {
			continue
		}

		if t := ps.arena.Tile(ps.OperandTile(op, net)); t.IsBound() {
			p.Set(t.Bank, pp.ID)
		}
	}

	return p
}

// CheckBankConflict tells if another op of round r uses the bank of tile on
// net for a different tile.
func (ps *PostProcessors) CheckBankConflict(
	r int,
	net interconnect.Network,
	tile graph.TileID,
) bool {
	t := ps.arena.Tile(tile)
	if !t.IsBound() {
		return false
	}

	for _, op := range ps.Ops(r) {
		other := ps.OperandTile(op, net)
		if other == tile {
			continue
		}

		if ps.arena.Tile(other).Bank == t.Bank {
			return true
		}
	}

	return false
}

// LastRound returns the latest round with an op on any post-processor, or -1.
func (ps *PostProcessors) LastRound() int {
	last := -1
	for _, p := range ps.pps {
		last = max(last, p.LastRound())
	}

	return last
}

// InitTileOp starts round r on every post-processor.
func (ps *PostProcessors) InitTileOp(r int) {
	for _, p := range ps.pps {
		p.InitTileOp(r)
	}
}

// IsTileOpDone tells if every post-processor finished round r.
func (ps *PostProcessors) IsTileOpDone(r int) bool {
	for _, p := range ps.pps {
		if !p.IsTileOpDone(r) {
			return false
		}
	}

	return true
}

// Update advances every post-processor by one cycle.
func (ps *PostProcessors) Update() bool {
	madeProgress := false
	for _, p := range ps.pps {
		madeProgress = p.Update() || madeProgress
	}

	return madeProgress
}

// Counters sums the counters of all post-processors.
func (ps *PostProcessors) Counters() Counters {
	var c Counters
	for _, p := range ps.pps {
		c.add(p.Counters)
	}

	return c
}
