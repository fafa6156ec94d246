package compute

import (
	"fmt"

	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/interconnect"
)

// Arrays is the set of arrays of a platform.
type Arrays struct {
	arena  *graph.Arena
	arrays []*Array
}

// Count returns the number of arrays.
func (as *Arrays) Count() int {
	return len(as.arrays)
}

// Get returns one array.
func (as *Arrays) Get(id int) *Array {
	return as.arrays[id]
}

// All returns every array.
func (as *Arrays) All() []*Array {
	return as.arrays
}

// Available returns the arrays with no op in round r.
func (as *Arrays) Available(r int) []int {
	var avail []int
	for _, a := range as.arrays {
		if a.IsScheduleEmpty(r) {
			avail = append(avail, a.ID)
		}
	}

	return avail
}

// Schedule returns the op of every array in round r, NoOp where empty.
func (as *Arrays) Schedule(r int) []graph.OpID {
	s := make([]graph.OpID, len(as.arrays))
	for i, a := range as.arrays {
		s[i] = graph.NoOp
		if op, ok := a.Op(r); ok {
			s[i] = op
		}
	}

	return s
}

// Ops returns the ops placed in round r.
func (as *Arrays) Ops(r int) []graph.OpID {
	var ops []graph.OpID
	for _, a := range as.arrays {
		if op, ok := a.Op(r); ok {
			ops = append(ops, op)
		}
	}

	return ops
}

// OperandTile returns the tile an array op exchanges over a network, or
// NoTile.
func (as *Arrays) OperandTile(op graph.OpID, net interconnect.Network) graph.TileID {
	o := as.arena.Op(op)

	switch net {
	case interconnect.NetX:
		return o.Mult.X
	case interconnect.NetW:
		return o.Mult.W
	case interconnect.NetPin:
		return as.arena.PinTile(op)
	case interconnect.NetPout:
		return o.Pout
	default:
		panic(fmt.Sprintf("arrays do not use network %s", net))
	}
}

// Permute returns which bank feeds which array over net in round r. Units
// whose tile is not bound yet stay free.
func (as *Arrays) Permute(r int, net interconnect.Network, ports int) interconnect.Permutation {
	p := interconnect.NewPermutation(ports)

	for _, a := range as.arrays {
		op, ok := a.Op(r)
		if !ok {
			continue
		}

		tid := as.OperandTile(op, net)
		if tid == graph.NoTile {
			continue
		}

		if t := as.arena.Tile(tid); t.IsBound() {
			p.Set(t.Bank, a.ID)
		}
	}

	return p
}

// CheckBankConflict tells if another op of round r uses the bank of tile on
// net for a different tile.
func (as *Arrays) CheckBankConflict(
	r int,
	net interconnect.Network,
	tile graph.TileID,
) bool {
	t := as.arena.Tile(tile)
	if !t.IsBound() {
		return false
	}

	for _, op := range as.Ops(r) {
		other := as.OperandTile(op, net)
		if other == graph.NoTile || other == tile {
			continue
		}

		if as.arena.Tile(other).Bank == t.Bank {
			return true
		}
	}

	return false
}

// LastRound returns the latest round with an op on any array, or -1.
func (as *Arrays) LastRound() int {
	last := -1
	for _, a := range as.arrays {
		last = max(last, a.LastRound())
	}

	return last
}

// InitWeightBuffering starts buffering round r on every array and tells if
// all of them could.
func (as *Arrays) InitWeightBuffering(r int) bool {
	all := true
	for _, a := range as.arrays {
		all = a.InitWeightBuffering(r) && all
	}

	return all
}

// IsWeightBuffered tells if every array holds the weights of round r.
func (as *Arrays) IsWeightBuffered(r int) bool {
	for _, a := range as.arrays {
		if !a.IsWeightBuffered(r) {
			return false
		}
	}

	return true
}

// InitTileOp starts round r on every array.
func (as *Arrays) InitTileOp(r int) {
	for _, a := range as.arrays {
		a.InitTileOp(r)
	}
}

// IsTileOpDone tells if every array finished round r.
func (as *Arrays) IsTileOpDone(r int) bool {
	for _, a := range as.arrays {
		if !a.IsTileOpDone(r) {
			return false
		}
	}

	return true
}

// Update advances every array by one cycle.
func (as *Arrays) Update() bool {
	madeProgress := false
	for _, a := range as.arrays {
		madeProgress = a.Update() || madeProgress
	}

	return madeProgress
}

// Counters sums the counters of all arrays.
func (as *Arrays) Counters() Counters {
	var c Counters
	for _, a := range as.arrays {
		c.add(a.Counters)
	}

	return c
}
