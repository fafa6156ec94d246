package compiler

import (
	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/interconnect"
	"github.com/sarchlab/podsim/trace"
)

// units is the view of arrays and post-processors that placement needs.
type units interface {
	Available(r int) []int
	Permute(r int, net interconnect.Network, ports int) interconnect.Permutation
	CheckBankConflict(r int, net interconnect.Network, tile graph.TileID) bool
}

// candidateBanks returns the banks a tile may use over net in round r. A
// bound tile only has its own bank, unless another tile holds it this round.
// An unbound tile may take any bank nobody uses over net in round r.
func (c *Compiler) candidateBanks(
	r int,
	us units,
	net interconnect.Network,
	tile graph.TileID,
) []int {
	t := c.arena.Tile(tile)
	if t.IsBound() {
		if us.CheckBankConflict(r, net, tile) {
			return nil
		}

		return []int{t.Bank}
	}

	used := us.Permute(r, net, c.ports).Banks()

	var banks []int
	for _, b := range c.banks.OfKind(t.Kind) {
		if !used[b.ID] {
			banks = append(banks, b.ID)
		}
	}

	return banks
}

// applyPermutes loads the permutations of round r into the networks. It
// returns false if a network cannot carry what is already placed.
func (c *Compiler) applyPermutes(r int, us units, nets ...interconnect.Network) bool {
	ok := true
	for _, net := range nets {
		ok = c.ic.Get(net).ApplyPermute(us.Permute(r, net, c.ports)) && ok
	}

	if c.searcher.Workers() > 1 {
		for w := range c.workerICs {
			c.workerICs[w] = c.ic.Clone()
		}
	}

	return ok
}

// networks returns the networks a search worker may query.
func (c *Compiler) networks(worker int) *interconnect.Interconnects {
	if c.searcher.Workers() <= 1 {
		return c.ic
	}

	return c.workerICs[worker]
}

// decompose splits a flat candidate index into one index per dimension, the
// last dimension varying fastest.
func decompose(idx int, dims ...int) []int {
	out := make([]int, len(dims))
	for d := len(dims) - 1; d >= 0; d-- {
		out[d] = idx % dims[d]
		idx /= dims[d]
	}

	return out
}

// OpPlacement tries to place a multiply op in round r. It searches units,
// then X banks, then W banks, then Pout banks, and takes the first
// combination all three networks can route.
func (c *Compiler) OpPlacement(r int, id graph.OpID) bool {
	op := c.arena.Op(id)
	if op.Kind != graph.OpMultiply {
		panic("op placement needs a multiply op")
	}

	avail := c.arrays.Available(r)
	if len(avail) == 0 {
		return false
	}

	poutBanks := c.candidateBanks(r, c.arrays, interconnect.NetPout, op.Pout)
	if len(poutBanks) == 0 {
		return false
	}

	xBanks := c.candidateBanks(r, c.arrays, interconnect.NetX, op.Mult.X)
	if len(xBanks) == 0 {
		return false
	}

	wBanks := c.candidateBanks(r, c.arrays, interconnect.NetW, op.Mult.W)
	if len(wBanks) == 0 {
		return false
	}

	if !c.applyPermutes(r, c.arrays,
		interconnect.NetPout, interconnect.NetX, interconnect.NetW) {
		return false
	}

	dims := []int{len(avail), len(xBanks), len(wBanks), len(poutBanks)}
	n := dims[0] * dims[1] * dims[2] * dims[3]

	idx, found := c.searcher.Find(n, func(worker, idx int) bool {
		d := decompose(idx, dims...)
		unit := avail[d[0]]
		ic := c.networks(worker)

		return ic.Get(interconnect.NetX).IsRouteFree(xBanks[d[1]], unit) &&
			ic.Get(interconnect.NetW).IsRouteFree(wBanks[d[2]], unit) &&
			ic.Get(interconnect.NetPout).IsRouteFree(poutBanks[d[3]], unit)
	})
	if !found {
		return false
	}

	d := decompose(idx, dims...)
	unit := avail[d[0]]

	c.arena.Tile(op.Mult.X).BindBank(xBanks[d[1]])
	c.arena.Tile(op.Mult.W).BindBank(wBanks[d[2]])
	c.arena.Tile(op.Pout).BindBank(poutBanks[d[3]])
	c.arrays.Get(unit).Assign(r, id)

	trace.Log(c.logger, "Placement",
		"layer", op.Layer, "op", id, "round", r, "array", unit,
		"x_bank", xBanks[d[1]], "w_bank", wBanks[d[2]], "p_bank", poutBanks[d[3]])

	return true
}

// PostOpPlacement tries to place an aggregate op in round r. Its operands
// must have been placed in earlier rounds.
func (c *Compiler) PostOpPlacement(r int, id graph.OpID) bool {
	op := c.arena.Op(id)
	if op.Kind != graph.OpAggregate {
		panic("post op placement needs an aggregate op")
	}

	if r <= c.arena.MaxOperandRound(id) {
		return false
	}

	avail := c.pps.Available(r)
	if len(avail) == 0 {
		return false
	}

	in1, in2 := c.arena.Inputs(id)
	if c.pps.CheckBankConflict(r, interconnect.NetPPIn1, in1) ||
		c.pps.CheckBankConflict(r, interconnect.NetPPIn2, in2) {
		return false
	}

	poutBanks := c.candidateBanks(r, c.pps, interconnect.NetPPOut, op.Pout)
	if len(poutBanks) == 0 {
		return false
	}

	if !c.applyPermutes(r, c.pps,
		interconnect.NetPPIn1, interconnect.NetPPIn2, interconnect.NetPPOut) {
		return false
	}

	bank1 := c.arena.Tile(in1).Bank
	bank2 := c.arena.Tile(in2).Bank
	dims := []int{len(avail), len(poutBanks)}

	idx, found := c.searcher.Find(dims[0]*dims[1], func(worker, idx int) bool {
		d := decompose(idx, dims...)
		unit := avail[d[0]]
		ic := c.networks(worker)

		return ic.Get(interconnect.NetPPIn1).IsRouteFree(bank1, unit) &&
			ic.Get(interconnect.NetPPIn2).IsRouteFree(bank2, unit) &&
			ic.Get(interconnect.NetPPOut).IsRouteFree(poutBanks[d[1]], unit)
	})
	if !found {
		return false
	}

	d := decompose(idx, dims...)
	unit := avail[d[0]]

	c.arena.Tile(op.Pout).BindBank(poutBanks[d[1]])
	c.pps.Get(unit).Assign(r, id)

	trace.Log(c.logger, "Placement",
		"layer", op.Layer, "op", id, "round", r, "pp", unit,
		"flip", op.Aggr.Flip, "p_bank", poutBanks[d[1]])

	return true
}
