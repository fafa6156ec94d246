package interconnect

// banyan is a self-routing butterfly. A packet leaving stage s sits on the
// link whose top s+1 address bits come from the destination and whose
// remaining bits come from the source. Two sources may not share a link; one
// source may fan out along shared links.
type banyan struct {
	base
	stages int
	links  [][]int
}

func newBanyan(stages int) *banyan {
	b := &banyan{
		base:   base{mapping: NewPermutation(1 << stages), latency: stages},
		stages: stages,
	}
	b.links = make([][]int, stages)
	for s := range b.links {
		b.links[s] = NewPermutation(1 << stages)
	}

	return b
}

func (b *banyan) link(stage, src, dst int) int {
	low := b.stages - stage - 1
	mask := (1 << low) - 1

	return (dst &^ mask) | (src & mask)
}

func (b *banyan) route(src, dst int, set bool) bool {
	for s := 0; s < b.stages; s++ {
		l := b.link(s, src, dst)
		if occ := b.links[s][l]; occ != Free && occ != src {
			return false
		}
	}

	if set {
		for s := 0; s < b.stages; s++ {
			b.links[s][b.link(s, src, dst)] = src
		}
	}

	return true
}

func (b *banyan) ApplyPermute(p Permutation) bool {
	b.checkPorts(p)
	b.Reset()

	ok := true
	for unit, bank := range p {
		if bank == Free {
			continue
		}

		b.mapping[unit] = bank
		if !b.route(bank, unit, true) {
			ok = false
		}
	}

	return ok
}

func (b *banyan) IsRouteFree(bank, unit int) bool {
	if b.mapping[unit] != Free {
		return false
	}

	return b.route(bank, unit, false)
}

func (b *banyan) Clone() Oracle {
	n := newBanyan(b.stages)
	copy(n.mapping, b.mapping)
	for s := range b.links {
		copy(n.links[s], b.links[s])
	}

	return n
}

func (b *banyan) Reset() {
	for i := range b.mapping {
		b.mapping[i] = Free
	}

	for s := range b.links {
		for i := range b.links[s] {
			b.links[s][i] = Free
		}
	}
}
