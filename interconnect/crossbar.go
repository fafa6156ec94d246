package interconnect

// crossbar is non-blocking: any unit that is not yet fed can be reached. A
// rearrangeable Benes network behaves the same for routing purposes, with a
// longer latency.
type crossbar struct {
	base
}

func newCrossbar(ports, latency int) *crossbar {
	return &crossbar{base{mapping: NewPermutation(ports), latency: latency}}
}

func (c *crossbar) ApplyPermute(p Permutation) bool {
	c.checkPorts(p)
	c.Reset()
	copy(c.mapping, p)

	return true
}

func (c *crossbar) IsRouteFree(_, unit int) bool {
	return c.mapping[unit] == Free
}

func (c *crossbar) Clone() Oracle {
	n := newCrossbar(len(c.mapping), c.latency)
	copy(n.mapping, c.mapping)

	return n
}

func (c *crossbar) Reset() {
	for i := range c.mapping {
		c.mapping[i] = Free
	}
}
