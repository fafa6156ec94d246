package interconnect

// Network names one of the seven networks of a platform.
type Network int

// The networks. X, W, Pin and Pout connect banks to arrays; PPIn1, PPIn2 and
// PPOut connect banks to post-processors.
const (
	NetX Network = iota
	NetW
	NetPin
	NetPout
	NetPPIn1
	NetPPIn2
	NetPPOut
	numNetworks
)

var networkNames = [...]string{"X", "W", "Pin", "Pout", "PPIn1", "PPIn2", "PPOut"}

func (n Network) String() string {
	return networkNames[n]
}

// Interconnects bundles the seven networks.
type Interconnects struct {
	nets [numNetworks]Oracle
}

// NewInterconnects creates seven networks of one topology for n ports.
func NewInterconnects(t Type, n int) *Interconnects {
	ic := &Interconnects{}
	for i := range ic.nets {
		ic.nets[i] = New(t, n)
	}

	return ic
}

// NewInterconnectsFrom bundles the given oracles, ordered as the Network
// constants.
func NewInterconnectsFrom(oracles ...Oracle) *Interconnects {
	if len(oracles) != int(numNetworks) {
		panic("need one oracle per network")
	}

	ic := &Interconnects{}
	copy(ic.nets[:], oracles)

	return ic
}

// Get returns one network.
func (ic *Interconnects) Get(n Network) Oracle {
	return ic.nets[n]
}

// Clone deep copies every network.
func (ic *Interconnects) Clone() *Interconnects {
	c := &Interconnects{}
	for i, n := range ic.nets {
		c.nets[i] = n.Clone()
	}

	return c
}

func roundTrip(o Oracle) int {
	return o.DataReqLatency() + o.DataReadLatency()
}

// SRAMRoundTrip is the minimum number of cycles an array round takes: the
// slowest operand read plus the result write.
func (ic *Interconnects) SRAMRoundTrip() int {
	read := max(
		roundTrip(ic.nets[NetX]),
		roundTrip(ic.nets[NetW]),
		roundTrip(ic.nets[NetPin]),
	)

	return read + ic.nets[NetPout].DataWriteLatency()
}

// PPLatencyOffset is how far post-processor results trail their round,
// excluding the post-processor pipeline itself.
func (ic *Interconnects) PPLatencyOffset() int {
	read := max(roundTrip(ic.nets[NetPPIn1]), roundTrip(ic.nets[NetPPIn2]))

	return read + ic.nets[NetPPOut].DataWriteLatency()
}
