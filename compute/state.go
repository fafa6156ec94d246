// Package compute models the systolic arrays and post-processors, their
// per-round assignment tables and their pipelines.
package compute

// BufferState is the state of an array's weight buffer.
type BufferState int

// Weight buffer states.
const (
	BufferEmpty BufferState = iota
	BufferBuffering
	BufferBuffered
)

func (s BufferState) String() string {
	switch s {
	case BufferEmpty:
		return "empty"
	case BufferBuffering:
		return "buffering"
	case BufferBuffered:
		return "buffered"
	default:
		panic("invalid buffer state")
	}
}

// ExecState is the state of a unit's execution pipeline.
type ExecState int

// Execution states.
const (
	ExecIdle ExecState = iota
	ExecProcessing
	ExecDone
)

func (s ExecState) String() string {
	switch s {
	case ExecIdle:
		return "idle"
	case ExecProcessing:
		return "processing"
	case ExecDone:
		return "done"
	default:
		panic("invalid exec state")
	}
}

// Counters accumulate the work a unit performs.
type Counters struct {
	SRAMReadBytes  int
	SRAMWriteBytes int
	// Ops counts multiply-accumulates on arrays and additions on
	// post-processors.
	Ops        int
	BusyCycles int
}

func (c *Counters) add(o Counters) {
	c.SRAMReadBytes += o.SRAMReadBytes
	c.SRAMWriteBytes += o.SRAMWriteBytes
	c.Ops += o.Ops
	c.BusyCycles += o.BusyCycles
}
