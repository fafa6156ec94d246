package memory

import (
	"log/slog"

	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/trace"
)

// Dram is the off-chip memory. Every cycle it moves at most bandwidth bytes,
// serving write backs before loads.
type Dram struct {
	bandwidth     float64
	prefetchLimit int

	arena  *graph.Arena
	banks  *Banks
	logger *slog.Logger

	loadQueue []Request
	bytes     map[graph.Kind]float64
	stalls    int
}

// NewDram creates a Dram feeding banks. Bandwidth is in bytes per cycle.
func NewDram(
	bandwidth float64,
	prefetchLimit int,
	arena *graph.Arena,
	banks *Banks,
	logger *slog.Logger,
) *Dram {
	if bandwidth <= 0 {
		panic("dram bandwidth must be positive")
	}

	return &Dram{
		bandwidth:     bandwidth,
		prefetchLimit: prefetchLimit,
		arena:         arena,
		banks:         banks,
		logger:        trace.OrDefault(logger),
		bytes:         make(map[graph.Kind]float64),
	}
}

// Bandwidth returns the per-cycle byte budget.
func (d *Dram) Bandwidth() float64 {
	return d.bandwidth
}

// PrefetchLimit returns how many rounds ahead loads may run.
func (d *Dram) PrefetchLimit() int {
	return d.prefetchLimit
}

// Load queues a tile to be fetched for round.
func (d *Dram) Load(round int, id graph.TileID) {
	d.loadQueue = append(d.loadQueue, Request{Round: round, Tile: id})
}

// Pending returns the number of queued loads.
func (d *Dram) Pending() int {
	return len(d.loadQueue)
}

// Bytes returns the bytes moved for tiles of one kind.
func (d *Dram) Bytes(kind graph.Kind) float64 {
	return d.bytes[kind]
}

// TotalBytes returns the bytes moved for all kinds.
func (d *Dram) TotalBytes() float64 {
	total := 0.0
	for _, b := range d.bytes {
		total += b
	}

	return total
}

// Stalls returns the number of cycles a load could not start for lack of
// bank room.
func (d *Dram) Stalls() int {
	return d.stalls
}

// Update runs one cycle of transfers and returns the bytes moved.
func (d *Dram) Update(currentRound int) float64 {
	used := 0.0

	for _, bank := range d.banks.OfKind(graph.KindP) {
		moved := bank.WriteBack(d.bandwidth - used)
		used += moved
		d.bytes[graph.KindP] += moved

		if used >= d.bandwidth {
			return used
		}
	}

	for used < d.bandwidth && len(d.loadQueue) > 0 {
		req := d.loadQueue[0]
		if req.Round > currentRound+d.prefetchLimit {
			break
		}

		t := d.arena.Tile(req.Tile)
		bank := d.banks.Of(t)

		if t.Resident() {
			bank.PushEvictQueue(req.Round, req.Tile)
			d.loadQueue = d.loadQueue[1:]

			continue
		}

		if !t.Allocated() &&
			!bank.AllocOrEvict(req.Round, req.Tile, currentRound) {
			d.stalls++
			trace.Log(d.logger, "DramStall",
				"bank", bank.Name(), "tile", req.Tile, "round", currentRound)

			break
		}

		moved := t.Transfer(d.bandwidth - used)
		used += moved
		d.bytes[t.Kind] += moved

		if !t.Resident() {
			break
		}

		d.loadQueue = d.loadQueue[1:]
	}

	return used
}
