package compute

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/trace"
)

// A PostProcessor adds two partial results, one row per cycle.
type PostProcessor struct {
	ID int

	arena  *graph.Arena
	logger *slog.Logger

	schedule  map[int]graph.OpID
	lastRound int

	execState ExecState
	execCount int
	execRound int
	execOp    graph.OpID

	Counters
}

// Assign places op on the post-processor in round r.
func (p *PostProcessor) Assign(r int, op graph.OpID) {
	if cur, ok := p.schedule[r]; ok {
		panic(fmt.Sprintf("post-processor %d round %d already runs op %d",
			p.ID, r, cur))
	}

	p.arena.Place(op, r, p.ID)
	p.schedule[r] = op

	if r > p.lastRound {
		p.lastRound = r
	}
}

// Op returns the op of round r.
func (p *PostProcessor) Op(r int) (graph.OpID, bool) {
	op, ok := p.schedule[r]
	return op, ok
}

// IsScheduleEmpty tells if no op runs in round r.
func (p *PostProcessor) IsScheduleEmpty(r int) bool {
	_, ok := p.schedule[r]
	return !ok
}

// LastRound returns the latest round with an op, or -1.
func (p *PostProcessor) LastRound() int {
	return p.lastRound
}

// ExecState returns the state of the execution pipeline.
func (p *PostProcessor) ExecState() ExecState {
	return p.execState
}

// InitTileOp starts the op of round r. Both inputs and the output must be
// resident.
func (p *PostProcessor) InitTileOp(r int) {
	if p.execState == ExecProcessing {
		panic(fmt.Sprintf("post-processor %d still processing round %d",
			p.ID, p.execRound))
	}

	id, ok := p.schedule[r]
	if !ok {
		p.execState = ExecIdle
		p.execRound = r
		p.execOp = graph.NoOp

		return
	}

	in1, in2 := p.arena.Inputs(id)
	pout := p.arena.Tile(p.arena.Op(id).Pout)

	for _, t := range []*graph.Tile{p.arena.Tile(in1), p.arena.Tile(in2), pout} {
		if !t.Resident() {
			panic(fmt.Sprintf("post-processor %d reads tile %d which is not resident",
				p.ID, t.ID))
		}
	}

	p.SRAMReadBytes += p.arena.Tile(in1).MemorySize() + p.arena.Tile(in2).MemorySize()
	p.SRAMWriteBytes += pout.MemorySize()
	p.Ops += pout.Rows * pout.Cols

	p.execState = ExecProcessing
	p.execCount = 0
	p.execRound = r
	p.execOp = id

	trace.Log(p.logger, "PostOp", "pp", p.ID, "round", r, "op", id)
}

// IsTileOpDone tells if the op of round r has finished.
func (p *PostProcessor) IsTileOpDone(r int) bool {
	if p.IsScheduleEmpty(r) {
		return true
	}

	return p.execRound == r && p.execState == ExecDone
}

// Update advances the pipeline by one cycle.
func (p *PostProcessor) Update() bool {
	if p.execState != ExecProcessing {
		return false
	}

	pout := p.arena.Tile(p.arena.Op(p.execOp).Pout)

	p.execCount++
	p.BusyCycles++

	if p.execCount >= pout.Rows {
		p.execState = ExecDone
		p.arena.Retire(p.execOp)
	}

	return true
}
