package compute

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/trace"
)

// An Array is a systolic array with a double-buffered weight buffer. It
// executes at most one multiply op per round.
type Array struct {
	ID   int
	Rows int
	Cols int

	arena  *graph.Arena
	logger *slog.Logger

	schedule  map[int]graph.OpID
	lastRound int

	bufState BufferState
	bufCount int
	bufRound int
	nextW    graph.TileID
	currW    graph.TileID

	execState ExecState
	execCount int
	execRound int
	execOp    graph.OpID

	Counters
}

// Assign places op on the array in round r. A round holds one op only.
func (a *Array) Assign(r int, op graph.OpID) {
	if cur, ok := a.schedule[r]; ok {
		panic(fmt.Sprintf("array %d round %d already runs op %d", a.ID, r, cur))
	}

	a.arena.Place(op, r, a.ID)
	a.schedule[r] = op

	if r > a.lastRound {
		a.lastRound = r
	}
}

// Op returns the op of round r.
func (a *Array) Op(r int) (graph.OpID, bool) {
	op, ok := a.schedule[r]
	return op, ok
}

// IsScheduleEmpty tells if no op runs in round r.
func (a *Array) IsScheduleEmpty(r int) bool {
	_, ok := a.schedule[r]
	return !ok
}

// LastRound returns the latest round with an op, or -1.
func (a *Array) LastRound() int {
	return a.lastRound
}

// BufferState returns the state of the weight buffer.
func (a *Array) BufferState() BufferState {
	return a.bufState
}

// ExecState returns the state of the execution pipeline.
func (a *Array) ExecState() ExecState {
	return a.execState
}

// InitWeightBuffering starts loading the weights of round r. It returns true
// if the weights of round r are buffering or buffered after the call. It
// cannot start while another round's weights occupy the buffer or before the
// weight tile is resident.
func (a *Array) InitWeightBuffering(r int) bool {
	op, ok := a.schedule[r]
	if !ok {
		return true
	}

	if a.bufState != BufferEmpty {
		return a.bufRound == r
	}

	if a.execState != ExecIdle && a.execRound == r {
		return true
	}

	w := a.arena.Op(op).Mult.W
	if !a.arena.Tile(w).Resident() {
		return false
	}

	a.bufState = BufferBuffering
	a.bufCount = 0
	a.bufRound = r
	a.nextW = w
	a.SRAMReadBytes += a.arena.Tile(w).MemorySize()

	trace.Log(a.logger, "WeightBuffering", "array", a.ID, "round", r, "tile", w)

	return true
}

// IsWeightBuffered tells if the weights of round r are ready. A round without
// an op needs no weights.
func (a *Array) IsWeightBuffered(r int) bool {
	if a.IsScheduleEmpty(r) {
		return true
	}

	if a.execState != ExecIdle && a.execRound == r {
		return true
	}

	return a.bufState == BufferBuffered && a.bufRound == r
}

// InitTileOp starts executing the op of round r. Its weights must be
// buffered and its tiles resident.
func (a *Array) InitTileOp(r int) {
	if a.execState == ExecProcessing {
		panic(fmt.Sprintf("array %d still processing round %d", a.ID, a.execRound))
	}

	id, ok := a.schedule[r]
	if !ok {
		a.execState = ExecIdle
		a.execRound = r
		a.execOp = graph.NoOp

		return
	}

	if !a.IsWeightBuffered(r) {
		panic(fmt.Sprintf("array %d weights of round %d not buffered", a.ID, r))
	}

	op := a.arena.Op(id)
	x := a.arena.Tile(op.Mult.X)
	pout := a.arena.Tile(op.Pout)

	a.mustBeResident(x)
	a.mustBeResident(pout)

	a.SRAMReadBytes += x.MemorySize()
	if pin := a.arena.PinTile(id); pin != graph.NoTile {
		a.mustBeResident(a.arena.Tile(pin))
		a.SRAMReadBytes += a.arena.Tile(pin).MemorySize()
	}

	a.SRAMWriteBytes += pout.MemorySize()
	a.Ops += x.Rows * x.Cols * pout.Cols

	a.currW = a.nextW
	a.bufState = BufferEmpty
	a.execState = ExecProcessing
	a.execCount = 0
	a.execRound = r
	a.execOp = id

	trace.Log(a.logger, "TileOp", "array", a.ID, "round", r, "op", id)
}

func (a *Array) mustBeResident(t *graph.Tile) {
	if !t.Resident() {
		panic(fmt.Sprintf("array %d reads tile %d which is not resident", a.ID, t.ID))
	}
}

// IsTileOpDone tells if the op of round r has finished.
func (a *Array) IsTileOpDone(r int) bool {
	if a.IsScheduleEmpty(r) {
		return true
	}

	if a.execRound != r {
		return false
	}

	if a.execState == ExecDone && a.execOp != a.schedule[r] {
		panic("wrong tile is loaded")
	}

	return a.execState == ExecDone
}

// Update advances both pipelines by one cycle.
func (a *Array) Update() bool {
	madeProgress := false

	madeProgress = a.updateBuffer() || madeProgress
	madeProgress = a.updateExec() || madeProgress

	return madeProgress
}

func (a *Array) updateBuffer() bool {
	if a.bufState != BufferBuffering {
		return false
	}

	a.bufCount++
	if a.bufCount >= a.arena.Tile(a.nextW).Rows {
		a.bufState = BufferBuffered
	}

	return true
}

func (a *Array) updateExec() bool {
	if a.execState != ExecProcessing {
		return false
	}

	op := a.arena.Op(a.execOp)
	x := a.arena.Tile(op.Mult.X)

	for _, t := range []graph.TileID{op.Mult.X, a.currW, op.Pout, a.arena.PinTile(a.execOp)} {
		if t != graph.NoTile && !a.arena.Tile(t).Allocated() {
			panic(fmt.Sprintf("array %d lost tile %d of op %d", a.ID, t, a.execOp))
		}
	}

	a.execCount++
	a.BusyCycles++

	if a.execCount >= x.Rows {
		a.execState = ExecDone
		a.arena.Retire(a.execOp)
	}

	return true
}
