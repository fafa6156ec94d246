// Package cyclemodel replays a compiled schedule cycle by cycle.
package cyclemodel

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/podsim/compute"
	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/memory"
	"github.com/sarchlab/podsim/trace"
)

// HookPosRoundComplete marks the completion of a round. The hook item is a
// RoundRecord.
var HookPosRoundComplete = &sim.HookPos{Name: "RoundComplete"}

type phase int

const (
	phaseWarmUp phase = iota
	phaseSteady
	phaseDone
)

// Engine steps the arrays, the post-processors, the banks and the Dram of a
// platform one cycle per tick. A platform can be replayed only once.
type Engine struct {
	*sim.TickingComponent

	engine sim.Engine
	logger *slog.Logger

	arena  *graph.Arena
	arrays *compute.Arrays
	pps    *compute.PostProcessors
	banks  *memory.Banks
	dram   *memory.Dram

	prefetch        int
	abortOnLivelock bool
	timeoutFactor   float64
	sramRoundTrip   int
	ppOffset        int

	lastRound int
	required  [][]graph.TileID

	started    bool
	phase      phase
	round      int
	cycle      int
	roundStart int
	stall      int
	collected  bool

	lastArrayDone int
	lastPostDone  int

	result Result
}

// Run replays the schedule and returns its statistics.
func (e *Engine) Run() (*Result, error) {
	if e.started {
		panic("a schedule can only be replayed once")
	}

	e.started = true
	e.prepare()

	if e.lastRound < 0 {
		e.finish()
		return &e.result, nil
	}

	e.TickLater()

	if err := e.engine.Run(); err != nil {
		return nil, fmt.Errorf("replay failed: %w", err)
	}

	return &e.result, nil
}

// Result returns the statistics gathered so far.
func (e *Engine) Result() *Result {
	return &e.result
}

// prepare queues every tile the schedule uses in its bank, in round order.
func (e *Engine) prepare() {
	e.lastRound = max(e.arrays.LastRound(), e.pps.LastRound())
	e.required = make([][]graph.TileID, e.lastRound+1)

	for r := 0; r <= e.lastRound; r++ {
		seen := make(map[graph.TileID]bool)
		need := func(t graph.TileID) {
			if t == graph.NoTile {
				return
			}

			e.banks.Of(e.arena.Tile(t)).EnqueueSpawn(r, t)

			if !seen[t] {
				seen[t] = true
				e.required[r] = append(e.required[r], t)
			}
		}

		for _, op := range e.arrays.Ops(r) {
			o := e.arena.Op(op)
			need(o.Mult.X)
			need(o.Mult.W)
			need(e.arena.PinTile(op))
			need(o.Pout)
		}

		for _, op := range e.pps.Ops(r) {
			in1, in2 := e.arena.Inputs(op)
			need(in1)
			need(in2)
			need(e.arena.Op(op).Pout)
		}
	}

	e.result.NoMainRounds = e.arrays.LastRound() + 1
	e.result.NoPostRounds = e.pps.LastRound() + 1
	e.result.SRAMRoundTrip = e.sramRoundTrip
	e.result.PPLatencyOffset = e.ppOffset
}

// Tick runs one cycle.
func (e *Engine) Tick() bool {
	if e.phase == phaseDone {
		return false
	}

	e.cycle++

	memRound := e.memoryRound()
	e.spawn(memRound)
	e.dram.Update(memRound)

	switch e.phase {
	case phaseWarmUp:
		e.warmUp()
	case phaseSteady:
		e.steady()
	}

	return e.phase != phaseDone
}

// memoryRound is the round the banks evict and prefetch against. Once the
// current round finished computing, its tiles may leave.
func (e *Engine) memoryRound() int {
	if e.phase == phaseSteady && e.roundDone() {
		return e.round + 1
	}

	return e.round
}

func (e *Engine) roundDone() bool {
	return e.arrays.IsTileOpDone(e.round) && e.pps.IsTileOpDone(e.round)
}

func (e *Engine) spawn(memRound int) {
	for _, bank := range e.banks.All() {
		for _, req := range bank.Spawn(memRound+e.prefetch, memRound) {
			e.dram.Load(req.Round, req.Tile)
		}
	}
}

// resident tells if every tile of round r has arrived.
func (e *Engine) resident(r int) bool {
	if r > e.lastRound {
		return true
	}

	for _, t := range e.required[r] {
		if !e.arena.Tile(t).Resident() {
			return false
		}
	}

	return true
}

func (e *Engine) warmUp() {
	e.arrays.InitWeightBuffering(0)
	e.arrays.Update()

	if !e.resident(0) {
		e.wait(0, 0)
		return
	}

	if !e.arrays.IsWeightBuffered(0) {
		return
	}

	e.result.WarmUpCycles = e.cycle
	e.startRound(0)
}

func (e *Engine) steady() {
	r := e.round

	e.arrays.InitWeightBuffering(r + 1)
	e.arrays.Update()
	e.pps.Update()

	if !e.roundDone() {
		return
	}

	if !e.collected {
		e.banks.GarbageCollect(r)
		e.collected = true
	}

	if e.cycle-e.roundStart < e.sramRoundTrip {
		return
	}

	if r == e.lastRound {
		e.completeRound()
		e.finish()

		return
	}

	if !e.resident(r + 1) {
		e.wait(r+1, r+1)
		return
	}

	if !e.arrays.IsWeightBuffered(r + 1) {
		return
	}

	e.completeRound()
	e.startRound(r + 1)
}

func (e *Engine) startRound(r int) {
	e.round = r
	e.roundStart = e.cycle
	e.stall = 0
	e.collected = false
	e.phase = phaseSteady

	e.arrays.InitTileOp(r)
	e.pps.InitTileOp(r)
}

func (e *Engine) completeRound() {
	r := e.round

	if len(e.arrays.Ops(r)) > 0 {
		e.lastArrayDone = e.cycle
	}

	if len(e.pps.Ops(r)) > 0 {
		e.lastPostDone = e.cycle
	}

	rec := RoundRecord{
		Round:       r,
		StartCycle:  e.roundStart,
		EndCycle:    e.cycle,
		StallCycles: e.stall,
		XUsed:       e.banks.Used(graph.KindX),
		WUsed:       e.banks.Used(graph.KindW),
		PUsed:       e.banks.Used(graph.KindP),
	}

	trace.Log(e.logger, "RoundComplete",
		"round", r, "cycle", e.cycle, "stall", e.stall)

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    HookPosRoundComplete,
		Item:   rec,
	})
}

// wait accounts one cycle spent waiting for the data of round awaited.
func (e *Engine) wait(awaited, memRound int) {
	if e.stall == 0 {
		trace.Log(e.logger, "MemoryStall", "round", awaited, "cycle", e.cycle)
	}

	e.stall++
	if e.phase == phaseSteady {
		e.result.MemoryStallCycles++
	}

	if !e.result.Livelock && e.livelocked(awaited, memRound) {
		e.result.Livelock = true
		if e.abortOnLivelock {
			e.fail(FailureLivelock, awaited)
			return
		}
	}

	if float64(e.stall) > e.timeout(awaited) {
		e.fail(FailureTimeout, awaited)
	}
}

// livelocked tells if a tile needed by round awaited is stuck at the head of
// its bank's spawn queue.
func (e *Engine) livelocked(awaited, memRound int) bool {
	for _, bank := range e.banks.All() {
		head, stuck := bank.Stuck(memRound)
		if !stuck || head.Round > awaited {
			continue
		}

		e.logger.Warn("Livelock",
			"bank", bank.Name(),
			"tile", head.Tile,
			"round", awaited,
			"free", bank.Free(),
			"size", e.arena.Tile(head.Tile).MemorySize())

		return true
	}

	return false
}

// timeout is the number of stall cycles tolerated for round r.
func (e *Engine) timeout(r int) float64 {
	bytes := 0
	for _, t := range e.required[r] {
		bytes += e.arena.Tile(t).MemorySize()
	}

	return math.Ceil(e.timeoutFactor * float64(bytes) / e.dram.Bandwidth())
}

func (e *Engine) fail(f Failure, round int) {
	e.phase = phaseDone
	e.result.Failure = f
	e.result.FailedRound = round
	e.collect()
	e.result.NoCycles = -1

	e.logger.Warn("CycleModelAborted",
		"reason", string(f),
		"round", round,
		"cycle", e.cycle,
		"stall", e.stall)
}

func (e *Engine) finish() {
	e.phase = phaseDone

	e.result.ArrayCycles = e.lastArrayDone
	if e.lastPostDone >= 0 {
		e.result.PostCycles = e.lastPostDone + e.ppOffset
	}

	e.result.NoCycles = max(e.result.ArrayCycles, e.result.PostCycles)
	e.collect()

	e.logger.Info("CycleModelDone",
		"cycles", e.result.NoCycles,
		"rounds", e.lastRound+1,
		"memory_stall", e.result.MemoryStallCycles)
}

// collect copies the unit and Dram counters into the result.
func (e *Engine) collect() {
	ac := e.arrays.Counters()
	pc := e.pps.Counters()

	e.result.NoOps = 2 * ac.Ops
	e.result.NoPostOps = pc.Ops
	e.result.SRAMReadBytes = ac.SRAMReadBytes + pc.SRAMReadBytes
	e.result.SRAMWriteBytes = ac.SRAMWriteBytes + pc.SRAMWriteBytes

	e.result.XBytes = e.dram.Bytes(graph.KindX)
	e.result.WBytes = e.dram.Bytes(graph.KindW)
	e.result.PBytes = e.dram.Bytes(graph.KindP)
	e.result.TotalBytes = e.dram.TotalBytes()
	e.result.DramStalls = e.dram.Stalls()

	if e.result.NoCycles > 0 && e.arrays.Count() > 0 {
		e.result.ArrayUtilization = float64(ac.BusyCycles) /
			float64(e.arrays.Count()*e.result.NoCycles)
	}
}
