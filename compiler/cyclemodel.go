package compiler

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/podsim/cyclemodel"
)

// CycleModel creates the replay engine of the schedule. A nil engine selects
// a serial one.
func (c *Compiler) CycleModel(engine sim.Engine) *cyclemodel.Engine {
	return cyclemodel.NewBuilder().
		WithEngine(engine).
		WithPlatform(c.platform).
		Build(c.name + ".CycleModel")
}

// Replay runs a replay engine created by CycleModel and completes its result
// with workload statistics.
func (c *Compiler) Replay(e *cyclemodel.Engine) (*cyclemodel.Result, error) {
	res, err := e.Run()
	if err != nil {
		return nil, fmt.Errorf("compiler %s: %w", c.name, err)
	}

	for _, layers := range c.models {
		res.NoLayers += len(layers)
		for _, l := range layers {
			res.TotalGEMMOps += l.Source.GEMM.NoMultOps()
		}
	}

	return res, nil
}

// RunCycleModel replays the schedule on a serial engine.
func (c *Compiler) RunCycleModel(hooks ...sim.Hook) (*cyclemodel.Result, error) {
	e := c.CycleModel(nil)
	for _, h := range hooks {
		e.AcceptHook(h)
	}

	return c.Replay(e)
}
