package cyclemodel

import (
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/podsim/config"
	"github.com/sarchlab/podsim/trace"
)

// Builder can build replay engines.
type Builder struct {
	engine        sim.Engine
	platform      *config.Platform
	timeoutFactor float64
}

// NewBuilder creates a builder with a stall timeout of 100 times the
// transfer time of the awaited round.
func NewBuilder() Builder {
	return Builder{timeoutFactor: 100}
}

// WithEngine sets the event engine. A serial engine is used if unset.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithPlatform sets the compiled platform to replay.
func (b Builder) WithPlatform(p *config.Platform) Builder {
	b.platform = p
	return b
}

// WithTimeoutFactor scales the stall timeout.
func (b Builder) WithTimeoutFactor(f float64) Builder {
	if f <= 0 {
		panic("timeout factor must be positive")
	}

	b.timeoutFactor = f

	return b
}

// Build creates a replay engine.
func (b Builder) Build(name string) *Engine {
	if b.platform == nil {
		panic("platform is not set")
	}

	p := b.platform

	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	e := &Engine{
		engine:          engine,
		logger:          trace.OrDefault(p.Logger).With("cycle_model", name),
		arena:           p.Arena,
		arrays:          p.Arrays,
		pps:             p.PostProcessors,
		banks:           p.Banks,
		dram:            p.Dram,
		prefetch:        p.Config.PrefetchLimit,
		abortOnLivelock: p.Config.AbortOnLivelock,
		timeoutFactor:   b.timeoutFactor,
		sramRoundTrip:   p.Interconnects.SRAMRoundTrip(),
		ppOffset:        p.Interconnects.PPLatencyOffset() + p.Config.PPLatency,
		lastPostDone:    -1,
	}

	e.result.RunID = xid.New().String()
	e.TickingComponent = sim.NewTickingComponent(name, engine, p.Config.Freq(), e)

	return e
}
