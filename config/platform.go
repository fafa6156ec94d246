package config

import (
	"log/slog"

	"github.com/sarchlab/podsim/compute"
	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/interconnect"
	"github.com/sarchlab/podsim/memory"
	"github.com/sarchlab/podsim/trace"
)

// A Platform owns every resource a compilation and its replay use.
type Platform struct {
	Name   string
	Config Config
	Logger *slog.Logger

	Arena          *graph.Arena
	Arrays         *compute.Arrays
	PostProcessors *compute.PostProcessors
	Banks          *memory.Banks
	Interconnects  *interconnect.Interconnects
	Dram           *memory.Dram
}

// PlatformBuilder can build platforms.
type PlatformBuilder struct {
	config        Config
	logger        *slog.Logger
	interconnects *interconnect.Interconnects
}

// WithConfig sets the hardware parameters.
func (b PlatformBuilder) WithConfig(c Config) PlatformBuilder {
	b.config = c
	return b
}

// WithLogger sets the logger handed to every resource.
func (b PlatformBuilder) WithLogger(logger *slog.Logger) PlatformBuilder {
	b.logger = logger
	return b
}

// WithInterconnects replaces the networks derived from the config.
func (b PlatformBuilder) WithInterconnects(ic *interconnect.Interconnects) PlatformBuilder {
	b.interconnects = ic
	return b
}

// Build creates a platform. It panics on an invalid config.
func (b PlatformBuilder) Build(name string) *Platform {
	c := b.config.WithDerivedDefaults()
	if err := c.Validate(); err != nil {
		panic(err)
	}

	logger := trace.OrDefault(b.logger).With("platform", name)
	arena := graph.NewArena()

	unitBuilder := compute.NewBuilder().
		WithArena(arena).
		WithLogger(logger).
		WithArraySize(c.ArrayRows, c.ArrayCols)

	banks := memory.NewBanks(c.NumBanks, c.BankSize, arena, logger)

	ic := b.interconnects
	if ic == nil {
		t, err := c.InterconnectType()
		if err != nil {
			panic(err)
		}

		ic = interconnect.NewInterconnects(t, c.Ports())
	}

	return &Platform{
		Name:           name,
		Config:         c,
		Logger:         logger,
		Arena:          arena,
		Arrays:         unitBuilder.BuildArrays(c.NumArrays),
		PostProcessors: unitBuilder.BuildPostProcessors(c.NumPostProcessors),
		Banks:          banks,
		Interconnects:  ic,
		Dram: memory.NewDram(c.BytesPerCycle(), c.PrefetchLimit,
			arena, banks, logger),
	}
}
