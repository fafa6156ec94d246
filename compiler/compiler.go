// Package compiler places the operations of a workload on arrays,
// post-processors and banks, round by round.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/podsim/compute"
	"github.com/sarchlab/podsim/config"
	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/interconnect"
	"github.com/sarchlab/podsim/memory"
	"github.com/sarchlab/podsim/search"
	"github.com/sarchlab/podsim/trace"
	"github.com/sarchlab/podsim/workload"
)

// ErrPlacementInfeasible is returned when an operation cannot be placed
// within the configured number of rounds.
var ErrPlacementInfeasible = errors.New("no feasible placement")

// Compiler builds the round-indexed schedule of a platform.
type Compiler struct {
	name     string
	platform *config.Platform
	logger   *slog.Logger

	arena  *graph.Arena
	arrays *compute.Arrays
	pps    *compute.PostProcessors
	banks  *memory.Banks
	ic     *interconnect.Interconnects
	ports  int

	searcher  search.Searcher
	workerICs []*interconnect.Interconnects
	maxRounds int
	precision int

	layers []*Layer
	models map[string][]*Layer
}

// Builder can build compilers.
type Builder struct {
	platform *config.Platform
	searcher search.Searcher
}

// WithPlatform sets the platform to compile for.
func (b Builder) WithPlatform(p *config.Platform) Builder {
	b.platform = p
	return b
}

// WithSearcher replaces the searcher derived from the platform config.
func (b Builder) WithSearcher(s search.Searcher) Builder {
	b.searcher = s
	return b
}

// Build creates a compiler.
func (b Builder) Build(name string) *Compiler {
	if b.platform == nil {
		panic("platform is not set")
	}

	p := b.platform

	s := b.searcher
	if s == nil {
		s = search.New(p.Config.SearchWorkers)
	}

	return &Compiler{
		name:      name,
		platform:  p,
		logger:    trace.OrDefault(p.Logger).With("compiler", name),
		arena:     p.Arena,
		arrays:    p.Arrays,
		pps:       p.PostProcessors,
		banks:     p.Banks,
		ic:        p.Interconnects,
		ports:     p.Interconnects.Get(interconnect.NetX).NumPorts(),
		searcher:  s,
		workerICs: make([]*interconnect.Interconnects, s.Workers()),
		maxRounds: p.Config.MaxPlacementRounds,
		precision: p.Config.Precision,
		models:    make(map[string][]*Layer),
	}
}

// Platform returns the platform the compiler schedules.
func (c *Compiler) Platform() *config.Platform {
	return c.platform
}

// Layers returns every compiled layer, duplicated copies included.
func (c *Compiler) Layers() []*Layer {
	return c.layers
}

// ModelLayers returns the layers compiled for a model, excluding duplicates.
func (c *Compiler) ModelLayers(name string) []*Layer {
	return c.models[name]
}

// NoMainRounds returns the number of array rounds of the schedule.
func (c *Compiler) NoMainRounds() int {
	return c.arrays.LastRound() + 1
}

// NoPostRounds returns the number of post-processor rounds of the schedule.
func (c *Compiler) NoPostRounds() int {
	return c.pps.LastRound() + 1
}

// Compile places every layer of a model in dependency order. A layer starts
// no earlier than the round after its dependencies finish.
func (c *Compiler) Compile(model *workload.Model) error {
	order, err := model.TopoOrder()
	if err != nil {
		return fmt.Errorf("failed to order model %s: %w", model.Name, err)
	}

	endRound := make(map[string]int, len(order))

	for _, src := range order {
		initRound := 0
		for _, d := range src.Deps {
			initRound = max(initRound, endRound[d]+1)
		}

		if src.GEMM == nil {
			endRound[src.Name] = initRound - 1
			continue
		}

		layer, err := c.CompileLayer(src, initRound)
		if err != nil {
			return fmt.Errorf("model %s: %w", model.Name, err)
		}

		endRound[src.Name] = layer.EndRound
		c.models[model.Name] = append(c.models[model.Name], layer)
	}

	c.logger.Info("Compiled",
		"model", model.Name,
		"layers", len(order),
		"main_rounds", c.NoMainRounds(),
		"post_rounds", c.NoPostRounds())

	return nil
}

// CompileLayer places the multiply ops of a layer from initRound on, then
// creates pin shortcuts and places the reduction trees.
func (c *Compiler) CompileLayer(src *workload.Layer, initRound int) (*Layer, error) {
	if src.GEMM == nil {
		panic(fmt.Sprintf("layer %s has no gemm", src.Name))
	}

	if err := src.GEMM.Validate(); err != nil {
		return nil, fmt.Errorf("layer %s: %w", src.Name, err)
	}

	layer := c.createMultOps(src, initRound)
	c.layers = append(c.layers, layer)

	for _, op := range layer.multOps {
		if err := c.placeFrom(initRound, op, c.OpPlacement); err != nil {
			return nil, fmt.Errorf("layer %s: %w", src.Name, err)
		}

		layer.extend(c.arena.Op(op).Round)
	}

	g := src.GEMM
	for i := 0; i < g.NoTiles[0]; i++ {
		for k := 0; k < g.NoTiles[2]; k++ {
			unconsumed := c.CreatePinShortcuts(layer, i, k)

			if err := c.BuildReductionTree(layer, i, k, unconsumed); err != nil {
				return nil, fmt.Errorf("layer %s: %w", src.Name, err)
			}
		}
	}

	trace.Log(c.logger, "LayerCompiled",
		"layer", src.Name, "init", initRound, "end", layer.EndRound)

	return layer, nil
}

// placeFrom offers op to consecutive rounds starting at r.
func (c *Compiler) placeFrom(
	r int,
	op graph.OpID,
	place func(int, graph.OpID) bool,
) error {
	for limit := r + c.maxRounds; r < limit; r++ {
		if place(r, op) {
			return nil
		}
	}

	return fmt.Errorf("op %d after %d rounds: %w", op, c.maxRounds, ErrPlacementInfeasible)
}

// createMultOps creates one multiply op per (i, j, k) with its own X, W and P
// tiles. X and W tiles are bound to banks round-robin in (i, j, k) order.
func (c *Compiler) createMultOps(src *workload.Layer, initRound int) *Layer {
	g := src.GEMM
	layer := newLayer(src, initRound)
	bank := 0

	for i := 0; i < g.NoTiles[0]; i++ {
		for j := 0; j < g.NoTiles[1]; j++ {
			for k := 0; k < g.NoTiles[2]; k++ {
				rows, cols := g.XTileDim(i, j)
				x := c.arena.NewTile(src.Name, graph.KindX, [3]int{i, j, 0},
					rows, cols, c.precision)

				rows, cols = g.WTileDim(j, k)
				w := c.arena.NewTile(src.Name, graph.KindW, [3]int{0, j, k},
					rows, cols, c.precision)

				c.arena.Tile(x).BindBank(bank)
				c.arena.Tile(w).BindBank(bank)
				bank = (bank + 1) % c.banks.Count()

				op := c.arena.NewMultOp(src.Name, [3]int{i, j, k}, x, w)
				layer.addMultOp([3]int{i, j, k}, op)
			}
		}
	}

	return layer
}
