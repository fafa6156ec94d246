package compute

import (
	"log/slog"

	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/trace"
)

// Builder can create arrays and post-processors.
type Builder struct {
	arena  *graph.Arena
	logger *slog.Logger
	rows   int
	cols   int
}

// NewBuilder creates a builder for 128 by 128 arrays.
func NewBuilder() Builder {
	return Builder{
		rows: 128,
		cols: 128,
	}
}

// WithArena sets the arena the units read tiles from.
func (b Builder) WithArena(arena *graph.Arena) Builder {
	b.arena = arena
	return b
}

// WithLogger sets the logger of the units.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithArraySize sets the number of rows and columns of each array.
func (b Builder) WithArraySize(rows, cols int) Builder {
	if rows <= 0 || cols <= 0 {
		panic("array size must be positive")
	}

	b.rows = rows
	b.cols = cols

	return b
}

// BuildArray creates one array.
func (b Builder) BuildArray(id int) *Array {
	if b.arena == nil {
		panic("arena is not set")
	}

	return &Array{
		ID:        id,
		Rows:      b.rows,
		Cols:      b.cols,
		arena:     b.arena,
		logger:    trace.OrDefault(b.logger),
		schedule:  make(map[int]graph.OpID),
		lastRound: -1,
		bufRound:  -1,
		nextW:     graph.NoTile,
		currW:     graph.NoTile,
		execRound: -1,
		execOp:    graph.NoOp,
	}
}

// BuildArrays creates n arrays.
func (b Builder) BuildArrays(n int) *Arrays {
	as := &Arrays{arena: b.arena}
	for i := 0; i < n; i++ {
		as.arrays = append(as.arrays, b.BuildArray(i))
	}

	return as
}

// BuildPostProcessor creates one post-processor.
func (b Builder) BuildPostProcessor(id int) *PostProcessor {
	if b.arena == nil {
		panic("arena is not set")
	}

	return &PostProcessor{
		ID:        id,
		arena:     b.arena,
		logger:    trace.OrDefault(b.logger),
		schedule:  make(map[int]graph.OpID),
		lastRound: -1,
		execRound: -1,
		execOp:    graph.NoOp,
	}
}

// BuildPostProcessors creates n post-processors.
func (b Builder) BuildPostProcessors(n int) *PostProcessors {
	ps := &PostProcessors{arena: b.arena}
	for i := 0; i < n; i++ {
		ps.pps = append(ps.pps, b.BuildPostProcessor(i))
	}

	return ps
}
