package compiler

import (
	"github.com/sarchlab/podsim/graph"
	"github.com/sarchlab/podsim/workload"
)

// A Layer records the operations one workload layer was compiled into.
type Layer struct {
	Name      string
	Copy      int
	Source    *workload.Layer
	InitRound int

	// EndRound is the latest round any op of the layer is placed in.
	EndRound int

	byIndex map[[3]int]graph.OpID
	multOps []graph.OpID
	aggrOps []graph.OpID
	outputs map[[2]int]graph.OpID
}

func newLayer(src *workload.Layer, initRound int) *Layer {
	return &Layer{
		Name:      src.Name,
		Source:    src,
		InitRound: initRound,
		EndRound:  initRound - 1,
		byIndex:   make(map[[3]int]graph.OpID),
		outputs:   make(map[[2]int]graph.OpID),
	}
}

func (l *Layer) addMultOp(index [3]int, op graph.OpID) {
	l.byIndex[index] = op
	l.multOps = append(l.multOps, op)
}

func (l *Layer) extend(round int) {
	l.EndRound = max(l.EndRound, round)
}

// MultOp returns the multiply op of grid cell (i, j, k).
func (l *Layer) MultOp(i, j, k int) graph.OpID {
	op, ok := l.byIndex[[3]int{i, j, k}]
	if !ok {
		return graph.NoOp
	}

	return op
}

// MultOps returns the multiply ops in (i, j, k) order.
func (l *Layer) MultOps() []graph.OpID {
	return l.multOps
}

// AggrOps returns every aggregate op, twins included, in creation order.
func (l *Layer) AggrOps() []graph.OpID {
	return l.aggrOps
}

// Output returns the op producing output tile (i, k).
func (l *Layer) Output(i, k int) graph.OpID {
	op, ok := l.outputs[[2]int{i, k}]
	if !ok {
		return graph.NoOp
	}

	return op
}
