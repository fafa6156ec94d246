// Package workload describes the GEMM layers a model is made of and loads
// precompiled models from disk.
package workload

import (
	"fmt"
	"sort"
)

// GEMM is a layer's matrix multiplication split into tiles. Tile (i, j) of X
// multiplies tile (j, k) of W into a partial result for output tile (i, k).
type GEMM struct {
	// NoTiles holds the tile counts I, J and K.
	NoTiles    [3]int
	XTileDims  map[[2]int][2]int
	WTileDims  map[[2]int][2]int
	InputSize  [2]int
	WeightSize [2]int
}

// XTileDim returns the rows and columns of X tile (i, j).
func (g *GEMM) XTileDim(i, j int) (int, int) {
	d, ok := g.XTileDims[[2]int{i, j}]
	if !ok {
		panic(fmt.Sprintf("missing x tile (%d, %d)", i, j))
	}

	return d[0], d[1]
}

// WTileDim returns the rows and columns of W tile (j, k).
func (g *GEMM) WTileDim(j, k int) (int, int) {
	d, ok := g.WTileDims[[2]int{j, k}]
	if !ok {
		panic(fmt.Sprintf("missing w tile (%d, %d)", j, k))
	}

	return d[0], d[1]
}

// NoMultOps returns the number of tile multiplications.
func (g *GEMM) NoMultOps() int {
	return g.NoTiles[0] * g.NoTiles[1] * g.NoTiles[2]
}

// Validate checks that every tile has a shape and that shapes chain.
func (g *GEMM) Validate() error {
	ni, nj, nk := g.NoTiles[0], g.NoTiles[1], g.NoTiles[2]
	if ni <= 0 || nj <= 0 || nk <= 0 {
		return fmt.Errorf("invalid tile counts %v", g.NoTiles)
	}

	for i := 0; i < ni; i++ {
		for j := 0; j < nj; j++ {
			x, ok := g.XTileDims[[2]int{i, j}]
			if !ok {
				return fmt.Errorf("missing x tile (%d, %d)", i, j)
			}

			for k := 0; k < nk; k++ {
				w, ok := g.WTileDims[[2]int{j, k}]
				if !ok {
					return fmt.Errorf("missing w tile (%d, %d)", j, k)
				}

				if x[1] != w[0] {
					return fmt.Errorf("x tile (%d, %d) is %dx%d but w tile (%d, %d) is %dx%d",
						i, j, x[0], x[1], j, k, w[0], w[1])
				}
			}
		}
	}

	return nil
}

// Layer is one node of a model graph.
type Layer struct {
	Name     string
	Type     string
	Deps     []string
	RawInput bool

	// GEMM is nil for layers without a matrix multiplication.
	GEMM *GEMM
}

// Model is an ordered set of layers.
type Model struct {
	Name     string
	Layers   []*Layer
	NoRepeat int
	NoOps    float64

	byName map[string]*Layer
}

// NewModel creates a model from layers in their preferred order.
func NewModel(name string, noRepeat int, layers ...*Layer) *Model {
	m := &Model{
		Name:     name,
		Layers:   layers,
		NoRepeat: noRepeat,
		byName:   make(map[string]*Layer),
	}

	for _, l := range layers {
		m.byName[l.Name] = l
	}

	return m
}

// Layer returns a layer by name.
func (m *Model) Layer(name string) (*Layer, bool) {
	l, ok := m.byName[name]
	return l, ok
}

// TotalGEMMOps returns the number of tile multiplications of all layers.
func (m *Model) TotalGEMMOps() int {
	n := 0
	for _, l := range m.Layers {
		if l.GEMM != nil {
			n += l.GEMM.NoMultOps()
		}
	}

	return n
}

// TopoOrder returns the layers so that every layer follows its
// dependencies. Among ready layers the preferred order wins.
func (m *Model) TopoOrder() ([]*Layer, error) {
	pos := make(map[string]int, len(m.Layers))
	for i, l := range m.Layers {
		pos[l.Name] = i
	}

	indeg := make(map[string]int, len(m.Layers))
	users := make(map[string][]string)

	for _, l := range m.Layers {
		for _, d := range l.Deps {
			if _, ok := pos[d]; !ok {
				return nil, fmt.Errorf("layer %s depends on unknown layer %s", l.Name, d)
			}

			indeg[l.Name]++
			users[d] = append(users[d], l.Name)
		}
	}

	var ready []string
	for _, l := range m.Layers {
		if indeg[l.Name] == 0 {
			ready = append(ready, l.Name)
		}
	}

	order := make([]*Layer, 0, len(m.Layers))
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool { return pos[ready[a]] < pos[ready[b]] })

		name := ready[0]
		ready = ready[1:]
		order = append(order, m.byName[name])

		for _, u := range users[name] {
			indeg[u]--
			if indeg[u] == 0 {
				ready = append(ready, u)
			}
		}
	}

	if len(order) != len(m.Layers) {
		return nil, fmt.Errorf("model %s has a dependency cycle", m.Name)
	}

	return order, nil
}

// Workload is a set of models run back to back.
type Workload struct {
	Models []*Model
	Args   map[string]any
}
