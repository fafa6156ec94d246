package workload

import "fmt"

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func edge(idx, part, size int) int {
	return min((idx+1)*part, size) - idx*part
}

// SplitGEMM splits an m by k input times a k by n weight into tiles of at
// most batch by rows for X and rows by cols for W.
func SplitGEMM(m, k, n, batch, rows, cols int) (*GEMM, error) {
	if m <= 0 || k <= 0 || n <= 0 {
		return nil, fmt.Errorf("invalid gemm %dx%d by %dx%d", m, k, k, n)
	}

	if batch <= 0 || rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid partition %dx%dx%d", batch, rows, cols)
	}

	g := &GEMM{
		NoTiles:    [3]int{ceilDiv(m, batch), ceilDiv(k, rows), ceilDiv(n, cols)},
		XTileDims:  make(map[[2]int][2]int),
		WTileDims:  make(map[[2]int][2]int),
		InputSize:  [2]int{m, k},
		WeightSize: [2]int{k, n},
	}

	for j := 0; j < g.NoTiles[1]; j++ {
		for kk := 0; kk < g.NoTiles[2]; kk++ {
			g.WTileDims[[2]int{j, kk}] = [2]int{edge(j, rows, k), edge(kk, cols, n)}
		}

		for i := 0; i < g.NoTiles[0]; i++ {
			g.XTileDims[[2]int{i, j}] = [2]int{edge(i, batch, m), edge(j, rows, k)}
		}
	}

	return g, nil
}

// NewGEMMLayer creates a layer multiplying an m by k input by a k by n weight
// on arrays of rows by cols.
func NewGEMMLayer(name string, m, k, n, rows, cols int, deps ...string) (*Layer, error) {
	g, err := SplitGEMM(m, k, n, rows, rows, cols)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}

	return &Layer{
		Name:     name,
		Type:     "Dense",
		Deps:     deps,
		RawInput: len(deps) == 0,
		GEMM:     g,
	}, nil
}
