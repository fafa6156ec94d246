package workload

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type rawGEMM struct {
	XTileDim   map[string]map[string][2]int `yaml:"x_tile_dim"`
	WTileDim   map[string]map[string][2]int `yaml:"w_tile_dim"`
	NoTiles    [3]int                       `yaml:"no_tiles"`
	InputSize  [2]int                       `yaml:"input_size"`
	WeightSize [2]int                       `yaml:"weight_size"`
}

type rawLayer struct {
	GEMMOp    *rawGEMM `yaml:"gemm_op"`
	Deps      []string `yaml:"deps"`
	RawInput  int      `yaml:"raw_input"`
	LayerType string   `yaml:"layer_type"`
}

type rawModel struct {
	Order    []string             `yaml:"order"`
	Layers   map[string]*rawLayer `yaml:"layers"`
	NoRepeat int                  `yaml:"no_repeat"`
	NoOps    float64              `yaml:"no_ops"`
}

// Load reads a precompiled workload file. JSON files are accepted as YAML.
func Load(path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workload: %w", err)
	}

	w, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workload %s: %w", path, err)
	}

	return w, nil
}

// Parse decodes a workload. Top-level keys are model names, except "args",
// which is carried through to the results.
func Parse(data []byte) (*Workload, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty workload")
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("workload must be a mapping of models")
	}

	w := &Workload{Args: make(map[string]any)}

	for i := 0; i+1 < len(top.Content); i += 2 {
		key := top.Content[i].Value
		val := top.Content[i+1]

		if key == "args" {
			if err := val.Decode(&w.Args); err != nil {
				return nil, fmt.Errorf("args: %w", err)
			}

			continue
		}

		m, err := parseModel(key, val)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", key, err)
		}

		w.Models = append(w.Models, m)
	}

	return w, nil
}

func parseModel(name string, node *yaml.Node) (*Model, error) {
	var raw rawModel
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}

	order := raw.Order
	if len(order) == 0 {
		order = layerKeyOrder(node)
	}

	if raw.NoRepeat <= 0 {
		raw.NoRepeat = 1
	}

	var layers []*Layer
	for _, lname := range order {
		rl, ok := raw.Layers[lname]
		if !ok {
			return nil, fmt.Errorf("ordered layer %s is not defined", lname)
		}

		l, err := buildLayer(lname, rl)
		if err != nil {
			return nil, err
		}

		layers = append(layers, l)
	}

	m := NewModel(name, raw.NoRepeat, layers...)
	m.NoOps = raw.NoOps

	return m, nil
}

func layerKeyOrder(model *yaml.Node) []string {
	var order []string

	for i := 0; i+1 < len(model.Content); i += 2 {
		if model.Content[i].Value != "layers" {
			continue
		}

		layers := model.Content[i+1]
		for j := 0; j+1 < len(layers.Content); j += 2 {
			order = append(order, layers.Content[j].Value)
		}
	}

	return order
}

func buildLayer(name string, rl *rawLayer) (*Layer, error) {
	l := &Layer{
		Name:     name,
		Type:     rl.LayerType,
		Deps:     rl.Deps,
		RawInput: rl.RawInput != 0,
	}

	if rl.GEMMOp == nil {
		return l, nil
	}

	g := &GEMM{
		NoTiles:    rl.GEMMOp.NoTiles,
		InputSize:  rl.GEMMOp.InputSize,
		WeightSize: rl.GEMMOp.WeightSize,
	}

	var err error
	if g.XTileDims, err = tileDims(rl.GEMMOp.XTileDim); err != nil {
		return nil, fmt.Errorf("layer %s x_tile_dim: %w", name, err)
	}

	if g.WTileDims, err = tileDims(rl.GEMMOp.WTileDim); err != nil {
		return nil, fmt.Errorf("layer %s w_tile_dim: %w", name, err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}

	l.GEMM = g

	return l, nil
}

func tileDims(raw map[string]map[string][2]int) (map[[2]int][2]int, error) {
	dims := make(map[[2]int][2]int)

	for k1, inner := range raw {
		a, err := strconv.Atoi(k1)
		if err != nil {
			return nil, err
		}

		for k2, d := range inner {
			b, err := strconv.Atoi(k2)
			if err != nil {
				return nil, err
			}

			dims[[2]int{a, b}] = d
		}
	}

	return dims, nil
}
