// Package graph holds the operation graph that the compiler places and the
// cycle model replays. Tiles and operations live in an Arena and refer to each
// other through integer handles.
package graph

// Kind is the role a tile plays in a GEMM.
type Kind int

// The three tile kinds.
const (
	KindX Kind = iota
	KindW
	KindP
)

// Kinds lists every tile kind in a fixed order.
var Kinds = []Kind{KindX, KindW, KindP}

// Name returns the short name of the kind.
func (k Kind) Name() string {
	switch k {
	case KindX:
		return "X"
	case KindW:
		return "W"
	case KindP:
		return "P"
	default:
		panic("invalid kind")
	}
}

func (k Kind) String() string {
	return k.Name()
}

// OpKind tells which variant an Op carries.
type OpKind int

// Operation variants.
const (
	OpMultiply OpKind = iota
	OpAggregate
)

func (k OpKind) String() string {
	switch k {
	case OpMultiply:
		return "Mult"
	case OpAggregate:
		return "Aggr"
	default:
		panic("invalid op kind")
	}
}
