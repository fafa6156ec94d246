package graph

import "fmt"

// Arena owns every tile and operation of a compilation. Handles stay valid
// for the life of the arena.
type Arena struct {
	tiles []*Tile
	ops   []*Op
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NumTiles returns the number of tiles created so far.
func (a *Arena) NumTiles() int {
	return len(a.tiles)
}

// NumOps returns the number of operations created so far.
func (a *Arena) NumOps() int {
	return len(a.ops)
}

// Tile resolves a tile handle.
func (a *Arena) Tile(id TileID) *Tile {
	if id < 0 || int(id) >= len(a.tiles) {
		panic(fmt.Sprintf("tile %d does not exist", id))
	}

	return a.tiles[id]
}

// Op resolves an operation handle.
func (a *Arena) Op(id OpID) *Op {
	if id < 0 || int(id) >= len(a.ops) {
		panic(fmt.Sprintf("op %d does not exist", id))
	}

	return a.ops[id]
}

// Ops returns all operations in creation order.
func (a *Arena) Ops() []*Op {
	return a.ops
}

// Tiles returns all tiles in creation order.
func (a *Arena) Tiles() []*Tile {
	return a.tiles
}

// NewTile creates an unbound, unallocated tile.
func (a *Arena) NewTile(
	layer string,
	kind Kind,
	index [3]int,
	rows, cols, precision int,
) TileID {
	if rows <= 0 || cols <= 0 || precision <= 0 {
		panic(fmt.Sprintf("invalid tile shape %dx%dx%d", rows, cols, precision))
	}

	t := &Tile{
		ID:        TileID(len(a.tiles)),
		Layer:     layer,
		Kind:      kind,
		Index:     index,
		Rows:      rows,
		Cols:      cols,
		Precision: precision,
		Bank:      Unbound,
		Producer:  NoOp,
	}
	a.tiles = append(a.tiles, t)

	return t.ID
}

func (a *Arena) newOp(kind OpKind, layer string, pout TileID) *Op {
	op := &Op{
		ID:    OpID(len(a.ops)),
		Kind:  kind,
		Layer: layer,
		Pout:  pout,
		Round: NotPlaced,
		Unit:  NotPlaced,
	}
	a.ops = append(a.ops, op)
	a.Tile(pout).Producer = op.ID

	return op
}

// NewMultOp creates a multiply operation reading x and w and writing a fresh
// P tile of shape x.Rows by w.Cols.
func (a *Arena) NewMultOp(layer string, index [3]int, x, w TileID) OpID {
	xt := a.Tile(x)
	wt := a.Tile(w)

	if xt.Kind != KindX || wt.Kind != KindW {
		panic("multiply operands must be an X tile and a W tile")
	}

	if xt.Cols != wt.Rows {
		panic(fmt.Sprintf("cannot multiply %dx%d by %dx%d",
			xt.Rows, xt.Cols, wt.Rows, wt.Cols))
	}

	pout := a.NewTile(layer, KindP, index, xt.Rows, wt.Cols, xt.Precision)
	op := a.newOp(OpMultiply, layer, pout)
	op.Mult = &Mult{Index: index, X: x, W: w, Pin: NoOp}

	xt.Consumers = append(xt.Consumers, op.ID)
	wt.Consumers = append(wt.Consumers, op.ID)

	return op.ID
}

// NewAggrOp creates an aggregate operation adding the results of op1 and op2,
// together with its order-flipped twin. Each writes its own output tile.
func (a *Arena) NewAggrOp(op1, op2 OpID) (OpID, OpID) {
	p1 := a.Tile(a.Op(op1).Pout)
	p2 := a.Tile(a.Op(op2).Pout)

	if p1.Rows != p2.Rows || p1.Cols != p2.Cols {
		panic(fmt.Sprintf("cannot add %dx%d to %dx%d",
			p1.Rows, p1.Cols, p2.Rows, p2.Cols))
	}

	layer := a.Op(op1).Layer
	pout := a.NewTile(layer, KindP, p1.Index, p1.Rows, p1.Cols, p1.Precision)
	tout := a.NewTile(layer, KindP, p1.Index, p1.Rows, p1.Cols, p1.Precision)

	first := a.newOp(OpAggregate, layer, pout)
	first.Copy = a.Op(op1).Copy
	twin := a.newOp(OpAggregate, layer, tout)
	twin.Copy = first.Copy

	first.Aggr = &Aggr{Operand1: op1, Operand2: op2, Twin: twin.ID}
	twin.Aggr = &Aggr{Operand1: op1, Operand2: op2, Flip: true, Twin: first.ID}

	p1.Consumers = append(p1.Consumers, first.ID, twin.ID)
	p2.Consumers = append(p2.Consumers, first.ID, twin.ID)

	return first.ID, twin.ID
}

// SetPin makes consumer accumulate the result of producer.
func (a *Arena) SetPin(consumer, producer OpID) {
	c := a.Op(consumer)
	if c.Kind != OpMultiply {
		panic("only multiply operations take a pin")
	}

	if c.Mult.Pin != NoOp {
		panic(fmt.Sprintf("op %d already has a pin", consumer))
	}

	c.Mult.Pin = producer
	pt := a.Tile(a.Op(producer).Pout)
	pt.Consumers = append(pt.Consumers, consumer)
}

// PinTile returns the tile a multiply operation accumulates, or NoTile.
func (a *Arena) PinTile(id OpID) TileID {
	op := a.Op(id)
	if !op.HasPin() {
		return NoTile
	}

	return a.Op(op.Mult.Pin).Pout
}

// Operands returns the first and second operand of an aggregate operation,
// honoring the flip bit.
func (a *Arena) Operands(id OpID) (OpID, OpID) {
	agg := a.Op(id).Aggr
	if agg == nil {
		panic(fmt.Sprintf("op %d is not an aggregate", id))
	}

	if agg.Flip {
		return agg.Operand2, agg.Operand1
	}

	return agg.Operand1, agg.Operand2
}

// Inputs returns the tiles an aggregate operation reads, honoring the flip
// bit.
func (a *Arena) Inputs(id OpID) (TileID, TileID) {
	op1, op2 := a.Operands(id)

	return a.Op(op1).Pout, a.Op(op2).Pout
}

// ReadyRound returns the last round in which the result of the operation may
// still be computed: the operation's own round and, for aggregates, its twin's.
func (a *Arena) ReadyRound(id OpID) int {
	op := a.Op(id)
	r := op.Round

	if op.Kind == OpAggregate {
		if tr := a.Op(op.Aggr.Twin).Round; tr > r {
			r = tr
		}
	}

	return r
}

// MaxOperandRound returns the latest round in which any operand of an
// aggregate, or either operand's twin, is placed.
func (a *Arena) MaxOperandRound(id OpID) int {
	op1, op2 := a.Operands(id)

	return max(a.ReadyRound(op1), a.ReadyRound(op2))
}

// Place assigns a round and a unit. Placing an operation twice panics.
func (a *Arena) Place(id OpID, round, unit int) {
	op := a.Op(id)
	if op.IsPlaced() {
		panic(fmt.Sprintf("op %d placed twice", id))
	}

	op.Round = round
	op.Unit = unit
}

// Retire marks an operation as finished.
func (a *Arena) Retire(id OpID) {
	a.Op(id).retired = true
}

// Settled tells if an operation has retired and will never read its inputs
// again.
func (a *Arena) Settled(id OpID) bool {
	return a.Op(id).retired
}

// IsTileDead tells if every consumer of the tile has settled.
func (a *Arena) IsTileDead(id TileID) bool {
	for _, c := range a.Tile(id).Consumers {
		if !a.Settled(c) {
			return false
		}
	}

	return true
}

// IsTileDeadBy tells if every consumer placed no later than round has
// settled. Consumers in later rounds may fetch the tile again.
func (a *Arena) IsTileDeadBy(id TileID, round int) bool {
	for _, c := range a.Tile(id).Consumers {
		op := a.Op(c)
		if op.IsPlaced() && op.Round > round {
			continue
		}

		if !a.Settled(c) {
			return false
		}
	}

	return true
}

// IsOutput tells if no operation consumes the tile. Output tiles are written
// back to memory.
func (a *Arena) IsOutput(id TileID) bool {
	t := a.Tile(id)

	return t.Kind == KindP && len(t.Consumers) == 0
}

// CloneTile creates an unallocated copy of a tile keeping its bank binding.
func (a *Arena) CloneTile(id TileID) TileID {
	t := a.Tile(id)
	c := a.NewTile(t.Layer, t.Kind, t.Index, t.Rows, t.Cols, t.Precision)
	a.Tile(c).Bank = t.Bank

	return c
}
