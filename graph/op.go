package graph

// OpID is a handle to an operation stored in an Arena.
type OpID int

// NoOp marks an absent operation reference.
const NoOp OpID = -1

// NotPlaced is the round and unit of an operation that has not been placed.
const NotPlaced = -1

// Op is a schedulable operation. Exactly one of Mult and Aggr is set,
// according to Kind.
type Op struct {
	ID    OpID
	Kind  OpKind
	Layer string
	Copy  int
	Pout  TileID

	Round int
	Unit  int

	Mult *Mult
	Aggr *Aggr

	retired bool
}

// Mult is the payload of a multiply-accumulate operation on an array.
type Mult struct {
	Index [3]int
	X     TileID
	W     TileID

	// Pin is the operation whose result is accumulated into this one.
	Pin OpID
}

// Aggr is the payload of an elementwise add on a post-processor.
type Aggr struct {
	Operand1 OpID
	Operand2 OpID
	Flip     bool
	Twin     OpID
}

// IsPlaced tells if the operation has a round and a unit.
func (o *Op) IsPlaced() bool {
	return o.Round != NotPlaced
}

// Retired tells if the operation has finished executing.
func (o *Op) Retired() bool {
	return o.retired
}

// HasPin tells if a multiply operation accumulates another op's result.
func (o *Op) HasPin() bool {
	return o.Kind == OpMultiply && o.Mult.Pin != NoOp
}
