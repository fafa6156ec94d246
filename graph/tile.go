package graph

import "fmt"

// TileID is a handle to a tile stored in an Arena.
type TileID int

// NoTile marks an absent tile reference.
const NoTile TileID = -1

// Unbound is the bank index of a tile that has not been bound yet.
const Unbound = -1

// A Tile is a rectangular block of a GEMM operand or result.
type Tile struct {
	ID        TileID
	Layer     string
	Kind      Kind
	Index     [3]int
	Rows      int
	Cols      int
	Precision int

	// Bank is the bank of the tile's kind that the tile is bound to.
	Bank int

	// Producer is the operation writing the tile. X and W tiles have none.
	Producer  OpID
	Consumers []OpID

	allocated   bool
	transferred float64
}

// MemorySize returns the number of bytes the tile occupies.
func (t *Tile) MemorySize() int {
	return t.Rows * t.Cols * t.Precision
}

// IsBound tells if the tile has been bound to a bank.
func (t *Tile) IsBound() bool {
	return t.Bank != Unbound
}

// BindBank binds the tile to a bank. Rebinding to a different bank panics.
func (t *Tile) BindBank(bank int) {
	if t.Bank != Unbound && t.Bank != bank {
		panic(fmt.Sprintf("tile %d already bound to bank %s%d",
			t.ID, t.Kind.Name(), t.Bank))
	}

	t.Bank = bank
}

// Allocated tells if the tile holds a capacity reservation in its bank.
func (t *Tile) Allocated() bool {
	return t.allocated
}

// Resident tells if the tile is allocated and all of its bytes have arrived.
func (t *Tile) Resident() bool {
	return t.allocated && t.transferred >= float64(t.MemorySize())
}

// Transferred returns the number of bytes moved so far.
func (t *Tile) Transferred() float64 {
	return t.transferred
}

// Remaining returns the number of bytes still to be moved.
func (t *Tile) Remaining() float64 {
	r := float64(t.MemorySize()) - t.transferred
	if r < 0 {
		return 0
	}

	return r
}

// MarkAllocated records the capacity reservation.
func (t *Tile) MarkAllocated() {
	if t.allocated {
		panic(fmt.Sprintf("tile %d allocated twice", t.ID))
	}

	t.allocated = true
	t.transferred = 0
}

// MarkReleased drops the reservation and forgets transferred bytes.
func (t *Tile) MarkReleased() {
	t.allocated = false
	t.transferred = 0
}

// MarkFilled makes an allocated tile resident without any transfer. Tiles
// produced on chip use it.
func (t *Tile) MarkFilled() {
	if !t.allocated {
		panic(fmt.Sprintf("tile %d filled before allocation", t.ID))
	}

	t.transferred = float64(t.MemorySize())
}

// Transfer moves up to budget bytes into or out of the tile and returns the
// bytes actually moved.
func (t *Tile) Transfer(budget float64) float64 {
	moved := t.Remaining()
	if moved > budget {
		moved = budget
	}

	t.transferred += moved

	return moved
}

// ResetTransfer clears transfer progress while keeping the reservation. Write
// backs reuse the counter to track outgoing bytes.
func (t *Tile) ResetTransfer() {
	t.transferred = 0
}
