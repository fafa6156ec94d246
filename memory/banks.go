package memory

import (
	"log/slog"

	"github.com/sarchlab/podsim/graph"
)

// Banks groups the X, W and P banks of a platform.
type Banks struct {
	byKind map[graph.Kind][]*Bank
}

// NewBanks creates n banks of each kind, each holding capacity bytes.
func NewBanks(
	n, capacity int,
	arena *graph.Arena,
	logger *slog.Logger,
) *Banks {
	b := &Banks{byKind: make(map[graph.Kind][]*Bank)}

	for _, kind := range graph.Kinds {
		for i := 0; i < n; i++ {
			b.byKind[kind] = append(b.byKind[kind],
				NewBank(i, kind, capacity, arena, logger))
		}
	}

	return b
}

// Count returns the number of banks of each kind.
func (b *Banks) Count() int {
	return len(b.byKind[graph.KindX])
}

// OfKind returns the banks of one kind.
func (b *Banks) OfKind(kind graph.Kind) []*Bank {
	return b.byKind[kind]
}

// Get returns one bank.
func (b *Banks) Get(kind graph.Kind, id int) *Bank {
	return b.byKind[kind][id]
}

// Of returns the bank a tile is bound to.
func (b *Banks) Of(t *graph.Tile) *Bank {
	if !t.IsBound() {
		panic("tile is not bound to a bank")
	}

	return b.Get(t.Kind, t.Bank)
}

// All returns every bank, X banks first.
func (b *Banks) All() []*Bank {
	var all []*Bank
	for _, kind := range graph.Kinds {
		all = append(all, b.byKind[kind]...)
	}

	return all
}

// GarbageCollect collects every bank after round and returns the number of
// tiles removed.
func (b *Banks) GarbageCollect(round int) int {
	n := 0
	for _, bank := range b.All() {
		n += bank.GarbageCollect(round)
	}

	return n
}

// Used returns the reserved bytes of all banks of one kind.
func (b *Banks) Used(kind graph.Kind) int {
	n := 0
	for _, bank := range b.byKind[kind] {
		n += bank.Used()
	}

	return n
}
